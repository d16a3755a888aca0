package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

// memStore хранилище в памяти для тестов сервисов. Повторяет поведение ограничений БД:
// уникальные индексы, условное изменение баланса и откат транзакции.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	users    map[int64]*domain.User
	websites map[int64]*domain.Website
	orders   map[int64]*domain.Order
	ledger   []domain.BalanceTransaction
	payouts  map[int64]*domain.PayoutRequest
	convs    map[int64]*domain.Conversation
	messages []domain.Message
	disputes map[int64]*domain.Dispute
	reviews  map[int64]*domain.Review
	keys     map[int64]*domain.APIKey
	hits     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*domain.User{},
		websites: map[int64]*domain.Website{},
		orders:   map[int64]*domain.Order{},
		payouts:  map[int64]*domain.PayoutRequest{},
		convs:    map[int64]*domain.Conversation{},
		disputes: map[int64]*domain.Dispute{},
		reviews:  map[int64]*domain.Review{},
		keys:     map[int64]*domain.APIKey{},
		hits:     map[string]int{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) addUser(role domain.Role, balances domain.Balances) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	u := &domain.User{
		ID:           id,
		Email:        fmt.Sprintf("user%d@example.com", id),
		Role:         role,
		ReferralCode: fmt.Sprintf("REF%05d", id),
		Balances:     balances,
	}
	s.users[id] = u
	return u
}

func (s *memStore) addWebsite(site domain.Website) *domain.Website {
	s.mu.Lock()
	defer s.mu.Unlock()
	site.ID = s.nextID()
	s.websites[site.ID] = &site
	return &site
}

func (s *memStore) user(id int64) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) order(id int64) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

// ledgerFor строки журнала пользователя по типу баланса в порядке записи.
func (s *memStore) ledgerFor(userID int64, bt domain.BalanceType) []domain.BalanceTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BalanceTransaction
	for _, t := range s.ledger {
		if t.UserID == userID && t.BalanceType == bt {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) ledgerSum(userID int64, bt domain.BalanceType) int64 {
	var sum int64
	for _, t := range s.ledgerFor(userID, bt) {
		sum += t.Amount
	}
	return sum
}

func (s *memStore) repo(name uow.RepositoryName, tx *memTx) uow.Repository {
	b := memBase{s: s, tx: tx}
	switch repoargs.RepositoryName(name) {
	case repoargs.UserRepoName:
		return &memUserRepo{b}
	case repoargs.WebsiteRepoName:
		return &memWebsiteRepo{b}
	case repoargs.OrderRepoName:
		return &memOrderRepo{b}
	case repoargs.BalanceTransactionRepoName:
		return &memLedgerRepo{b}
	case repoargs.PayoutRepoName:
		return &memPayoutRepo{b}
	case repoargs.ConversationRepoName:
		return &memConvRepo{b}
	case repoargs.DisputeRepoName:
		return &memDisputeRepo{b}
	case repoargs.ReviewRepoName:
		return &memReviewRepo{b}
	case repoargs.APIKeyRepoName:
		return &memKeyRepo{b}
	}
	return nil
}

// memUOW выполняет транзакции без общей блокировки: атомарность изменения баланса обеспечивает
// только условное изменение в memUserRepo.AdjustBalance, как условный UPDATE в postgres.
// Незафиксированные изменения видны другим транзакциям, что строже поведения postgres.
type memUOW struct {
	s *memStore
}

func (u *memUOW) Register(uow.RepositoryName, uow.RepositoryFactory) error { return nil }

func (u *memUOW) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return u.s.repo(name, nil), nil
}

func (u *memUOW) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	tx := &memTx{s: u.s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s    *memStore
	mu   sync.Mutex
	undo []func()
}

func (t *memTx) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.s.repo(name, t), nil
}

func (t *memTx) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

type memBase struct {
	s  *memStore
	tx *memTx
}

// onRollback регистрирует отмену изменения. Вызывается под s.mu.
func (b memBase) onRollback(fn func()) {
	if b.tx == nil {
		return
	}
	b.tx.mu.Lock()
	b.tx.undo = append(b.tx.undo, fn)
	b.tx.mu.Unlock()
}

func notFound(what string, id any) error {
	return fmt.Errorf("[mem/%s %v] %w", what, id, domain.ErrRecordNotFound)
}

func duplicate(what string) error {
	return fmt.Errorf("[mem/%s] %w", what, domain.ErrDuplicateKey)
}

func paginate[T any](list []T, p domain.Page) []T {
	off := p.Offset()
	if off >= len(list) {
		return nil
	}
	end := len(list)
	if p.Limit > 0 && off+p.Limit < end {
		end = off + p.Limit
	}
	return list[off:end]
}

type memUserRepo struct{ memBase }

func (r *memUserRepo) CreateUser(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == args.Email || u.ReferralCode == args.ReferralCode {
			return nil, duplicate("users")
		}
	}
	u := &domain.User{
		ID:                r.s.nextID(),
		Email:             args.Email,
		Name:              args.Name,
		EncryptedPassword: args.Password,
		Role:              args.Role,
		ReferralCode:      args.ReferralCode,
		ReferredBy:        args.ReferredBy,
	}
	r.s.users[u.ID] = u
	r.onRollback(func() { delete(r.s.users, u.ID) })
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("users", email)
}

func (r *memUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("users", id)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByReferralCode(_ context.Context, code string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("users", code)
}

func (r *memUserRepo) AdjustBalance(_ context.Context, args repoargs.AdjustBalance) (*repoargs.BalanceChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[args.UserID]
	if !ok {
		return nil, notFound("users", args.UserID)
	}
	var field *int64
	switch args.BalanceType {
	case domain.BalanceBuyer:
		field = &u.Buyer
	case domain.BalancePublisher:
		field = &u.Publisher
	case domain.BalanceAffiliate:
		field = &u.Affiliate
	default:
		return nil, domain.NewValidationError("balance_type", "unknown")
	}
	if *field+args.Delta < 0 {
		return nil, fmt.Errorf("[mem/users] %w", domain.ErrInsufficientFunds)
	}
	before := *field
	*field += args.Delta
	r.onRollback(func() { *field -= args.Delta })
	return &repoargs.BalanceChange{Before: before, After: *field}, nil
}

type memWebsiteRepo struct{ memBase }

func (r *memWebsiteRepo) Create(_ context.Context, args repoargs.CreateWebsite) (*domain.Website, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.websites {
		if w.Domain == args.Domain {
			return nil, duplicate("websites")
		}
	}
	w := &domain.Website{
		ID:                 r.s.nextID(),
		OwnerID:            args.OwnerID,
		Domain:             args.Domain,
		Name:               args.Name,
		PriceGuestPost:     args.PriceGuestPost,
		PriceLinkInsertion: args.PriceLinkInsertion,
		PriceUrgent:        args.PriceUrgent,
		OffersUrgent:       args.OffersUrgent,
		TurnaroundDays:     args.TurnaroundDays,
		IsActive:           true,
		VerificationStatus: domain.VerificationPending,
	}
	r.s.websites[w.ID] = w
	cp := *w
	return &cp, nil
}

func (r *memWebsiteRepo) FindByID(_ context.Context, id int64) (*domain.Website, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.websites[id]
	if !ok {
		return nil, notFound("websites", id)
	}
	cp := *w
	return &cp, nil
}

func (r *memWebsiteRepo) Search(_ context.Context, f repoargs.WebsiteFilter) ([]domain.Website, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Website
	for _, w := range r.s.websites {
		if f.OnlyAvailable && !w.Available() {
			continue
		}
		if f.OwnerID != nil && w.OwnerID != *f.OwnerID {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r *memWebsiteRepo) SetVerification(
	_ context.Context,
	id int64,
	status domain.VerificationStatus,
) (*domain.Website, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.websites[id]
	if !ok {
		return nil, notFound("websites", id)
	}
	w.VerificationStatus = status
	cp := *w
	return &cp, nil
}

func (r *memWebsiteRepo) RefreshRating(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.websites[id]
	if !ok {
		return notFound("websites", id)
	}
	var sum, n int
	for _, rv := range r.s.reviews {
		if rv.WebsiteID == id {
			sum += rv.Rating
			n++
		}
	}
	prevAvg, prevCount := w.AverageRating, w.RatingCount
	w.RatingCount = n
	w.AverageRating = 0
	if n > 0 {
		w.AverageRating = float64(sum) / float64(n)
	}
	r.onRollback(func() { w.AverageRating, w.RatingCount = prevAvg, prevCount })
	return nil
}

type memOrderRepo struct{ memBase }

func (r *memOrderRepo) Create(_ context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == args.OrderNumber {
			return nil, duplicate("orders")
		}
	}
	o := &domain.Order{
		ID:                r.s.nextID(),
		OrderNumber:       args.OrderNumber,
		BuyerID:           args.BuyerID,
		PublisherID:       args.PublisherID,
		WebsiteID:         args.WebsiteID,
		AffiliateID:       args.AffiliateID,
		OrderType:         args.OrderType,
		ContentSource:     args.ContentSource,
		TargetURL:         args.TargetURL,
		AnchorText:        args.AnchorText,
		ArticleTitle:      args.ArticleTitle,
		ArticleBody:       args.ArticleBody,
		BuyerNotes:        args.BuyerNotes,
		BasePrice:         args.BasePrice,
		UrgentFee:         args.UrgentFee,
		Subtotal:          args.Subtotal,
		PlatformFee:       args.PlatformFee,
		AffiliateFee:      args.AffiliateFee,
		TotalAmount:       args.TotalAmount,
		PublisherEarnings: args.PublisherEarnings,
		TurnaroundDays:    args.TurnaroundDays,
		IsUrgent:          args.IsUrgent,
		DeadlineAt:        args.DeadlineAt,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
	}
	r.s.orders[o.ID] = o
	r.onRollback(func() { delete(r.s.orders, o.ID) })
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, notFound("orders", id)
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *memOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.orders[order.ID]
	if !ok {
		return notFound("orders", order.ID)
	}
	cp := *order
	r.s.orders[order.ID] = &cp
	r.onRollback(func() { r.s.orders[order.ID] = prev })
	return nil
}

func (r *memOrderRepo) List(_ context.Context, f repoargs.OrderFilter) ([]domain.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Order
	for _, o := range r.s.orders {
		switch f.Scope {
		case repoargs.ScopeBuyer:
			if o.BuyerID != f.UserID {
				continue
			}
		case repoargs.ScopePublisher:
			if o.PublisherID != f.UserID {
				continue
			}
		case repoargs.ScopeAll:
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r *memOrderRepo) FindAutoApprovable(
	_ context.Context,
	now time.Time,
	afterID int64,
	limit int,
) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Order
	for _, o := range r.s.orders {
		if o.ID > afterID && o.Status == domain.OrderStatusPublished && o.ConfirmationDeadline != nil &&
			!o.ConfirmationDeadline.After(now) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memLedgerRepo struct{ memBase }

func (r *memLedgerRepo) Create(
	_ context.Context,
	args repoargs.BalanceTransactionCreate,
) (*domain.BalanceTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := domain.BalanceTransaction{
		ID:              r.s.nextID(),
		UserID:          args.UserID,
		BalanceType:     args.BalanceType,
		Type:            args.Type,
		Amount:          args.Amount,
		BalanceBefore:   args.BalanceBefore,
		BalanceAfter:    args.BalanceAfter,
		OrderID:         args.OrderID,
		PayoutRequestID: args.PayoutRequestID,
		Description:     args.Description,
	}
	r.s.ledger = append(r.s.ledger, t)
	r.onRollback(func() {
		r.s.ledger = slices.DeleteFunc(r.s.ledger, func(x domain.BalanceTransaction) bool { return x.ID == t.ID })
	})
	return &t, nil
}

func (r *memLedgerRepo) ListByUser(
	_ context.Context,
	f repoargs.BalanceTransactionFilter,
) ([]domain.BalanceTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.BalanceTransaction
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		t := r.s.ledger[i]
		if t.UserID == f.UserID && (f.BalanceType == nil || t.BalanceType == *f.BalanceType) {
			out = append(out, t)
		}
	}
	return paginate(out, f.Page), int64(len(out)), nil
}

type memPayoutRepo struct{ memBase }

func (r *memPayoutRepo) Create(_ context.Context, args repoargs.CreatePayout) (*domain.PayoutRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if args.Method.IsExternal() {
		for _, p := range r.s.payouts {
			if p.UserID == args.UserID && p.Method.IsExternal() &&
				(p.Status == domain.PayoutStatusPending || p.Status == domain.PayoutStatusProcessing) {
				return nil, duplicate("payout_requests")
			}
		}
	}
	p := &domain.PayoutRequest{
		ID:               r.s.nextID(),
		UserID:           args.UserID,
		Amount:           args.Amount,
		BalanceType:      args.BalanceType,
		Method:           args.Method,
		DestinationEmail: args.DestinationEmail,
		Status:           args.Status,
		ProcessedBy:      args.ProcessedBy,
	}
	r.s.payouts[p.ID] = p
	r.onRollback(func() { delete(r.s.payouts, p.ID) })
	cp := *p
	return &cp, nil
}

func (r *memPayoutRepo) FindByIDForUpdate(_ context.Context, id int64) (*domain.PayoutRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payouts[id]
	if !ok {
		return nil, notFound("payout_requests", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memPayoutRepo) Update(_ context.Context, payout *domain.PayoutRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.payouts[payout.ID]
	if !ok {
		return notFound("payout_requests", payout.ID)
	}
	cp := *payout
	r.s.payouts[payout.ID] = &cp
	r.onRollback(func() { r.s.payouts[payout.ID] = prev })
	return nil
}

func (r *memPayoutRepo) List(_ context.Context, f repoargs.PayoutFilter) ([]domain.PayoutRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PayoutRequest
	for _, p := range r.s.payouts {
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, f.Page), int64(len(out)), nil
}

type memConvRepo struct{ memBase }

func (r *memConvRepo) EnsureForOrder(_ context.Context, order *domain.Order) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.convs[order.ID]; ok {
		cp := *c
		return &cp, nil
	}
	c := &domain.Conversation{
		ID:          r.s.nextID(),
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		PublisherID: order.PublisherID,
	}
	r.s.convs[order.ID] = c
	r.onRollback(func() { delete(r.s.convs, order.ID) })
	cp := *c
	return &cp, nil
}

func (r *memConvRepo) AddMessage(_ context.Context, args repoargs.CreateMessage) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := domain.Message{
		ID:             r.s.nextID(),
		ConversationID: args.ConversationID,
		SenderID:       args.SenderID,
		Body:           args.Body,
		IsSystem:       args.IsSystem,
	}
	r.s.messages = append(r.s.messages, m)
	r.onRollback(func() {
		r.s.messages = slices.DeleteFunc(r.s.messages, func(x domain.Message) bool { return x.ID == m.ID })
	})
	return &m, nil
}

func (r *memConvRepo) ListMessages(_ context.Context, conversationID int64, readerID int64) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Message
	for i := range r.s.messages {
		m := &r.s.messages[i]
		if m.ConversationID != conversationID {
			continue
		}
		if m.SenderID == nil || *m.SenderID != readerID {
			m.IsRead = true
		}
		out = append(out, *m)
	}
	return out, nil
}

type memDisputeRepo struct{ memBase }

func (r *memDisputeRepo) Create(_ context.Context, args repoargs.CreateDispute) (*domain.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.OrderID == args.OrderID && d.Status == domain.DisputeOpen {
			return nil, duplicate("disputes")
		}
	}
	d := &domain.Dispute{
		ID:          r.s.nextID(),
		OrderID:     args.OrderID,
		OpenedBy:    args.OpenedBy,
		Reason:      args.Reason,
		Description: args.Description,
		Status:      domain.DisputeOpen,
	}
	r.s.disputes[d.ID] = d
	r.onRollback(func() { delete(r.s.disputes, d.ID) })
	cp := *d
	return &cp, nil
}

func (r *memDisputeRepo) FindByIDForUpdate(_ context.Context, id int64) (*domain.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, notFound("disputes", id)
	}
	cp := *d
	return &cp, nil
}

func (r *memDisputeRepo) Update(_ context.Context, dispute *domain.Dispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.disputes[dispute.ID]
	if !ok {
		return notFound("disputes", dispute.ID)
	}
	cp := *dispute
	r.s.disputes[dispute.ID] = &cp
	r.onRollback(func() { r.s.disputes[dispute.ID] = prev })
	return nil
}

type memReviewRepo struct{ memBase }

func (r *memReviewRepo) Create(_ context.Context, args repoargs.CreateReview) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[args.OrderID]; ok {
		return nil, duplicate("reviews")
	}
	rv := &domain.Review{
		ID:        r.s.nextID(),
		OrderID:   args.OrderID,
		WebsiteID: args.WebsiteID,
		BuyerID:   args.BuyerID,
		Rating:    args.Rating,
		Comment:   args.Comment,
	}
	r.s.reviews[args.OrderID] = rv
	r.onRollback(func() { delete(r.s.reviews, args.OrderID) })
	cp := *rv
	return &cp, nil
}

type memKeyRepo struct{ memBase }

func (r *memKeyRepo) Create(_ context.Context, args repoargs.CreateAPIKey) (*domain.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := &domain.APIKey{
		ID:          r.s.nextID(),
		UserID:      args.UserID,
		Name:        args.Name,
		KeyPrefix:   args.KeyPrefix,
		KeyHash:     args.KeyHash,
		Permissions: args.Permissions,
		RateLimit:   args.RateLimit,
		IsActive:    true,
		ExpiresAt:   args.ExpiresAt,
	}
	r.s.keys[k.ID] = k
	cp := *k
	return &cp, nil
}

func (r *memKeyRepo) FindByHash(_ context.Context, hash string) (*domain.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.keys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, notFound("api_keys", "hash")
}

func (r *memKeyRepo) ListByUser(_ context.Context, userID int64) ([]domain.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.APIKey
	for _, k := range r.s.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *memKeyRepo) Revoke(_ context.Context, userID, keyID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[keyID]
	if !ok || k.UserID != userID {
		return notFound("api_keys", keyID)
	}
	k.IsActive = false
	return nil
}

func (r *memKeyRepo) Touch(_ context.Context, keyID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.keys[keyID]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

func (r *memKeyRepo) HitRateLimit(_ context.Context, keyID int64, windowStart time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := fmt.Sprintf("%d/%d", keyID, windowStart.Unix())
	r.s.hits[k]++
	return r.s.hits[k], nil
}

func (r *memKeyRepo) PurgeRateLimits(context.Context, time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.hits))
	r.s.hits = map[string]int{}
	return n, nil
}

// recordingNotifier запоминает отправленные письма.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(x domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, x)
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.sent))
	for i, x := range n.sent {
		out[i] = x.Kind
	}
	return out
}

func (s *memStore) website(id int64) domain.Website {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.websites[id]
}

// messagesFor сообщения переписки по заказу.
func (s *memStore) messagesFor(orderID int64) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[orderID]
	if !ok {
		return nil
	}
	var out []domain.Message
	for _, m := range s.messages {
		if m.ConversationID == c.ID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) setReferrer(userID, referrerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].ReferredBy = &referrerID
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
