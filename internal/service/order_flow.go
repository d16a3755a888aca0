package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

const (
	minRejectionReasonLen    = 10
	minDisputeDescriptionLen = 20
)

// party роль участника по отношению к конкретному заказу.
type party uint8

const (
	partyBuyer party = 1 << iota
	partyPublisher
	partyAdmin
	partySystem
)

// transitions допустимые переходы статуса и кто может их выполнять.
var transitions = map[domain.OrderStatusType]map[domain.OrderStatusType]party{
	domain.OrderStatusPending: {
		domain.OrderStatusAccepted:  partyPublisher,
		domain.OrderStatusCancelled: partyBuyer | partyPublisher,
	},
	domain.OrderStatusAccepted: {
		domain.OrderStatusWriting:          partyPublisher,
		domain.OrderStatusContentSubmitted: partyPublisher,
		domain.OrderStatusPublished:        partyPublisher,
		domain.OrderStatusCancelled:        partyAdmin,
	},
	domain.OrderStatusWriting: {
		domain.OrderStatusContentSubmitted: partyPublisher,
		domain.OrderStatusPublished:        partyPublisher,
		domain.OrderStatusCancelled:        partyAdmin,
	},
	domain.OrderStatusContentSubmitted: {
		domain.OrderStatusApproved:       partyBuyer,
		domain.OrderStatusRevisionNeeded: partyBuyer,
	},
	domain.OrderStatusRevisionNeeded: {
		domain.OrderStatusWriting:          partyPublisher,
		domain.OrderStatusContentSubmitted: partyPublisher,
		domain.OrderStatusPublished:        partyPublisher,
		domain.OrderStatusDisputed:         partyBuyer | partyPublisher,
	},
	domain.OrderStatusApproved: {
		domain.OrderStatusPublished: partyPublisher,
	},
	domain.OrderStatusPublished: {
		domain.OrderStatusCompleted:      partyBuyer | partySystem | partyAdmin,
		domain.OrderStatusRevisionNeeded: partyBuyer,
		domain.OrderStatusDisputed:       partyBuyer | partyPublisher,
	},
	domain.OrderStatusCompleted: {
		domain.OrderStatusDisputed: partyBuyer,
	},
	domain.OrderStatusDisputed: {
		domain.OrderStatusCompleted: partyAdmin,
		domain.OrderStatusRefunded:  partyAdmin,
	},
}

func partiesOf(actor domain.Actor, order *domain.Order) party {
	if actor.Role == domain.RoleSystem {
		return partySystem
	}
	var p party
	if actor.UserID == order.BuyerID {
		p |= partyBuyer
	}
	if actor.UserID == order.PublisherID {
		p |= partyPublisher
	}
	if actor.IsAdmin() {
		p |= partyAdmin
	}
	return p
}

// CanTransition проверяет, допустим ли переход статуса from -> to.
func CanTransition(from, to domain.OrderStatusType) bool {
	_, ok := transitions[from][to]
	return ok
}

type UpdateStatusArgs struct {
	Status     domain.OrderStatusType
	ArticleURL string
	Reason     string
}

// flow состояние одной транзакции смены статуса: письма отправляются только после фиксации.
type flow struct {
	tx     uow.TX
	now    time.Time
	notify []domain.Notification
}

// UpdateStatus меняет статус заказа согласно таблице переходов. Недопустимый переход -
// domain.ErrInvalidTransition (подвид domain.ErrConflict), переход чужим участником - domain.ErrForbidden.
// Споры открываются и разрешаются только через OpenDispute и ResolveDispute.
func (o *OrderService) UpdateStatus(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	args UpdateStatusArgs,
) (*domain.Order, error) {
	return o.withOrder(ctx, orderID, func(c context.Context, f *flow, order *domain.Order) error {
		if args.Status == domain.OrderStatusDisputed || args.Status == domain.OrderStatusRefunded ||
			order.Status == domain.OrderStatusDisputed {
			return domain.NewTransitionError(order.Status, args.Status)
		}
		return o.transition(c, f, actor, order, args)
	})
}

// Confirm подтверждение покупателем опубликованного заказа. Освобождает заработок исполнителя.
func (o *OrderService) Confirm(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	return o.withOrder(ctx, orderID, func(c context.Context, f *flow, order *domain.Order) error {
		if order.BuyerID != actor.UserID {
			return domain.ErrForbidden
		}
		return o.transition(c, f, actor, order, UpdateStatusArgs{Status: domain.OrderStatusCompleted})
	})
}

// RequestRevision отклонение покупателем опубликованного заказа с причиной.
func (o *OrderService) RequestRevision(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	reason string,
) (*domain.Order, error) {
	return o.withOrder(ctx, orderID, func(c context.Context, f *flow, order *domain.Order) error {
		if order.BuyerID != actor.UserID {
			return domain.ErrForbidden
		}
		return o.transition(c, f, actor, order, UpdateStatusArgs{
			Status: domain.OrderStatusRevisionNeeded,
			Reason: reason,
		})
	})
}

// withOrder блокирует заказ, выполняет fn и сохраняет заказ в одной транзакции.
// Письма, накопленные fn, отправляются после фиксации.
func (o *OrderService) withOrder(
	ctx context.Context,
	orderID int64,
	fn func(ctx context.Context, f *flow, order *domain.Order) error,
) (*domain.Order, error) {
	var (
		order *domain.Order
		f     *flow
	)
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		f = &flow{tx: tx, now: o.now()}
		orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		order, err = orderRepo.FindByIDForUpdate(c, orderID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if err = fn(c, f, order); err != nil {
			return err
		}
		return orderRepo.Save(c, order) //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, txErr)
	}
	o.flush(f.notify)
	return order, nil
}

func (o *OrderService) flush(list []domain.Notification) {
	for _, n := range list {
		o.notifier.Notify(n)
	}
}

// transition проверяет переход по таблице и применяет его побочные эффекты к заказу.
// Сохранение заказа выполняет вызывающий.
func (o *OrderService) transition(
	ctx context.Context,
	f *flow,
	actor domain.Actor,
	order *domain.Order,
	args UpdateStatusArgs,
) error {
	from, to := order.Status, args.Status
	allowed, ok := transitions[from][to]
	if !ok {
		return domain.NewTransitionError(from, to)
	}
	if partiesOf(actor, order)&allowed == 0 {
		return fmt.Errorf("%w: not allowed to move order from %s to %s", domain.ErrForbidden, from, to)
	}

	var err error
	switch to {
	case domain.OrderStatusAccepted:
		err = o.onAccepted(f, order)
	case domain.OrderStatusPublished:
		err = o.onPublished(f, order, args.ArticleURL)
	case domain.OrderStatusCompleted:
		err = o.onCompleted(ctx, f, actor, order)
	case domain.OrderStatusRevisionNeeded:
		err = o.onRevisionNeeded(ctx, f, actor, order, args.Reason)
	case domain.OrderStatusCancelled:
		err = o.onCancelled(ctx, f, actor, order, args.Reason)
	case domain.OrderStatusRefunded:
		err = o.onRefunded(ctx, f, order)
	case domain.OrderStatusPending, domain.OrderStatusWriting, domain.OrderStatusContentSubmitted,
		domain.OrderStatusApproved, domain.OrderStatusDisputed:
	}
	if err != nil {
		return err
	}

	order.Status = to
	metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()
	return nil
}

func (o *OrderService) onAccepted(f *flow, order *domain.Order) error {
	if order.PaymentStatus != domain.PaymentStatusPaid {
		return fmt.Errorf("%w: order %s is not paid", domain.ErrConflict, order.OrderNumber)
	}
	order.AcceptedAt = &f.now
	f.notify = append(f.notify, orderNotification(domain.NotifyOrderAccepted, order.BuyerID, order, nil))
	return nil
}

func (o *OrderService) onPublished(f *flow, order *domain.Order, articleURL string) error {
	if err := o.validate.Var(articleURL, "required,url"); err != nil {
		return domain.NewValidationError("article_url", "must be a valid url")
	}
	deadline := f.now.Add(o.policy.ConfirmationWindow)
	protection := f.now.Add(o.policy.DisputeProtection)

	order.ArticleURL = articleURL
	order.PublishedAt = &f.now
	order.ConfirmationDeadline = &deadline
	order.DisputeProtectionUntil = &protection
	f.notify = append(f.notify, orderNotification(domain.NotifyOrderPublished, order.BuyerID, order, map[string]string{
		"article_url": articleURL,
		"deadline":    deadline.Format(time.RFC1123),
	}))
	return nil
}

func (o *OrderService) onCompleted(ctx context.Context, f *flow, actor domain.Actor, order *domain.Order) error {
	if actor.UserID == order.BuyerID {
		order.BuyerConfirmedAt = &f.now
	}
	if err := o.releaseFunds(ctx, f, order); err != nil {
		return err
	}
	if order.CompletedAt == nil {
		order.CompletedAt = &f.now
	}
	f.notify = append(f.notify, orderNotification(domain.NotifyOrderCompleted, order.PublisherID, order, map[string]string{
		"amount": formatCents(order.PublisherEarnings),
	}))
	return nil
}

func (o *OrderService) onRevisionNeeded(
	ctx context.Context,
	f *flow,
	actor domain.Actor,
	order *domain.Order,
	reason string,
) error {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < minRejectionReasonLen {
		return domain.NewValidationError("reason", fmt.Sprintf("must be at least %d characters", minRejectionReasonLen))
	}
	order.BuyerRejectedAt = &f.now
	order.RejectionReason = reason
	order.RevisionCount++
	order.ConfirmationDeadline = nil

	if err := o.postToConversation(ctx, f.tx, order, &actor.UserID, "[REVISION REQUESTED] "+reason); err != nil {
		return err
	}
	f.notify = append(f.notify, orderNotification(domain.NotifyRevisionNeeded, order.PublisherID, order, map[string]string{
		"reason": reason,
	}))
	return nil
}

func (o *OrderService) onCancelled(
	ctx context.Context,
	f *flow,
	actor domain.Actor,
	order *domain.Order,
	reason string,
) error {
	order.CancelledAt = &f.now
	order.CancellationReason = strings.TrimSpace(reason)
	if err := o.refundBuyer(ctx, f, order); err != nil {
		return err
	}

	for _, userID := range counterparties(actor, order) {
		f.notify = append(f.notify, orderNotification(domain.NotifyOrderCancelled, userID, order, map[string]string{
			"reason": order.CancellationReason,
		}))
	}
	return nil
}

func (o *OrderService) onRefunded(ctx context.Context, f *flow, order *domain.Order) error {
	if err := o.refundBuyer(ctx, f, order); err != nil {
		return err
	}
	f.notify = append(f.notify, orderNotification(domain.NotifyOrderRefunded, order.BuyerID, order, map[string]string{
		"amount": formatCents(order.TotalAmount),
	}))
	return nil
}

// releaseFunds зачисляет заработок исполнителю и комиссию партнеру. Повторный вызов для уже
// выплаченного заказа ничего не делает.
func (o *OrderService) releaseFunds(ctx context.Context, f *flow, order *domain.Order) error {
	switch order.PaymentStatus {
	case domain.PaymentStatusReleased:
		return nil
	case domain.PaymentStatusPaid:
	case domain.PaymentStatusPending, domain.PaymentStatusRefunded:
		return fmt.Errorf("%w: order %s is %s", domain.ErrConflict, order.OrderNumber, order.PaymentStatus)
	}

	if order.PublisherEarnings > 0 {
		if _, err := credit(ctx, f.tx, ledgerEntry{
			UserID:      order.PublisherID,
			BalanceType: domain.BalancePublisher,
			Type:        domain.TransactionEarning,
			Amount:      order.PublisherEarnings,
			OrderID:     &order.ID,
			Description: "Earnings for order " + order.OrderNumber,
		}); err != nil {
			return err
		}
	}
	if order.AffiliateID != nil && order.AffiliateFee > 0 {
		if _, err := credit(ctx, f.tx, ledgerEntry{
			UserID:      *order.AffiliateID,
			BalanceType: domain.BalanceAffiliate,
			Type:        domain.TransactionCommission,
			Amount:      order.AffiliateFee,
			OrderID:     &order.ID,
			Description: "Commission for order " + order.OrderNumber,
		}); err != nil {
			return err
		}
	}

	order.PaymentStatus = domain.PaymentStatusReleased
	order.ReleasedAt = &f.now
	return nil
}

// refundBuyer возвращает покупателю оплату. Если средства уже были выплачены исполнителю,
// заработок и комиссия списываются обратно. Неоплаченный заказ ничего не возвращает.
func (o *OrderService) refundBuyer(ctx context.Context, f *flow, order *domain.Order) error {
	switch order.PaymentStatus {
	case domain.PaymentStatusPending, domain.PaymentStatusRefunded:
		return nil
	case domain.PaymentStatusReleased:
		if err := o.clawBack(ctx, f, order); err != nil {
			return err
		}
	case domain.PaymentStatusPaid:
	}

	if _, err := credit(ctx, f.tx, ledgerEntry{
		UserID:      order.BuyerID,
		BalanceType: domain.BalanceBuyer,
		Type:        domain.TransactionRefund,
		Amount:      order.TotalAmount,
		OrderID:     &order.ID,
		Description: "Refund for order " + order.OrderNumber,
	}); err != nil {
		return err
	}
	order.PaymentStatus = domain.PaymentStatusRefunded
	return nil
}

func (o *OrderService) clawBack(ctx context.Context, f *flow, order *domain.Order) error {
	if order.PublisherEarnings > 0 {
		if _, err := debit(ctx, f.tx, ledgerEntry{
			UserID:      order.PublisherID,
			BalanceType: domain.BalancePublisher,
			Type:        domain.TransactionRefund,
			Amount:      order.PublisherEarnings,
			OrderID:     &order.ID,
			Description: "Earnings reversed for refunded order " + order.OrderNumber,
		}); err != nil {
			return err
		}
	}
	if order.AffiliateID != nil && order.AffiliateFee > 0 {
		if _, err := debit(ctx, f.tx, ledgerEntry{
			UserID:      *order.AffiliateID,
			BalanceType: domain.BalanceAffiliate,
			Type:        domain.TransactionRefund,
			Amount:      order.AffiliateFee,
			OrderID:     &order.ID,
			Description: "Commission reversed for refunded order " + order.OrderNumber,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *OrderService) postToConversation(
	ctx context.Context,
	tx uow.TX,
	order *domain.Order,
	senderID *int64,
	body string,
) error {
	convRepo, err := uow.GetAs[ConversationRepository](tx, uow.RepositoryName(repoargs.ConversationRepoName))
	if err != nil {
		return err //nolint:wrapcheck
	}
	conv, err := convRepo.EnsureForOrder(ctx, order)
	if err != nil {
		return err //nolint:wrapcheck
	}
	_, err = convRepo.AddMessage(ctx, repoargs.CreateMessage{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           body,
		IsSystem:       senderID == nil,
	})
	return err //nolint:wrapcheck
}

type OpenDisputeArgs struct {
	Reason      string
	Description string
}

// OpenDispute открывает спор по заказу. Покупатель может открыть спор по опубликованному,
// отправленному на доработку или завершенному заказу (последнее только в пределах срока защиты),
// исполнитель - по опубликованному или отправленному на доработку. Одновременно по заказу
// может быть открыт только один спор.
func (o *OrderService) OpenDispute(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	args OpenDisputeArgs,
) (*domain.Dispute, error) {
	args.Reason = strings.TrimSpace(args.Reason)
	args.Description = strings.TrimSpace(args.Description)
	if args.Reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	if len([]rune(args.Description)) < minDisputeDescriptionLen {
		return nil, domain.NewValidationError(
			"description", fmt.Sprintf("must be at least %d characters", minDisputeDescriptionLen),
		)
	}

	var dispute *domain.Dispute
	_, err := o.withOrder(ctx, orderID, func(c context.Context, f *flow, order *domain.Order) error {
		if !order.IsParticipant(actor.UserID) {
			return domain.ErrForbidden
		}
		if order.Status == domain.OrderStatusCompleted &&
			(order.DisputeProtectionUntil == nil || f.now.After(*order.DisputeProtectionUntil)) {
			return fmt.Errorf("%w: dispute protection period has ended", domain.ErrConflict)
		}
		if order.PaymentStatus != domain.PaymentStatusPaid && order.PaymentStatus != domain.PaymentStatusReleased {
			return fmt.Errorf("%w: order %s is not paid", domain.ErrConflict, order.OrderNumber)
		}

		from := order.Status
		if err := o.transition(c, f, domain.Actor{UserID: actor.UserID}, order, UpdateStatusArgs{
			Status: domain.OrderStatusDisputed,
		}); err != nil {
			return err
		}

		disputeRepo, err := uow.GetAs[DisputeRepository](f.tx, uow.RepositoryName(repoargs.DisputeRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		dispute, err = disputeRepo.Create(c, repoargs.CreateDispute{
			OrderID:     order.ID,
			OpenedBy:    actor.UserID,
			Reason:      args.Reason,
			Description: args.Description,
		})
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				return fmt.Errorf("%w: dispute is already open", domain.ErrConflict)
			}
			return err //nolint:wrapcheck
		}

		body := fmt.Sprintf("[DISPUTE OPENED] %s: %s", args.Reason, args.Description)
		if err = o.postToConversation(c, f.tx, order, &actor.UserID, body); err != nil {
			return err
		}
		for _, userID := range counterparties(actor, order) {
			f.notify = append(f.notify, orderNotification(domain.NotifyDisputeOpened, userID, order, map[string]string{
				"reason":      args.Reason,
				"from_status": string(from),
			}))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

type ResolveDisputeArgs struct {
	Outcome domain.DisputeOutcome
	Notes   string
}

// ResolveDispute решение администратора по спору: release завершает заказ с выплатой исполнителю,
// refund возвращает средства покупателю.
func (o *OrderService) ResolveDispute(
	ctx context.Context,
	actor domain.Actor,
	disputeID int64,
	args ResolveDisputeArgs,
) (*domain.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	var target domain.OrderStatusType
	switch args.Outcome {
	case domain.DisputeRelease:
		target = domain.OrderStatusCompleted
	case domain.DisputeRefund:
		target = domain.OrderStatusRefunded
	default:
		return nil, domain.NewValidationError("outcome", "must be release or refund")
	}

	var (
		dispute *domain.Dispute
		f       *flow
	)
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		f = &flow{tx: tx, now: o.now()}
		disputeRepo, err := uow.GetAs[DisputeRepository](tx, uow.RepositoryName(repoargs.DisputeRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}

		dispute, err = disputeRepo.FindByIDForUpdate(c, disputeID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if dispute.Status != domain.DisputeOpen {
			return fmt.Errorf("%w: dispute %d is already resolved", domain.ErrConflict, dispute.ID)
		}
		order, err := orderRepo.FindByIDForUpdate(c, dispute.OrderID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		// решение принимается от имени роли администратора, даже если он участник сделки.
		if err = o.transition(c, f, domain.Actor{Role: domain.RoleAdmin}, order, UpdateStatusArgs{Status: target}); err != nil {
			return err
		}
		if err = orderRepo.Save(c, order); err != nil {
			return err //nolint:wrapcheck
		}

		dispute.Status = domain.DisputeResolved
		dispute.Outcome = args.Outcome
		dispute.AdminNotes = args.Notes
		dispute.ResolvedBy = &actor.UserID
		dispute.ResolvedAt = &f.now
		return disputeRepo.Update(c, dispute) //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("resolving dispute %d: %w", disputeID, txErr)
	}
	o.flush(f.notify)
	return dispute, nil
}

type ReviewArgs struct {
	Rating  int
	Comment string
}

// Review отзыв покупателя о заказе. Один отзыв на заказ, пересчитывает рейтинг сайта.
func (o *OrderService) Review(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	args ReviewArgs,
) (*domain.Review, error) {
	if args.Rating < 1 || args.Rating > 5 {
		return nil, domain.NewValidationError("rating", "must be between 1 and 5")
	}

	var review *domain.Review
	_, err := o.withOrder(ctx, orderID, func(c context.Context, f *flow, order *domain.Order) error {
		if order.BuyerID != actor.UserID {
			return domain.ErrForbidden
		}
		if order.Status != domain.OrderStatusCompleted && order.Status != domain.OrderStatusPublished {
			return fmt.Errorf("%w: order %s cannot be reviewed yet", domain.ErrConflict, order.OrderNumber)
		}

		reviewRepo, err := uow.GetAs[ReviewRepository](f.tx, uow.RepositoryName(repoargs.ReviewRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		websiteRepo, err := uow.GetAs[WebsiteRepository](f.tx, uow.RepositoryName(repoargs.WebsiteRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}

		review, err = reviewRepo.Create(c, repoargs.CreateReview{
			OrderID:   order.ID,
			WebsiteID: order.WebsiteID,
			BuyerID:   actor.UserID,
			Rating:    args.Rating,
			Comment:   strings.TrimSpace(args.Comment),
		})
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				return fmt.Errorf("%w: order is already reviewed", domain.ErrConflict)
			}
			return err //nolint:wrapcheck
		}
		rating := args.Rating
		order.BuyerRating = &rating
		return websiteRepo.RefreshRating(c, order.WebsiteID) //nolint:wrapcheck
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// AutoApproveResult итог обработки одного заказа при авто-подтверждении.
type AutoApproveResult struct {
	OrderID     int64
	OrderNumber string
	Completed   bool
	Err         error
}

// AutoApproveExpired завершает опубликованные заказы, у которых истек срок подтверждения покупателем.
// Каждый заказ обрабатывается в отдельной транзакции и перепроверяется под блокировкой, поэтому
// ошибка одного заказа не влияет на остальные, а параллельное подтверждение покупателем не приводит
// к двойной выплате.
//
// limit ограничивает число обработанных без ошибки заказов. Заказы с ошибкой попадают в результат,
// но в limit не засчитываются, выборка продолжается по id.
func (o *OrderService) AutoApproveExpired(ctx context.Context, now time.Time, limit int) ([]AutoApproveResult, error) {
	var (
		results []AutoApproveResult
		afterID int64
		handled int
	)
	for handled < limit && ctx.Err() == nil {
		size := limit - handled
		candidates, err := o.orderRepo.FindAutoApprovable(ctx, now, afterID, size)
		if err != nil {
			return results, fmt.Errorf("auto approving orders: %w", err)
		}
		for _, candidate := range candidates {
			if ctx.Err() != nil {
				break
			}
			afterID = candidate.ID
			res := o.autoApprove(ctx, now, candidate.ID, candidate.OrderNumber)
			if res.Err == nil {
				handled++
			}
			metrics.AutoApproved.WithLabelValues(autoApproveLabel(res)).Inc()
			results = append(results, res)
		}
		if len(candidates) < size {
			break
		}
	}
	return results, nil
}

func (o *OrderService) autoApprove(ctx context.Context, now time.Time, id int64, number string) AutoApproveResult {
	res := AutoApproveResult{OrderID: id, OrderNumber: number}
	_, res.Err = o.withOrder(ctx, id, func(c context.Context, f *flow, order *domain.Order) error {
		if order.Status != domain.OrderStatusPublished || order.ConfirmationDeadline == nil ||
			order.ConfirmationDeadline.After(now) {
			return nil
		}
		f.now = now
		if err := o.transition(c, f, domain.SystemActor, order, UpdateStatusArgs{
			Status: domain.OrderStatusCompleted,
		}); err != nil {
			return err
		}
		res.Completed = true
		return nil
	})
	if res.Err != nil {
		res.Completed = false
	}
	return res
}

func autoApproveLabel(res AutoApproveResult) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.Completed:
		return "completed"
	}
	return "skipped"
}

// counterparties участники сделки, которых нужно уведомить о действии actor.
func counterparties(actor domain.Actor, order *domain.Order) []int64 {
	switch actor.UserID {
	case order.BuyerID:
		return []int64{order.PublisherID}
	case order.PublisherID:
		return []int64{order.BuyerID}
	}
	return []int64{order.BuyerID, order.PublisherID}
}

func orderNotification(
	kind domain.NotificationKind,
	userID int64,
	order *domain.Order,
	extra map[string]string,
) domain.Notification {
	data := map[string]string{"order_number": order.OrderNumber, "order_id": fmt.Sprint(order.ID)}
	maps.Copy(data, extra)
	return domain.Notification{Kind: kind, UserID: userID, Data: data}
}
