package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/go-playground/validator/v10"
)

const (
	orderNumberPrefix = "PS-"
	// maxOrderNumberAttempts сколько раз создание заказа повторяется при коллизии номера.
	maxOrderNumberAttempts = 3
)

type OrderService struct {
	uow         uow.UOW
	orderRepo   OrderRepository
	websiteRepo WebsiteRepository
	userRepo    UserRepository
	convRepo    ConversationRepository
	notifier    Notifier
	policy      domain.PricingPolicy
	validate    *validator.Validate
	now         func() time.Time
	newNumber   func() string
}

func NewOrderService(u uow.UOW, policy domain.PricingPolicy, notifier Notifier) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	websiteRepo, err := uow.GetRepositoryAs[WebsiteRepository](u, uow.RepositoryName(repoargs.WebsiteRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	convRepo, err := uow.GetRepositoryAs[ConversationRepository](u, uow.RepositoryName(repoargs.ConversationRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &OrderService{
		uow:         u,
		orderRepo:   orderRepo,
		websiteRepo: websiteRepo,
		userRepo:    userRepo,
		convRepo:    convRepo,
		notifier:    notifier,
		policy:      policy,
		validate:    validator.New(),
		now:         time.Now,
		newNumber:   func() string { return orderNumberPrefix + shortCode() },
	}, nil
}

type CreateOrderArgs struct {
	WebsiteID     int64
	OrderType     domain.OrderType
	ContentSource domain.ContentSource
	Urgent        bool
	TargetURL     string
	AnchorText    string
	ArticleTitle  string
	ArticleBody   string
	BuyerNotes    string
	PayWithWallet bool
}

// Create оформляет заказ покупателя на размещение.
//
// Алгоритм работы:
//  1. Проверяет, что сайт существует, активен и прошел верификацию (иначе domain.ErrRecordNotFound),
//     и что покупатель не является его владельцем (domain.ErrForbidden).
//  2. Рассчитывает стоимость функцией Quote.
//  3. В одной транзакции создает заказ и, если PayWithWallet, списывает total с баланса покупателя,
//     пишет строку purchase и создает переписку по заказу. При нехватке средств ничего не сохраняется.
//  4. При коллизии номера заказа транзакция повторяется целиком до maxOrderNumberAttempts раз.
//
// После фиксации транзакции отправляет письма покупателю и исполнителю.
func (o *OrderService) Create(ctx context.Context, actor domain.Actor, args CreateOrderArgs) (*domain.Order, error) {
	if err := o.validateCreate(&args); err != nil {
		return nil, err
	}

	site, err := o.websiteRepo.FindByID(ctx, args.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if !site.Available() {
		return nil, fmt.Errorf("creating order: website %d is not available: %w", site.ID, domain.ErrRecordNotFound)
	}
	if site.OwnerID == actor.UserID {
		return nil, fmt.Errorf("creating order: cannot buy on own website: %w", domain.ErrForbidden)
	}

	buyer, err := o.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	quote, err := Quote(o.policy, site, args.OrderType, args.Urgent, buyer.ReferredBy != nil, o.now())
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	var order *domain.Order
	for attempt := 1; ; attempt++ {
		order, err = o.createOnce(ctx, buyer, site, quote, args)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("creating order: %w", err)
		}
		metrics.OrderNumberCollisions.Inc()
		if attempt >= maxOrderNumberAttempts {
			return nil, fmt.Errorf("creating order: could not allocate a unique order number: %w", domain.ErrUnknown)
		}
	}

	metrics.OrdersCreated.WithLabelValues(string(order.OrderType), strconv.FormatBool(args.PayWithWallet)).Inc()
	o.notifyCreated(order, site)
	return order, nil
}

func (o *OrderService) validateCreate(args *CreateOrderArgs) error {
	if args.OrderType != domain.OrderTypeGuestPost && args.OrderType != domain.OrderTypeLinkInsertion {
		return domain.NewValidationError("order_type", "must be guest_post or link_insertion")
	}
	switch args.ContentSource {
	case "":
		args.ContentSource = domain.ContentPublisherWrites
	case domain.ContentBuyerProvided, domain.ContentPublisherWrites:
	default:
		return domain.NewValidationError("content_source", "must be buyer_provided or publisher_writes")
	}
	if err := o.validate.Var(args.TargetURL, "required,url"); err != nil {
		return domain.NewValidationError("target_url", "must be a valid url")
	}
	if strings.TrimSpace(args.AnchorText) == "" {
		return domain.NewValidationError("anchor_text", "is required")
	}
	return nil
}

func (o *OrderService) createOnce(
	ctx context.Context,
	buyer *domain.User,
	site *domain.Website,
	quote *domain.Quote,
	args CreateOrderArgs,
) (*domain.Order, error) {
	var order *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		order, err = orderRepo.Create(c, repoargs.CreateOrder{
			OrderNumber:       o.newNumber(),
			BuyerID:           buyer.ID,
			PublisherID:       site.OwnerID,
			WebsiteID:         site.ID,
			AffiliateID:       buyer.ReferredBy,
			OrderType:         args.OrderType,
			ContentSource:     args.ContentSource,
			TargetURL:         args.TargetURL,
			AnchorText:        args.AnchorText,
			ArticleTitle:      args.ArticleTitle,
			ArticleBody:       args.ArticleBody,
			BuyerNotes:        args.BuyerNotes,
			BasePrice:         quote.BasePrice,
			UrgentFee:         quote.UrgentFee,
			Subtotal:          quote.Subtotal,
			PlatformFee:       quote.PlatformFee,
			AffiliateFee:      quote.AffiliateFee,
			TotalAmount:       quote.Total,
			PublisherEarnings: quote.PublisherEarnings,
			TurnaroundDays:    quote.TurnaroundDays,
			IsUrgent:          quote.IsUrgent,
			DeadlineAt:        quote.Deadline,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}
		if !args.PayWithWallet {
			return nil
		}
		return o.payOrder(c, tx, order)
	})
	if txErr != nil {
		return nil, txErr //nolint:wrapcheck
	}
	return order, nil
}

// payOrder оплачивает заказ с баланса покупателя. Должен вызываться внутри uow.Do.
func (o *OrderService) payOrder(ctx context.Context, tx uow.TX, order *domain.Order) error {
	orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return err //nolint:wrapcheck
	}
	convRepo, err := uow.GetAs[ConversationRepository](tx, uow.RepositoryName(repoargs.ConversationRepoName))
	if err != nil {
		return err //nolint:wrapcheck
	}

	if _, err = debit(ctx, tx, ledgerEntry{
		UserID:      order.BuyerID,
		BalanceType: domain.BalanceBuyer,
		Type:        domain.TransactionPurchase,
		Amount:      order.TotalAmount,
		OrderID:     &order.ID,
		Description: "Wallet payment for order " + order.OrderNumber,
	}); err != nil {
		return err
	}

	now := o.now()
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaidAt = &now
	if err = orderRepo.Save(ctx, order); err != nil {
		return err //nolint:wrapcheck
	}

	if _, err = convRepo.EnsureForOrder(ctx, order); err != nil {
		return err //nolint:wrapcheck
	}
	return nil
}

// PayWithWallet оплачивает ранее созданный неоплаченный заказ с баланса покупателя.
func (o *OrderService) PayWithWallet(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	var order *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		order, err = orderRepo.FindByIDForUpdate(c, orderID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if order.BuyerID != actor.UserID {
			return domain.ErrForbidden
		}
		if order.PaymentStatus != domain.PaymentStatusPending || order.Status != domain.OrderStatusPending {
			return fmt.Errorf("%w: order %s cannot be paid", domain.ErrConflict, order.OrderNumber)
		}
		return o.payOrder(c, tx, order)
	})
	if txErr != nil {
		return nil, fmt.Errorf("paying order %d: %w", orderID, txErr)
	}
	return order, nil
}

func (o *OrderService) notifyCreated(order *domain.Order, site *domain.Website) {
	data := map[string]string{
		"order_number": order.OrderNumber,
		"website":      site.Domain,
		"order_type":   string(order.OrderType),
	}
	o.notifier.Notify(domain.Notification{
		Kind:   domain.NotifyOrderPlaced,
		UserID: order.BuyerID,
		Data:   withAmount(data, order.TotalAmount),
	})
	o.notifier.Notify(domain.Notification{
		Kind:   domain.NotifyOrderReceived,
		UserID: order.PublisherID,
		Data:   withAmount(data, order.PublisherEarnings),
	})
}

// Get возвращает заказ участнику сделки или администратору.
func (o *OrderService) Get(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	order, err := o.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if !order.IsParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

type ListOrdersArgs struct {
	// View чьи заказы показывать. Пустое значение выбирается по роли пользователя.
	View   repoargs.OrderScope
	Status *domain.OrderStatusType
	Page   domain.Page
}

// List заказы пользователя как покупателя или как исполнителя. Все заказы доступны только администратору.
func (o *OrderService) List(ctx context.Context, actor domain.Actor, args ListOrdersArgs) ([]domain.Order, int64, error) {
	view := args.View
	if view == "" {
		view = repoargs.ScopeBuyer
		if actor.Role == domain.RolePublisher {
			view = repoargs.ScopePublisher
		}
	}
	if view == repoargs.ScopeAll && !actor.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}
	list, total, err := o.orderRepo.List(ctx, repoargs.OrderFilter{
		Scope:  view,
		UserID: actor.UserID,
		Status: args.Status,
		Page:   args.Page,
	})
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

// PostMessage добавляет сообщение в переписку по заказу.
func (o *OrderService) PostMessage(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	body string,
) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.NewValidationError("body", "is required")
	}
	order, err := o.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	var msg *domain.Message
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		convRepo, repoErr := uow.GetAs[ConversationRepository](tx, uow.RepositoryName(repoargs.ConversationRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		conv, convErr := convRepo.EnsureForOrder(c, order)
		if convErr != nil {
			return convErr //nolint:wrapcheck
		}
		var msgErr error
		msg, msgErr = convRepo.AddMessage(c, repoargs.CreateMessage{
			ConversationID: conv.ID,
			SenderID:       &actor.UserID,
			Body:           body,
		})
		return msgErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("posting message to order %d: %w", orderID, txErr)
	}
	return msg, nil
}

// Messages переписка по заказу. Сообщения собеседника помечаются прочитанными.
func (o *OrderService) Messages(ctx context.Context, actor domain.Actor, orderID int64) ([]domain.Message, error) {
	order, err := o.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	conv, err := o.convRepo.EnsureForOrder(ctx, order)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	list, err := o.convRepo.ListMessages(ctx, conv.ID, actor.UserID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return list, nil
}

func withAmount(data map[string]string, cents int64) map[string]string {
	out := maps.Clone(data)
	out["amount"] = formatCents(cents)
	return out
}
