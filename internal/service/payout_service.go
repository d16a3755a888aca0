package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/go-playground/validator/v10"
)

type PayoutService struct {
	uow        uow.UOW
	payoutRepo PayoutRepository
	notifier   Notifier
	policy     domain.PricingPolicy
	validate   *validator.Validate
	now        func() time.Time
}

func NewPayoutService(u uow.UOW, policy domain.PricingPolicy, notifier Notifier) (*PayoutService, error) {
	payoutRepo, err := uow.GetRepositoryAs[PayoutRepository](u, uow.RepositoryName(repoargs.PayoutRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &PayoutService{
		uow:        u,
		payoutRepo: payoutRepo,
		notifier:   notifier,
		policy:     policy,
		validate:   validator.New(),
		now:        time.Now,
	}, nil
}

type RequestPayoutArgs struct {
	Amount           int64
	BalanceType      domain.BalanceType
	Method           domain.PayoutMethod
	DestinationEmail string
}

// PayoutResult созданная заявка и балансы пользователя после ее создания.
type PayoutResult struct {
	Payout   *domain.PayoutRequest
	Balances domain.Balances
}

// Request создает заявку на выплату.
//
// Перевод в кошелек покупателя (wallet_transfer) выполняется сразу: списание с исходного баланса,
// зачисление на баланс покупателя и заявка в статусе completed пишутся одной транзакцией.
// Внешние методы (paypal, payoneer) создают заявку pending и сразу удерживают сумму. У пользователя
// может быть только одна необработанная внешняя заявка, повтор - domain.ErrConflict.
//
// Все проверки входных данных выполняются до изменения балансов.
func (p *PayoutService) Request(ctx context.Context, actor domain.Actor, args RequestPayoutArgs) (*PayoutResult, error) {
	if err := p.validateRequest(args); err != nil {
		metrics.PayoutRequests.WithLabelValues(string(args.Method), "invalid").Inc()
		return nil, err
	}

	var result PayoutResult
	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		if args.Method.IsExternal() {
			result.Payout, err = p.requestExternal(c, tx, actor, args)
		} else {
			result.Payout, err = p.requestWalletTransfer(c, tx, actor, args)
		}
		if err != nil {
			return err
		}

		userRepo, repoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		user, userErr := userRepo.FindByID(c, actor.UserID)
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}
		result.Balances = user.Balances
		return nil
	})

	if txErr != nil {
		metrics.PayoutRequests.WithLabelValues(string(args.Method), resultLabel(txErr)).Inc()
		return nil, fmt.Errorf("requesting payout: %w", txErr)
	}
	metrics.PayoutRequests.WithLabelValues(string(args.Method), "ok").Inc()

	if args.Method.IsExternal() {
		p.notifier.Notify(domain.Notification{
			Kind:   domain.NotifyPayoutRequested,
			UserID: actor.UserID,
			Data: map[string]string{
				"amount": formatCents(args.Amount),
				"method": string(args.Method),
			},
		})
	}
	return &result, nil
}

func (p *PayoutService) validateRequest(args RequestPayoutArgs) error {
	if args.Amount <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	if args.Amount < p.policy.MinPayout {
		return domain.NewValidationError("amount", "minimum payout is $"+formatCents(p.policy.MinPayout))
	}
	if args.BalanceType != domain.BalancePublisher && args.BalanceType != domain.BalanceAffiliate {
		return domain.NewValidationError("balance_type", "must be publisher or affiliate")
	}
	switch args.Method {
	case domain.PayoutWalletTransfer:
	case domain.PayoutPayPal, domain.PayoutPayoneer:
		if args.DestinationEmail == "" {
			return domain.NewValidationError("destination_email", "is required for "+string(args.Method))
		}
		if err := p.validate.Var(args.DestinationEmail, "email"); err != nil {
			return domain.NewValidationError("destination_email", "is not a valid email")
		}
	default:
		return domain.NewValidationError("method", "unknown payout method")
	}
	return nil
}

func (p *PayoutService) requestWalletTransfer(
	ctx context.Context,
	tx uow.TX,
	actor domain.Actor,
	args RequestPayoutArgs,
) (*domain.PayoutRequest, error) {
	payoutRepo, err := uow.GetAs[PayoutRepository](tx, uow.RepositoryName(repoargs.PayoutRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if _, _, err = transfer(ctx, tx, ledgerEntry{
		UserID:      actor.UserID,
		BalanceType: args.BalanceType,
		Type:        domain.TransactionTransfer,
		Amount:      args.Amount,
		Description: "Transfer to buyer wallet",
	}, domain.BalanceBuyer, fmt.Sprintf("Transfer from %s earnings", args.BalanceType)); err != nil {
		return nil, err
	}

	processedBy := actor.UserID
	payout, err := payoutRepo.Create(ctx, repoargs.CreatePayout{
		UserID:      actor.UserID,
		Amount:      args.Amount,
		BalanceType: args.BalanceType,
		Method:      domain.PayoutWalletTransfer,
		Status:      domain.PayoutStatusCompleted,
		ProcessedBy: &processedBy,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return payout, nil
}

func (p *PayoutService) requestExternal(
	ctx context.Context,
	tx uow.TX,
	actor domain.Actor,
	args RequestPayoutArgs,
) (*domain.PayoutRequest, error) {
	payoutRepo, err := uow.GetAs[PayoutRepository](tx, uow.RepositoryName(repoargs.PayoutRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	// сначала списание: при исчерпанном балансе ответ INSUFFICIENT_FUNDS, а не конфликт открытой заявки.
	held, err := reserve(ctx, tx, ledgerEntry{
		UserID:      actor.UserID,
		BalanceType: args.BalanceType,
		Type:        domain.TransactionPayout,
		Amount:      args.Amount,
		Description: strings.ToUpper(string(args.Method)) + " payout request",
	})
	if err != nil {
		return nil, err
	}

	payout, err := payoutRepo.Create(ctx, repoargs.CreatePayout{
		UserID:           actor.UserID,
		Amount:           args.Amount,
		BalanceType:      args.BalanceType,
		Method:           args.Method,
		DestinationEmail: args.DestinationEmail,
		Status:           domain.PayoutStatusPending,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: a payout request is already pending", domain.ErrConflict)
		}
		return nil, err //nolint:wrapcheck
	}

	held.entry.PayoutRequestID = &payout.ID
	if _, err = held.record(ctx, tx); err != nil {
		return nil, err
	}
	return payout, nil
}

type ListPayoutsArgs struct {
	Status *domain.PayoutStatusType
	Page   domain.Page
}

// List заявки пользователя, новые первыми.
func (p *PayoutService) List(
	ctx context.Context,
	actor domain.Actor,
	args ListPayoutsArgs,
) ([]domain.PayoutRequest, int64, error) {
	userID := actor.UserID
	list, total, err := p.payoutRepo.List(ctx, repoargs.PayoutFilter{UserID: &userID, Status: args.Status, Page: args.Page})
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

// ListAll заявки всех пользователей. Только для администратора.
func (p *PayoutService) ListAll(
	ctx context.Context,
	actor domain.Actor,
	args ListPayoutsArgs,
) ([]domain.PayoutRequest, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, domain.ErrForbidden
	}
	list, total, err := p.payoutRepo.List(ctx, repoargs.PayoutFilter{Status: args.Status, Page: args.Page})
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

// MarkProcessing переводит заявку из pending в processing.
func (p *PayoutService) MarkProcessing(ctx context.Context, actor domain.Actor, id int64) (*domain.PayoutRequest, error) {
	return p.resolve(ctx, actor, id, func(_ context.Context, _ uow.TX, payout *domain.PayoutRequest) error {
		if payout.Status != domain.PayoutStatusPending {
			return fmt.Errorf("%w: payout is %s", domain.ErrConflict, payout.Status)
		}
		payout.Status = domain.PayoutStatusProcessing
		return nil
	})
}

// MarkPaid отмечает внешнюю выплату выполненной. Средства были удержаны при создании заявки,
// балансы не меняются.
func (p *PayoutService) MarkPaid(
	ctx context.Context,
	actor domain.Actor,
	id int64,
	notes string,
) (*domain.PayoutRequest, error) {
	payout, err := p.resolve(ctx, actor, id, func(_ context.Context, _ uow.TX, payout *domain.PayoutRequest) error {
		if !isOpenPayout(payout) {
			return fmt.Errorf("%w: payout is %s", domain.ErrConflict, payout.Status)
		}
		now := p.now()
		payout.Status = domain.PayoutStatusCompleted
		payout.AdminNotes = notes
		payout.ProcessedBy = &actor.UserID
		payout.ProcessedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.notifier.Notify(domain.Notification{
		Kind:   domain.NotifyPayoutPaid,
		UserID: payout.UserID,
		Data:   map[string]string{"amount": formatCents(payout.Amount), "method": string(payout.Method)},
	})
	return payout, nil
}

// Reject отклоняет заявку и возвращает удержанную сумму на исходный баланс строкой refund.
func (p *PayoutService) Reject(
	ctx context.Context,
	actor domain.Actor,
	id int64,
	reason string,
) (*domain.PayoutRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	payout, err := p.resolve(ctx, actor, id, func(c context.Context, tx uow.TX, payout *domain.PayoutRequest) error {
		if !isOpenPayout(payout) {
			return fmt.Errorf("%w: payout is %s", domain.ErrConflict, payout.Status)
		}
		now := p.now()
		payout.Status = domain.PayoutStatusRejected
		payout.RejectionReason = reason
		payout.ProcessedBy = &actor.UserID
		payout.ProcessedAt = &now

		_, creditErr := credit(c, tx, ledgerEntry{
			UserID:          payout.UserID,
			BalanceType:     payout.BalanceType,
			Type:            domain.TransactionRefund,
			Amount:          payout.Amount,
			PayoutRequestID: &payout.ID,
			Description:     fmt.Sprintf("Payout #%d rejected: %s", payout.ID, reason),
		})
		return creditErr
	})
	if err != nil {
		return nil, err
	}

	p.notifier.Notify(domain.Notification{
		Kind:   domain.NotifyPayoutRejected,
		UserID: payout.UserID,
		Data:   map[string]string{"amount": formatCents(payout.Amount), "reason": reason},
	})
	return payout, nil
}

// resolve блокирует заявку, применяет к ней fn и сохраняет результат в одной транзакции.
func (p *PayoutService) resolve(
	ctx context.Context,
	actor domain.Actor,
	id int64,
	fn func(ctx context.Context, tx uow.TX, payout *domain.PayoutRequest) error,
) (*domain.PayoutRequest, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	var payout *domain.PayoutRequest
	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		payoutRepo, err := uow.GetAs[PayoutRepository](tx, uow.RepositoryName(repoargs.PayoutRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		payout, err = payoutRepo.FindByIDForUpdate(c, id)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if err = fn(c, tx, payout); err != nil {
			return err
		}
		return payoutRepo.Update(c, payout) //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("resolving payout %d: %w", id, txErr)
	}
	return payout, nil
}

func isOpenPayout(p *domain.PayoutRequest) bool {
	return p.Status == domain.PayoutStatusPending || p.Status == domain.PayoutStatusProcessing
}
