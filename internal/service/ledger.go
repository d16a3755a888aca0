package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

// ledgerEntry движение средств по одному балансу. Amount всегда положительный,
// направление задается вызовом credit или debit.
type ledgerEntry struct {
	UserID          int64
	BalanceType     domain.BalanceType
	Type            domain.TransactionType
	Amount          int64
	OrderID         *int64
	PayoutRequestID *int64
	Description     string
}

// credit зачисляет средства на баланс и пишет строку журнала. Должен вызываться внутри uow.Do.
func credit(ctx context.Context, tx uow.TX, e ledgerEntry) (*domain.BalanceTransaction, error) {
	if e.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return post(ctx, tx, e, e.Amount)
}

// debit списывает средства. Если средств недостаточно, баланс не меняется, строка журнала не
// пишется и возвращается domain.ErrInsufficientFunds.
func debit(ctx context.Context, tx uow.TX, e ledgerEntry) (*domain.BalanceTransaction, error) {
	if e.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return post(ctx, tx, e, -e.Amount)
}

// transfer перемещает средства между балансами одного пользователя двумя строками журнала
// в одной транзакции.
func transfer(
	ctx context.Context,
	tx uow.TX,
	from ledgerEntry,
	to domain.BalanceType,
	creditDescription string,
) (*domain.BalanceTransaction, *domain.BalanceTransaction, error) {
	out, err := debit(ctx, tx, from)
	if err != nil {
		return nil, nil, err
	}
	in, err := credit(ctx, tx, ledgerEntry{
		UserID:          from.UserID,
		BalanceType:     to,
		Type:            from.Type,
		Amount:          from.Amount,
		OrderID:         from.OrderID,
		PayoutRequestID: from.PayoutRequestID,
		Description:     creditDescription,
	})
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

func post(ctx context.Context, tx uow.TX, e ledgerEntry, delta int64) (*domain.BalanceTransaction, error) {
	p, err := apply(ctx, tx, e, delta)
	if err != nil {
		return nil, err
	}
	return p.record(ctx, tx)
}

// posting изменение баланса, уже примененное в транзакции, но еще не записанное в журнал.
type posting struct {
	entry  ledgerEntry
	delta  int64
	change *repoargs.BalanceChange
}

// reserve списывает средства, откладывая запись в журнал. Используется, когда строка журнала должна
// ссылаться на запись, которую можно создать только после успешного списания.
func reserve(ctx context.Context, tx uow.TX, e ledgerEntry) (*posting, error) {
	if e.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	return apply(ctx, tx, e, -e.Amount)
}

func apply(ctx context.Context, tx uow.TX, e ledgerEntry, delta int64) (*posting, error) {
	userRepo, err := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	change, adjErr := userRepo.AdjustBalance(ctx, repoargs.AdjustBalance{
		UserID:      e.UserID,
		BalanceType: e.BalanceType,
		Delta:       delta,
	})
	if adjErr != nil {
		if errors.Is(adjErr, domain.ErrInsufficientFunds) {
			metrics.InsufficientFunds.WithLabelValues(string(e.BalanceType)).Inc()
		}
		return nil, fmt.Errorf("posting %s to %s balance: %w", e.Type, e.BalanceType, adjErr)
	}
	return &posting{entry: e, delta: delta, change: change}, nil
}

// record пишет строку журнала для примененного изменения.
func (p *posting) record(ctx context.Context, tx uow.TX) (*domain.BalanceTransaction, error) {
	blRepo, err := uow.GetAs[BalanceTransactionRepository](tx, uow.RepositoryName(repoargs.BalanceTransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	e := p.entry
	row, createErr := blRepo.Create(ctx, repoargs.BalanceTransactionCreate{
		UserID:          e.UserID,
		BalanceType:     e.BalanceType,
		Type:            e.Type,
		Amount:          p.delta,
		BalanceBefore:   p.change.Before,
		BalanceAfter:    p.change.After,
		OrderID:         e.OrderID,
		PayoutRequestID: e.PayoutRequestID,
		Description:     e.Description,
	})
	if createErr != nil {
		return nil, fmt.Errorf("writing ledger row: %w", createErr)
	}

	metrics.LedgerEntries.WithLabelValues(string(e.BalanceType), string(e.Type)).Inc()
	metrics.LedgerAmount.WithLabelValues(string(e.BalanceType), string(e.Type)).Add(float64(e.Amount))
	return row, nil
}
