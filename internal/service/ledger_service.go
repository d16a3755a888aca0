package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

type LedgerService struct {
	uow      uow.UOW
	userRepo UserRepository
	blRepo   BalanceTransactionRepository
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	rName := uow.RepositoryName(repoargs.BalanceTransactionRepoName)
	blRepo, err := uow.GetRepositoryAs[BalanceTransactionRepository](u, rName)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &LedgerService{
		uow:      u,
		userRepo: userRepo,
		blRepo:   blRepo,
	}, nil
}

// Balances возвращает текущие значения трех балансов пользователя.
func (l *LedgerService) Balances(ctx context.Context, userID int64) (*domain.Balances, error) {
	user, err := l.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &user.Balances, nil
}

type HistoryArgs struct {
	UserID      int64
	BalanceType *domain.BalanceType
	Page        domain.Page
}

// History журнал операций пользователя, новые первыми. Возвращает страницу и общее количество строк.
func (l *LedgerService) History(ctx context.Context, args HistoryArgs) ([]domain.BalanceTransaction, int64, error) {
	if args.BalanceType != nil && !args.BalanceType.Valid() {
		return nil, 0, domain.NewValidationError("balance_type", "unknown balance type")
	}
	list, total, err := l.blRepo.ListByUser(ctx, repoargs.BalanceTransactionFilter{
		UserID:      args.UserID,
		BalanceType: args.BalanceType,
		Page:        args.Page,
	})
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

type AdjustArgs struct {
	UserID      int64
	BalanceType domain.BalanceType
	// Amount знаковая сумма корректировки в центах.
	Amount int64
	Reason string
}

// Adjust ручная корректировка баланса администратором. Пополнение кошелька покупателя выполняется
// этой операцией.
func (l *LedgerService) Adjust(
	ctx context.Context,
	actor domain.Actor,
	args AdjustArgs,
) (*domain.BalanceTransaction, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !args.BalanceType.Valid() {
		return nil, domain.NewValidationError("balance_type", "unknown balance type")
	}
	if args.Amount == 0 {
		return nil, domain.NewValidationError("amount", "must not be zero")
	}
	if args.Reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	var row *domain.BalanceTransaction
	txErr := l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		entry := ledgerEntry{
			UserID:      args.UserID,
			BalanceType: args.BalanceType,
			Type:        domain.TransactionAdjustment,
			Description: fmt.Sprintf("Admin adjustment: %s", args.Reason),
		}
		var err error
		if args.Amount > 0 {
			entry.Amount = args.Amount
			row, err = credit(c, tx, entry)
		} else {
			entry.Amount = -args.Amount
			row, err = debit(c, tx, entry)
		}
		return err
	})
	if txErr != nil {
		return nil, fmt.Errorf("adjusting balance of user %d: %w", args.UserID, txErr)
	}
	return row, nil
}
