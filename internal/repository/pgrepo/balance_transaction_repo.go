package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const balanceTransactionColumns = `id, created_at, user_id, balance_type, type, amount, balance_before, balance_after,
	order_id, payout_request_id, description`

type BalanceTransactionRepository struct {
	conn uow.DBTX
}

func NewBalanceTransactionRepository(conn uow.DBTX) *BalanceTransactionRepository {
	return &BalanceTransactionRepository{conn: conn}
}

// Create добавляет запись в журнал движения средств. Журнал только дополняется.
func (b *BalanceTransactionRepository) Create(
	ctx context.Context,
	args repoargs.BalanceTransactionCreate,
) (*domain.BalanceTransaction, error) {
	row := b.conn.QueryRow(ctx, `
		INSERT INTO balance_transactions (user_id, balance_type, type, amount, balance_before, balance_after,
			order_id, payout_request_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+balanceTransactionColumns,
		args.UserID, args.BalanceType, args.Type, args.Amount, args.BalanceBefore, args.BalanceAfter,
		args.OrderID, args.PayoutRequestID, args.Description,
	)
	tr, err := scanBalanceTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating %s transaction for user %d", args.Type, args.UserID)
	}
	return tr, nil
}

// ListByUser история операций пользователя, новые первыми.
func (b *BalanceTransactionRepository) ListByUser(
	ctx context.Context,
	f repoargs.BalanceTransactionFilter,
) ([]domain.BalanceTransaction, int64, error) {
	args := []any{f.UserID}
	cond := "user_id = $1"
	if f.BalanceType != nil {
		args = append(args, *f.BalanceType)
		cond += " AND balance_type = $2"
	}

	var total int64
	if err := b.conn.QueryRow(ctx, `SELECT count(*) FROM balance_transactions WHERE `+cond, args...).
		Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting transactions of user %d", f.UserID)
	}

	args = append(args, f.Page.Limit, f.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM balance_transactions WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		balanceTransactionColumns, cond, len(args)-1, len(args))

	rows, err := b.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %d", f.UserID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BalanceTransaction, error) {
		tr, scanErr := scanBalanceTransaction(row)
		if scanErr != nil {
			return domain.BalanceTransaction{}, scanErr
		}
		return *tr, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "scanning transactions of user %d", f.UserID)
	}
	return list, total, nil
}

func scanBalanceTransaction(row pgx.Row) (*domain.BalanceTransaction, error) {
	var t domain.BalanceTransaction
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UserID, &t.BalanceType, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&t.OrderID, &t.PayoutRequestID, &t.Description,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &t, nil
}
