package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const payoutColumns = `id, created_at, updated_at, user_id, amount, balance_type, method, destination_email,
	status, admin_notes, rejection_reason, processed_by, processed_at`

type PayoutRepository struct {
	conn uow.DBTX
}

func NewPayoutRepository(conn uow.DBTX) *PayoutRepository {
	return &PayoutRepository{conn: conn}
}

// Create создает заявку на выплату. Вторая открытая внешняя заявка того же пользователя
// отклоняется уникальным индексом и возвращается как domain.ErrDuplicateKey.
func (p *PayoutRepository) Create(ctx context.Context, args repoargs.CreatePayout) (*domain.PayoutRequest, error) {
	processedAt := "NULL"
	if args.Status == domain.PayoutStatusCompleted {
		processedAt = "now()"
	}
	row := p.conn.QueryRow(ctx, `
		INSERT INTO payout_requests (user_id, amount, balance_type, method, destination_email, status,
			processed_by, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, `+processedAt+`)
		RETURNING `+payoutColumns,
		args.UserID, args.Amount, args.BalanceType, args.Method, args.DestinationEmail, args.Status,
		args.ProcessedBy,
	)
	payout, err := scanPayout(row)
	if err != nil {
		return nil, convertErr(err, "creating payout for user %d", args.UserID)
	}
	return payout, nil
}

func (p *PayoutRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.PayoutRequest, error) {
	payout, err := scanPayout(p.conn.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking payout %d", id)
	}
	return payout, nil
}

// Update сохраняет статус и данные обработки заявки.
func (p *PayoutRepository) Update(ctx context.Context, payout *domain.PayoutRequest) error {
	err := p.conn.QueryRow(ctx, `
		UPDATE payout_requests SET status = $2, admin_notes = $3, rejection_reason = $4,
			processed_by = $5, processed_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		payout.ID, payout.Status, payout.AdminNotes, payout.RejectionReason, payout.ProcessedBy, payout.ProcessedAt,
	).Scan(&payout.UpdatedAt)
	if err != nil {
		return convertErr(err, "updating payout %d", payout.ID)
	}
	return nil
}

func (p *PayoutRepository) List(ctx context.Context, f repoargs.PayoutFilter) ([]domain.PayoutRequest, int64, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := p.conn.QueryRow(ctx, `SELECT count(*) FROM payout_requests `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting payouts")
	}

	args = append(args, f.Page.Limit, f.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payout_requests %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		payoutColumns, whereSQL, len(args)-1, len(args))
	rows, err := p.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing payouts")
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PayoutRequest, error) {
		payout, scanErr := scanPayout(row)
		if scanErr != nil {
			return domain.PayoutRequest{}, scanErr
		}
		return *payout, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "scanning payouts")
	}
	return list, total, nil
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	var p domain.PayoutRequest
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.UserID, &p.Amount, &p.BalanceType, &p.Method, &p.DestinationEmail,
		&p.Status, &p.AdminNotes, &p.RejectionReason, &p.ProcessedBy, &p.ProcessedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &p, nil
}
