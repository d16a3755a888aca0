package pgrepo

import (
	"context"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const disputeColumns = `id, created_at, updated_at, order_id, opened_by, reason, description, status, outcome,
	admin_notes, resolved_by, resolved_at`

type DisputeRepository struct {
	conn uow.DBTX
}

func NewDisputeRepository(conn uow.DBTX) *DisputeRepository {
	return &DisputeRepository{conn: conn}
}

// Create открывает спор. Повторный открытый спор по заказу возвращает domain.ErrDuplicateKey.
func (d *DisputeRepository) Create(ctx context.Context, args repoargs.CreateDispute) (*domain.Dispute, error) {
	dispute, err := scanDispute(d.conn.QueryRow(ctx, `
		INSERT INTO disputes (order_id, opened_by, reason, description) VALUES ($1, $2, $3, $4)
		RETURNING `+disputeColumns, args.OrderID, args.OpenedBy, args.Reason, args.Description))
	if err != nil {
		return nil, convertErr(err, "opening dispute for order %d", args.OrderID)
	}
	return dispute, nil
}

func (d *DisputeRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Dispute, error) {
	dispute, err := scanDispute(d.conn.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking dispute %d", id)
	}
	return dispute, nil
}

func (d *DisputeRepository) Update(ctx context.Context, dispute *domain.Dispute) error {
	err := d.conn.QueryRow(ctx, `
		UPDATE disputes SET status = $2, outcome = $3, admin_notes = $4, resolved_by = $5, resolved_at = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		dispute.ID, dispute.Status, dispute.Outcome, dispute.AdminNotes, dispute.ResolvedBy, dispute.ResolvedAt,
	).Scan(&dispute.UpdatedAt)
	if err != nil {
		return convertErr(err, "updating dispute %d", dispute.ID)
	}
	return nil
}

func scanDispute(row pgx.Row) (*domain.Dispute, error) {
	var d domain.Dispute
	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.OrderID, &d.OpenedBy, &d.Reason, &d.Description, &d.Status,
		&d.Outcome, &d.AdminNotes, &d.ResolvedBy, &d.ResolvedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &d, nil
}
