package pgrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, created_at, updated_at, order_number, buyer_id, publisher_id, website_id, affiliate_id,
	order_type, content_source, target_url, anchor_text, article_title, article_content, buyer_notes, article_url,
	base_price, urgent_fee, subtotal, platform_fee, affiliate_fee, total_amount, publisher_earnings,
	turnaround_days, is_urgent, deadline_at, status, payment_status,
	paid_at, accepted_at, published_at, completed_at, cancelled_at, released_at,
	confirmation_deadline, dispute_protection_until, buyer_confirmed_at, buyer_rejected_at,
	rejection_reason, cancellation_reason, revision_count, buyer_rating`

type OrderRepository struct {
	conn uow.DBTX
}

func NewOrderRepository(conn uow.DBTX) *OrderRepository {
	return &OrderRepository{conn: conn}
}

func (o *OrderRepository) Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	row := o.conn.QueryRow(ctx, `
		INSERT INTO orders (order_number, buyer_id, publisher_id, website_id, affiliate_id, order_type,
			content_source, target_url, anchor_text, article_title, article_content, buyer_notes,
			base_price, urgent_fee, subtotal, platform_fee, affiliate_fee, total_amount, publisher_earnings,
			turnaround_days, is_urgent, deadline_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING `+orderColumns,
		args.OrderNumber, args.BuyerID, args.PublisherID, args.WebsiteID, args.AffiliateID, args.OrderType,
		args.ContentSource, args.TargetURL, args.AnchorText, args.ArticleTitle, args.ArticleBody, args.BuyerNotes,
		args.BasePrice, args.UrgentFee, args.Subtotal, args.PlatformFee, args.AffiliateFee, args.TotalAmount,
		args.PublisherEarnings, args.TurnaroundDays, args.IsUrgent, args.DeadlineAt,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order %s", args.OrderNumber)
	}
	return order, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding order by id %d", id)
	}
	return order, nil
}

// FindByIDForUpdate блокирует строку заказа до конца транзакции.
func (o *OrderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking order %d", id)
	}
	return order, nil
}

// Save сохраняет изменяемые поля жизненного цикла заказа.
func (o *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	row := o.conn.QueryRow(ctx, `
		UPDATE orders SET
			status = $2, payment_status = $3, article_title = $4, article_content = $5, article_url = $6,
			paid_at = $7, accepted_at = $8, published_at = $9, completed_at = $10, cancelled_at = $11,
			released_at = $12, confirmation_deadline = $13, dispute_protection_until = $14,
			buyer_confirmed_at = $15, buyer_rejected_at = $16, rejection_reason = $17,
			cancellation_reason = $18, revision_count = $19, buyer_rating = $20, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		order.ID, order.Status, order.PaymentStatus, order.ArticleTitle, order.ArticleBody, order.ArticleURL,
		order.PaidAt, order.AcceptedAt, order.PublishedAt, order.CompletedAt, order.CancelledAt,
		order.ReleasedAt, order.ConfirmationDeadline, order.DisputeProtectionUntil,
		order.BuyerConfirmedAt, order.BuyerRejectedAt, order.RejectionReason,
		order.CancellationReason, order.RevisionCount, order.BuyerRating,
	)
	if err := row.Scan(&order.UpdatedAt); err != nil {
		return convertErr(err, "saving order %d", order.ID)
	}
	return nil
}

// List возвращает страницу заказов по фильтру и общее количество.
func (o *OrderRepository) List(ctx context.Context, f repoargs.OrderFilter) ([]domain.Order, int64, error) {
	var (
		cond string
		args []any
	)
	switch f.Scope {
	case repoargs.ScopeBuyer:
		args = append(args, f.UserID)
		cond = "buyer_id = $1"
	case repoargs.ScopePublisher:
		args = append(args, f.UserID)
		cond = "publisher_id = $1"
	case repoargs.ScopeAll:
		cond = "TRUE"
	default:
		return nil, 0, fmt.Errorf("[repository/listing orders] %w: unknown scope %q", domain.ErrValidation, f.Scope)
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		cond += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := o.conn.QueryRow(ctx, `SELECT count(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting orders")
	}

	args = append(args, f.Page.Limit, f.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args))
	orders, err := o.collect(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing orders")
	}
	return orders, total, nil
}

// FindAutoApprovable опубликованные заказы с истекшим сроком подтверждения, с id больше afterID.
// Выборка не блокирует строки, каждый заказ перепроверяется под блокировкой при обработке.
func (o *OrderRepository) FindAutoApprovable(
	ctx context.Context,
	now time.Time,
	afterID int64,
	limit int,
) ([]domain.Order, error) {
	orders, err := o.collect(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'published' AND confirmation_deadline <= $1 AND id > $2
		ORDER BY id
		LIMIT $3`, now, afterID, limit)
	if err != nil {
		return nil, convertErr(err, "finding auto approvable orders")
	}
	return orders, nil
}

func (o *OrderRepository) collect(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := o.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) { //nolint:wrapcheck
		order, scanErr := scanOrder(row)
		if scanErr != nil {
			return domain.Order{}, scanErr
		}
		return *order, nil
	})
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.OrderNumber, &o.BuyerID, &o.PublisherID, &o.WebsiteID, &o.AffiliateID,
		&o.OrderType, &o.ContentSource, &o.TargetURL, &o.AnchorText, &o.ArticleTitle, &o.ArticleBody,
		&o.BuyerNotes, &o.ArticleURL,
		&o.BasePrice, &o.UrgentFee, &o.Subtotal, &o.PlatformFee, &o.AffiliateFee, &o.TotalAmount,
		&o.PublisherEarnings,
		&o.TurnaroundDays, &o.IsUrgent, &o.DeadlineAt, &o.Status, &o.PaymentStatus,
		&o.PaidAt, &o.AcceptedAt, &o.PublishedAt, &o.CompletedAt, &o.CancelledAt, &o.ReleasedAt,
		&o.ConfirmationDeadline, &o.DisputeProtectionUntil, &o.BuyerConfirmedAt, &o.BuyerRejectedAt,
		&o.RejectionReason, &o.CancellationReason, &o.RevisionCount, &o.BuyerRating,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &o, nil
}
