package pgrepo

import (
	"context"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

type ReviewRepository struct {
	conn uow.DBTX
}

func NewReviewRepository(conn uow.DBTX) *ReviewRepository {
	return &ReviewRepository{conn: conn}
}

// Create сохраняет отзыв. Один отзыв на заказ, повтор - domain.ErrDuplicateKey.
func (r *ReviewRepository) Create(ctx context.Context, args repoargs.CreateReview) (*domain.Review, error) {
	var rv domain.Review
	err := r.conn.QueryRow(ctx, `
		INSERT INTO reviews (order_id, website_id, buyer_id, rating, comment) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, order_id, website_id, buyer_id, rating, comment`,
		args.OrderID, args.WebsiteID, args.BuyerID, args.Rating, args.Comment,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.OrderID, &rv.WebsiteID, &rv.BuyerID, &rv.Rating, &rv.Comment)
	if err != nil {
		return nil, convertErr(err, "creating review for order %d", args.OrderID)
	}
	return &rv, nil
}
