package autoapprove

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/guestmart/internal/service"
)

type OrderServicer interface {
	AutoApproveExpired(ctx context.Context, now time.Time, limit int) ([]service.AutoApproveResult, error)
}

type RateLimitPurger interface {
	PurgeRateLimits(ctx context.Context) (int64, error)
}
