package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	Get(ctx context.Context, userID int64) (*domain.User, error)
}

type WebsiteServicer interface {
	Create(ctx context.Context, actor domain.Actor, args service.CreateWebsiteArgs) (*domain.Website, error)
	Verify(ctx context.Context, actor domain.Actor, id int64, status domain.VerificationStatus) (*domain.Website, error)
	Search(ctx context.Context, f repoargs.WebsiteFilter) ([]domain.Website, int64, error)
	Owned(ctx context.Context, actor domain.Actor, page domain.Page) ([]domain.Website, int64, error)
}

type OrderServicer interface {
	Create(ctx context.Context, actor domain.Actor, args service.CreateOrderArgs) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	List(ctx context.Context, actor domain.Actor, args service.ListOrdersArgs) ([]domain.Order, int64, error)
	PayWithWallet(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	UpdateStatus(
		ctx context.Context,
		actor domain.Actor,
		orderID int64,
		args service.UpdateStatusArgs,
	) (*domain.Order, error)
	Confirm(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	RequestRevision(ctx context.Context, actor domain.Actor, orderID int64, reason string) (*domain.Order, error)
	OpenDispute(
		ctx context.Context,
		actor domain.Actor,
		orderID int64,
		args service.OpenDisputeArgs,
	) (*domain.Dispute, error)
	ResolveDispute(
		ctx context.Context,
		actor domain.Actor,
		disputeID int64,
		args service.ResolveDisputeArgs,
	) (*domain.Dispute, error)
	Review(ctx context.Context, actor domain.Actor, orderID int64, args service.ReviewArgs) (*domain.Review, error)
	PostMessage(ctx context.Context, actor domain.Actor, orderID int64, body string) (*domain.Message, error)
	Messages(ctx context.Context, actor domain.Actor, orderID int64) ([]domain.Message, error)
	AutoApproveExpired(ctx context.Context, now time.Time, limit int) ([]service.AutoApproveResult, error)
}

type LedgerServicer interface {
	Balances(ctx context.Context, userID int64) (*domain.Balances, error)
	History(ctx context.Context, args service.HistoryArgs) ([]domain.BalanceTransaction, int64, error)
	Adjust(ctx context.Context, actor domain.Actor, args service.AdjustArgs) (*domain.BalanceTransaction, error)
}

type PayoutServicer interface {
	Request(ctx context.Context, actor domain.Actor, args service.RequestPayoutArgs) (*service.PayoutResult, error)
	List(ctx context.Context, actor domain.Actor, args service.ListPayoutsArgs) ([]domain.PayoutRequest, int64, error)
	ListAll(
		ctx context.Context,
		actor domain.Actor,
		args service.ListPayoutsArgs,
	) ([]domain.PayoutRequest, int64, error)
	MarkProcessing(ctx context.Context, actor domain.Actor, id int64) (*domain.PayoutRequest, error)
	MarkPaid(ctx context.Context, actor domain.Actor, id int64, notes string) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.PayoutRequest, error)
}

type APIKeyServicer interface {
	Create(ctx context.Context, actor domain.Actor, args service.CreateAPIKeyArgs) (*domain.APIKey, string, error)
	Authenticate(ctx context.Context, raw string) (*domain.APIKey, error)
	CheckRateLimit(ctx context.Context, key *domain.APIKey) (*domain.RateLimitState, error)
	PurgeRateLimits(ctx context.Context) (int64, error)
	List(ctx context.Context, actor domain.Actor) ([]domain.APIKey, error)
	Revoke(ctx context.Context, actor domain.Actor, keyID int64) error
}
