package service

import (
	"context"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

// Notifier принимает письма к отправке. Не блокирует вызывающего и не возвращает ошибок доставки.
type Notifier interface {
	Notify(n domain.Notification)
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.User, error)
	AdjustBalance(ctx context.Context, args repoargs.AdjustBalance) (*repoargs.BalanceChange, error)
}

type WebsiteRepository interface {
	Create(ctx context.Context, args repoargs.CreateWebsite) (*domain.Website, error)
	FindByID(ctx context.Context, id int64) (*domain.Website, error)
	Search(ctx context.Context, f repoargs.WebsiteFilter) ([]domain.Website, int64, error)
	SetVerification(ctx context.Context, id int64, status domain.VerificationStatus) (*domain.Website, error)
	RefreshRating(ctx context.Context, id int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
	List(ctx context.Context, f repoargs.OrderFilter) ([]domain.Order, int64, error)
	FindAutoApprovable(ctx context.Context, now time.Time, afterID int64, limit int) ([]domain.Order, error)
}

type BalanceTransactionRepository interface {
	Create(ctx context.Context, args repoargs.BalanceTransactionCreate) (*domain.BalanceTransaction, error)
	ListByUser(ctx context.Context, f repoargs.BalanceTransactionFilter) ([]domain.BalanceTransaction, int64, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, args repoargs.CreatePayout) (*domain.PayoutRequest, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.PayoutRequest, error)
	Update(ctx context.Context, payout *domain.PayoutRequest) error
	List(ctx context.Context, f repoargs.PayoutFilter) ([]domain.PayoutRequest, int64, error)
}

type ConversationRepository interface {
	EnsureForOrder(ctx context.Context, order *domain.Order) (*domain.Conversation, error)
	AddMessage(ctx context.Context, args repoargs.CreateMessage) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID int64, readerID int64) ([]domain.Message, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, args repoargs.CreateDispute) (*domain.Dispute, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Dispute, error)
	Update(ctx context.Context, dispute *domain.Dispute) error
}

type ReviewRepository interface {
	Create(ctx context.Context, args repoargs.CreateReview) (*domain.Review, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, args repoargs.CreateAPIKey) (*domain.APIKey, error)
	FindByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.APIKey, error)
	Revoke(ctx context.Context, userID, keyID int64) error
	Touch(ctx context.Context, keyID int64, at time.Time) error
	HitRateLimit(ctx context.Context, keyID int64, windowStart time.Time) (int, error)
	PurgeRateLimits(ctx context.Context, before time.Time) (int64, error)
}
