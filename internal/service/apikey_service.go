package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

const (
	apiKeyPrefix    = "ps_"
	apiKeyBytes     = 32
	apiKeyPrefixLen = 15
	// rateLimitWindow окно счетчика запросов публичного API.
	rateLimitWindow = time.Minute
	maxAPIKeyLimit  = 10000
)

type APIKeyService struct {
	keyRepo      APIKeyRepository
	defaultLimit int
	now          func() time.Time
}

func NewAPIKeyService(u uow.UOW, policy domain.PricingPolicy) (*APIKeyService, error) {
	keyRepo, err := uow.GetRepositoryAs[APIKeyRepository](u, uow.RepositoryName(repoargs.APIKeyRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &APIKeyService{
		keyRepo:      keyRepo,
		defaultLimit: policy.APIRateLimit,
		now:          time.Now,
	}, nil
}

type CreateAPIKeyArgs struct {
	Name        string
	Permissions []domain.APIPermission
	RateLimit   int
	ExpiresAt   *time.Time
}

// Create выпускает новый ключ. Открытое значение ключа возвращается только здесь, в базе хранится
// его sha256 хэш и префикс для отображения.
func (a *APIKeyService) Create(
	ctx context.Context,
	actor domain.Actor,
	args CreateAPIKeyArgs,
) (*domain.APIKey, string, error) {
	args.Name = strings.TrimSpace(args.Name)
	if args.Name == "" {
		return nil, "", domain.NewValidationError("name", "is required")
	}
	if len(args.Permissions) == 0 {
		args.Permissions = []domain.APIPermission{domain.PermissionRead}
	}
	for _, p := range args.Permissions {
		switch p {
		case domain.PermissionRead, domain.PermissionWrite, domain.PermissionOrders:
		default:
			return nil, "", domain.NewValidationError("permissions", fmt.Sprintf("unknown permission %q", p))
		}
	}
	if args.RateLimit == 0 {
		args.RateLimit = a.defaultLimit
	}
	if args.RateLimit < 0 || args.RateLimit > maxAPIKeyLimit {
		return nil, "", domain.NewValidationError("rate_limit", fmt.Sprintf("must be between 1 and %d", maxAPIKeyLimit))
	}

	raw, err := generateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("creating api key: %w", err)
	}

	key, err := a.keyRepo.Create(ctx, repoargs.CreateAPIKey{
		UserID:      actor.UserID,
		Name:        args.Name,
		KeyPrefix:   raw[:apiKeyPrefixLen],
		KeyHash:     hashAPIKey(raw),
		Permissions: args.Permissions,
		RateLimit:   args.RateLimit,
		ExpiresAt:   args.ExpiresAt,
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating api key: %w", err)
	}
	return key, raw, nil
}

// Authenticate находит активный непросроченный ключ по его открытому значению и отмечает время
// использования. Во всех остальных случаях возвращает domain.ErrUnauthorized.
func (a *APIKeyService) Authenticate(ctx context.Context, raw string) (*domain.APIKey, error) {
	if !strings.HasPrefix(raw, apiKeyPrefix) {
		return nil, domain.ErrUnauthorized
	}
	key, err := a.keyRepo.FindByHash(ctx, hashAPIKey(raw))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("authenticating api key: %w", err)
	}

	now := a.now()
	if !key.IsActive || (key.ExpiresAt != nil && !key.ExpiresAt.After(now)) {
		return nil, domain.ErrUnauthorized
	}
	if err = a.keyRepo.Touch(ctx, key.ID, now); err != nil {
		return nil, fmt.Errorf("authenticating api key: %w", err)
	}
	return key, nil
}

// CheckRateLimit учитывает запрос в текущем минутном окне ключа.
func (a *APIKeyService) CheckRateLimit(ctx context.Context, key *domain.APIKey) (*domain.RateLimitState, error) {
	windowStart := a.now().UTC().Truncate(rateLimitWindow)
	count, err := a.keyRepo.HitRateLimit(ctx, key.ID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}

	limit := key.RateLimit
	if limit <= 0 {
		limit = a.defaultLimit
	}
	return &domain.RateLimitState{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   windowStart.Add(rateLimitWindow),
	}, nil
}

// PurgeRateLimits удаляет счетчики окон старше часа.
func (a *APIKeyService) PurgeRateLimits(ctx context.Context) (int64, error) {
	n, err := a.keyRepo.PurgeRateLimits(ctx, a.now().Add(-time.Hour))
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return n, nil
}

func (a *APIKeyService) List(ctx context.Context, actor domain.Actor) ([]domain.APIKey, error) {
	list, err := a.keyRepo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return list, nil
}

func (a *APIKeyService) Revoke(ctx context.Context, actor domain.Actor, keyID int64) error {
	return a.keyRepo.Revoke(ctx, actor.UserID, keyID) //nolint:wrapcheck
}

func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
