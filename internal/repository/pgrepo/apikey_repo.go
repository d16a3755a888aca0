package pgrepo

import (
	"context"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, created_at, user_id, name, key_prefix, key_hash, permissions, rate_limit, is_active,
	last_used_at, expires_at`

type APIKeyRepository struct {
	conn uow.DBTX
}

func NewAPIKeyRepository(conn uow.DBTX) *APIKeyRepository {
	return &APIKeyRepository{conn: conn}
}

func (a *APIKeyRepository) Create(ctx context.Context, args repoargs.CreateAPIKey) (*domain.APIKey, error) {
	perms := make([]string, len(args.Permissions))
	for i, p := range args.Permissions {
		perms[i] = string(p)
	}
	key, err := scanAPIKey(a.conn.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, name, key_prefix, key_hash, permissions, rate_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+apiKeyColumns,
		args.UserID, args.Name, args.KeyPrefix, args.KeyHash, perms, args.RateLimit, args.ExpiresAt,
	))
	if err != nil {
		return nil, convertErr(err, "creating api key for user %d", args.UserID)
	}
	return key, nil
}

// FindByHash ищет ключ по sha256 хэшу секрета.
func (a *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	key, err := scanAPIKey(a.conn.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash))
	if err != nil {
		return nil, convertErr(err, "finding api key by hash")
	}
	return key, nil
}

func (a *APIKeyRepository) ListByUser(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	rows, err := a.conn.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "listing api keys of user %d", userID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.APIKey, error) {
		key, scanErr := scanAPIKey(row)
		if scanErr != nil {
			return domain.APIKey{}, scanErr
		}
		return *key, nil
	})
	if err != nil {
		return nil, convertErr(err, "scanning api keys of user %d", userID)
	}
	return list, nil
}

// Revoke деактивирует ключ владельца. Чужой или несуществующий ключ - domain.ErrRecordNotFound.
func (a *APIKeyRepository) Revoke(ctx context.Context, userID, keyID int64) error {
	tag, err := a.conn.Exec(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return convertErr(err, "revoking api key %d", keyID)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "revoking api key %d", keyID)
	}
	return nil
}

func (a *APIKeyRepository) Touch(ctx context.Context, keyID int64, at time.Time) error {
	if _, err := a.conn.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at); err != nil {
		return convertErr(err, "touching api key %d", keyID)
	}
	return nil
}

// HitRateLimit увеличивает счетчик запросов ключа в минутном окне windowStart
// и возвращает значение счетчика после увеличения.
func (a *APIKeyRepository) HitRateLimit(ctx context.Context, keyID int64, windowStart time.Time) (int, error) {
	var count int
	err := a.conn.QueryRow(ctx, `
		INSERT INTO api_rate_limits (api_key_id, window_start, request_count) VALUES ($1, $2, 1)
		ON CONFLICT (api_key_id, window_start) DO UPDATE SET request_count = api_rate_limits.request_count + 1
		RETURNING request_count`, keyID, windowStart).Scan(&count)
	if err != nil {
		return 0, convertErr(err, "hitting rate limit of api key %d", keyID)
	}
	return count, nil
}

// PurgeRateLimits удаляет счетчики устаревших окон.
func (a *APIKeyRepository) PurgeRateLimits(ctx context.Context, before time.Time) (int64, error) {
	tag, err := a.conn.Exec(ctx, `DELETE FROM api_rate_limits WHERE window_start < $1`, before)
	if err != nil {
		return 0, convertErr(err, "purging rate limits")
	}
	return tag.RowsAffected(), nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var (
		k     domain.APIKey
		perms []string
	)
	err := row.Scan(
		&k.ID, &k.CreatedAt, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash, &perms, &k.RateLimit, &k.IsActive,
		&k.LastUsedAt, &k.ExpiresAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	k.Permissions = make([]domain.APIPermission, len(perms))
	for i, p := range perms {
		k.Permissions[i] = domain.APIPermission(p)
	}
	return &k, nil
}
