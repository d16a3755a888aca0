package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/gin-gonic/gin"
)

const apiKeyTimeout = 2 * time.Second

type KeyAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*domain.APIKey, error)
	CheckRateLimit(ctx context.Context, key *domain.APIKey) (*domain.RateLimitState, error)
}

// APIKeyRequired аутентифицирует запрос публичного API по ключу и учитывает его в лимите запросов.
// Заголовки X-RateLimit-* выставляются для всех аутентифицированных запросов.
func APIKeyRequired(auth KeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing api key")
			return
		}

		ctx, cancel := context.WithTimeout(c, apiKeyTimeout)
		defer cancel()

		key, err := auth.Authenticate(ctx, raw)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				_ = AbortWithError(c, http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
				return
			}
			abortUnauthorized(c, "invalid api key")
			return
		}

		state, err := auth.CheckRateLimit(ctx, key)
		if err != nil {
			_ = AbortWithError(c, http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(state.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(state.Remaining))
		c.Header("X-RateLimit-Reset", state.ResetAt.UTC().Format(time.RFC3339))

		if !state.Allowed {
			metrics.APIRateLimited.Inc()
			retryAfter := max(int(time.Until(state.ResetAt).Seconds()), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  CodeRateLimitExceeded,
			})
			return
		}

		// ключ действует от имени своего владельца как покупатель.
		c.Set(CurrentActorKey, domain.Actor{UserID: key.UserID, Role: domain.RoleBuyer})
		c.Set(CurrentAPIKeyKey, key)
		c.Next()
	}
}

// PermissionRequired пропускает запросы ключей, у которых есть хотя бы одно из разрешений.
func PermissionRequired(perms ...domain.APIPermission) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(CurrentAPIKeyKey)
		key, ok := v.(*domain.APIKey)
		if !ok || !key.HasPermission(perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: "api key lacks required permission",
				Code:  CodeForbidden,
			})
			return
		}
		c.Next()
	}
}
