package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const (
	CurrentActorKey  = "currentActor"
	CurrentAPIKeyKey = "currentAPIKey"
	bearer           = "Bearer "
)

// bearerToken значение заголовка Authorization без префикса Bearer.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	return header[len(bearer):], true
}

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не передан, вернется ошибка
// ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (*tokens.UserClaims, error) {
	tokenStr, ok := bearerToken(c)
	if !ok {
		return nil, ErrTokenNotExist
	}
	claims, err := tokens.ValidateUserJWT(tokenStr, jwtTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("check authorization: %w", err)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: CodeUnauthorized})
}

// AuthRequired проверяет, что запрос авторизован. Записывает в контекст (поле CurrentActorKey)
// пользователя из токена.
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			abortUnauthorized(c, "unauthorized")
			return
		}
		c.Set(CurrentActorKey, claims.Actor())
		c.Next()
	}
}

// NonAuthRequired пропускает запросы без токена или с недействительным токеном.
func NonAuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := checkAuthorization(c, jwtTokenSecret); err == nil {
			abortUnauthorized(c, "already authorized")
			return
		}
		c.Next()
	}
}

// RoleRequired пропускает только пользователей с одной из ролей. Должен стоять после AuthRequired.
func RoleRequired(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortUnauthorized(c, "unauthorized")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: CodeForbidden})
	}
}

// ActorFromContext пользователь, установленный AuthRequired или APIKeyRequired.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	v, exist := c.Get(CurrentActorKey)
	if !exist {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// CronSecretRequired проверяет секрет планировщика. Пустой секрет отключает проверку.
func CronSecretRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok || token != secret {
			abortUnauthorized(c, "unauthorized")
			return
		}
		c.Next()
	}
}
