package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/gin-gonic/gin"
)

type KeysHandler struct {
	keySvs APIKeyServicer
}

func NewKeysHandler(keySvs APIKeyServicer) *KeysHandler {
	return &KeysHandler{keySvs: keySvs}
}

type APIKeyResponse struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	KeyPrefix   string                 `json:"key_prefix"`
	Permissions []domain.APIPermission `json:"permissions"`
	RateLimit   int                    `json:"rate_limit"`
	IsActive    bool                   `json:"is_active"`
	LastUsedAt  *time.Time             `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func newAPIKeyResponse(k *domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:          k.ID,
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		Permissions: k.Permissions,
		RateLimit:   k.RateLimit,
		IsActive:    k.IsActive,
		LastUsedAt:  k.LastUsedAt,
		ExpiresAt:   k.ExpiresAt,
		CreatedAt:   k.CreatedAt,
	}
}

// CreatedAPIKeyResponse открытое значение ключа отдается только при создании.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

type CreateAPIKeyParams struct {
	Name        string                 `binding:"required,max=100"                       json:"name"`
	Permissions []domain.APIPermission `binding:"required,min=1,dive,oneof=read write orders" json:"permissions"`
	RateLimit   int                    `binding:"omitempty,min=1,max=10000"              json:"rate_limit"`
	ExpiresAt   *time.Time             `json:"expires_at"`
}

// Create POST RouteGroup + KeysRoute.
func (h *KeysHandler) Create(c *gin.Context) {
	actor := getActorFromContext(c)
	var params CreateAPIKeyParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	key, raw, err := h.keySvs.Create(ctx, actor, service.CreateAPIKeyArgs{
		Name:        strings.TrimSpace(params.Name),
		Permissions: params.Permissions,
		RateLimit:   params.RateLimit,
		ExpiresAt:   params.ExpiresAt,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedAPIKeyResponse{APIKeyResponse: newAPIKeyResponse(key), Key: raw})
}

// Index GET RouteGroup + KeysRoute.
func (h *KeysHandler) Index(c *gin.Context) {
	actor := getActorFromContext(c)

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	keys, err := h.keySvs.List(ctx, actor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapSlice(keys, newAPIKeyResponse)})
}

// Revoke DELETE RouteGroup + KeyRoute.
func (h *KeysHandler) Revoke(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.keySvs.Revoke(ctx, actor, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}
