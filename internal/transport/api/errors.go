package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

// abortWithError прерывает запрос ошибкой сервиса. Статус и код ответа определяются по доменной ошибке,
// неизвестные ошибки отдаются как 500 без подробностей.
func abortWithError(c *gin.Context, err error) {
	status, meta := errorResponse(err)
	ginErr := middlewares.AbortWithError(c, status, err).SetMeta(meta)
	if status >= http.StatusInternalServerError {
		ginErr.SetType(gin.ErrorTypePrivate)
		return
	}
	ginErr.SetType(gin.ErrorTypePublic)
}

func errorResponse(err error) (int, middlewares.ErrorMeta) {
	var valErr *domain.ValidationError
	var trErr *domain.TransitionError

	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest, middlewares.ErrorMeta{
			Code:    middlewares.CodeValidation,
			Message: "validation failed",
			Fields:  valErr.Fields,
		}
	case errors.As(err, &trErr):
		return http.StatusConflict, middlewares.ErrorMeta{Code: middlewares.CodeConflict, Message: trErr.Error()}
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, middlewares.ErrorMeta{
			Code:    middlewares.CodeInsufficientFunds,
			Message: "insufficient balance",
		}
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusBadRequest, middlewares.ErrorMeta{
			Code:    middlewares.CodeServiceUnavailable,
			Message: "website does not offer this service",
		}
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, middlewares.ErrorMeta{Code: middlewares.CodeNotFound, Message: "not found"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, middlewares.ErrorMeta{Code: middlewares.CodeForbidden, Message: "forbidden"}
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrPasswordMissMatch):
		return http.StatusUnauthorized, middlewares.ErrorMeta{
			Code:    middlewares.CodeUnauthorized,
			Message: "invalid credentials",
		}
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, middlewares.ErrorMeta{Code: middlewares.CodeConflict, Message: "already exists"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, middlewares.ErrorMeta{
			Code:    middlewares.CodeConflict,
			Message: "operation conflicts with current state",
		}
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, middlewares.ErrorMeta{
			Code:    middlewares.CodeRateLimitExceeded,
			Message: "rate limit exceeded",
		}
	default:
		return http.StatusInternalServerError, middlewares.ErrorMeta{Code: middlewares.CodeInternal}
	}
}

// abortWithBindError ошибка разбора тела или параметров запроса.
func abortWithBindError(c *gin.Context, err error) {
	_ = middlewares.AbortWithError(c, http.StatusBadRequest, err).
		SetType(gin.ErrorTypeBind).
		SetMeta(middlewares.ErrorMeta{Code: middlewares.CodeValidation, Message: "invalid request"})
}
