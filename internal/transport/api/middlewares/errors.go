package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Коды ошибок в теле ответа.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorMeta дополнительные данные ошибки gin, которые попадают в ответ.
type ErrorMeta struct {
	Code string
	// Message текст для клиента вместо текста ошибки.
	Message string
	Fields  map[string]string
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusErrorText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "insufficient funds"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusUnprocessableEntity:
		return "unprocessable entity"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return "service unavailable"
	default:
		return "internal server error"
	}
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusPaymentRequired:
		return CodeInsufficientFunds
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// Errors отдает клиенту первую ошибку запроса в формате ErrorResponse. Текст приватных ошибок
// клиенту не показывается.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		status := c.Writer.Status()
		resp := ErrorResponse{
			Error: statusErrorText(status),
			Code:  statusCode(status),
		}

		switch {
		case firstErr.IsType(gin.ErrorTypePublic):
			resp.Error = firstErr.Error()
		case firstErr.IsType(gin.ErrorTypeBind):
			resp.Fields = bindFields(firstErr.Err)
			if resp.Fields == nil {
				resp.Error = "malformed request body"
			}
		}
		if meta, ok := firstErr.Meta.(ErrorMeta); ok {
			if meta.Code != "" {
				resp.Code = meta.Code
			}
			if meta.Message != "" && !firstErr.IsType(gin.ErrorTypePrivate) {
				resp.Error = meta.Message
			}
			if meta.Fields != nil {
				resp.Fields = meta.Fields
			}
		}

		c.JSON(status, resp)
		c.Abort()
	}
}

// bindFields поля, не прошедшие проверку тегов binding.
func bindFields(err error) map[string]string {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return nil
	}
	fields := make(map[string]string, len(valErrs))
	for _, fe := range valErrs {
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields[fe.Field()] = msg
	}
	return fields
}

// AbortWithError прерывает запрос с ошибкой. В отличии от gin.Context.AbortWithError не отправляет
// заголовки сразу, ответ формирует Errors.
func AbortWithError(c *gin.Context, status int, err error) *gin.Error {
	c.Status(status)
	c.Abort()
	return c.Error(err)
}
