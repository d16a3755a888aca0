package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errInvalidID = errors.New("invalid id")

// getActorFromContext пользователь запроса. Роут должен быть под AuthRequired или APIKeyRequired, поэтому
// отсутствие пользователя в контексте - ошибка конфигурации роутера.
func getActorFromContext(c *gin.Context) domain.Actor {
	actor, ok := middlewares.ActorFromContext(c)
	if !ok {
		panic("actor is missing in context")
	}
	return actor
}

// paramID числовой параметр пути :id.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = middlewares.AbortWithError(c, http.StatusBadRequest, errInvalidID).
			SetType(gin.ErrorTypePublic).
			SetMeta(middlewares.ErrorMeta{Code: middlewares.CodeValidation})
		return 0, false
	}
	return id, true
}

type PageQuery struct {
	Page  int `binding:"omitempty,min=1" form:"page"`
	Limit int `binding:"omitempty,min=1" form:"limit"`
}

// toPage значения по умолчанию и ограничение размера страницы.
func (q PageQuery) toPage(maxLimit int) domain.Page {
	p := domain.Page{Page: q.Page, Limit: q.Limit}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

func newPagination(p domain.Page, total int64) Pagination {
	limit := int64(p.Limit)
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
		HasMore:    int64(p.Page)*limit < total,
	}
}

// ListResponse страница списка.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Money сумма в центах и в долларах.
type Money struct {
	Cents  int64           `json:"cents"`
	Amount decimal.Decimal `json:"amount"`
}

func newMoney(cents int64) Money {
	return Money{Cents: cents, Amount: decimal.New(cents, -2)}
}

// dollarsToCents переводит сумму в долларах из запроса в центы. Дробная часть меньше цента отбрасывается.
func dollarsToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return d.Shift(2).Truncate(0).IntPart(), nil
}

func mapSlice[S, D any](src []S, fn func(*S) D) []D {
	out := make([]D, len(src))
	for i := range src {
		out[i] = fn(&src[i])
	}
	return out
}

func domainErrIs(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
