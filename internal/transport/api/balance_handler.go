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

type BalanceHandler struct {
	ledgerSvs LedgerServicer
}

func NewBalanceHandler(ledgerSvs LedgerServicer) *BalanceHandler {
	return &BalanceHandler{
		ledgerSvs: ledgerSvs,
	}
}

type BalanceResponse struct {
	Buyer     Money `json:"buyer"`
	Publisher Money `json:"publisher"`
	Affiliate Money `json:"affiliate"`
}

func newBalanceResponse(b domain.Balances) BalanceResponse {
	return BalanceResponse{
		Buyer:     newMoney(b.Buyer),
		Publisher: newMoney(b.Publisher),
		Affiliate: newMoney(b.Affiliate),
	}
}

// Index GET RouteGroup + BalanceRoute. Текущие балансы пользователя.
func (b *BalanceHandler) Index(c *gin.Context) {
	actor := getActorFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balances, err := b.ledgerSvs.Balances(reqCtx, actor.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newBalanceResponse(*balances))
}

type TransactionResponse struct {
	ID              int64                  `json:"id"`
	BalanceType     domain.BalanceType     `json:"balance_type"`
	Type            domain.TransactionType `json:"type"`
	Amount          Money                  `json:"amount"`
	BalanceBefore   Money                  `json:"balance_before"`
	BalanceAfter    Money                  `json:"balance_after"`
	OrderID         *int64                 `json:"order_id,omitempty"`
	PayoutRequestID *int64                 `json:"payout_request_id,omitempty"`
	Description     string                 `json:"description"`
	CreatedAt       time.Time              `json:"created_at"`
}

func newTransactionResponse(t *domain.BalanceTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		BalanceType:     t.BalanceType,
		Type:            t.Type,
		Amount:          newMoney(t.Amount),
		BalanceBefore:   newMoney(t.BalanceBefore),
		BalanceAfter:    newMoney(t.BalanceAfter),
		OrderID:         t.OrderID,
		PayoutRequestID: t.PayoutRequestID,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
	}
}

type TransactionsQuery struct {
	PageQuery
	BalanceType *domain.BalanceType `binding:"omitempty,balance_type" form:"balance_type"`
}

// Transactions GET RouteGroup + BalanceTransactionsRoute. Журнал операций, новые первыми.
func (b *BalanceHandler) Transactions(c *gin.Context) {
	actor := getActorFromContext(c)
	var query TransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBindError(c, err)
		return
	}
	page := query.toPage(maxPageLimit)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	list, total, err := b.ledgerSvs.History(reqCtx, service.HistoryArgs{
		UserID:      actor.UserID,
		BalanceType: query.BalanceType,
		Page:        page,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[TransactionResponse]{
		Data:       mapSlice(list, newTransactionResponse),
		Pagination: newPagination(page, total),
	})
}

// AdjustBalanceParams сумма в центах со знаком: положительная пополняет баланс, отрицательная списывает.
type AdjustBalanceParams struct {
	BalanceType domain.BalanceType `binding:"required,balance_type"     json:"balance_type"`
	Amount      int64              `binding:"required"                  json:"amount"`
	Reason      string             `binding:"required,max_bytes=1000"   json:"reason"`
}

// Adjust POST AdminGroup + AdminUserBalanceRoute. Ручная корректировка баланса пользователя.
func (b *BalanceHandler) Adjust(c *gin.Context) {
	actor := getActorFromContext(c)
	userID, ok := paramID(c)
	if !ok {
		return
	}
	var params AdjustBalanceParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	tx, err := b.ledgerSvs.Adjust(reqCtx, actor, service.AdjustArgs{
		UserID:      userID,
		BalanceType: params.BalanceType,
		Amount:      params.Amount,
		Reason:      strings.TrimSpace(params.Reason),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionResponse(tx))
}
