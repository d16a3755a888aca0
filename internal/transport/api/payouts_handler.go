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

type PayoutsHandler struct {
	payoutSvs PayoutServicer
}

func NewPayoutsHandler(payoutSvs PayoutServicer) *PayoutsHandler {
	return &PayoutsHandler{payoutSvs: payoutSvs}
}

type PayoutResponse struct {
	ID               int64                   `json:"id"`
	UserID           int64                   `json:"user_id"`
	Amount           Money                   `json:"amount"`
	BalanceType      domain.BalanceType      `json:"balance_type"`
	Method           domain.PayoutMethod     `json:"method"`
	DestinationEmail string                  `json:"destination_email,omitempty"`
	Status           domain.PayoutStatusType `json:"status"`
	AdminNotes       string                  `json:"admin_notes,omitempty"`
	RejectionReason  string                  `json:"rejection_reason,omitempty"`
	ProcessedAt      *time.Time              `json:"processed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

func newPayoutResponse(p *domain.PayoutRequest) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID,
		UserID:           p.UserID,
		Amount:           newMoney(p.Amount),
		BalanceType:      p.BalanceType,
		Method:           p.Method,
		DestinationEmail: p.DestinationEmail,
		Status:           p.Status,
		AdminNotes:       p.AdminNotes,
		RejectionReason:  p.RejectionReason,
		ProcessedAt:      p.ProcessedAt,
		CreatedAt:        p.CreatedAt,
	}
}

type RequestPayoutParams struct {
	Amount           int64               `binding:"required,min=1"             json:"amount"`
	BalanceType      domain.BalanceType  `binding:"required,balance_type"      json:"balance_type"`
	Method           domain.PayoutMethod `binding:"required,payout_method"     json:"method"`
	DestinationEmail string              `binding:"omitempty,email,max=255"    json:"destination_email"`
}

type RequestPayoutResponse struct {
	Payout   PayoutResponse  `json:"payout"`
	Balances BalanceResponse `json:"balances"`
}

// Create POST RouteGroup + PayoutsRoute. Заявка на выплату или перевод в кошелек покупателя.
func (h *PayoutsHandler) Create(c *gin.Context) {
	actor := getActorFromContext(c)
	var params RequestPayoutParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	res, err := h.payoutSvs.Request(ctx, actor, service.RequestPayoutArgs{
		Amount:           params.Amount,
		BalanceType:      params.BalanceType,
		Method:           params.Method,
		DestinationEmail: strings.TrimSpace(params.DestinationEmail),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RequestPayoutResponse{
		Payout:   newPayoutResponse(res.Payout),
		Balances: newBalanceResponse(res.Balances),
	})
}

type PayoutsQuery struct {
	PageQuery
	Status *domain.PayoutStatusType `binding:"omitempty,oneof=pending processing completed rejected" form:"status"`
}

// Index GET RouteGroup + PayoutsRoute. Заявки текущего пользователя.
func (h *PayoutsHandler) Index(c *gin.Context) {
	h.index(c, h.payoutSvs.List)
}

// AdminIndex GET AdminGroup + AdminPayoutsRoute. Заявки всех пользователей.
func (h *PayoutsHandler) AdminIndex(c *gin.Context) {
	h.index(c, h.payoutSvs.ListAll)
}

func (h *PayoutsHandler) index(
	c *gin.Context,
	list func(ctx context.Context, actor domain.Actor, args service.ListPayoutsArgs) ([]domain.PayoutRequest, int64, error),
) {
	actor := getActorFromContext(c)
	var query PayoutsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBindError(c, err)
		return
	}
	args := service.ListPayoutsArgs{Status: query.Status, Page: query.toPage(maxPageLimit)}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	payouts, total, err := list(ctx, actor, args)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[PayoutResponse]{
		Data:       mapSlice(payouts, newPayoutResponse),
		Pagination: newPagination(args.Page, total),
	})
}

type ProcessPayoutParams struct {
	Notes  string `binding:"omitempty,max_bytes=2000" json:"notes"`
	Reason string `binding:"omitempty,max_bytes=2000" json:"reason"`
}

// MarkProcessing POST AdminGroup + AdminPayoutProcessingRoute.
func (h *PayoutsHandler) MarkProcessing(c *gin.Context) {
	h.process(c, func(ctx context.Context, actor domain.Actor, id int64, _ ProcessPayoutParams) (*domain.PayoutRequest, error) {
		return h.payoutSvs.MarkProcessing(ctx, actor, id)
	})
}

// MarkPaid POST AdminGroup + AdminPayoutPaidRoute.
func (h *PayoutsHandler) MarkPaid(c *gin.Context) {
	h.process(c, func(ctx context.Context, actor domain.Actor, id int64, p ProcessPayoutParams) (*domain.PayoutRequest, error) {
		return h.payoutSvs.MarkPaid(ctx, actor, id, strings.TrimSpace(p.Notes))
	})
}

// Reject POST AdminGroup + AdminPayoutRejectRoute. Отклонение возвращает сумму на исходный баланс.
func (h *PayoutsHandler) Reject(c *gin.Context) {
	h.process(c, func(ctx context.Context, actor domain.Actor, id int64, p ProcessPayoutParams) (*domain.PayoutRequest, error) {
		return h.payoutSvs.Reject(ctx, actor, id, strings.TrimSpace(p.Reason))
	})
}

func (h *PayoutsHandler) process(
	c *gin.Context,
	action func(ctx context.Context, actor domain.Actor, id int64, p ProcessPayoutParams) (*domain.PayoutRequest, error),
) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params ProcessPayoutParams
	// тело необязательно.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			abortWithBindError(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	payout, err := action(ctx, actor, id, params)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPayoutResponse(payout))
}
