package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	// defaultAnchorText текст ссылки, если покупатель его не указал.
	defaultAnchorText = "Click Here"
	maxV1OrdersLimit  = 50
)

type OrdersHandler struct {
	orderSvs OrderServicer
}

func NewOrdersHandler(orderSvs OrderServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs: orderSvs,
	}
}

type OrderPricing struct {
	BasePrice         Money `json:"base_price"`
	UrgentFee         Money `json:"urgent_fee"`
	Subtotal          Money `json:"subtotal"`
	PlatformFee       Money `json:"platform_fee"`
	Total             Money `json:"total"`
	PublisherEarnings Money `json:"publisher_earnings"`
}

type OrderResponse struct {
	ID            int64                    `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	WebsiteID     int64                    `json:"website_id"`
	BuyerID       int64                    `json:"buyer_id"`
	PublisherID   int64                    `json:"publisher_id"`
	OrderType     domain.OrderType         `json:"order_type"`
	ContentSource domain.ContentSource     `json:"content_source"`
	Status        domain.OrderStatusType   `json:"status"`
	PaymentStatus domain.PaymentStatusType `json:"payment_status"`
	TargetURL     string                   `json:"target_url"`
	AnchorText    string                   `json:"anchor_text"`
	ArticleTitle  string                   `json:"article_title,omitempty"`
	ArticleURL    string                   `json:"article_url,omitempty"`
	BuyerNotes    string                   `json:"buyer_notes,omitempty"`
	Pricing       OrderPricing             `json:"pricing"`

	IsUrgent               bool       `json:"is_urgent"`
	TurnaroundDays         int        `json:"turnaround_days"`
	DeadlineAt             time.Time  `json:"deadline_at"`
	PaidAt                 *time.Time `json:"paid_at,omitempty"`
	AcceptedAt             *time.Time `json:"accepted_at,omitempty"`
	PublishedAt            *time.Time `json:"published_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	ConfirmationDeadline   *time.Time `json:"confirmation_deadline,omitempty"`
	DisputeProtectionUntil *time.Time `json:"dispute_protection_until,omitempty"`
	RejectionReason        string     `json:"rejection_reason,omitempty"`
	CancellationReason     string     `json:"cancellation_reason,omitempty"`
	RevisionCount          int        `json:"revision_count"`
	BuyerRating            *int       `json:"buyer_rating,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		WebsiteID:     o.WebsiteID,
		BuyerID:       o.BuyerID,
		PublisherID:   o.PublisherID,
		OrderType:     o.OrderType,
		ContentSource: o.ContentSource,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TargetURL:     o.TargetURL,
		AnchorText:    o.AnchorText,
		ArticleTitle:  o.ArticleTitle,
		ArticleURL:    o.ArticleURL,
		BuyerNotes:    o.BuyerNotes,
		Pricing: OrderPricing{
			BasePrice:         newMoney(o.BasePrice),
			UrgentFee:         newMoney(o.UrgentFee),
			Subtotal:          newMoney(o.Subtotal),
			PlatformFee:       newMoney(o.PlatformFee),
			Total:             newMoney(o.TotalAmount),
			PublisherEarnings: newMoney(o.PublisherEarnings),
		},
		IsUrgent:               o.IsUrgent,
		TurnaroundDays:         o.TurnaroundDays,
		DeadlineAt:             o.DeadlineAt,
		PaidAt:                 o.PaidAt,
		AcceptedAt:             o.AcceptedAt,
		PublishedAt:            o.PublishedAt,
		CompletedAt:            o.CompletedAt,
		CancelledAt:            o.CancelledAt,
		ConfirmationDeadline:   o.ConfirmationDeadline,
		DisputeProtectionUntil: o.DisputeProtectionUntil,
		RejectionReason:        o.RejectionReason,
		CancellationReason:     o.CancellationReason,
		RevisionCount:          o.RevisionCount,
		BuyerRating:            o.BuyerRating,
		CreatedAt:              o.CreatedAt,
	}
}

type CreateOrderParams struct {
	WebsiteID     int64                `binding:"required,min=1"                  json:"website_id"`
	OrderType     domain.OrderType     `binding:"required,order_type"             json:"order_type"`
	ContentSource domain.ContentSource `binding:"omitempty,content_source"        json:"content_source"`
	TargetURL     string               `binding:"required,url,max=2048"           json:"target_url"`
	AnchorText    string               `binding:"omitempty,max=255"               json:"anchor_text"`
	ArticleTitle  string               `binding:"omitempty,max=500"               json:"article_title"`
	ArticleBody   string               `binding:"omitempty,max_bytes=200000"      json:"article_content"`
	BuyerNotes    string               `binding:"omitempty,max_bytes=5000"        json:"notes"`
	IsUrgent      bool                 `json:"is_urgent"`
	PayWithWallet bool                 `json:"pay_with_wallet"`
}

func (p CreateOrderParams) toArgs() service.CreateOrderArgs {
	return service.CreateOrderArgs{
		WebsiteID:     p.WebsiteID,
		OrderType:     p.OrderType,
		ContentSource: p.ContentSource,
		Urgent:        p.IsUrgent,
		TargetURL:     strings.TrimSpace(p.TargetURL),
		AnchorText:    strings.TrimSpace(p.AnchorText),
		ArticleTitle:  strings.TrimSpace(p.ArticleTitle),
		ArticleBody:   p.ArticleBody,
		BuyerNotes:    p.BuyerNotes,
		PayWithWallet: p.PayWithWallet,
	}
}

// Create POST RouteGroup + OrdersRoute. Оформление заказа, при pay_with_wallet сразу с оплатой из кошелька.
func (o *OrdersHandler) Create(c *gin.Context) {
	actor := getActorFromContext(c)
	var params CreateOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}
	args := params.toArgs()
	if args.AnchorText == "" {
		args.AnchorText = defaultAnchorText
	}
	o.create(c, actor, args)
}

// CreateV1 POST V1Group + OrdersRoute. Заказ через публичный API: текст ссылки обязателен, оплата
// выполняется отдельно.
func (o *OrdersHandler) CreateV1(c *gin.Context) {
	actor := getActorFromContext(c)
	var params CreateOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}
	args := params.toArgs()
	if args.AnchorText == "" {
		abortWithError(c, domain.NewValidationError("anchor_text", "is required"))
		return
	}
	args.PayWithWallet = false
	o.create(c, actor, args)
}

func (o *OrdersHandler) create(c *gin.Context, actor domain.Actor, args service.CreateOrderArgs) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Create(ctx, actor, args)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

type OrdersQuery struct {
	PageQuery
	View   repoargs.OrderScope     `binding:"omitempty,oneof=buyer publisher all" form:"view"`
	Status *domain.OrderStatusType `binding:"omitempty,max=32"                    form:"status"`
}

// Index GET RouteGroup + OrdersRoute. Заказы текущего пользователя.
func (o *OrdersHandler) Index(c *gin.Context) {
	o.index(c, maxPageLimit, false)
}

// IndexV1 GET V1Group + OrdersRoute. Заказы владельца ключа как покупателя.
func (o *OrdersHandler) IndexV1(c *gin.Context) {
	o.index(c, maxV1OrdersLimit, true)
}

func (o *OrdersHandler) index(c *gin.Context, maxLimit int, buyerOnly bool) {
	actor := getActorFromContext(c)
	var query OrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBindError(c, err)
		return
	}
	args := service.ListOrdersArgs{
		View:   query.View,
		Status: query.Status,
		Page:   query.toPage(maxLimit),
	}
	if buyerOnly {
		args.View = repoargs.ScopeBuyer
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, total, err := o.orderSvs.List(ctx, actor, args)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[OrderResponse]{
		Data:       mapSlice(orders, newOrderResponse),
		Pagination: newPagination(args.Page, total),
	})
}

// Show GET RouteGroup + OrderRoute.
func (o *OrdersHandler) Show(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Get(ctx, actor, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Pay POST RouteGroup + OrderPayRoute. Оплата созданного заказа из кошелька покупателя.
func (o *OrdersHandler) Pay(c *gin.Context) {
	o.orderAction(c, o.orderSvs.PayWithWallet)
}

// Confirm POST RouteGroup + OrderConfirmRoute. Покупатель подтверждает публикацию.
func (o *OrdersHandler) Confirm(c *gin.Context) {
	o.orderAction(c, o.orderSvs.Confirm)
}

// orderAction выполняет действие над заказом без тела запроса и отдает обновленный заказ.
func (o *OrdersHandler) orderAction(
	c *gin.Context,
	action func(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error),
) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := action(ctx, actor, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

type UpdateStatusParams struct {
	Status     domain.OrderStatusType `binding:"required,max=32"           json:"status"`
	ArticleURL string                 `binding:"omitempty,url,max=2048"    json:"article_url"`
	Reason     string                 `binding:"omitempty,max_bytes=2000"  json:"reason"`
}

// UpdateStatus PATCH RouteGroup + OrderStatusRoute. Смена статуса по таблице переходов.
func (o *OrdersHandler) UpdateStatus(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params UpdateStatusParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.UpdateStatus(ctx, actor, id, service.UpdateStatusArgs{
		Status:     params.Status,
		ArticleURL: strings.TrimSpace(params.ArticleURL),
		Reason:     strings.TrimSpace(params.Reason),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

type RejectOrderParams struct {
	Reason string `binding:"required,max_bytes=2000" json:"reason"`
}

// Reject POST RouteGroup + OrderRejectRoute. Покупатель отправляет публикацию на доработку.
func (o *OrdersHandler) Reject(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params RejectOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.RequestRevision(ctx, actor, id, strings.TrimSpace(params.Reason))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

type DisputeResponse struct {
	ID          int64                 `json:"id"`
	OrderID     int64                 `json:"order_id"`
	OpenedBy    int64                 `json:"opened_by"`
	Reason      string                `json:"reason"`
	Description string                `json:"description,omitempty"`
	Status      domain.DisputeStatus  `json:"status"`
	Outcome     domain.DisputeOutcome `json:"outcome,omitempty"`
	AdminNotes  string                `json:"admin_notes,omitempty"`
	ResolvedAt  *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func newDisputeResponse(d *domain.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:          d.ID,
		OrderID:     d.OrderID,
		OpenedBy:    d.OpenedBy,
		Reason:      d.Reason,
		Description: d.Description,
		Status:      d.Status,
		Outcome:     d.Outcome,
		AdminNotes:  d.AdminNotes,
		ResolvedAt:  d.ResolvedAt,
		CreatedAt:   d.CreatedAt,
	}
}

type OpenDisputeParams struct {
	Reason      string `binding:"required,max=255"          json:"reason"`
	Description string `binding:"omitempty,max_bytes=5000"  json:"description"`
}

// Dispute POST RouteGroup + OrderDisputeRoute.
func (o *OrdersHandler) Dispute(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params OpenDisputeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	dispute, err := o.orderSvs.OpenDispute(ctx, actor, id, service.OpenDisputeArgs{
		Reason:      strings.TrimSpace(params.Reason),
		Description: params.Description,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDisputeResponse(dispute))
}

type ResolveDisputeParams struct {
	Outcome domain.DisputeOutcome `binding:"required,oneof=release refund" json:"outcome"`
	Notes   string                `binding:"omitempty,max_bytes=5000"      json:"notes"`
}

// ResolveDispute POST AdminGroup + AdminResolveDisputeRoute.
func (o *OrdersHandler) ResolveDispute(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params ResolveDisputeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	dispute, err := o.orderSvs.ResolveDispute(ctx, actor, id, service.ResolveDisputeArgs{
		Outcome: params.Outcome,
		Notes:   params.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDisputeResponse(dispute))
}

type ReviewParams struct {
	Rating  int    `binding:"required,min=1,max=5"     json:"rating"`
	Comment string `binding:"omitempty,max_bytes=5000" json:"comment"`
}

type ReviewResponse struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	WebsiteID int64     `json:"website_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Review POST RouteGroup + OrderReviewRoute.
func (o *OrdersHandler) Review(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params ReviewParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	review, err := o.orderSvs.Review(ctx, actor, id, service.ReviewArgs{
		Rating:  params.Rating,
		Comment: strings.TrimSpace(params.Comment),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ReviewResponse{
		ID:        review.ID,
		OrderID:   review.OrderID,
		WebsiteID: review.WebsiteID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	})
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	SenderID  *int64    `json:"sender_id"`
	Body      string    `json:"body"`
	IsSystem  bool      `json:"is_system"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		IsSystem:  m.IsSystem,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

// Messages GET RouteGroup + OrderMessagesRoute. Переписка по заказу, сообщения собеседника отмечаются
// прочитанными.
func (o *OrdersHandler) Messages(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	messages, err := o.orderSvs.Messages(ctx, actor, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapSlice(messages, newMessageResponse)})
}

type PostMessageParams struct {
	Body string `binding:"required,max_bytes=10000" json:"body"`
}

// PostMessage POST RouteGroup + OrderMessagesRoute.
func (o *OrdersHandler) PostMessage(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params PostMessageParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	msg, err := o.orderSvs.PostMessage(ctx, actor, id, params.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMessageResponse(msg))
}
