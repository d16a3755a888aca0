package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type OrderHandlerTestSuite struct {
	handlerSuite
	buyer domain.Actor
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) SetupTest() {
	s.handlerSuite.SetupTest()
	s.buyer = domain.Actor{UserID: 10, Role: domain.RoleBuyer}
}

func testOrder(id int64, buyerID int64) *domain.Order {
	return &domain.Order{
		ID:                id,
		OrderNumber:       "PS-0A1B2C3D",
		BuyerID:           buyerID,
		PublisherID:       20,
		WebsiteID:         30,
		OrderType:         domain.OrderTypeGuestPost,
		ContentSource:     domain.ContentPublisherWrites,
		TargetURL:         "https://buyer.example.com",
		AnchorText:        defaultAnchorText,
		BasePrice:         10000,
		Subtotal:          10000,
		PlatformFee:       2500,
		TotalAmount:       10000,
		PublisherEarnings: 7500,
		TurnaroundDays:    7,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		CreatedAt:         time.Now(),
	}
}

func (s *OrderHandlerTestSuite) TestCreate() {
	targetURL := gofakeit.URL()

	s.orderSvs.EXPECT().
		Create(gomock.Any(), s.buyer, service.CreateOrderArgs{
			WebsiteID:     30,
			OrderType:     domain.OrderTypeGuestPost,
			TargetURL:     targetURL,
			AnchorText:    defaultAnchorText,
			PayWithWallet: true,
		}).
		Return(testOrder(1, s.buyer.UserID), nil)

	res := s.request(http.MethodPost, RouteGroup+OrdersRoute, map[string]any{
		"website_id":      30,
		"order_type":      "guest_post",
		"target_url":      targetURL,
		"pay_with_wallet": true,
	}, s.token(s.buyer.UserID, s.buyer.Role))
	s.Require().Equal(http.StatusCreated, res.status, string(res.body))

	var body OrderResponse
	res.decode(&s.handlerSuite, &body)
	s.Equal("PS-0A1B2C3D", body.OrderNumber)
	s.Equal(int64(2500), body.Pricing.PlatformFee.Cents)
	s.Equal("100", body.Pricing.Total.Amount.String())
}

func (s *OrderHandlerTestSuite) TestCreateErrors() {
	token := s.token(s.buyer.UserID, s.buyer.Role)
	payload := map[string]any{
		"website_id": 30,
		"order_type": "guest_post",
		"target_url": "https://buyer.example.com",
	}

	cases := []struct {
		name       string
		payload    any
		svcErr     error
		token      string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "insufficient funds",
			payload:    payload,
			svcErr:     fmt.Errorf("debit buyer: %w", domain.ErrInsufficientFunds),
			token:      token,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INSUFFICIENT_FUNDS",
		}, {
			name:       "service not offered",
			payload:    payload,
			svcErr:     fmt.Errorf("quote: %w", domain.ErrServiceUnavailable),
			token:      token,
			wantStatus: http.StatusBadRequest,
			wantCode:   "SERVICE_UNAVAILABLE",
		}, {
			name:       "website not available",
			payload:    payload,
			svcErr:     fmt.Errorf("website 30: %w", domain.ErrRecordNotFound),
			token:      token,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		}, {
			name:       "own website",
			payload:    payload,
			svcErr:     domain.ErrForbidden,
			token:      token,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		}, {
			name:       "number collisions exhausted",
			payload:    payload,
			svcErr:     fmt.Errorf("creating order: %w", domain.ErrUnknown),
			token:      token,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		}, {
			name: "unknown order type",
			payload: map[string]any{
				"website_id": 30,
				"order_type": "press_release",
				"target_url": "https://buyer.example.com",
			},
			token:      token,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		}, {
			name:       "not authorized",
			payload:    payload,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			if t.svcErr != nil {
				s.orderSvs.EXPECT().Create(gomock.Any(), s.buyer, gomock.Any()).Return(nil, t.svcErr)
			}
			res := s.request(http.MethodPost, RouteGroup+OrdersRoute, t.payload, t.token)
			s.Require().Equal(t.wantStatus, res.status, string(res.body))
			s.Equal(t.wantCode, res.errBody.Code)
		})
	}
}

func (s *OrderHandlerTestSuite) TestIndex() {
	status := domain.OrderStatusPublished
	s.orderSvs.EXPECT().
		List(gomock.Any(), s.buyer, service.ListOrdersArgs{
			View:   repoargs.ScopeBuyer,
			Status: &status,
			Page:   domain.Page{Page: 2, Limit: maxPageLimit},
		}).
		Return([]domain.Order{*testOrder(1, s.buyer.UserID)}, int64(101), nil)

	res := s.request(
		http.MethodGet,
		RouteGroup+OrdersRoute+"?view=buyer&status=published&page=2&limit=500",
		nil,
		s.token(s.buyer.UserID, s.buyer.Role),
	)
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	var body ListResponse[OrderResponse]
	res.decode(&s.handlerSuite, &body)
	s.Len(body.Data, 1)
	s.Equal(Pagination{Page: 2, Limit: maxPageLimit, Total: 101, TotalPages: 2, HasMore: false}, body.Pagination)
}

func (s *OrderHandlerTestSuite) TestStatusTransitions() {
	publisher := domain.Actor{UserID: 20, Role: domain.RolePublisher}
	token := s.token(publisher.UserID, publisher.Role)

	s.orderSvs.EXPECT().
		UpdateStatus(gomock.Any(), publisher, int64(1), service.UpdateStatusArgs{
			Status:     domain.OrderStatusPublished,
			ArticleURL: "https://publisher.example.com/post",
		}).
		Return(&domain.Order{ID: 1, Status: domain.OrderStatusPublished}, nil)
	s.orderSvs.EXPECT().
		UpdateStatus(gomock.Any(), publisher, int64(2), gomock.Any()).
		Return(nil, domain.NewTransitionError(domain.OrderStatusCompleted, domain.OrderStatusWriting))

	res := s.request(http.MethodPatch, RouteGroup+"/orders/1/status", map[string]string{
		"status":      "published",
		"article_url": "https://publisher.example.com/post",
	}, token)
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	res = s.request(http.MethodPatch, RouteGroup+"/orders/2/status", map[string]string{"status": "writing"}, token)
	s.Equal(http.StatusConflict, res.status)
	s.Equal("CONFLICT", res.errBody.Code)
	s.Equal("cannot change order status from completed to writing", res.errBody.Error)

	res = s.request(http.MethodPatch, RouteGroup+"/orders/abc/status", map[string]string{"status": "writing"}, token)
	s.Equal(http.StatusBadRequest, res.status)
	s.Equal("VALIDATION_ERROR", res.errBody.Code)
}

func (s *OrderHandlerTestSuite) TestBuyerActions() {
	token := s.token(s.buyer.UserID, s.buyer.Role)

	s.orderSvs.EXPECT().Confirm(gomock.Any(), s.buyer, int64(1)).
		Return(&domain.Order{ID: 1, Status: domain.OrderStatusCompleted}, nil)
	s.orderSvs.EXPECT().PayWithWallet(gomock.Any(), s.buyer, int64(2)).
		Return(nil, fmt.Errorf("pay order: %w", domain.ErrConflict))
	s.orderSvs.EXPECT().RequestRevision(gomock.Any(), s.buyer, int64(3), "link is nofollow").
		Return(&domain.Order{ID: 3, Status: domain.OrderStatusRevisionNeeded, RevisionCount: 1}, nil)
	s.orderSvs.EXPECT().
		OpenDispute(gomock.Any(), s.buyer, int64(4), service.OpenDisputeArgs{Reason: "not published"}).
		Return(&domain.Dispute{ID: 9, OrderID: 4, Status: domain.DisputeOpen}, nil)
	s.orderSvs.EXPECT().
		Review(gomock.Any(), s.buyer, int64(5), service.ReviewArgs{Rating: 5, Comment: "great"}).
		Return(&domain.Review{ID: 1, OrderID: 5, Rating: 5}, nil)

	cases := []struct {
		name       string
		url        string
		payload    any
		wantStatus int
	}{
		{name: "confirm", url: "/orders/1/confirm", wantStatus: http.StatusOK},
		{name: "pay already paid", url: "/orders/2/pay", wantStatus: http.StatusConflict},
		{
			name:       "reject",
			url:        "/orders/3/reject",
			payload:    map[string]string{"reason": " link is nofollow "},
			wantStatus: http.StatusOK,
		},
		{name: "reject without reason", url: "/orders/3/reject", payload: map[string]string{}, wantStatus: http.StatusBadRequest},
		{
			name:       "dispute",
			url:        "/orders/4/dispute",
			payload:    map[string]string{"reason": "not published"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "review",
			url:        "/orders/5/review",
			payload:    map[string]any{"rating": 5, "comment": "great"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "review rating out of range",
			url:        "/orders/5/review",
			payload:    map[string]any{"rating": 6},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+t.url, t.payload, token)
			s.Equal(t.wantStatus, res.status, string(res.body))
		})
	}
}

func (s *OrderHandlerTestSuite) TestMessages() {
	token := s.token(s.buyer.UserID, s.buyer.Role)
	sender := s.buyer.UserID

	s.orderSvs.EXPECT().Messages(gomock.Any(), s.buyer, int64(1)).Return([]domain.Message{
		{ID: 1, IsSystem: true, Body: "Order placed"},
		{ID: 2, SenderID: &sender, Body: "hello"},
	}, nil)
	s.orderSvs.EXPECT().PostMessage(gomock.Any(), s.buyer, int64(1), "hi there").
		Return(&domain.Message{ID: 3, SenderID: &sender, Body: "hi there"}, nil)
	s.orderSvs.EXPECT().Messages(gomock.Any(), s.buyer, int64(2)).
		Return(nil, fmt.Errorf("messages: %w", domain.ErrForbidden))

	res := s.request(http.MethodGet, RouteGroup+"/orders/1/messages", nil, token)
	s.Require().Equal(http.StatusOK, res.status)
	var list struct {
		Data []MessageResponse `json:"data"`
	}
	res.decode(&s.handlerSuite, &list)
	s.Len(list.Data, 2)
	s.True(list.Data[0].IsSystem)

	res = s.request(http.MethodPost, RouteGroup+"/orders/1/messages", map[string]string{"body": "hi there"}, token)
	s.Equal(http.StatusCreated, res.status)

	res = s.request(http.MethodGet, RouteGroup+"/orders/2/messages", nil, token)
	s.Equal(http.StatusForbidden, res.status)
}

func (s *OrderHandlerTestSuite) TestResolveDisputeAdminOnly() {
	admin := domain.Actor{UserID: 1, Role: domain.RoleAdmin}
	s.orderSvs.EXPECT().
		ResolveDispute(gomock.Any(), admin, int64(9), service.ResolveDisputeArgs{Outcome: domain.DisputeRefund}).
		Return(&domain.Dispute{ID: 9, Status: domain.DisputeResolved, Outcome: domain.DisputeRefund}, nil)

	url := RouteGroup + AdminGroup + "/disputes/9/resolve"
	res := s.request(http.MethodPost, url, map[string]string{"outcome": "refund"}, s.token(admin.UserID, admin.Role))
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	res = s.request(http.MethodPost, url, map[string]string{"outcome": "refund"}, s.token(s.buyer.UserID, s.buyer.Role))
	s.Equal(http.StatusForbidden, res.status)
	s.Equal("FORBIDDEN", res.errBody.Code)
}

// apiKey настраивает моки аутентификации ключа и лимита запросов.
func (s *OrderHandlerTestSuite) apiKey(raw string, state domain.RateLimitState, perms ...domain.APIPermission) {
	key := &domain.APIKey{ID: 1, UserID: s.buyer.UserID, Permissions: perms, RateLimit: state.Limit, IsActive: true}
	s.keySvs.EXPECT().Authenticate(gomock.Any(), raw).Return(key, nil)
	s.keySvs.EXPECT().CheckRateLimit(gomock.Any(), key).Return(&state, nil)
}

func (s *OrderHandlerTestSuite) TestV1Create() {
	resetAt := time.Now().Add(30 * time.Second).UTC().Truncate(time.Second)
	allowed := domain.RateLimitState{Allowed: true, Limit: 100, Remaining: 99, ResetAt: resetAt}

	s.Run("created", func() {
		s.apiKey("ps_write", allowed, domain.PermissionWrite)
		s.orderSvs.EXPECT().
			Create(gomock.Any(), s.buyer, service.CreateOrderArgs{
				WebsiteID:  30,
				OrderType:  domain.OrderTypeLinkInsertion,
				TargetURL:  "https://buyer.example.com",
				AnchorText: "best shoes",
			}).
			Return(testOrder(1, s.buyer.UserID), nil)

		res := s.request(http.MethodPost, RouteGroup+V1Group+OrdersRoute, map[string]any{
			"website_id":      30,
			"order_type":      "link_insertion",
			"target_url":      "https://buyer.example.com",
			"anchor_text":     "best shoes",
			"pay_with_wallet": true,
		}, "ps_write")
		s.Require().Equal(http.StatusCreated, res.status, string(res.body))
		s.Equal("100", res.header.Get("X-RateLimit-Limit"))
		s.Equal("99", res.header.Get("X-RateLimit-Remaining"))
		s.Equal(resetAt.Format(time.RFC3339), res.header.Get("X-RateLimit-Reset"))
	})

	s.Run("anchor text required", func() {
		s.apiKey("ps_orders", allowed, domain.PermissionOrders)
		res := s.request(http.MethodPost, RouteGroup+V1Group+OrdersRoute, map[string]any{
			"website_id": 30,
			"order_type": "guest_post",
			"target_url": "https://buyer.example.com",
		}, "ps_orders")
		s.Equal(http.StatusBadRequest, res.status)
		s.Contains(res.errBody.Fields, "anchor_text")
	})

	s.Run("read only key", func() {
		s.apiKey("ps_read", allowed, domain.PermissionRead)
		res := s.request(http.MethodPost, RouteGroup+V1Group+OrdersRoute, map[string]any{}, "ps_read")
		s.Equal(http.StatusForbidden, res.status)
		s.Equal("FORBIDDEN", res.errBody.Code)
	})

	s.Run("rate limited", func() {
		s.apiKey("ps_busy", domain.RateLimitState{Limit: 2, ResetAt: resetAt}, domain.PermissionWrite)
		res := s.request(http.MethodPost, RouteGroup+V1Group+OrdersRoute, map[string]any{}, "ps_busy")
		s.Equal(http.StatusTooManyRequests, res.status)
		s.Equal("RATE_LIMIT_EXCEEDED", res.errBody.Code)
		s.Equal("0", res.header.Get("X-RateLimit-Remaining"))
		retryAfter, err := strconv.Atoi(res.header.Get("Retry-After"))
		s.Require().NoError(err)
		s.InDelta(30, retryAfter, 2)
	})

	s.Run("unknown key", func() {
		s.keySvs.EXPECT().Authenticate(gomock.Any(), "ps_unknown").
			Return(nil, fmt.Errorf("authenticate: %w", domain.ErrUnauthorized))
		res := s.request(http.MethodPost, RouteGroup+V1Group+OrdersRoute, map[string]any{}, "ps_unknown")
		s.Equal(http.StatusUnauthorized, res.status)
		s.Equal("UNAUTHORIZED", res.errBody.Code)
	})

	s.Run("key store failure", func() {
		s.keySvs.EXPECT().Authenticate(gomock.Any(), "ps_broken").Return(nil, errors.New("pool closed"))
		res := s.request(http.MethodGet, RouteGroup+V1Group+OrdersRoute, nil, "ps_broken")
		s.Equal(http.StatusInternalServerError, res.status)
		s.Equal("INTERNAL_ERROR", res.errBody.Code)
		s.NotContains(res.errBody.Error, "pool")
	})
}

func (s *OrderHandlerTestSuite) TestV1IndexForcesBuyerScope() {
	resetAt := time.Now().Add(time.Minute)
	s.apiKey("ps_read", domain.RateLimitState{Allowed: true, Limit: 100, Remaining: 10, ResetAt: resetAt},
		domain.PermissionRead)
	s.orderSvs.EXPECT().
		List(gomock.Any(), s.buyer, service.ListOrdersArgs{
			View: repoargs.ScopeBuyer,
			Page: domain.Page{Page: 1, Limit: maxV1OrdersLimit},
		}).
		Return(nil, int64(0), nil)

	res := s.request(http.MethodGet, RouteGroup+V1Group+OrdersRoute+"?view=all&limit=80", nil, "ps_read")
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	var body ListResponse[OrderResponse]
	res.decode(&s.handlerSuite, &body)
	s.Empty(body.Data)
	s.Equal(int64(0), body.Pagination.Total)
}
