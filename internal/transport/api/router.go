package api

import (
	"fmt"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup = "/api"
	V1Group    = "/v1"
	AdminGroup = "/admin"
	CronGroup  = "/cron"

	HealthRoute  = "/healthz"
	MetricsRoute = "/metrics"

	RegisterRoute = "/user/register"
	LoginRoute    = "/user/login"
	MeRoute       = "/user/me"

	WebsitesRoute   = "/websites"
	MyWebsitesRoute = "/websites/mine"

	OrdersRoute        = "/orders"
	OrderRoute         = "/orders/:id"
	OrderPayRoute      = "/orders/:id/pay"
	OrderStatusRoute   = "/orders/:id/status"
	OrderConfirmRoute  = "/orders/:id/confirm"
	OrderRejectRoute   = "/orders/:id/reject"
	OrderDisputeRoute  = "/orders/:id/dispute"
	OrderReviewRoute   = "/orders/:id/review"
	OrderMessagesRoute = "/orders/:id/messages"

	BalanceRoute             = "/balance"
	BalanceTransactionsRoute = "/balance/transactions"
	PayoutsRoute             = "/payouts"
	KeysRoute                = "/keys"
	KeyRoute                 = "/keys/:id"

	AdminPayoutsRoute          = "/payouts"
	AdminPayoutPaidRoute       = "/payouts/:id/mark-paid"
	AdminPayoutProcessingRoute = "/payouts/:id/processing"
	AdminPayoutRejectRoute     = "/payouts/:id/reject"
	AdminVerifyWebsiteRoute    = "/websites/:id/verify"
	AdminUserBalanceRoute      = "/users/:id/balance"
	AdminResolveDisputeRoute   = "/disputes/:id/resolve"

	CronAutoApproveRoute = "/auto-approve"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	UserService    UserServicer
	WebsiteService WebsiteServicer
	OrderService   OrderServicer
	LedgerService  LedgerServicer
	PayoutService  PayoutServicer
	APIKeyService  APIKeyServicer
	JWTSecretKey   []byte
	// CronSecret bearer токен планировщика. Пустое значение отключает проверку.
	CronSecret string
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Metrics(), middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	websitesHandler := NewWebsitesHandler(args.WebsiteService)
	ordersHandler := NewOrdersHandler(args.OrderService)
	balanceHandler := NewBalanceHandler(args.LedgerService)
	payoutsHandler := NewPayoutsHandler(args.PayoutService)
	keysHandler := NewKeysHandler(args.APIKeyService)
	cronHandler := NewCronHandler(args.OrderService, args.APIKeyService, args.Logger)

	r.GET(HealthRoute, Healthz)
	r.GET(MetricsRoute, gin.WrapH(promhttp.Handler()))

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	cron := api.Group(CronGroup, middlewares.CronSecretRequired(args.CronSecret))
	cron.POST(CronAutoApproveRoute, cronHandler.AutoApprove)

	// публичный API работает по ключам, а не по сессии.
	v1 := api.Group(V1Group, middlewares.APIKeyRequired(args.APIKeyService))
	v1.GET(WebsitesRoute, websitesHandler.Index)
	v1.GET(OrdersRoute, ordersHandler.IndexV1)
	v1.POST(
		OrdersRoute,
		middlewares.PermissionRequired(domain.PermissionWrite, domain.PermissionOrders),
		ordersHandler.CreateV1,
	)

	// ниже все роуты группы требуют авторизованного пользователя.
	session := api.Group("", middlewares.AuthRequired(args.JWTSecretKey))
	session.GET(MeRoute, authHandler.Me)

	session.GET(WebsitesRoute, websitesHandler.Index)
	session.GET(MyWebsitesRoute, websitesHandler.Mine)
	session.POST(WebsitesRoute, websitesHandler.Create)

	session.POST(OrdersRoute, ordersHandler.Create)
	session.GET(OrdersRoute, ordersHandler.Index)
	session.GET(OrderRoute, ordersHandler.Show)
	session.POST(OrderPayRoute, ordersHandler.Pay)
	session.PATCH(OrderStatusRoute, ordersHandler.UpdateStatus)
	session.POST(OrderConfirmRoute, ordersHandler.Confirm)
	session.POST(OrderRejectRoute, ordersHandler.Reject)
	session.POST(OrderDisputeRoute, ordersHandler.Dispute)
	session.POST(OrderReviewRoute, ordersHandler.Review)
	session.GET(OrderMessagesRoute, ordersHandler.Messages)
	session.POST(OrderMessagesRoute, ordersHandler.PostMessage)

	session.GET(BalanceRoute, balanceHandler.Index)
	session.GET(BalanceTransactionsRoute, balanceHandler.Transactions)

	session.POST(PayoutsRoute, payoutsHandler.Create)
	session.GET(PayoutsRoute, payoutsHandler.Index)

	session.GET(KeysRoute, keysHandler.Index)
	session.POST(KeysRoute, keysHandler.Create)
	session.DELETE(KeyRoute, keysHandler.Revoke)

	admin := session.Group(AdminGroup, middlewares.RoleRequired(domain.RoleAdmin))
	admin.GET(AdminPayoutsRoute, payoutsHandler.AdminIndex)
	admin.POST(AdminPayoutProcessingRoute, payoutsHandler.MarkProcessing)
	admin.POST(AdminPayoutPaidRoute, payoutsHandler.MarkPaid)
	admin.POST(AdminPayoutRejectRoute, payoutsHandler.Reject)
	admin.POST(AdminVerifyWebsiteRoute, websitesHandler.Verify)
	admin.POST(AdminUserBalanceRoute, balanceHandler.Adjust)
	admin.POST(AdminResolveDisputeRoute, ordersHandler.ResolveDispute)

	return r, nil
}
