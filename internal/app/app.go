package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/guestmart/internal/config"
	"github.com/fsdevblog/guestmart/internal/repository/pgrepo"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/fsdevblog/guestmart/internal/service/psswd"
	"github.com/fsdevblog/guestmart/internal/transport/api"
	"github.com/fsdevblog/guestmart/internal/transport/mailer"
	"github.com/fsdevblog/guestmart/internal/worker/autoapprove"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	drainTimeout      = 30 * time.Second
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// components собранные зависимости приложения.
type components struct {
	conn       *pgxpool.Pool
	services   *service.AppServices
	dispatcher *mailer.Dispatcher
}

func (c *components) Close() {
	c.conn.Close()
}

// build подключается к базе и собирает сервисы. Вызывающий обязан закрыть components.
func (a *App) build(ctx context.Context) (*components, error) {
	policy, policyErr := config.LoadPricing(a.Config.PricingFile)
	if policyErr != nil {
		return nil, policyErr //nolint:wrapcheck
	}

	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return nil, connErr //nolint:wrapcheck
	}

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		conn.Close()
		return nil, uowErr
	}

	secret := []byte(a.Config.JWTSecret)
	hasher := psswd.Bcrypt{}

	// диспетчеру нужен поиск получателей, а сервисам нужен диспетчер, поэтому получатель
	// собирается отдельно от фабрики.
	recipients, recErr := service.NewUserService(unitOfWork, secret, hasher)
	if recErr != nil {
		conn.Close()
		return nil, recErr //nolint:wrapcheck
	}
	dispatcher, dErr := mailer.New(recipients, mailer.Config{
		Address: a.Config.MailerAddress,
		APIKey:  a.Config.MailerAPIKey,
		From:    a.Config.MailFrom,
		AppURL:  a.Config.AppURL,
	}, a.Logger)
	if dErr != nil {
		conn.Close()
		return nil, dErr //nolint:wrapcheck
	}

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		JWTSecret: secret,
		Policy:    policy,
		Hasher:    hasher,
		Notifier:  dispatcher,
	})
	if sErr != nil {
		conn.Close()
		return nil, sErr //nolint:wrapcheck
	}

	return &components{conn: conn, services: services, dispatcher: dispatcher}, nil
}

// Run запускает HTTP сервер, диспетчер писем и sweeper авто-подтверждения. Завершается при отмене
// контекста или ошибке любого из них.
func (a *App) Run(ctx context.Context) error {
	if err := a.Config.ValidateServe(); err != nil {
		return fmt.Errorf("app run: %w", err)
	}
	a.Logger.Infof("Starting app with config: %s", a.Config)

	c, buildErr := a.build(ctx)
	if buildErr != nil {
		return fmt.Errorf("app run: %w", buildErr)
	}
	defer c.Close()

	router, routerErr := api.New(api.RouterArgs{
		Logger:         a.Logger,
		UserService:    c.services.UserService,
		WebsiteService: c.services.WebsiteService,
		OrderService:   c.services.OrderService,
		LedgerService:  c.services.LedgerService,
		PayoutService:  c.services.PayoutService,
		APIKeyService:  c.services.APIKeyService,
		JWTSecretKey:   []byte(a.Config.JWTSecret),
		CronSecret:     a.Config.CronSecret,
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %w", routerErr)
	}

	server := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.WithField("address", a.Config.RunAddress).Info("http server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return c.dispatcher.Run(gCtx)
	})
	if a.Config.AutoApproveInterval > 0 {
		sweeper := autoapprove.New(c.services.OrderService, c.services.APIKeyService, a.Logger).
			SetInterval(a.Config.AutoApproveInterval)
		g.Go(func() error {
			return sweeper.Run(gCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("app run: %w", err)
	}
	return ctx.Err() //nolint:wrapcheck
}

// Sweep выполняет один проход авто-подтверждения и доставляет письма, поставленные в очередь проходом.
func (a *App) Sweep(ctx context.Context) (autoapprove.Summary, error) {
	c, buildErr := a.build(ctx)
	if buildErr != nil {
		return autoapprove.Summary{}, fmt.Errorf("sweep: %w", buildErr)
	}
	defer c.Close()

	summary, err := autoapprove.New(c.services.OrderService, c.services.APIKeyService, a.Logger).Sweep(ctx)
	if err != nil {
		return summary, err //nolint:wrapcheck
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	c.dispatcher.Drain(drainCtx)
	return summary, nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := []struct {
		name    repoargs.RepositoryName
		factory uow.RepositoryFactory
	}{
		{repoargs.UserRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewUserRepository(dbtx) }},
		{repoargs.WebsiteRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewWebsiteRepository(dbtx) }},
		{repoargs.OrderRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewOrderRepository(dbtx) }},
		{repoargs.BalanceTransactionRepoName, func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewBalanceTransactionRepository(dbtx)
		}},
		{repoargs.PayoutRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewPayoutRepository(dbtx) }},
		{repoargs.ConversationRepoName, func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewConversationRepository(dbtx)
		}},
		{repoargs.DisputeRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewDisputeRepository(dbtx) }},
		{repoargs.ReviewRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewReviewRepository(dbtx) }},
		{repoargs.APIKeyRepoName, func(dbtx uow.DBTX) uow.Repository { return pgrepo.NewAPIKeyRepository(dbtx) }},
	}

	for _, f := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(f.name), f.factory); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}
	return unitOfWork, nil
}
