package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/community-access/internal/api/http"
	"github.com/spec-kit/community-access/internal/api/http/handlers"
	"github.com/spec-kit/community-access/internal/auth"
	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/mailer"
	"github.com/spec-kit/community-access/internal/observability"
	"github.com/spec-kit/community-access/internal/persistence"
	"github.com/spec-kit/community-access/internal/ratelimit"
	"github.com/spec-kit/community-access/internal/repository"
	"github.com/spec-kit/community-access/internal/service"
	"github.com/spec-kit/community-access/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	visitorRepo := repository.NewVisitorRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)

	limiter := ratelimit.NewRedisLimiter(redis.Client, logger)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	mail, err := mailer.FromConfig(cfg.Mailer, logger)
	if err != nil {
		logger.Fatal("failed to configure mailer", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		VerificationRepo: verificationRepo,
		Mailer:           mail,
		Limiter:          limiter,
		Logger:           logger,
	})
	visitorService := service.NewVisitorService(service.VisitorDependencies{
		VisitorRepo: visitorRepo,
		AddressRepo: addressRepo,
		Dispatcher:  dispatcher,
	})
	addressService := service.NewAddressService(service.AddressDependencies{
		AddressRepo: addressRepo,
		VisitorRepo: visitorRepo,
		Dispatcher:  dispatcher,
	})
	verificationService := service.NewVerificationService(service.VerificationDependencies{
		VisitorRepo: visitorRepo,
		AddressRepo: addressRepo,
		Dispatcher:  dispatcher,
		Limiter:     limiter,
		Limits:      cfg.RateLimit,
		Logger:      logger,
	})
	adminService := service.NewAdminService(cfg.AdminSetup, service.AdminDependencies{
		UserRepo:    userRepo,
		AddressRepo: addressRepo,
		VisitorRepo: visitorRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, userRepo, addressRepo, mail, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Visitors:       handlers.NewVisitorsHandler(visitorService),
		Addresses:      handlers.NewAddressesHandler(addressService, verificationService),
		Admin:          handlers.NewAdminHandler(adminService, addressService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
