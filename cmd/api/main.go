package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	oidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/api/guard"
	httptransport "github.com/hallgren-labs/content-governance/internal/api/http"
	"github.com/hallgren-labs/content-governance/internal/api/http/handlers"
	"github.com/hallgren-labs/content-governance/internal/config"
	"github.com/hallgren-labs/content-governance/internal/events"
	"github.com/hallgren-labs/content-governance/internal/governance"
	"github.com/hallgren-labs/content-governance/internal/governance/authz"
	"github.com/hallgren-labs/content-governance/internal/governance/quota"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
	"github.com/hallgren-labs/content-governance/internal/identity"
	"github.com/hallgren-labs/content-governance/internal/observability"
	"github.com/hallgren-labs/content-governance/internal/persistence"
	"github.com/hallgren-labs/content-governance/internal/repository"
	"github.com/hallgren-labs/content-governance/internal/service"
	"github.com/hallgren-labs/content-governance/internal/settings"
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

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterAuditLog(dispatcher, logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	contentRepo := repository.NewContentRepository(pool)

	sessionService := service.NewSessionService(*cfg, userRepo)
	contentService := service.NewContentService(contentRepo, dispatcher)

	providers := []identity.Provider{identity.NewSessionProvider(cfg.Auth.JWTSecret)}
	if cfg.Auth.OIDCIssuer != "" {
		oidcProvider, err := oidc.NewProvider(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			logger.Fatal("failed to configure oidc provider", zap.Error(err))
		}
		verifier := oidcProvider.Verifier(&oidc.Config{ClientID: cfg.Auth.OIDCClientID})
		providers = append(providers, identity.NewOIDCProvider(verifier))
	}
	resolver := identity.NewResolver(providers, cfg.Auth.VerifyTimeout(), logger)

	limiter := ratelimit.NewLimiter(clock, cfg.Governance.SweepInterval(), logger)
	limiter.Start(ctx)

	settingsProvider := settings.NewProvider(redis.Client, cfg.Governance.PublishDailyLimit, logger)

	facade := governance.NewFacade(governance.Dependencies{
		Resolver: resolver,
		Limiter:  limiter,
		Engine:   authz.NewEngine(),
		Quota:    quota.NewEnforcer(clock),
		Settings: settingsProvider,
		Clock:    clock,
		Metrics:  metrics,
		Logger:   logger,
	})
	requestGuard := guard.NewGuard(facade, contentService.Ownership, dispatcher, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Sessions: handlers.NewSessionHandler(sessionService),
		Content:  handlers.NewContentHandler(contentService),
		Admin:    handlers.NewAdminHandler(settingsProvider),
		Guard:    requestGuard,
		Classes:  cfg.Governance,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
