package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httprate"

	"github.com/aegis-iam/aegis/cmd/aegis/cli"
	"github.com/aegis-iam/aegis/internal/app"
	"github.com/aegis-iam/aegis/internal/auth"
	"github.com/aegis-iam/aegis/internal/platform/cache"
	"github.com/aegis-iam/aegis/internal/platform/db"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	grantCache := rbac.NewGrantCache(redisClient, cfg.GrantCacheTTL)

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, grantCache, rbac.ServiceConfig{StrictRevoke: cfg.RBACStrictRevoke})

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, grantCache)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(usersService, rbacService, grantCache, authRepo, logger)

	rbacMiddleware := rbac.Middleware{Principals: authService, Logger: logger}

	// Subcommands run against the same wiring, then exit.
	if len(os.Args) > 1 {
		admin := cli.NewAdminCLI(logger, rbacService, usersService)
		if err := admin.Run(ctx, os.Args[1:]); err != nil {
			logger.Error("command failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	seeder := rbac.NewSeeder(rbacService, logger)
	if err := seeder.Seed(ctx, rbac.DefaultCatalog(), rbac.DefaultRoles()); err != nil {
		logger.Error("seed rbac defaults", slog.Any("error", err))
		os.Exit(1)
	}

	authHandler := auth.NewHandler(logger, authService, usersService, sessionManager, csrfManager, rbacMiddleware)
	authHandler.LoginLimiter = httprate.Limit(cfg.LoginRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		RBACHandler:    rbacHandler,
		RBACMiddleware: rbacMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
