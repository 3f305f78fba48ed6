package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/app"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/auth"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/observability"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/platform/cache"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/platform/db"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/providers"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/roles"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/screen"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/users"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
	"github.com/EnmanuelOvalles37/consumo-admin/report"
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

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var auditor shared.Auditor = shared.LogAuditor{Logger: logger}
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConn)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.EnsureAuditSchema(ctx, pool); err != nil {
			logger.Error("prepare audit schema", slog.Any("error", err))
			os.Exit(1)
		}
		auditor = shared.NewAuditLogger(pool)
	}

	sessionManager := shared.NewSessionManager(redisClient, "consumo_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(view.WithNoticeTTL(cfg.NoticeTTL))
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	responder := view.Responder{Logger: logger, Templates: templates, CSRF: csrfManager}

	metrics := observability.NewMetrics()
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithObserver(metrics))
	rbacMiddleware := rbac.Middleware{Logger: logger, Denied: responder.Denied, Observer: metrics}

	authService := auth.NewService(client, auditor, logger)
	authHandler := auth.NewHandler(logger, authService, responder, sessionManager).
		LimitLogin(app.LoginRateLimit(cfg))

	rolesService := roles.NewService(client, auditor, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, responder, rbacMiddleware, cfg.NoticeTTL)

	usersService := users.NewService(client, auditor, logger)
	usersHandler := users.NewHandler(logger, usersService, responder, rbacMiddleware)

	snapshots := providers.NewSnapshotStore(redisClient, cfg.SnapshotTTL)
	tracker := screen.NewTracker(redisClient, cfg.TrackerTTL)
	providersService := providers.NewService(client, snapshots, logger)
	providersHandler := providers.NewHandler(logger, providersService, tracker, responder, rbacMiddleware)

	var pdfClient *report.Client
	if cfg.GotenbergURL != "" {
		pdfClient = report.NewClient(cfg.GotenbergURL, 0)
	}
	reportHandler := report.NewHandler(pdfClient, client, responder, rbacMiddleware, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Responder:        responder,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Redis:            redisClient,
		RBACMiddleware:   rbacMiddleware,
		AuthHandler:      authHandler,
		RolesHandler:     rolesHandler,
		UsersHandler:     usersHandler,
		ProvidersHandler: providersHandler,
		ReportHandler:    reportHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
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
