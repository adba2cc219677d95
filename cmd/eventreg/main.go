package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/eventreg/eventreg/cmd/eventreg/cli"
	"github.com/eventreg/eventreg/internal/access"
	"github.com/eventreg/eventreg/internal/app"
	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/navigation"
	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/internal/observability"
	"github.com/eventreg/eventreg/internal/platform/cache"
	"github.com/eventreg/eventreg/internal/platform/db"
	"github.com/eventreg/eventreg/internal/rbac"
	"github.com/eventreg/eventreg/internal/roleswitch"
	"github.com/eventreg/eventreg/internal/shared"
	"github.com/eventreg/eventreg/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cache.QueueOpt(cfg.RedisAddr))
		defer func() { _ = jobsCLI.Close() }()
		if err := cli.Run(ctx, jobsCLI, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	queueOpt := cache.QueueOpt(cfg.RedisAddr)
	jobClient := jobs.NewClient(queueOpt)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "eventreg_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	inbox := notify.NewInbox(redisClient, cfg.NoticeTTL)
	notices := notify.Fanout{inbox, notify.TaskSink{Enqueuer: jobClient}}

	principals := auth.NewRedisStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), principals, notices, logger)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	guard := navigation.NewGuard(logger, metrics)
	gate := rbac.NewGate(logger, metrics)
	rbacMiddleware := rbac.Middleware{Gate: gate, Logger: logger}

	switchBackend := roleswitch.NewPGBackend(dbpool)
	switchService := roleswitch.NewService(switchBackend, principals, gate, notices, logger)
	switchHandler := roleswitch.NewHandler(logger, switchService, switchBackend, rbacMiddleware)

	accessHandler := access.NewHandler(logger, authService, guard, gate, inbox, csrfManager)

	inspector := asynq.NewInspector(queueOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthMiddleware:    authMiddleware,
		AuthHandler:       authHandler,
		AccessHandler:     accessHandler,
		RoleSwitchHandler: switchHandler,
		Guard:             guard,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
