package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"website-billing/internal/config"
	"website-billing/internal/domain/ports/adapter"
	pg "website-billing/internal/infra/db/postgres"
	"website-billing/internal/infra/email"
	"website-billing/internal/infra/logging"
	"website-billing/internal/infra/metrics"
	red "website-billing/internal/infra/redis"
	"website-billing/internal/infra/sched"
	"website-billing/internal/infra/web"
	"website-billing/internal/infra/worker"
	"website-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	websiteRepo := pg.NewWebsiteRepo(pool)
	requestRepo := pg.NewRequestRepo(pool)
	paymentRepo := pg.NewPaymentLogRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Notifications ----
	var gateway adapter.NotificationGateway
	if cfg.Email.BaseURL != "" {
		gateway = email.NewHTTPGateway(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From)
	} else {
		logger.Warn().Msg("email.base_url not set, notifications are no-ops")
		gateway = email.NewNoopGateway()
	}
	notifyPool := worker.NewPool(cfg.Scheduler.NotifyWorkers)
	notifyPool.Start(ctx)
	defer notifyPool.Stop()
	notifier := worker.NewAsyncNotifier(gateway, notifyPool, cfg.Billing.NotifyTimeout, logger)

	// ---- Use cases ----
	requestUC := usecase.NewRequestUseCase(requestRepo, logger)
	websiteUC := usecase.NewWebsiteUseCase(websiteRepo, requestRepo, logger)
	billingUC := usecase.NewBillingUseCase(websiteRepo, paymentRepo, notifier, tm, logger)
	reconciler := usecase.NewBillingReconciler(websiteRepo, notifier, cfg.Billing.Concurrency, cfg.Billing.NotifyTimeout, logger)

	// ---- Reconcile worker ----
	reconcileWorker := sched.NewReconcileWorker(cfg.Scheduler.ReconcileInterval, reconciler, websiteRepo, locker, logger)
	go func() { _ = reconcileWorker.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.APIKey, !cfg.Runtime.Dev, "", 30*time.Minute)
	srv := web.NewServer(requestUC, websiteUC, billingUC, reconciler, auth, rateLimiter, cfg.Intake, logger)
	server := srv.HTTPServer(fmt.Sprintf(":%d", cfg.Admin.Port))
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
