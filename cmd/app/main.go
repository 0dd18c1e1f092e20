package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/infra/api"
	pg "classifieds-marketplace/internal/infra/db/postgres"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"
	"classifieds-marketplace/internal/infra/payment"
	red "classifieds-marketplace/internal/infra/redis"
	"classifieds-marketplace/internal/infra/sched"
	"classifieds-marketplace/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs, relaxed defaults)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	txnRepo := pg.NewTransactionRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	pkgRepo := pg.NewPackageRepoCacheDecorator(pg.NewPackageRepo(pool), redisClient, cfg.Redis.TTL)
	addonRepo := pg.NewAddonRepo(pool)
	listingRepo := pg.NewListingRepo(pool)
	notifRepo := pg.NewNotificationRepo(pool)
	teamRepo := pg.NewTeamRepoCacheDecorator(pg.NewTeamRepo(pool), redisClient, cfg.Redis.TTL)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	gateway, err := payment.NewDarajaGateway(&cfg.Mpesa)
	if err != nil {
		logger.Fatal().Err(err).Msg("mpesa gateway init failed")
	}

	// ---- Use cases ----
	renewalUC := usecase.NewRenewalUseCase(subRepo, pkgRepo, listingRepo, notifRepo, txManager, logger)
	callbackUC := usecase.NewCallbackUseCase(txnRepo, addonRepo, renewalUC, txManager, logger)
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, pkgRepo, teamRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(txnRepo, subRepo, pkgRepo, addonRepo, gateway, logger)
	notifUC := usecase.NewNotificationUseCase(notifRepo, logger)

	// ---- HTTP server ----
	auth := api.NewAuthManager(cfg.HTTP.AdminSecret, 0)
	srv := api.NewServer(callbackUC, renewalUC, entitlementUC, paymentUC, notifUC, auth, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Stale payment sweep ----
	reconciler := sched.NewPaymentReconciler(txnRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
