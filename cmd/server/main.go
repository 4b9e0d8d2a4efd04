// Package main is the entry point for the FraudShield API.
// It loads configuration, opens storage, wires the services and serves HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudshield/internal/bootstrap"
	"fraudshield/internal/config"
	"fraudshield/internal/logger"
	"fraudshield/internal/metrics"
	"fraudshield/internal/routes"
	"fraudshield/internal/seed"
	"fraudshield/internal/services/auth"
	"fraudshield/internal/services/cases"
	"fraudshield/internal/services/dashboard"
	"fraudshield/internal/services/events"
	"fraudshield/internal/services/funding"
	"fraudshield/internal/services/identity"
	"fraudshield/internal/services/ledger"
	"fraudshield/internal/services/notification"
	"fraudshield/internal/services/risk"
	"fraudshield/internal/services/transaction"
	"fraudshield/internal/utils"
)

func main() {
	config.LoadEnv()

	log := logger.New(config.GetEnv("LOG_LEVEL", "info"), !config.IsProduction())
	logger.Setup(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	tokens := utils.LoadTokenConfig()
	if len(tokens.AccessSecret) == 0 {
		log.Fatal().Err(utils.ErrSecretNotConfigured).Msg("JWT_SECRET must be set")
	}

	storage, err := bootstrap.Open(ctx, log, bootstrap.UseMemoryStore())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer storage.Close(log)

	collector := metrics.New()
	publisher := events.NewPublisher(storage.Cache, config.GetEnv("EVENTS_CHANNEL", events.DefaultChannel))

	authSvc := auth.NewService(storage.Accounts, tokens, config.GetIntEnv("BCRYPT_COST", 0))
	ledgerSvc := ledger.NewService(
		storage.Ledger,
		identity.NewService(storage.Accounts, storage.Cache, identity.DefaultTTL),
		ledger.LoadConfig(),
		collector,
	)
	transactions := transaction.NewService(ledgerSvc, risk.NewRuleScorer(), storage.Transactions,
		storage.Cache, publisher, collector)
	notifier := notification.NewService(
		storage.Cache,
		config.GetEnv("NOTIFICATIONS_CHANNEL", notification.DefaultChannel),
		config.GetEnv("DISPUTE_NOTIFY_EMAIL", "disputes@fraudshield.test"),
	)

	fundingCfg := funding.LoadConfig()
	charger, err := funding.NewCharger(fundingCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid stripe configuration")
	}
	if charger == nil {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, top-ups are disabled")
	}

	if storage.InMemory && config.GetBoolEnv("SEED_DEMO", true) {
		if _, err := seed.Run(ctx, authSvc, storage.Accounts,
			config.GetEnv("SEED_PASSWORD", seed.DefaultPassword), seed.DemoAccounts()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo accounts")
		}
	}

	app := routes.NewApp(routes.Dependencies{
		Logger:         log,
		Metrics:        collector,
		Auth:           authSvc,
		Transactions:   transactions,
		Cases:          cases.NewService(storage.Cases, storage.Accounts, notifier, publisher, collector),
		Dashboard:      dashboard.NewService(storage.Accounts, storage.Transactions, storage.Cases),
		Funding:        funding.NewService(ledgerSvc, charger, fundingCfg.Currency, publisher),
		HealthChecks:   storage.Checks,
		CORSOrigins:    config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		LoginRateLimit: config.GetIntEnv("LOGIN_RATE_LIMIT", 5),
		AccessLog:      config.GetBoolEnv("ACCESS_LOG", !config.IsProduction()),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + config.GetEnv("PORT", "3000")
		log.Info().Str("addr", addr).Msg("server listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
