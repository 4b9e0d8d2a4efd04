// Command seed creates the demo accounts and, when ADMIN_EMAIL and ADMIN_PASSWORD are set, an admin.
package main

import (
	"context"

	"fraudshield/internal/bootstrap"
	"fraudshield/internal/config"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/seed"
	"fraudshield/internal/services/auth"
	"fraudshield/internal/utils"

	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()

	log := logger.New(config.GetEnv("LOG_LEVEL", "info"), true)
	logger.Setup(log)
	ctx := logger.WithContext(context.Background(), log)

	if bootstrap.UseMemoryStore() {
		log.Fatal().Msg("seeding the in-memory store has no effect; the server seeds it on start")
	}

	storage, err := bootstrap.Open(ctx, log, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer storage.Close(log)

	authSvc := auth.NewService(storage.Accounts, utils.LoadTokenConfig(), config.GetIntEnv("BCRYPT_COST", 0))

	created, err := seed.Run(ctx, authSvc, storage.Accounts,
		config.GetEnv("SEED_PASSWORD", seed.DefaultPassword), seed.DemoAccounts())
	if err != nil {
		log.Error().Err(err).Int("created", created).Msg("seeding demo accounts failed")
		return
	}

	adminEmail := config.GetEnv("ADMIN_EMAIL", "")
	adminPassword := config.GetEnv("ADMIN_PASSWORD", "")
	if adminEmail != "" && adminPassword != "" {
		admins, err := seed.Run(ctx, authSvc, storage.Accounts, adminPassword, []seed.Account{{
			Email:   adminEmail,
			Name:    "Administrator",
			Role:    models.RoleAdmin,
			Balance: decimal.Zero,
		}})
		if err != nil {
			log.Error().Err(err).Msg("creating admin failed")
			return
		}
		created += admins
	}

	log.Info().Int("created", created).Msg("seed complete")
}
