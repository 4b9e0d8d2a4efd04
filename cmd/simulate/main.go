// Command simulate drives a running API with a mix of ordinary and suspicious activity,
// reports whatever gets flagged and prints the resulting dashboard numbers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"fraudshield/internal/client"
	"fraudshield/internal/config"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/seed"

	"github.com/shopspring/decimal"
)

func scenario(recipient string) []client.SubmitRequest {
	return []client.SubmitRequest{
		{Amount: decimal.NewFromInt(42), Merchant: "Corner Grocer", Category: "groceries", Location: "London, UK", TransferKind: models.TransferKindPayment},
		{Amount: decimal.NewFromInt(120), Merchant: "Rail Co", Category: "travel", Location: "Manchester, UK", TransferKind: models.TransferKindPayment},
		{Amount: decimal.NewFromInt(850), Merchant: "Gadget Hub", Category: "electronics", Location: "Berlin, DE", TransferKind: models.TransferKindPayment},
		{Amount: decimal.NewFromInt(3200), Merchant: "Coin Swap", Category: "crypto", Location: "Unknown", DeviceID: "web-client", TransferKind: models.TransferKindPayment},
		{Amount: decimal.NewFromInt(6000), Merchant: "Lucky Spins", Category: "gambling", Location: "Lagos, NG", TransferKind: models.TransferKindPayment},
		{Amount: decimal.NewFromInt(75), Category: "transfer", TransferKind: models.TransferKindP2PTransfer, RecipientEmail: recipient},
	}
}

func main() {
	config.LoadEnv()

	log := logger.New(config.GetEnv("LOG_LEVEL", "info"), true)
	logger.Setup(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	api := client.New(client.Config{
		BaseURL:     config.GetEnv("SIMULATE_BASE_URL", "http://localhost:3000"),
		MaxAttempts: config.GetIntEnv("SIMULATE_MAX_ATTEMPTS", client.DefaultMaxAttempts),
	})

	demo := seed.DemoAccounts()
	email := config.GetEnv("SIMULATE_EMAIL", demo[0].Email)
	if err := api.Login(ctx, email, config.GetEnv("SEED_PASSWORD", seed.DefaultPassword)); err != nil {
		log.Fatal().Err(err).Str("email", email).Msg("login failed")
	}

	var flagged []string
	for i, req := range scenario(config.GetEnv("SIMULATE_RECIPIENT", demo[1].Email)) {
		res, err := api.Submit(ctx, req)
		if err != nil {
			log.Error().Err(err).Int("step", i).Str("category", req.Category).Msg("submission failed")
			continue
		}
		log.Info().
			Str("transaction_id", res.TransactionID).
			Str("category", req.Category).
			Str("amount", req.Amount.StringFixed(2)).
			Float64("risk_score", res.RiskScore).
			Str("risk_level", res.RiskLevel).
			Bool("flagged", res.Flagged).
			Int("attempts", res.Attempts).
			Msg("submitted")
		if res.Flagged {
			flagged = append(flagged, res.TransactionID)
		}
	}

	for i, id := range flagged {
		fraudCase, err := api.Report(ctx, id, "flagged by simulator")
		if err != nil {
			log.Error().Err(err).Str("transaction_id", id).Msg("report failed")
			continue
		}
		log.Info().Str("case_id", fraudCase.ID).Str("transaction_id", id).Msg("case opened")

		if i == 0 {
			txn, err := api.Dispute(ctx, id, "I did not authorise this payment")
			if err != nil {
				log.Error().Err(err).Str("transaction_id", id).Msg("dispute failed")
				continue
			}
			log.Info().Str("transaction_id", txn.ID).Str("status", txn.Status).Msg("transaction disputed")
		}
	}

	stats, err := api.Stats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dashboard")
	}
	fmt.Printf("balance=%s total=%d fraudulent=%d success_rate=%.1f%% open_cases=%d\n",
		stats.Balance.StringFixed(2), stats.Total, stats.Fraudulent, stats.SuccessRate, stats.OpenCases)
}
