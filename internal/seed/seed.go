// Package seed creates the demo accounts used for local runs and the simulator.
package seed

import (
	"context"
	"errors"
	"fmt"

	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/services/auth"

	"github.com/shopspring/decimal"
)

// DefaultPassword is used for every demo account unless SEED_PASSWORD overrides it.
const DefaultPassword = "FraudShield1"

// Account describes one demo account.
type Account struct {
	Email   string
	Name    string
	Role    string
	Balance decimal.Decimal
}

// DemoAccounts are three customers with starting balances and one reviewer.
func DemoAccounts() []Account {
	return []Account{
		{Email: "alice@fraudshield.test", Name: "Alice Carter", Role: models.RoleUser, Balance: decimal.NewFromInt(10000)},
		{Email: "bob@fraudshield.test", Name: "Bob Singh", Role: models.RoleUser, Balance: decimal.NewFromInt(2500)},
		{Email: "carol@fraudshield.test", Name: "Carol Okafor", Role: models.RoleUser, Balance: decimal.NewFromInt(500)},
		{Email: "reviewer@fraudshield.test", Name: "Rita Reviewer", Role: models.RoleReviewer, Balance: decimal.Zero},
	}
}

// Run registers every account that does not exist yet and returns how many were created.
func Run(ctx context.Context, authSvc auth.Service, accounts repositories.AccountRepository, password string, list []Account) (int, error) {
	log := logger.FromContext(ctx)
	created := 0
	for _, a := range list {
		_, err := accounts.GetByEmail(ctx, a.Email)
		if err == nil {
			log.Info().Str("email", a.Email).Msg("account already exists")
			continue
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return created, err
		}

		account, err := authSvc.Register(ctx, auth.NewAccount{
			Email:    a.Email,
			Name:     a.Name,
			Password: password,
			Role:     a.Role,
			Balance:  a.Balance,
		})
		if err != nil {
			return created, fmt.Errorf("register %s: %w", a.Email, err)
		}
		created++
		log.Info().
			Uint("account_id", account.ID).
			Str("email", account.Email).
			Str("role", account.Role).
			Str("balance", account.Balance.StringFixed(2)).
			Msg("account created")
	}
	return created, nil
}
