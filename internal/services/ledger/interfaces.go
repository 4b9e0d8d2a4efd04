package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service settles payments and transfers against account balances.
type Service interface {
	Settle(ctx context.Context, req SettlementRequest, record RecordFunc) (*Settlement, error)
	// Fund credits a top-up once per reference.
	Fund(ctx context.Context, accountID uint, amount decimal.Decimal, reference, provider string) (*FundingResult, error)
}

// IdentityResolver maps a recipient email to an account id. ok is false when no account
// uses the email; err is reserved for lookup failures.
type IdentityResolver interface {
	Resolve(ctx context.Context, email string) (accountID uint, ok bool, err error)
}
