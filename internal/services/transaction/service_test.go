package transaction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/repositories/cache"
	"fraudshield/internal/services/events"
	"fraudshield/internal/services/identity"
	"fraudshield/internal/services/ledger"
	"fraudshield/internal/services/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store *repositories.MemoryStore
	cache *cache.MemoryCache
	svc   Service
	alice *models.Account
	bob   *models.Account
	carol *models.Account
}

func newEnv(t *testing.T, withCache bool) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	env := &testEnv{store: store, cache: cache.NewMemoryCache(time.Hour)}

	for _, a := range []struct {
		dst     **models.Account
		email   string
		balance string
	}{
		{&env.alice, "alice@example.com", "10000.00"},
		{&env.bob, "bob@example.com", "0"},
		{&env.carol, "carol@example.com", "0"},
	} {
		account := &models.Account{Email: a.email, Name: a.email, Balance: decimal.RequireFromString(a.balance)}
		require.NoError(t, store.Accounts().Create(ctx, account))
		*a.dst = account
	}

	var c cache.Cache
	if withCache {
		c = env.cache
	}
	resolver := identity.NewService(store.Accounts(), c, time.Minute)
	ledgerSvc := ledger.NewService(store.Ledger(), resolver, ledger.Config{MaxAttempts: 3, RetryBaseDelay: time.Millisecond}, nil)
	env.svc = NewService(ledgerSvc, risk.NewRuleScorer(), store.Transactions(), c, events.NewPublisher(env.cache, ""), nil)
	return env
}

func (e *testEnv) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	account, err := e.store.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func TestSubmit_HighRiskPaymentSettlesFlagged(t *testing.T) {
	env := newEnv(t, true)
	ctx := context.Background()

	result, err := env.svc.Submit(ctx, env.alice.ID, Attempt{
		Amount:       decimal.RequireFromString("6000"),
		Merchant:     "Lucky Spins",
		Category:     "Gambling",
		Location:     "Paris",
		TransferKind: models.TransferKindPayment,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.RiskScore)
	assert.Equal(t, string(risk.LevelHigh), result.RiskLevel)
	assert.True(t, result.Flagged)
	assert.Equal(t, models.TransactionStatusApproved, result.Status)
	assert.False(t, result.Replayed)
	assert.True(t, env.balance(t, env.alice.ID).Equal(decimal.RequireFromString("4000")))

	txn, err := env.svc.Get(ctx, env.alice.ID, result.TransactionID)
	require.NoError(t, err)
	assert.True(t, txn.IsFraudulent)
	assert.Equal(t, "Lucky Spins", txn.Merchant)
	assert.NotEmpty(t, txn.IdempotencyKey)
	assert.Len(t, txn.RiskFactors["amplifiers"], 3)

	var published []events.Event
	for _, msg := range env.cache.Messages() {
		var e events.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &e))
		published = append(published, e)
	}
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeTransactionRecorded, published[0].Type)
	assert.Equal(t, result.TransactionID, published[0].SubjectID)
	assert.Equal(t, true, published[0].Data["flagged"])
}

func TestSubmit_LowRiskTransferCreditsRecipient(t *testing.T) {
	env := newEnv(t, true)
	ctx := context.Background()

	result, err := env.svc.Submit(ctx, env.alice.ID, Attempt{
		Amount:         decimal.RequireFromString("50"),
		Category:       "food",
		Location:       "Manchester",
		DeviceID:       "device-7f3a",
		NetworkOrigin:  "10.0.0.8",
		TransferKind:   models.TransferKindP2PTransfer,
		RecipientEmail: "bob@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, string(risk.LevelLow), result.RiskLevel)
	assert.False(t, result.Flagged)
	assert.InDelta(t, 0.165, result.RiskScore, 1e-9)
	assert.True(t, env.balance(t, env.alice.ID).Equal(decimal.RequireFromString("9950")))
	assert.True(t, env.balance(t, env.bob.ID).Equal(decimal.RequireFromString("50")))

	txn, err := env.svc.Get(ctx, env.bob.ID, result.TransactionID)
	require.NoError(t, err, "recipient can read the transfer")
	assert.Equal(t, models.P2PMerchantLabel, txn.Merchant)
	require.NotNil(t, txn.RecipientID)
	assert.Equal(t, env.bob.ID, *txn.RecipientID)

	_, err = env.svc.Get(ctx, env.carol.ID, result.TransactionID)
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}

func TestSubmit_ValidationFailures(t *testing.T) {
	valid := func() Attempt {
		return Attempt{
			Amount:       decimal.RequireFromString("10"),
			Merchant:     "Shop",
			Category:     "retail",
			TransferKind: models.TransferKindPayment,
		}
	}

	tests := []struct {
		name   string
		mutate func(a *Attempt)
		field  string
	}{
		{"zero amount", func(a *Attempt) { a.Amount = decimal.Zero }, "amount"},
		{"three decimals", func(a *Attempt) { a.Amount = decimal.RequireFromString("1.005") }, "amount"},
		{"missing category", func(a *Attempt) { a.Category = " " }, "category"},
		{"unknown kind", func(a *Attempt) { a.TransferKind = "refund" }, "transfer_kind"},
		{"payment without merchant", func(a *Attempt) { a.Merchant = "" }, "merchant"},
		{"transfer without recipient", func(a *Attempt) {
			a.TransferKind = models.TransferKindP2PTransfer
		}, "recipient_email"},
		{"transfer with bad email", func(a *Attempt) {
			a.TransferKind = models.TransferKindP2PTransfer
			a.RecipientEmail = "bob"
		}, "recipient_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, false)
			attempt := valid()
			tt.mutate(&attempt)

			_, err := env.svc.Submit(context.Background(), env.alice.ID, attempt)

			require.ErrorIs(t, err, apperrors.ErrValidation)
			de, _ := apperrors.As(err)
			assert.Contains(t, de.Fields, tt.field)
			assert.True(t, env.balance(t, env.alice.ID).Equal(decimal.RequireFromString("10000")))

			failed, err := env.svc.ListFailedAttempts(context.Background(), env.alice.ID)
			require.NoError(t, err)
			assert.Empty(t, failed)
		})
	}
}

func TestSubmit_RejectedSettlementIsAudited(t *testing.T) {
	env := newEnv(t, true)
	ctx := context.Background()

	_, err := env.svc.Submit(ctx, env.bob.ID, Attempt{
		Amount:         decimal.RequireFromString("25"),
		Category:       "retail",
		TransferKind:   models.TransferKindP2PTransfer,
		RecipientEmail: "alice@example.com",
		IdempotencyKey: "broke",
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	_, err = env.svc.Submit(ctx, env.alice.ID, Attempt{
		Amount:         decimal.RequireFromString("25"),
		Category:       "retail",
		TransferKind:   models.TransferKindP2PTransfer,
		RecipientEmail: "alice@example.com",
	})
	require.ErrorIs(t, err, apperrors.ErrSelfTransfer)

	failed, err := env.svc.ListFailedAttempts(ctx, env.bob.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "INSUFFICIENT_FUNDS", failed[0].ErrorCode)
	assert.Equal(t, "broke", failed[0].IdempotencyKey)
	assert.Equal(t, models.TransactionStatusFailed, failed[0].Status)
	assert.Greater(t, failed[0].RiskScore, 0.0)

	failed, err = env.svc.ListFailedAttempts(ctx, env.alice.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "SELF_TRANSFER_REJECTED", failed[0].ErrorCode)

	_, total, err := env.svc.List(ctx, env.bob.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "failed attempts are never settled transactions")
}

func TestSubmit_IdempotentRetry(t *testing.T) {
	for _, withCache := range []bool{true, false} {
		name := "store"
		if withCache {
			name = "cache"
		}
		t.Run(name, func(t *testing.T) {
			env := newEnv(t, withCache)
			ctx := context.Background()
			attempt := Attempt{
				Amount:         decimal.RequireFromString("100"),
				Merchant:       "Shop",
				Category:       "retail",
				Location:       "London",
				TransferKind:   models.TransferKindPayment,
				IdempotencyKey: "client-key-1",
			}

			first, err := env.svc.Submit(ctx, env.alice.ID, attempt)
			require.NoError(t, err)
			second, err := env.svc.Submit(ctx, env.alice.ID, attempt)
			require.NoError(t, err)

			assert.False(t, first.Replayed)
			assert.True(t, second.Replayed)
			assert.Equal(t, first.TransactionID, second.TransactionID)
			assert.Equal(t, first.RiskScore, second.RiskScore)
			assert.True(t, env.balance(t, env.alice.ID).Equal(decimal.RequireFromString("9900")))

			_, total, err := env.svc.List(ctx, env.alice.ID, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
		})
	}
}

func TestSubmit_CachedReplayReflectsCurrentStatus(t *testing.T) {
	env := newEnv(t, true)
	ctx := context.Background()
	attempt := Attempt{
		Amount:         decimal.RequireFromString("100"),
		Merchant:       "Shop",
		Category:       "retail",
		Location:       "London",
		TransferKind:   models.TransferKindPayment,
		IdempotencyKey: "client-key-2",
	}

	first, err := env.svc.Submit(ctx, env.alice.ID, attempt)
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusApproved, first.Status)

	reason := "card stolen"
	require.NoError(t, env.store.Cases().UpdateTransactionStatus(ctx, first.TransactionID, models.TransactionStatusDisputed, &reason))

	second, err := env.svc.Submit(ctx, env.alice.ID, attempt)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, models.TransactionStatusDisputed, second.Status)
	assert.True(t, env.balance(t, env.alice.ID).Equal(decimal.RequireFromString("9900")))
}

func TestGet_UnknownAndMalformedIDs(t *testing.T) {
	env := newEnv(t, false)
	ctx := context.Background()

	_, err := env.svc.Get(ctx, env.alice.ID, "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	_, err = env.svc.Get(ctx, env.alice.ID, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
}

func TestList_ClampsPaging(t *testing.T) {
	env := newEnv(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.Submit(ctx, env.alice.ID, Attempt{
			Amount:       decimal.RequireFromString("1"),
			Merchant:     "Shop",
			Category:     "retail",
			TransferKind: models.TransferKindPayment,
		})
		require.NoError(t, err)
	}

	txns, total, err := env.svc.List(ctx, env.alice.ID, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txns, 3)

	txns, _, err = env.svc.List(ctx, env.alice.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
