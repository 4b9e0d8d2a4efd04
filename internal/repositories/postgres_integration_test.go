//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/services/identity"
	"fraudshield/internal/services/ledger"
	"fraudshield/internal/services/risk"
	"fraudshield/internal/services/transaction"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

type pgFixture struct {
	db       *gorm.DB
	accounts repositories.AccountRepository
	recorder transaction.Service
}

func setupPostgres(t *testing.T) *pgFixture {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fraudshield"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repositories.OpenDSN(dsn, repositories.DBConfig{MaxOpenConns: 20}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repositories.Close(db) })
	require.NoError(t, repositories.Migrate(db))

	accounts := repositories.NewAccountRepository(db)
	cfg := ledger.DefaultConfig()
	cfg.MaxAttempts = 10
	ledgerSvc := ledger.NewService(repositories.NewLedgerRepository(db),
		identity.NewService(accounts, nil, 0), cfg, nil)

	return &pgFixture{
		db:       db,
		accounts: accounts,
		recorder: transaction.NewService(ledgerSvc, risk.NewRuleScorer(),
			repositories.NewTransactionRepository(db), nil, nil, nil),
	}
}

func (f *pgFixture) account(t *testing.T, email string, balance int64) *models.Account {
	t.Helper()
	a := &models.Account{
		Email:        email,
		Name:         email,
		Password:     "hash",
		Role:         models.RoleUser,
		Balance:      decimal.NewFromInt(balance),
		TokenVersion: 1,
	}
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func (f *pgFixture) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	a, err := f.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

func transfer(amount int64, to, key string) transaction.Attempt {
	return transaction.Attempt{
		Amount:         decimal.NewFromInt(amount),
		Category:       "transfer",
		TransferKind:   models.TransferKindP2PTransfer,
		RecipientEmail: to,
		IdempotencyKey: key,
	}
}

func TestPostgres_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	f := setupPostgres(t)
	alice := f.account(t, "alice@example.com", 100)
	bob := f.account(t, "bob@example.com", 0)

	const workers = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, declined int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.recorder.Submit(context.Background(), alice.ID, transfer(10, bob.Email, fmt.Sprintf("k-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				declined++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, declined)
	assert.True(t, f.balance(t, alice.ID).IsZero())
	assert.True(t, f.balance(t, bob.ID).Equal(decimal.NewFromInt(100)))
}

func TestPostgres_OpposingTransfersDoNotDeadlock(t *testing.T) {
	f := setupPostgres(t)
	alice := f.account(t, "alice@example.com", 500)
	bob := f.account(t, "bob@example.com", 500)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.recorder.Submit(context.Background(), alice.ID, transfer(5, bob.Email, fmt.Sprintf("a-%d", i)))
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := f.recorder.Submit(context.Background(), bob.ID, transfer(5, alice.Email, fmt.Sprintf("b-%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total := f.balance(t, alice.ID).Add(f.balance(t, bob.ID))
	assert.True(t, total.Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.balance(t, alice.ID).Equal(decimal.NewFromInt(500)))
}

func TestPostgres_IdempotentReplaySettlesOnce(t *testing.T) {
	f := setupPostgres(t)
	alice := f.account(t, "alice@example.com", 100)
	bob := f.account(t, "bob@example.com", 0)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]int{}
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.recorder.Submit(context.Background(), alice.ID, transfer(30, bob.Email, "same-key"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[res.TransactionID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.True(t, f.balance(t, alice.ID).Equal(decimal.NewFromInt(70)))

	var count int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("sender_id = ?", alice.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostgres_NegativeBalanceHitsCheckConstraint(t *testing.T) {
	f := setupPostgres(t)
	alice := f.account(t, "alice@example.com", 10)

	repo := repositories.NewLedgerRepository(f.db)
	err := repo.UpdateBalance(context.Background(), alice.ID, decimal.NewFromInt(-1))

	assert.ErrorIs(t, err, repositories.ErrConstraint)
	assert.True(t, f.balance(t, alice.ID).Equal(decimal.NewFromInt(10)))
}
