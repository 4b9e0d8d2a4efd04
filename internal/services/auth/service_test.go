package auth

import (
	"context"
	"testing"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Str0ngPass!"

func newTestService(t *testing.T) (Service, *models.Account) {
	t.Helper()
	store := repositories.NewMemoryStore()
	svc := NewService(store.Accounts(), utils.TokenConfig{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, bcrypt.MinCost)

	account, err := svc.Register(context.Background(), NewAccount{
		Email:    " Alice@Example.com ",
		Name:     "Alice",
		Password: testPassword,
		Balance:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	return svc, account
}

func TestRegister(t *testing.T) {
	svc, account := newTestService(t)

	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.NotEqual(t, testPassword, account.Password)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)))

	_, err := svc.Register(context.Background(), NewAccount{
		Email: "alice@example.com", Name: "Again", Password: testPassword,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Register(context.Background(), NewAccount{
		Email: "bob@example.com", Name: "Bob", Password: "short",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLogin(t *testing.T) {
	svc, account := newTestService(t)
	ctx := context.Background()

	got, pair, err := svc.Login(ctx, "ALICE@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.True(t, claims.HasPermission(models.PermissionTransactionWrite))

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	svc, account := newTestService(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, account.Email, testPassword)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, account.ID))

	_, err = svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	assert.ErrorIs(t, svc.Logout(ctx, 999), apperrors.ErrAccountNotFound)
}
