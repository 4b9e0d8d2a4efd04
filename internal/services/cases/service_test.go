package cases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/repositories/cache"
	"fraudshield/internal/services/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyDispute(ctx context.Context, account *models.Account, txn *models.Transaction, reason string) error {
	return m.Called(ctx, account, txn, reason).Error(0)
}

type caseEnv struct {
	store    *repositories.MemoryStore
	cache    *cache.MemoryCache
	notifier *MockNotifier
	svc      Service
	alice    *models.Account
	bob      *models.Account
	txn      *models.Transaction
}

func newCaseEnv(t *testing.T) *caseEnv {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	env := &caseEnv{
		store:    store,
		cache:    cache.NewMemoryCache(time.Minute),
		notifier: new(MockNotifier),
	}

	env.alice = &models.Account{Email: "alice@example.com", Name: "Alice"}
	env.bob = &models.Account{Email: "bob@example.com", Name: "Bob"}
	require.NoError(t, store.Accounts().Create(ctx, env.alice))
	require.NoError(t, store.Accounts().Create(ctx, env.bob))

	env.txn = &models.Transaction{
		ID:             uuid.NewString(),
		SenderID:       env.alice.ID,
		Amount:         decimal.RequireFromString("120.00"),
		Merchant:       "Gadget Hut",
		Category:       "electronics",
		TransferKind:   models.TransferKindPayment,
		Status:         models.TransactionStatusApproved,
		IdempotencyKey: "k",
	}
	require.NoError(t, store.Ledger().CreateTransaction(ctx, env.txn))

	env.svc = NewService(store.Cases(), store.Accounts(), env.notifier, events.NewPublisher(env.cache, ""), nil)
	return env
}

func (e *caseEnv) transaction(t *testing.T) *models.Transaction {
	t.Helper()
	txn, err := e.store.Transactions().GetByID(context.Background(), e.txn.ID)
	require.NoError(t, err)
	return txn
}

func (e *caseEnv) eventTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, msg := range e.cache.Messages() {
		var ev events.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		types = append(types, ev.Type)
	}
	return types
}

func TestReport_OpensCaseAndFlagsTransaction(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()

	fraudCase, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "  I did not make this purchase ")
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusOpen, fraudCase.Status)
	assert.Equal(t, env.txn.ID, fraudCase.TransactionID)
	assert.Equal(t, "I did not make this purchase", fraudCase.Notes)
	assert.Equal(t, models.TransactionStatusFlagged, env.transaction(t).Status)
	assert.Equal(t, []string{events.TypeCaseOpened}, env.eventTypes(t))

	second, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "")
	require.NoError(t, err, "a transaction may carry several cases")
	assert.NotEqual(t, fraudCase.ID, second.ID)

	cases, err := env.svc.ListForTransaction(ctx, Viewer{AccountID: env.alice.ID}, env.txn.ID)
	require.NoError(t, err)
	assert.Len(t, cases, 2)
}

func TestReport_RequiresInvolvement(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()

	_, err := env.svc.Report(ctx, env.bob.ID, env.txn.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	_, err = env.svc.Report(ctx, env.alice.ID, uuid.NewString(), "")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	_, err = env.svc.Report(ctx, env.alice.ID, "garbage", "")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	assert.Equal(t, models.TransactionStatusApproved, env.transaction(t).Status)
}

func TestDispute_SetsStatusAndNotifies(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()

	fraudCase, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "")
	require.NoError(t, err)

	env.notifier.On("NotifyDispute", mock.Anything,
		mock.MatchedBy(func(a *models.Account) bool { return a.ID == env.alice.ID }),
		mock.MatchedBy(func(t *models.Transaction) bool { return t.ID == env.txn.ID }),
		"goods never arrived").Return(nil).Once()

	txn, err := env.svc.Dispute(ctx, env.alice.ID, env.txn.ID, " goods never arrived ")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusDisputed, txn.Status)

	stored := env.transaction(t)
	assert.Equal(t, models.TransactionStatusDisputed, stored.Status)
	require.NotNil(t, stored.DisputeReason)
	assert.Equal(t, "goods never arrived", *stored.DisputeReason)

	unchanged, err := env.svc.Get(ctx, Viewer{AccountID: env.alice.ID}, fraudCase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusOpen, unchanged.Status, "disputes leave cases alone")

	env.notifier.AssertExpectations(t)
	assert.Contains(t, env.eventTypes(t), events.TypeTransactionDisputed)
}

func TestDispute_NotificationFailureIsBestEffort(t *testing.T) {
	env := newCaseEnv(t)
	env.notifier.On("NotifyDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp timeout")).Once()

	_, err := env.svc.Dispute(context.Background(), env.alice.ID, env.txn.ID, "unauthorised")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusDisputed, env.transaction(t).Status)
	env.notifier.AssertExpectations(t)
}

func TestDispute_Validation(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()

	_, err := env.svc.Dispute(ctx, env.alice.ID, env.txn.ID, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.svc.Dispute(ctx, env.bob.ID, env.txn.ID, "not mine")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	assert.Equal(t, models.TransactionStatusApproved, env.transaction(t).Status)
	env.notifier.AssertNotCalled(t, "NotifyDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_Workflow(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()
	fraudCase, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "suspicious")
	require.NoError(t, err)

	steps := []string{
		models.CaseStatusInvestigating,
		models.CaseStatusDisputed,
		models.CaseStatusInvestigating,
		models.CaseStatusResolved,
	}
	for _, to := range steps {
		fraudCase, err = env.svc.Transition(ctx, env.bob.ID, fraudCase.ID, to, "moved to "+to)
		require.NoError(t, err, to)
		assert.Equal(t, to, fraudCase.Status)
	}
	assert.Equal(t, "moved to resolved", fraudCase.Resolution)
	assert.Contains(t, fraudCase.Notes, "suspicious")
	assert.Contains(t, fraudCase.Notes, "investigating] moved to investigating")

	_, err = env.svc.Transition(ctx, env.bob.ID, fraudCase.ID, models.CaseStatusInvestigating, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "resolved is terminal")
}

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{models.CaseStatusOpen, models.CaseStatusInvestigating, true},
		{models.CaseStatusOpen, models.CaseStatusClosed, true},
		{models.CaseStatusOpen, models.CaseStatusResolved, false},
		{models.CaseStatusOpen, models.CaseStatusDisputed, false},
		{models.CaseStatusInvestigating, models.CaseStatusResolved, true},
		{models.CaseStatusInvestigating, models.CaseStatusDisputed, true},
		{models.CaseStatusInvestigating, models.CaseStatusOpen, false},
		{models.CaseStatusDisputed, models.CaseStatusInvestigating, true},
		{models.CaseStatusDisputed, models.CaseStatusResolved, false},
		{models.CaseStatusResolved, models.CaseStatusInvestigating, false},
		{models.CaseStatusResolved, models.CaseStatusClosed, false},
		{models.CaseStatusClosed, models.CaseStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}

	assert.True(t, IsTerminal(models.CaseStatusResolved))
	assert.True(t, IsTerminal(models.CaseStatusClosed))
	assert.False(t, IsTerminal(models.CaseStatusDisputed))
}

func TestTransition_Errors(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()
	fraudCase, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "")
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, env.bob.ID, fraudCase.ID, models.CaseStatusResolved, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.svc.Transition(ctx, env.bob.ID, fraudCase.ID, "escalated", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.svc.Transition(ctx, env.bob.ID, uuid.NewString(), models.CaseStatusInvestigating, "")
	assert.ErrorIs(t, err, apperrors.ErrCaseNotFound)

	closed, err := env.svc.Transition(ctx, env.bob.ID, fraudCase.ID, "CLOSED", "duplicate report")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusClosed, closed.Status)
	assert.Equal(t, "duplicate report", closed.Resolution)
}

func TestGetAndList_Visibility(t *testing.T) {
	env := newCaseEnv(t)
	ctx := context.Background()
	fraudCase, err := env.svc.Report(ctx, env.alice.ID, env.txn.ID, "")
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, Viewer{AccountID: env.bob.ID}, fraudCase.ID)
	assert.ErrorIs(t, err, apperrors.ErrCaseNotFound)

	got, err := env.svc.Get(ctx, Viewer{AccountID: env.bob.ID, Reviewer: true}, fraudCase.ID)
	require.NoError(t, err)
	assert.Equal(t, fraudCase.ID, got.ID)

	mine, total, err := env.svc.ListForAccount(ctx, env.alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)

	queue, total, err := env.svc.ListByStatus(ctx, "open", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, fraudCase.ID, queue[0].ID)

	_, _, err = env.svc.ListByStatus(ctx, "pending", 10, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	others, err := env.svc.ListForTransaction(ctx, Viewer{AccountID: env.bob.ID}, env.txn.ID)
	require.NoError(t, err)
	assert.Empty(t, others)
}
