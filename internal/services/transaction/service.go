package transaction

import (
	"context"
	"errors"
	"fmt"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/repositories/cache"
	"fraudshield/internal/services/events"
	"fraudshield/internal/services/ledger"
	"fraudshield/internal/services/risk"

	"github.com/google/uuid"
)

type service struct {
	ledger       ledger.Service
	scorer       risk.Scorer
	transactions repositories.TransactionRepository
	cache        cache.Cache
	events       events.Publisher
	metrics      MetricsCollector
}

// NewService creates a transaction recorder. cache, publisher and metrics are optional.
func NewService(
	ledgerSvc ledger.Service,
	scorer risk.Scorer,
	transactions repositories.TransactionRepository,
	c cache.Cache,
	publisher events.Publisher,
	metrics MetricsCollector,
) Service {
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if scorer == nil {
		panic("scorer is required")
	}
	if transactions == nil {
		panic("transaction repository is required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		ledger:       ledgerSvc,
		scorer:       scorer,
		transactions: transactions,
		cache:        c,
		events:       publisher,
		metrics:      metrics,
	}
}

func idempotencyKey(senderID uint, key string) string {
	return cache.GenerateKey(IdempotencyCachePrefix, fmt.Sprint(senderID), key)
}

func (s *service) Submit(ctx context.Context, senderID uint, attempt Attempt) (*Result, error) {
	attempt.Normalize()
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	if attempt.IdempotencyKey == "" {
		attempt.IdempotencyKey = uuid.NewString()
	}

	log := logger.FromContext(ctx).With().
		Uint("sender_id", senderID).
		Str("idempotency_key", attempt.IdempotencyKey).
		Logger()

	if cached := s.cachedResult(ctx, senderID, attempt.IdempotencyKey); cached != nil {
		s.metrics.RecordIdempotentHit("cache")
		log.Info().Str("transaction_id", cached.TransactionID).Msg("idempotent replay from cache")
		return cached, nil
	}

	assessment := s.scorer.Score(risk.Input{
		Amount:        attempt.Amount,
		Category:      attempt.Category,
		Location:      attempt.Location,
		DeviceID:      attempt.DeviceID,
		NetworkOrigin: attempt.NetworkOrigin,
	})

	settlement, err := s.ledger.Settle(ctx, ledger.SettlementRequest{
		SenderID:       senderID,
		Kind:           attempt.TransferKind,
		Amount:         attempt.Amount,
		RecipientEmail: attempt.RecipientEmail,
		IdempotencyKey: attempt.IdempotencyKey,
	}, s.recordFunc(attempt, assessment))
	if err != nil {
		s.recordFailure(ctx, senderID, attempt, assessment, err)
		return nil, err
	}

	result := resultFrom(settlement.Transaction, settlement.Replayed)
	s.cacheResult(ctx, senderID, attempt.IdempotencyKey, result)

	if settlement.Replayed {
		s.metrics.RecordIdempotentHit("store")
		return result, nil
	}

	s.metrics.RecordAssessment(string(assessment.Level), assessment.Flagged, assessment.Score)
	if assessment.Flagged {
		log.Warn().
			Str("transaction_id", result.TransactionID).
			Float64("risk_score", assessment.Score).
			Strs("amplifiers", assessment.Factors.Amplifiers).
			Msg("transaction flagged as high risk")
	}

	events.Emit(ctx, s.events, events.Event{
		Type:      events.TypeTransactionRecorded,
		AccountID: senderID,
		SubjectID: result.TransactionID,
		Data: map[string]interface{}{
			"amount":        result.Amount.StringFixed(2),
			"transfer_kind": attempt.TransferKind,
			"risk_score":    result.RiskScore,
			"risk_level":    result.RiskLevel,
			"flagged":       result.Flagged,
		},
	})
	return result, nil
}

// recordFunc inserts the transaction inside the ledger's database transaction.
func (s *service) recordFunc(attempt Attempt, assessment risk.Assessment) ledger.RecordFunc {
	return func(ctx context.Context, repo repositories.LedgerRepository, posting ledger.Posting) (*models.Transaction, error) {
		txn := &models.Transaction{
			ID:             uuid.NewString(),
			SenderID:       posting.SenderID,
			RecipientID:    posting.RecipientID,
			Amount:         posting.Amount,
			Merchant:       attempt.Merchant,
			Category:       attempt.Category,
			TransferKind:   attempt.TransferKind,
			RiskScore:      assessment.Score,
			RiskLevel:      string(assessment.Level),
			IsFraudulent:   assessment.Flagged,
			Status:         models.TransactionStatusApproved,
			Location:       attempt.Location,
			DeviceID:       attempt.DeviceID,
			NetworkOrigin:  attempt.NetworkOrigin,
			IdempotencyKey: attempt.IdempotencyKey,
			RiskFactors:    models.JSON(assessment.Factors.Map()),
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		return txn, nil
	}
}

// cachedResult answers a replay from the idempotency cache. The cache only maps the key to
// a transaction id; status is re-read since reports and disputes change it after settlement.
func (s *service) cachedResult(ctx context.Context, senderID uint, key string) *Result {
	if s.cache == nil {
		return nil
	}
	var cached Result
	found, err := s.cache.Get(ctx, idempotencyKey(senderID, key), &cached)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("idempotency cache read failed")
		return nil
	}
	if !found || cached.TransactionID == "" {
		return nil
	}

	txn, err := s.transactions.GetByID(ctx, cached.TransactionID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).
			Str("transaction_id", cached.TransactionID).
			Msg("cached transaction not readable, falling back to ledger replay")
		return nil
	}
	if txn.SenderID != senderID {
		return nil
	}
	return resultFrom(txn, true)
}

func (s *service) cacheResult(ctx context.Context, senderID uint, key string, result *Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetWithTTL(ctx, idempotencyKey(senderID, key), result, DefaultIdempotencyTTL); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("idempotency cache write failed")
	}
}

// recordFailure writes the audit row for a rejected settlement. Failures here are logged only.
func (s *service) recordFailure(ctx context.Context, senderID uint, attempt Attempt, assessment risk.Assessment, cause error) {
	code := UnknownErrorCode
	if de, ok := apperrors.As(cause); ok {
		code = de.Code
	}
	s.metrics.RecordFailedAttempt(attempt.TransferKind, code)

	failed := &models.FailedAttempt{
		SenderID:       senderID,
		Amount:         attempt.Amount,
		Merchant:       attempt.Merchant,
		Category:       attempt.Category,
		TransferKind:   attempt.TransferKind,
		RecipientEmail: attempt.RecipientEmail,
		IdempotencyKey: attempt.IdempotencyKey,
		Status:         models.TransactionStatusFailed,
		ErrorCode:      code,
		ErrorMessage:   cause.Error(),
		RiskScore:      assessment.Score,
	}

	log := logger.FromContext(ctx)
	if err := s.transactions.CreateFailedAttempt(ctx, failed); err != nil {
		log.Error().Err(err).Str("error_code", code).Msg("failed to record failed attempt")
		return
	}
	log.Info().
		Uint("sender_id", senderID).
		Str("error_code", code).
		Str("idempotency_key", attempt.IdempotencyKey).
		Msg("transaction attempt rejected")
}

func (s *service) Get(ctx context.Context, accountID uint, id string) (*models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	txn, err := s.transactions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if !txn.Involves(accountID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *service) List(ctx context.Context, accountID uint, limit, offset int) ([]models.Transaction, int64, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	txns, total, err := s.transactions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.ErrPersistence.Wrap(err)
	}
	return txns, total, nil
}

func (s *service) ListFailedAttempts(ctx context.Context, accountID uint) ([]models.FailedAttempt, error) {
	attempts, err := s.transactions.ListFailedAttempts(ctx, accountID, FailedAttemptsLimit)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	return attempts, nil
}
