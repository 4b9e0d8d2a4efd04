// Package cases runs the fraud case lifecycle: reporting, disputes and reviewer transitions.
package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/services/events"
	"fraudshield/internal/services/notification"
	"fraudshield/internal/validation"

	"github.com/google/uuid"
)

// Viewer identifies who is reading a case.
type Viewer struct {
	AccountID uint
	Reviewer  bool
}

// Service manages fraud cases and transaction disputes.
type Service interface {
	// Report opens a case for a transaction the actor sent or received and flags it.
	Report(ctx context.Context, actorID uint, transactionID, notes string) (*models.FraudCase, error)
	// Dispute marks the transaction disputed and notifies operations. Cases are untouched.
	Dispute(ctx context.Context, actorID uint, transactionID, reason string) (*models.Transaction, error)
	// Transition moves a case along the review workflow.
	Transition(ctx context.Context, reviewerID uint, caseID, to, note string) (*models.FraudCase, error)

	Get(ctx context.Context, viewer Viewer, caseID string) (*models.FraudCase, error)
	ListForTransaction(ctx context.Context, viewer Viewer, transactionID string) ([]models.FraudCase, error)
	ListForAccount(ctx context.Context, accountID uint, limit, offset int) ([]models.FraudCase, int64, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.FraudCase, int64, error)
}

// MetricsCollector defines the interface for collecting case metrics
type MetricsCollector interface {
	RecordCaseOpened()
	RecordCaseTransition(from, to string)
	RecordDispute(notified bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordCaseOpened()                   {}
func (n *NoopMetricsCollector) RecordCaseTransition(string, string) {}
func (n *NoopMetricsCollector) RecordDispute(bool)                  {}

type service struct {
	repo     repositories.CaseRepository
	accounts repositories.AccountRepository
	notifier notification.Service
	events   events.Publisher
	metrics  MetricsCollector
}

// NewService creates a case manager. notifier, publisher and metrics are optional.
func NewService(
	repo repositories.CaseRepository,
	accounts repositories.AccountRepository,
	notifier notification.Service,
	publisher events.Publisher,
	metrics MetricsCollector,
) Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		events:   publisher,
		metrics:  metrics,
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// loadInvolved locks the transaction and checks the actor took part in it.
func loadInvolved(ctx context.Context, repo repositories.CaseRepository, actorID uint, transactionID string) (*models.Transaction, error) {
	if !validID(transactionID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	txn, err := repo.GetTransactionForUpdate(ctx, transactionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !txn.Involves(actorID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	return txn, nil
}

func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.ErrPersistence.Wrap(err)
}

func (s *service) Report(ctx context.Context, actorID uint, transactionID, notes string) (*models.FraudCase, error) {
	notes = strings.TrimSpace(notes)
	v := validation.New()
	v.MaxLength("notes", notes, validation.MaxNotesLength)
	if err := v.Err(); err != nil {
		return nil, err
	}

	fraudCase := &models.FraudCase{
		ID:         uuid.NewString(),
		ReporterID: actorID,
		Status:     models.CaseStatusOpen,
		Notes:      notes,
	}

	err := s.repo.ExecuteInTransaction(ctx, func(repo repositories.CaseRepository) error {
		txn, err := loadInvolved(ctx, repo, actorID, transactionID)
		if err != nil {
			return err
		}
		fraudCase.TransactionID = txn.ID
		if err := repo.Create(ctx, fraudCase); err != nil {
			return err
		}
		return repo.UpdateTransactionStatus(ctx, txn.ID, models.TransactionStatusFlagged, nil)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.metrics.RecordCaseOpened()
	logger.FromContext(ctx).Info().
		Str("case_id", fraudCase.ID).
		Str("transaction_id", fraudCase.TransactionID).
		Uint("reporter_id", actorID).
		Msg("fraud case opened")
	events.Emit(ctx, s.events, events.Event{
		Type:      events.TypeCaseOpened,
		AccountID: actorID,
		SubjectID: fraudCase.ID,
		Data: map[string]interface{}{
			"transaction_id": fraudCase.TransactionID,
			"status":         fraudCase.Status,
		},
	})
	return fraudCase, nil
}

func (s *service) Dispute(ctx context.Context, actorID uint, transactionID, reason string) (*models.Transaction, error) {
	reason = strings.TrimSpace(reason)
	v := validation.New()
	v.Required("reason", reason)
	v.MaxLength("reason", reason, validation.MaxReasonLength)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var disputed *models.Transaction
	err := s.repo.ExecuteInTransaction(ctx, func(repo repositories.CaseRepository) error {
		txn, err := loadInvolved(ctx, repo, actorID, transactionID)
		if err != nil {
			return err
		}
		if err := repo.UpdateTransactionStatus(ctx, txn.ID, models.TransactionStatusDisputed, &reason); err != nil {
			return err
		}
		txn.Status = models.TransactionStatusDisputed
		txn.DisputeReason = &reason
		disputed = txn
		return nil
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	log := logger.FromContext(ctx).With().
		Str("transaction_id", disputed.ID).
		Uint("account_id", actorID).
		Logger()
	log.Info().Msg("transaction disputed")

	notified := s.notify(ctx, actorID, disputed, reason)
	s.metrics.RecordDispute(notified)

	events.Emit(ctx, s.events, events.Event{
		Type:      events.TypeTransactionDisputed,
		AccountID: actorID,
		SubjectID: disputed.ID,
		Data:      map[string]interface{}{"reason": reason},
	})
	return disputed, nil
}

// notify relays the dispute; failures are logged and never undo the dispute.
func (s *service) notify(ctx context.Context, actorID uint, txn *models.Transaction, reason string) bool {
	if s.notifier == nil {
		return false
	}
	log := logger.FromContext(ctx)

	account, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		log.Warn().Err(err).Msg("dispute notification skipped: account lookup failed")
		return false
	}
	if err := s.notifier.NotifyDispute(ctx, account, txn, reason); err != nil {
		log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("dispute notification failed")
		return false
	}
	return true
}

func (s *service) Transition(ctx context.Context, reviewerID uint, caseID, to, note string) (*models.FraudCase, error) {
	to = strings.ToLower(strings.TrimSpace(to))
	note = strings.TrimSpace(note)

	v := validation.New()
	v.OneOf("status", to, Statuses...)
	v.MaxLength("note", note, validation.MaxNotesLength)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if !validID(caseID) {
		return nil, apperrors.ErrCaseNotFound
	}

	var (
		updated *models.FraudCase
		from    string
	)
	err := s.repo.ExecuteInTransaction(ctx, func(repo repositories.CaseRepository) error {
		fraudCase, err := repo.GetForUpdate(ctx, caseID)
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrCaseNotFound
		}
		if err != nil {
			return err
		}

		from = fraudCase.Status
		if !CanTransition(from, to) {
			return apperrors.ErrInvalidTransition.WithMessage(
				fmt.Sprintf("case cannot move from %s to %s", from, to))
		}

		fraudCase.Status = to
		if note != "" {
			fraudCase.Notes = appendNote(fraudCase.Notes, to, note, time.Now().UTC())
			if IsTerminal(to) {
				fraudCase.Resolution = note
			}
		}
		if err := repo.Update(ctx, fraudCase); err != nil {
			return err
		}
		updated = fraudCase
		return nil
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.metrics.RecordCaseTransition(from, to)
	logger.FromContext(ctx).Info().
		Str("case_id", caseID).
		Str("from", from).
		Str("to", to).
		Uint("reviewer_id", reviewerID).
		Msg("fraud case transitioned")
	events.Emit(ctx, s.events, events.Event{
		Type:      events.TypeCaseTransitioned,
		AccountID: updated.ReporterID,
		SubjectID: updated.ID,
		Data: map[string]interface{}{
			"from":        from,
			"to":          to,
			"reviewer_id": reviewerID,
		},
	})
	return updated, nil
}

func appendNote(notes, status, note string, at time.Time) string {
	entry := fmt.Sprintf("[%s %s] %s", at.Format(time.RFC3339), status, note)
	if notes == "" {
		return entry
	}
	return notes + "\n" + entry
}

func (s *service) Get(ctx context.Context, viewer Viewer, caseID string) (*models.FraudCase, error) {
	if !validID(caseID) {
		return nil, apperrors.ErrCaseNotFound
	}
	fraudCase, err := s.repo.GetByID(ctx, caseID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrCaseNotFound
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if !viewer.Reviewer && fraudCase.ReporterID != viewer.AccountID {
		return nil, apperrors.ErrCaseNotFound
	}
	return fraudCase, nil
}

func (s *service) ListForTransaction(ctx context.Context, viewer Viewer, transactionID string) ([]models.FraudCase, error) {
	if !validID(transactionID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	cases, err := s.repo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if viewer.Reviewer {
		return cases, nil
	}
	own := make([]models.FraudCase, 0, len(cases))
	for _, c := range cases {
		if c.ReporterID == viewer.AccountID {
			own = append(own, c)
		}
	}
	return own, nil
}

func (s *service) ListForAccount(ctx context.Context, accountID uint, limit, offset int) ([]models.FraudCase, int64, error) {
	cases, total, err := s.repo.ListByReporter(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.ErrPersistence.Wrap(err)
	}
	return cases, total, nil
}

func (s *service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.FraudCase, int64, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !IsValidStatus(status) {
		return nil, 0, apperrors.Validation("status", fmt.Sprintf("unknown case status %q", status))
	}
	cases, total, err := s.repo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.ErrPersistence.Wrap(err)
	}
	return cases, total, nil
}
