package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/utils/retry"

	"github.com/shopspring/decimal"
)

type service struct {
	repo     repositories.LedgerRepository
	identity IdentityResolver
	config   Config
	metrics  MetricsCollector
}

// NewService creates a ledger service. A nil metrics collector records nothing.
func NewService(repo repositories.LedgerRepository, identity IdentityResolver, cfg Config, metrics MetricsCollector) Service {
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &service{
		repo:     repo,
		identity: identity,
		config:   cfg,
		metrics:  metrics,
	}
}

func (s *service) policy(ctx context.Context, kind string) retry.Policy {
	return retry.Policy{
		MaxAttempts: s.config.MaxAttempts,
		BaseDelay:   s.config.RetryBaseDelay,
		Jitter:      s.config.RetryJitter,
		Retryable:   repositories.IsConflict,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.metrics.RecordConflictRetry(kind)
			logger.FromContext(ctx).Debug().
				Err(err).
				Str("kind", kind).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("ledger conflict, retrying")
		},
	}
}

// Settle validates the request, resolves the recipient and applies the posting.
func (s *service) Settle(ctx context.Context, req SettlementRequest, record RecordFunc) (*Settlement, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if err := validateRequest(req); err != nil {
		s.metrics.RecordSettlement(req.Kind, OutcomeRejected, time.Since(start))
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("ledger: record func is required")
	}

	recipientID, err := s.resolveRecipient(ctx, req)
	if err != nil {
		s.metrics.RecordSettlement(req.Kind, OutcomeRejected, time.Since(start))
		return nil, err
	}

	var result *Settlement
	err = retry.Do(ctx, s.policy(ctx, req.Kind), func(attempt int) error {
		settlement, err := s.settleOnce(ctx, req, recipientID, record)
		if err != nil {
			return err
		}
		settlement.Attempts = attempt
		result = settlement
		return nil
	})
	if err != nil {
		outcome := OutcomeRejected
		switch {
		case repositories.IsConflict(err):
			outcome = OutcomeConflict
			err = apperrors.ErrConcurrencyConflict.Wrap(err)
		case apperrors.KindOf(err) == apperrors.KindServer:
			outcome = OutcomeError
			if _, ok := apperrors.As(err); !ok {
				err = apperrors.ErrPersistence.Wrap(err)
			}
		}
		s.metrics.RecordSettlement(req.Kind, outcome, time.Since(start))
		log.Warn().Err(err).
			Uint("sender_id", req.SenderID).
			Str("kind", req.Kind).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("settlement failed")
		return nil, err
	}

	if result.Replayed {
		s.metrics.RecordSettlement(req.Kind, OutcomeReplayed, time.Since(start))
		log.Info().
			Str("transaction_id", result.Transaction.ID).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("settlement replayed")
		return result, nil
	}

	s.metrics.RecordSettlement(req.Kind, OutcomeSettled, time.Since(start))
	s.metrics.RecordVolume(req.Kind, req.Amount)
	log.Info().
		Str("transaction_id", result.Transaction.ID).
		Uint("sender_id", req.SenderID).
		Str("kind", req.Kind).
		Str("amount", req.Amount.StringFixed(2)).
		Int("attempts", result.Attempts).
		Msg("settlement applied")
	return result, nil
}

func validateRequest(req SettlementRequest) error {
	switch req.Kind {
	case models.TransferKindPayment, models.TransferKindP2PTransfer:
	default:
		return apperrors.Validation("transfer_kind", fmt.Sprintf("unsupported transfer kind %q", req.Kind))
	}
	if !req.Amount.IsPositive() {
		return apperrors.Validation("amount", "must be greater than zero")
	}
	if req.IdempotencyKey == "" {
		return apperrors.Validation("idempotency_key", "is required")
	}
	if req.Kind == models.TransferKindP2PTransfer && req.RecipientEmail == "" {
		return apperrors.Validation("recipient_email", "is required for p2p transfers")
	}
	return nil
}

func (s *service) resolveRecipient(ctx context.Context, req SettlementRequest) (*uint, error) {
	if req.Kind != models.TransferKindP2PTransfer {
		return nil, nil
	}
	if s.identity == nil {
		return nil, apperrors.ErrIdentityResolution.WithMessage("identity resolver is not configured")
	}

	id, ok, err := s.identity.Resolve(ctx, req.RecipientEmail)
	if err != nil {
		return nil, apperrors.ErrIdentityResolution.Wrap(err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidRecipient
	}
	if id == req.SenderID {
		return nil, apperrors.ErrSelfTransfer
	}
	return &id, nil
}

func (s *service) settleOnce(ctx context.Context, req SettlementRequest, recipientID *uint, record RecordFunc) (*Settlement, error) {
	var result *Settlement

	err := s.repo.ExecuteInTransaction(ctx, func(repo repositories.LedgerRepository) error {
		ids := []uint{req.SenderID}
		if recipientID != nil {
			ids = append(ids, *recipientID)
		}

		accounts, err := repo.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}
		sender, ok := accounts[req.SenderID]
		if !ok {
			return apperrors.ErrAccountNotFound
		}

		existing, err := repo.FindByIdempotencyKey(ctx, req.SenderID, req.IdempotencyKey)
		switch {
		case err == nil:
			result = &Settlement{Transaction: existing, SenderBalance: sender.Balance, Replayed: true}
			return nil
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		var recipient *models.Account
		if recipientID != nil {
			if recipient, ok = accounts[*recipientID]; !ok {
				return apperrors.ErrInvalidRecipient
			}
		}

		if sender.Balance.LessThan(req.Amount) {
			return apperrors.ErrInsufficientFunds
		}

		posting := Posting{
			SenderID:      sender.ID,
			RecipientID:   recipientID,
			Amount:        req.Amount,
			SenderBalance: sender.Balance.Sub(req.Amount),
		}
		if err := repo.UpdateBalance(ctx, sender.ID, posting.SenderBalance); err != nil {
			return err
		}
		if recipient != nil {
			posting.RecipientBalance = recipient.Balance.Add(req.Amount)
			if err := repo.UpdateBalance(ctx, recipient.ID, posting.RecipientBalance); err != nil {
				return err
			}
		}

		txn, err := record(ctx, repo, posting)
		if err != nil {
			return err
		}
		if txn == nil {
			return fmt.Errorf("ledger: record func returned no transaction")
		}

		result = &Settlement{Transaction: txn, SenderBalance: posting.SenderBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fund credits amount to the account once per reference.
func (s *service) Fund(ctx context.Context, accountID uint, amount decimal.Decimal, reference, provider string) (*FundingResult, error) {
	start := time.Now()
	const kind = "funding"

	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	if reference == "" {
		return nil, apperrors.Validation("reference", "is required")
	}
	if provider == "" {
		provider = ProviderManual
	}

	var result *FundingResult
	err := retry.Do(ctx, s.policy(ctx, kind), func(int) error {
		return s.repo.ExecuteInTransaction(ctx, func(repo repositories.LedgerRepository) error {
			accounts, err := repo.LockAccounts(ctx, accountID)
			if err != nil {
				return err
			}
			account, ok := accounts[accountID]
			if !ok {
				return apperrors.ErrAccountNotFound
			}

			existing, err := repo.FindFunding(ctx, reference)
			switch {
			case err == nil:
				if existing.AccountID != accountID {
					return apperrors.Validation("reference", "belongs to another account")
				}
				result = &FundingResult{Funding: existing, Balance: account.Balance, Replayed: true}
				return nil
			case !errors.Is(err, repositories.ErrNotFound):
				return err
			}

			balance := account.Balance.Add(amount)
			if err := repo.UpdateBalance(ctx, accountID, balance); err != nil {
				return err
			}
			funding := &models.Funding{
				AccountID: accountID,
				Amount:    amount,
				Reference: reference,
				Provider:  provider,
			}
			if err := repo.CreateFunding(ctx, funding); err != nil {
				return err
			}
			result = &FundingResult{Funding: funding, Balance: balance}
			return nil
		})
	})
	if err != nil {
		if repositories.IsConflict(err) {
			s.metrics.RecordSettlement(kind, OutcomeConflict, time.Since(start))
			return nil, apperrors.ErrConcurrencyConflict.Wrap(err)
		}
		s.metrics.RecordSettlement(kind, OutcomeRejected, time.Since(start))
		if _, ok := apperrors.As(err); !ok {
			return nil, apperrors.ErrPersistence.Wrap(err)
		}
		return nil, err
	}

	if result.Replayed {
		s.metrics.RecordSettlement(kind, OutcomeReplayed, time.Since(start))
	} else {
		s.metrics.RecordSettlement(kind, OutcomeSettled, time.Since(start))
		s.metrics.RecordVolume(kind, amount)
	}
	logger.FromContext(ctx).Info().
		Uint("account_id", accountID).
		Str("reference", reference).
		Bool("replayed", result.Replayed).
		Msg("account funded")
	return result, nil
}
