// Package dashboard builds the read models shown on an account's dashboard.
package dashboard

import (
	"context"
	"errors"
	"math"
	"time"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"

	"github.com/shopspring/decimal"
)

// SpendingMonths is how many calendar months the spending summary covers, current included.
const SpendingMonths = 6

type Service interface {
	GetStats(ctx context.Context, accountID uint) (*models.AccountStats, error)
	GetBeneficiaries(ctx context.Context, accountID uint) ([]models.Beneficiary, error)
	GetMonthlySpending(ctx context.Context, accountID uint) (*models.SpendingSummary, error)
}

type service struct {
	accounts     repositories.AccountRepository
	transactions repositories.TransactionRepository
	cases        repositories.CaseRepository
	now          func() time.Time
}

func NewService(
	accounts repositories.AccountRepository,
	transactions repositories.TransactionRepository,
	cases repositories.CaseRepository,
) Service {
	return &service{
		accounts:     accounts,
		transactions: transactions,
		cases:        cases,
		now:          time.Now,
	}
}

func (s *service) GetStats(ctx context.Context, accountID uint) (*models.AccountStats, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}

	stats, err := s.transactions.GetStats(ctx, accountID)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	openCases, err := s.cases.CountOpenByReporter(ctx, accountID)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}

	return &models.AccountStats{
		Balance:     account.Balance,
		Total:       stats.Total,
		Fraudulent:  stats.Fraudulent,
		SuccessRate: SuccessRate(stats.Total, stats.Fraudulent),
		OpenCases:   openCases,
	}, nil
}

// SuccessRate is the percentage of non-fraudulent transactions, to one decimal place.
func SuccessRate(total, fraudulent int64) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(total-fraudulent) / float64(total) * 100
	return math.Round(rate*10) / 10
}

func (s *service) GetBeneficiaries(ctx context.Context, accountID uint) ([]models.Beneficiary, error) {
	beneficiaries, err := s.transactions.GetBeneficiaries(ctx, accountID)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if beneficiaries == nil {
		beneficiaries = []models.Beneficiary{}
	}
	return beneficiaries, nil
}

func (s *service) GetMonthlySpending(ctx context.Context, accountID uint) (*models.SpendingSummary, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(SpendingMonths - 1), 0)

	months, err := s.transactions.GetMonthlySpending(ctx, accountID, since)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if months == nil {
		months = []models.MonthlySpending{}
	}

	total := decimal.Zero
	for _, m := range months {
		total = total.Add(m.Amount)
	}
	// Average over months that saw spending.
	average := decimal.Zero
	if len(months) > 0 {
		average = total.Div(decimal.NewFromInt(int64(len(months)))).Round(2)
	}

	return &models.SpendingSummary{
		Months:  months,
		Total:   total,
		Average: average,
	}, nil
}
