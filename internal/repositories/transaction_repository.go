package repositories

import (
	"context"
	"time"

	"fraudshield/internal/models"

	"gorm.io/gorm"
)

// TransactionStats counts the transactions an account has sent.
type TransactionStats struct {
	Total      int64
	Fraudulent int64
}

// TransactionRepository is the read side of settled transactions plus the failed-attempt
// audit trail. Records themselves are written by the ledger.
type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)

	// ListByAccount returns transactions the account sent or received, newest first
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]models.Transaction, int64, error)

	GetStats(ctx context.Context, senderID uint) (*TransactionStats, error)
	GetBeneficiaries(ctx context.Context, senderID uint) ([]models.Beneficiary, error)
	// GetMonthlySpending sums outgoing amounts per YYYY-MM since the given time
	GetMonthlySpending(ctx context.Context, senderID uint, since time.Time) ([]models.MonthlySpending, error)

	CreateFailedAttempt(ctx context.Context, attempt *models.FailedAttempt) error
	ListFailedAttempts(ctx context.Context, senderID uint, limit int) ([]models.FailedAttempt, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a gorm backed TransactionRepository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]models.Transaction, int64, error) {
	var (
		txns  []models.Transaction
		total int64
	)

	query := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("sender_id = ? OR recipient_id = ?", accountID, accountID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return txns, total, nil
}

func (r *transactionRepository) GetStats(ctx context.Context, senderID uint) (*TransactionStats, error) {
	var stats TransactionStats
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE is_fraudulent) AS fraudulent").
		Where("sender_id = ?", senderID).
		Scan(&stats).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}

func (r *transactionRepository) GetBeneficiaries(ctx context.Context, senderID uint) ([]models.Beneficiary, error) {
	var beneficiaries []models.Beneficiary
	err := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select(`t.recipient_id AS account_id, a.email AS email, SUM(t.amount) AS total_sent,
			COUNT(*) AS transfer_count, MAX(t.created_at) AS last_transfer_date`).
		Joins("JOIN accounts a ON a.id = t.recipient_id").
		Where("t.sender_id = ? AND t.transfer_kind = ?", senderID, models.TransferKindP2PTransfer).
		Group("t.recipient_id, a.email").
		Order("last_transfer_date DESC").
		Scan(&beneficiaries).Error
	if err != nil {
		return nil, translate(err)
	}
	return beneficiaries, nil
}

func (r *transactionRepository) GetMonthlySpending(ctx context.Context, senderID uint, since time.Time) ([]models.MonthlySpending, error) {
	var months []models.MonthlySpending
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, SUM(amount) AS amount").
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Group("month").
		Order("month ASC").
		Scan(&months).Error
	if err != nil {
		return nil, translate(err)
	}
	return months, nil
}

func (r *transactionRepository) CreateFailedAttempt(ctx context.Context, attempt *models.FailedAttempt) error {
	return translate(r.db.WithContext(ctx).Create(attempt).Error)
}

func (r *transactionRepository) ListFailedAttempts(ctx context.Context, senderID uint, limit int) ([]models.FailedAttempt, error) {
	var attempts []models.FailedAttempt
	err := r.db.WithContext(ctx).
		Where("sender_id = ?", senderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, translate(err)
	}
	return attempts, nil
}
