package repositories

import (
	"context"

	"fraudshield/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseRepository persists fraud cases together with the status changes they cause on
// transactions.
type CaseRepository interface {
	ExecuteInTransaction(ctx context.Context, fn func(CaseRepository) error) error

	Create(ctx context.Context, fraudCase *models.FraudCase) error
	GetByID(ctx context.Context, id string) (*models.FraudCase, error)
	// GetForUpdate loads and row-locks a case for a state transition
	GetForUpdate(ctx context.Context, id string) (*models.FraudCase, error)
	Update(ctx context.Context, fraudCase *models.FraudCase) error

	ListByTransaction(ctx context.Context, transactionID string) ([]models.FraudCase, error)
	ListByReporter(ctx context.Context, reporterID uint, limit, offset int) ([]models.FraudCase, int64, error)
	// ListByStatus returns the review queue, oldest first; an empty status lists all cases
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.FraudCase, int64, error)
	CountOpenByReporter(ctx context.Context, reporterID uint) (int64, error)

	GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID, status string, disputeReason *string) error
}

type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository creates a gorm backed CaseRepository
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) ExecuteInTransaction(ctx context.Context, fn func(CaseRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&caseRepository{db: tx})
	})
	return translate(err)
}

func (r *caseRepository) Create(ctx context.Context, fraudCase *models.FraudCase) error {
	return translate(r.db.WithContext(ctx).Create(fraudCase).Error)
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*models.FraudCase, error) {
	var fraudCase models.FraudCase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fraudCase).Error; err != nil {
		return nil, translate(err)
	}
	return &fraudCase, nil
}

func (r *caseRepository) GetForUpdate(ctx context.Context, id string) (*models.FraudCase, error) {
	var fraudCase models.FraudCase
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&fraudCase).Error
	if err != nil {
		return nil, translate(err)
	}
	return &fraudCase, nil
}

func (r *caseRepository) Update(ctx context.Context, fraudCase *models.FraudCase) error {
	result := r.db.WithContext(ctx).Model(fraudCase).
		Select("status", "notes", "resolution", "updated_at").
		Updates(fraudCase)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.FraudCase, error) {
	var cases []models.FraudCase
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&cases).Error
	if err != nil {
		return nil, translate(err)
	}
	return cases, nil
}

func (r *caseRepository) ListByReporter(ctx context.Context, reporterID uint, limit, offset int) ([]models.FraudCase, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FraudCase{}).Where("reporter_id = ?", reporterID)
	return r.page(query, "created_at DESC", limit, offset)
}

func (r *caseRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.FraudCase, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FraudCase{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.page(query, "created_at ASC", limit, offset)
}

func (r *caseRepository) page(query *gorm.DB, order string, limit, offset int) ([]models.FraudCase, int64, error) {
	var (
		cases []models.FraudCase
		total int64
	)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	if err := query.Order(order).Limit(limit).Offset(offset).Find(&cases).Error; err != nil {
		return nil, 0, translate(err)
	}
	return cases, total, nil
}

func (r *caseRepository) CountOpenByReporter(ctx context.Context, reporterID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FraudCase{}).
		Where("reporter_id = ? AND status NOT IN ?", reporterID,
			[]string{models.CaseStatusResolved, models.CaseStatusClosed}).
		Count(&count).Error
	return count, translate(err)
}

func (r *caseRepository) GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", transactionID).
		First(&txn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (r *caseRepository) UpdateTransactionStatus(ctx context.Context, transactionID, status string, disputeReason *string) error {
	updates := map[string]interface{}{"status": status}
	if disputeReason != nil {
		updates["dispute_reason"] = *disputeReason
	}
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
