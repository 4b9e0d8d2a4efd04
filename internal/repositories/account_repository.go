package repositories

import (
	"context"
	"strings"

	"fraudshield/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines the account persistence operations
type AccountRepository interface {
	// Create inserts a new account; a taken email returns ErrDuplicateKey
	Create(ctx context.Context, account *models.Account) error

	GetByID(ctx context.Context, id uint) (*models.Account, error)

	// GetByEmail looks an account up by its case-insensitive email
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// IncrementTokenVersion invalidates every token issued to the account
	IncrementTokenVersion(ctx context.Context, id uint) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a gorm backed AccountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = NormalizeEmail(account.Email)
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) IncrementTokenVersion(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
