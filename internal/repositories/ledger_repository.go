package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"fraudshield/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository is the storage side of balance mutations. Methods called on the
// repository passed to ExecuteInTransaction share one database transaction.
type LedgerRepository interface {
	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error

	// LockAccounts loads and row-locks the accounts in ascending id order. Ids with no
	// row are left out of the result.
	LockAccounts(ctx context.Context, ids ...uint) (map[uint]*models.Account, error)
	UpdateBalance(ctx context.Context, accountID uint, balance decimal.Decimal) error

	FindByIdempotencyKey(ctx context.Context, senderID uint, key string) (*models.Transaction, error)
	// CreateTransaction inserts the record; a reused idempotency key returns ErrConflict
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	FindFunding(ctx context.Context, reference string) (*models.Funding, error)
	// CreateFunding inserts the top-up; a reused reference returns ErrConflict
	CreateFunding(ctx context.Context, funding *models.Funding) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a gorm backed LedgerRepository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
	return translate(err)
}

// SortedIDs returns the distinct ids in ascending order.
func SortedIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *ledgerRepository) LockAccounts(ctx context.Context, ids ...uint) (map[uint]*models.Account, error) {
	accounts := make(map[uint]*models.Account, len(ids))
	// One statement per row keeps the lock acquisition order explicit.
	for _, id := range SortedIDs(ids) {
		var account models.Account
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lock account %d: %w", id, translate(err))
		}
		accounts[id] = &account
	}
	return accounts, nil
}

func (r *ledgerRepository) UpdateBalance(ctx context.Context, accountID uint, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", balance)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ledgerRepository) FindByIdempotencyKey(ctx context.Context, senderID uint, key string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND idempotency_key = ?", senderID, key).
		First(&txn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	err := translate(r.db.WithContext(ctx).Create(txn).Error)
	if errors.Is(err, ErrDuplicateKey) {
		return fmt.Errorf("%w: idempotency key %q already recorded", ErrConflict, txn.IdempotencyKey)
	}
	return err
}

func (r *ledgerRepository) FindFunding(ctx context.Context, reference string) (*models.Funding, error) {
	var funding models.Funding
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&funding).Error; err != nil {
		return nil, translate(err)
	}
	return &funding, nil
}

func (r *ledgerRepository) CreateFunding(ctx context.Context, funding *models.Funding) error {
	err := translate(r.db.WithContext(ctx).Create(funding).Error)
	if errors.Is(err, ErrDuplicateKey) {
		return fmt.Errorf("%w: funding reference %q already recorded", ErrConflict, funding.Reference)
	}
	return err
}
