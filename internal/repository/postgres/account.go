// Package postgres implements the entity repositories on GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tgsync/internal/domain"
)

// AccountRepository implements domain.AccountRepository.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Phone uniqueness is enforced against live
// rows only: a soft-deleted account does not block re-registration of its
// phone.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("phone = ?", account.Phone).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check phone uniqueness: %w", err)
	}
	if count > 0 {
		return domain.ErrDuplicatePhone
	}

	if account.Status == 0 {
		account.Status = domain.AccountStatusExpired
	}

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByPhone returns the live account with the given phone.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// List returns all live accounts.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ListByStatus returns all live accounts with the given status.
func (r *AccountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.WithContext(ctx).Where("status = ?", status).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts by status: %w", err)
	}
	return accounts, nil
}

// SaveProfile stores the resolved profile fields and marks the account
// Normal in one update, so a crash cannot leave a Normal account without
// its profile.
func (r *AccountRepository) SaveProfile(ctx context.Context, id uint, profile domain.Profile) error {
	result := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Updates(map[string]any{
		"username":   profile.Username,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"tg_id":      profile.TgID,
		"status":     domain.AccountStatusNormal,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdateStatus sets the lifecycle status.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id uint, status domain.AccountStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
