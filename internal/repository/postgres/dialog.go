package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tgsync/internal/domain"
)

// DialogRepository implements domain.DialogRepository.
type DialogRepository struct {
	db *gorm.DB
}

// NewDialogRepository creates a dialog repository.
func NewDialogRepository(db *gorm.DB) *DialogRepository {
	return &DialogRepository{db: db}
}

// Upsert inserts or updates a dialog keyed by (tg_id, account_id). Running
// the info sync twice with unchanged remote data therefore never duplicates
// rows; only title, username and type are refreshed.
func (r *DialogRepository) Upsert(ctx context.Context, dialog *domain.Dialog) (bool, error) {
	var existing domain.Dialog
	err := r.db.WithContext(ctx).
		Where("tg_id = ? AND account_id = ?", dialog.TgID, dialog.AccountID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(dialog).Error; err != nil {
			return false, fmt.Errorf("failed to create dialog: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query dialog: %w", err)
	}

	updates := map[string]any{
		"title":    dialog.Title,
		"username": dialog.Username,
		"type":     dialog.Type,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("failed to update dialog: %w", err)
	}

	dialog.ID = existing.ID
	return false, nil
}

// GetByID returns a dialog by primary key.
func (r *DialogRepository) GetByID(ctx context.Context, id uint) (*domain.Dialog, error) {
	var dialog domain.Dialog
	err := r.db.WithContext(ctx).First(&dialog, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDialogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dialog: %w", err)
	}
	return &dialog, nil
}

// ListByAccount returns all live dialogs of one account.
func (r *DialogRepository) ListByAccount(ctx context.Context, accountID uint) ([]domain.Dialog, error) {
	var dialogs []domain.Dialog
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&dialogs).Error; err != nil {
		return nil, fmt.Errorf("failed to list dialogs: %w", err)
	}
	return dialogs, nil
}

var _ domain.DialogRepository = (*DialogRepository)(nil)
