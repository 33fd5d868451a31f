package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tgsync/internal/domain"
)

// DialogSyncRepository implements domain.DialogSyncRepository.
type DialogSyncRepository struct {
	db *gorm.DB
}

// NewDialogSyncRepository creates a sync-rule repository.
func NewDialogSyncRepository(db *gorm.DB) *DialogSyncRepository {
	return &DialogSyncRepository{db: db}
}

// ListEnabled returns all enabled rules with their account and both dialog
// endpoints preloaded, ready for the replication engine.
func (r *DialogSyncRepository) ListEnabled(ctx context.Context) ([]domain.DialogSync, error) {
	var rules []domain.DialogSync
	err := r.db.WithContext(ctx).
		Preload("Account").
		Preload("FromDialog").
		Preload("ToDialog").
		Where("status = ?", domain.SyncStatusEnabled).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sync rules: %w", err)
	}
	return rules, nil
}

var _ domain.DialogSyncRepository = (*DialogSyncRepository)(nil)
