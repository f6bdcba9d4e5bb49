package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// AuditRepository appends sync audit events.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one audit event.
func (r *AuditRepository) Record(ctx context.Context, entry *models.SyncAuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListByStore returns the store's most recent audit events.
func (r *AuditRepository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.SyncAuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.SyncAuditLog
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return logs, nil
}
