package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// ProductMetricRepository stores per-product sales.
type ProductMetricRepository struct {
	db *gorm.DB
}

// NewProductMetricRepository creates a new product metric repository.
func NewProductMetricRepository(db *gorm.DB) *ProductMetricRepository {
	return &ProductMetricRepository{db: db}
}

// ResetStoreProducts deletes every product row of the store.
func (r *ProductMetricRepository) ResetStoreProducts(ctx context.Context, storeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("store_id = ?", storeID).Delete(&models.ProductMetric{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset product metrics: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpsertProductMetric inserts or replaces the row for (store_id, product_id).
func (r *ProductMetricRepository) UpsertProductMetric(ctx context.Context, metric *models.ProductMetric) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_name",
			"product_image",
			"product_url",
			"quantity_sold",
			"revenue",
			"updated_at",
		}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert product metric: %w", err)
	}
	return nil
}

// ReplaceStoreProducts swaps the store's product rows for rows in one transaction.
// A failed statement rolls back the delete, so the previous rows survive.
func (r *ProductMetricRepository) ReplaceStoreProducts(ctx context.Context, storeID uuid.UUID, rows []models.ProductMetric) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = replaceStoreProducts(ctx, &ProductMetricRepository{db: tx}, storeID, rows)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func replaceStoreProducts(ctx context.Context, repo *ProductMetricRepository, storeID uuid.UUID, rows []models.ProductMetric) (int64, error) {
	removed, err := repo.ResetStoreProducts(ctx, storeID)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		rows[i].StoreID = storeID
		if err := repo.UpsertProductMetric(ctx, &rows[i]); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// ListByStore returns the store's products by revenue, highest first.
func (r *ProductMetricRepository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ProductMetric, error) {
	var metrics []models.ProductMetric
	q := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("revenue DESC, product_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list product metrics: %w", err)
	}
	return metrics, nil
}
