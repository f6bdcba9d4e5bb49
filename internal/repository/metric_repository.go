package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// MetricRepository stores per-day storefront metrics.
type MetricRepository struct {
	db *gorm.DB
}

// NewMetricRepository creates a new metric repository.
func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// UpsertDailyMetric inserts the record or overwrites the existing one for the
// same (store_id, date_key). Re-running a day replaces it; it never duplicates.
func (r *MetricRepository) UpsertDailyMetric(ctx context.Context, metric *models.StoreMetric) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}, {Name: "date_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"facebook_spend",
			"google_spend",
			"sold_orders",
			"order_value",
			"sold_items",
			"spend_degraded",
			"updated_at",
		}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

// FindByStoreAndRange returns the store's records within the range, by date.
func (r *MetricRepository) FindByStoreAndRange(ctx context.Context, storeID uuid.UUID, dr calendar.DateRange) ([]models.StoreMetric, error) {
	var metrics []models.StoreMetric
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND date_key BETWEEN ? AND ?", storeID, dr.StartKey(), dr.EndKey()).
		Order("date_key ASC").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find metrics: %w", err)
	}
	return metrics, nil
}

// AggregateAcrossStores sums every store's records within the range.
func (r *MetricRepository) AggregateAcrossStores(ctx context.Context, dr calendar.DateRange) ([]models.StoreMetricTotals, error) {
	var totals []models.StoreMetricTotals
	err := r.db.WithContext(ctx).
		Model(&models.StoreMetric{}).
		Select(`store_id,
			COALESCE(SUM(facebook_spend), 0) AS facebook_spend,
			COALESCE(SUM(google_spend), 0) AS google_spend,
			COALESCE(SUM(sold_orders), 0) AS sold_orders,
			COALESCE(SUM(order_value), 0) AS order_value,
			COALESCE(SUM(sold_items), 0) AS sold_items,
			COUNT(*) AS days`).
		Where("date_key BETWEEN ? AND ?", dr.StartKey(), dr.EndKey()).
		Group("store_id").
		Order("store_id").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}
	return totals, nil
}
