package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// TrafficMetricRepository stores landing page traffic windows.
type TrafficMetricRepository struct {
	db *gorm.DB
}

// NewTrafficMetricRepository creates a new traffic metric repository.
func NewTrafficMetricRepository(db *gorm.DB) *TrafficMetricRepository {
	return &TrafficMetricRepository{db: db}
}

// ResetStoreTraffic deletes the store's traffic windows starting on or after since.
func (r *TrafficMetricRepository) ResetStoreTraffic(ctx context.Context, storeID uuid.UUID, since string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("store_id = ? AND start_date >= ?", storeID, since).
		Delete(&models.TrafficMetric{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset traffic metrics: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpsertTrafficMetric inserts or replaces the row for the landing page and window.
func (r *TrafficMetricRepository) UpsertTrafficMetric(ctx context.Context, metric *models.TrafficMetric) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "store_id"},
			{Name: "landing_page_type"},
			{Name: "landing_page_path"},
			{Name: "start_date"},
			{Name: "end_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"online_store_visitors",
			"sessions",
			"sessions_with_cart_additions",
			"sessions_that_reached_checkout",
			"updated_at",
		}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert traffic metric: %w", err)
	}
	return nil
}

// ReplaceStoreTraffic swaps the store's windows starting on or after since for rows
// in one transaction.
func (r *TrafficMetricRepository) ReplaceStoreTraffic(ctx context.Context, storeID uuid.UUID, since string, rows []models.TrafficMetric) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = replaceStoreTraffic(ctx, &TrafficMetricRepository{db: tx}, storeID, since, rows)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func replaceStoreTraffic(ctx context.Context, repo *TrafficMetricRepository, storeID uuid.UUID, since string, rows []models.TrafficMetric) (int64, error) {
	removed, err := repo.ResetStoreTraffic(ctx, storeID, since)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		rows[i].StoreID = storeID
		if err := repo.UpsertTrafficMetric(ctx, &rows[i]); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// ListLatestByStore returns the pages of the store's most recently ending window.
func (r *TrafficMetricRepository) ListLatestByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrafficMetric, error) {
	var latest models.TrafficMetric
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("end_date DESC, start_date ASC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find latest traffic window: %w", err)
	}
	if latest.ID == uuid.Nil {
		return []models.TrafficMetric{}, nil
	}

	var metrics []models.TrafficMetric
	q := r.db.WithContext(ctx).
		Where("store_id = ? AND start_date = ? AND end_date = ?", storeID, latest.StartDate, latest.EndDate).
		Order("sessions DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list traffic metrics: %w", err)
	}
	return metrics, nil
}
