package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/events"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// ErrStoreNotFound is returned when a store id is not in the registry.
var ErrStoreNotFound = models.ErrStoreNotFound

// StoreRegistry lists the storefronts to sync.
type StoreRegistry interface {
	ListStores(ctx context.Context) ([]models.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// MetricStore persists daily metrics.
type MetricStore interface {
	UpsertDailyMetric(ctx context.Context, metric *models.StoreMetric) error
	FindByStoreAndRange(ctx context.Context, storeID uuid.UUID, dr calendar.DateRange) ([]models.StoreMetric, error)
	AggregateAcrossStores(ctx context.Context, dr calendar.DateRange) ([]models.StoreMetricTotals, error)
}

// ProductMetricStore persists per-product sales.
type ProductMetricStore interface {
	// ReplaceStoreProducts atomically swaps the store's rows and returns how many were removed.
	ReplaceStoreProducts(ctx context.Context, storeID uuid.UUID, rows []models.ProductMetric) (int64, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ProductMetric, error)
}

// TrafficMetricStore persists landing page traffic windows.
type TrafficMetricStore interface {
	// ReplaceStoreTraffic atomically swaps the windows starting on or after since.
	ReplaceStoreTraffic(ctx context.Context, storeID uuid.UUID, since string, rows []models.TrafficMetric) (int64, error)
	ListLatestByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrafficMetric, error)
}

// AuditStore appends audit rows.
type AuditStore interface {
	Record(ctx context.Context, entry *models.SyncAuditLog) error
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.SyncAuditLog, error)
}

// EventPublisher announces per-store sync outcomes.
type EventPublisher interface {
	PublishSyncCompleted(event *events.SyncCompletedEvent) error
	PublishSyncFailed(event *events.SyncFailedEvent) error
}

// CacheInvalidator drops cached dashboard ranges of a store.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, storeID string) error
}

// ErrorReporter forwards failures to error tracking.
type ErrorReporter interface {
	CaptureError(err error, tags map[string]string)
}
