package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// MetricsCache is a read-through cache for range reports.
type MetricsCache interface {
	Get(ctx context.Context, key string, out interface{}) bool
	Set(ctx context.Context, key string, value interface{}) error
}

// MetricTotals are summed metrics with derived ratios.
type MetricTotals struct {
	FacebookSpend decimal.Decimal `json:"facebook_spend"`
	GoogleSpend   decimal.Decimal `json:"google_spend"`
	TotalSpend    decimal.Decimal `json:"total_spend"`
	SoldOrders    int64           `json:"sold_orders"`
	OrderValue    decimal.Decimal `json:"order_value"`
	SoldItems     int64           `json:"sold_items"`
	ROAS          decimal.Decimal `json:"roas"`
	AOV           decimal.Decimal `json:"aov"`
}

// StoreMetricsReport is the per-day view of one store over a range.
type StoreMetricsReport struct {
	StoreID   uuid.UUID            `json:"store_id"`
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	Days      []models.StoreMetric `json:"days"`
	Totals    MetricTotals         `json:"totals"`
}

// StoreAggregate is one store's totals within an aggregate report.
type StoreAggregate struct {
	StoreID   uuid.UUID    `json:"store_id"`
	StoreName string       `json:"store_name"`
	Days      int64        `json:"days"`
	Totals    MetricTotals `json:"totals"`
}

// AggregateReport sums every store over a range.
type AggregateReport struct {
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Stores    []StoreAggregate `json:"stores"`
	Totals    MetricTotals     `json:"totals"`
}

// MetricsQueryService serves dashboard reads.
type MetricsQueryService struct {
	registry StoreRegistry
	metrics  MetricStore
	products ProductMetricStore
	traffic  TrafficMetricStore
	audit    *AuditService
	cache    MetricsCache
	now      func() time.Time
	logger   *zap.Logger
}

// MetricsQueryServiceConfig holds the collaborators of the query service.
type MetricsQueryServiceConfig struct {
	Registry StoreRegistry
	Metrics  MetricStore
	Products ProductMetricStore
	Traffic  TrafficMetricStore
	Audit    *AuditService
	Cache    MetricsCache
	Now      func() time.Time
	Logger   *zap.Logger
}

// NewMetricsQueryService creates a new MetricsQueryService
func NewMetricsQueryService(cfg *MetricsQueryServiceConfig) *MetricsQueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MetricsQueryService{
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		products: cfg.Products,
		traffic:  cfg.Traffic,
		audit:    cfg.Audit,
		cache:    cfg.Cache,
		now:      now,
		logger:   logger,
	}
}

// GetStoreMetrics returns one row per day of the resolved range, zero-filled.
func (s *MetricsQueryService) GetStoreMetrics(ctx context.Context, storeID uuid.UUID, preset, startDate, endDate string) (*StoreMetricsReport, error) {
	dr, err := calendar.ResolveRange(preset, startDate, endDate, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.registry.GetStore(ctx, storeID); err != nil {
		return nil, err
	}

	key := storeRangeKey(storeID.String(), dr.StartKey(), dr.EndKey())
	var cached StoreMetricsReport
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.metrics.FindByStoreAndRange(ctx, storeID, dr)
	if err != nil {
		return nil, fmt.Errorf("failed to load store metrics: %w", err)
	}

	byDay := make(map[string]models.StoreMetric, len(rows))
	for _, row := range rows {
		byDay[row.DateKey] = row
	}

	report := &StoreMetricsReport{
		StoreID:   storeID,
		StartDate: dr.StartKey(),
		EndDate:   dr.EndKey(),
	}
	var totals models.StoreMetricTotals
	for _, key := range dr.Days() {
		row, ok := byDay[key]
		if !ok {
			row = models.StoreMetric{StoreID: storeID, DateKey: key}
		}
		report.Days = append(report.Days, row)

		totals.FacebookSpend = totals.FacebookSpend.Add(row.FacebookSpend)
		totals.GoogleSpend = totals.GoogleSpend.Add(row.GoogleSpend)
		totals.SoldOrders += row.SoldOrders
		totals.OrderValue = totals.OrderValue.Add(row.OrderValue)
		totals.SoldItems += row.SoldItems
	}
	report.Totals = deriveTotals(totals)

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, report)
	}
	return report, nil
}

// GetAggregate sums every store over the resolved preset.
func (s *MetricsQueryService) GetAggregate(ctx context.Context, preset string) (*AggregateReport, error) {
	dr, err := calendar.ResolveRange(preset, "", "", s.now())
	if err != nil {
		return nil, err
	}

	key := aggregateKey(dr.StartKey(), dr.EndKey())
	var cached AggregateReport
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.metrics.AggregateAcrossStores(ctx, dr)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	names := make(map[uuid.UUID]string)
	if stores, err := s.registry.ListStores(ctx); err != nil {
		s.logger.Warn("Failed to load store names for aggregate", zap.Error(err))
	} else {
		for _, store := range stores {
			names[store.ID] = store.Name
		}
	}

	report := &AggregateReport{
		StartDate: dr.StartKey(),
		EndDate:   dr.EndKey(),
		Stores:    make([]StoreAggregate, 0, len(rows)),
	}
	var all models.StoreMetricTotals
	for _, row := range rows {
		report.Stores = append(report.Stores, StoreAggregate{
			StoreID:   row.StoreID,
			StoreName: names[row.StoreID],
			Days:      row.Days,
			Totals:    deriveTotals(row),
		})
		all.FacebookSpend = all.FacebookSpend.Add(row.FacebookSpend)
		all.GoogleSpend = all.GoogleSpend.Add(row.GoogleSpend)
		all.SoldOrders += row.SoldOrders
		all.OrderValue = all.OrderValue.Add(row.OrderValue)
		all.SoldItems += row.SoldItems
	}
	report.Totals = deriveTotals(all)

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, report)
	}
	return report, nil
}

// ListProducts returns the store's product sales, best sellers first.
func (s *MetricsQueryService) ListProducts(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ProductMetric, error) {
	if _, err := s.registry.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.products.ListByStore(ctx, storeID, limit)
}

// ListTraffic returns the landing pages of the store's latest traffic window.
func (s *MetricsQueryService) ListTraffic(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrafficMetric, error) {
	if _, err := s.registry.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.traffic.ListLatestByStore(ctx, storeID, limit)
}

// ListSyncLogs returns the store's recent sync audit events.
func (s *MetricsQueryService) ListSyncLogs(ctx context.Context, storeID uuid.UUID, limit int) ([]models.SyncAuditLog, error) {
	if s.audit == nil || s.audit.store == nil {
		return []models.SyncAuditLog{}, nil
	}
	return s.audit.ListByStore(ctx, storeID, limit)
}

// deriveTotals adds total spend, ROAS (order value / spend) and AOV (order value / orders).
// A ratio with a zero denominator is zero.
func deriveTotals(t models.StoreMetricTotals) MetricTotals {
	out := MetricTotals{
		FacebookSpend: t.FacebookSpend,
		GoogleSpend:   t.GoogleSpend,
		TotalSpend:    t.FacebookSpend.Add(t.GoogleSpend),
		SoldOrders:    t.SoldOrders,
		OrderValue:    t.OrderValue,
		SoldItems:     t.SoldItems,
		ROAS:          decimal.Zero,
		AOV:           decimal.Zero,
	}
	if !out.TotalSpend.IsZero() {
		out.ROAS = out.OrderValue.DivRound(out.TotalSpend, 4)
	}
	if out.SoldOrders > 0 {
		out.AOV = out.OrderValue.DivRound(decimal.NewFromInt(out.SoldOrders), 4)
	}
	return out
}
