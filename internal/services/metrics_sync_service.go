package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/events"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

// Sync operations. Audit actions are the operation plus a lifecycle suffix.
const (
	OperationDailyMetrics   = "DAILY_METRICS"
	OperationProductMetrics = "PRODUCT_METRICS"
	OperationTrafficMetrics = "TRAFFIC_METRICS"

	suffixStarted = "_STARTED"
	suffixFetched = "_FETCHED"
	suffixFailed  = "_FAILED"

	productWindowDays = 30
)

// RunState is the lifecycle of one sync run.
type RunState string

const (
	RunStateNotStarted RunState = "notStarted"
	RunStateRunning    RunState = "running"
	RunStateCompleted  RunState = "completed"
)

// StoreFailure describes one store that failed during a run.
type StoreFailure struct {
	StoreID   uuid.UUID `json:"store_id"`
	StoreName string    `json:"store_name"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Error     string    `json:"error"`

	err error
}

// RunResult summarizes a sync run.
type RunResult struct {
	RunID     string         `json:"run_id"`
	Operation string         `json:"operation"`
	State     RunState       `json:"state"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []StoreFailure `json:"failures,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// MetricsSyncService pulls commerce and ad spend data for every storefront
// and persists it as daily, product and traffic metrics.
type MetricsSyncService struct {
	registry  StoreRegistry
	metrics   MetricStore
	products  ProductMetricStore
	traffic   TrafficMetricStore
	commerce  providers.CommerceProvider
	facebook  providers.AdSpendProvider
	google    providers.AdSpendProvider
	audit     *AuditService
	publisher EventPublisher
	cache     CacheInvalidator
	reporter  ErrorReporter
	now       func() time.Time
	logger    *zap.Logger
}

// MetricsSyncServiceConfig holds the collaborators of the sync service.
// Publisher, Cache and Reporter are optional.
type MetricsSyncServiceConfig struct {
	Registry  StoreRegistry
	Metrics   MetricStore
	Products  ProductMetricStore
	Traffic   TrafficMetricStore
	Commerce  providers.CommerceProvider
	Facebook  providers.AdSpendProvider
	Google    providers.AdSpendProvider
	Audit     *AuditService
	Publisher EventPublisher
	Cache     CacheInvalidator
	Reporter  ErrorReporter
	Now       func() time.Time
	Logger    *zap.Logger
}

// NewMetricsSyncService creates a new MetricsSyncService
func NewMetricsSyncService(cfg *MetricsSyncServiceConfig) (*MetricsSyncService, error) {
	if cfg == nil {
		return nil, errors.New("sync service config is required")
	}
	if cfg.Registry == nil || cfg.Metrics == nil || cfg.Products == nil || cfg.Traffic == nil {
		return nil, errors.New("store registry and metric stores are required")
	}
	if cfg.Commerce == nil || cfg.Facebook == nil || cfg.Google == nil {
		return nil, errors.New("commerce and ad spend providers are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	audit := cfg.Audit
	if audit == nil {
		audit = NewAuditService(nil, logger)
	}

	return &MetricsSyncService{
		registry:  cfg.Registry,
		metrics:   cfg.Metrics,
		products:  cfg.Products,
		traffic:   cfg.Traffic,
		commerce:  cfg.Commerce,
		facebook:  cfg.Facebook,
		google:    cfg.Google,
		audit:     audit,
		publisher: cfg.Publisher,
		cache:     cfg.Cache,
		reporter:  cfg.Reporter,
		now:       now,
		logger:    logger,
	}, nil
}

// storeSync performs one operation for one store and returns its audit summary.
type storeSync func(ctx context.Context, store *models.Store) (map[string]interface{}, error)

type runPlan struct {
	operation string
	syncType  string
	window    *calendar.DateRange
	perStore  storeSync
}

// SyncDailyMetrics syncs yesterday's orders and ad spend for every store.
func (s *MetricsSyncService) SyncDailyMetrics(ctx context.Context) (*RunResult, error) {
	day := calendar.Yesterday(s.now())
	stores, err := s.registry.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return s.run(ctx, newRunID("daily"), stores, s.dailyPlan(day)), nil
}

// SyncStoreDailyMetrics syncs yesterday for a single store on demand.
// The returned job id correlates the audit trail of the run.
func (s *MetricsSyncService) SyncStoreDailyMetrics(ctx context.Context, storeID uuid.UUID) (string, error) {
	jobID := newRunID("manual")

	store, err := s.registry.GetStore(ctx, storeID)
	if err != nil {
		return jobID, fmt.Errorf("failed to get store: %w", err)
	}

	day := calendar.Yesterday(s.now())
	result := s.run(ctx, jobID, []models.Store{*store}, s.dailyPlan(day))
	if len(result.Failures) > 0 {
		return jobID, result.Failures[0].err
	}
	return jobID, nil
}

// SyncProductMetrics rebuilds product sales over the trailing 30 days.
func (s *MetricsSyncService) SyncProductMetrics(ctx context.Context) (*RunResult, error) {
	window := calendar.TrailingRange(s.now(), productWindowDays)
	return s.syncProducts(ctx, newRunID("products"), &window)
}

// SyncAllTimeProductMetrics rebuilds product sales over the whole order history.
func (s *MetricsSyncService) SyncAllTimeProductMetrics(ctx context.Context) (*RunResult, error) {
	return s.syncProducts(ctx, newRunID("products-alltime"), nil)
}

// SyncTrafficMetrics rebuilds the landing page traffic of the trailing daysBack days.
func (s *MetricsSyncService) SyncTrafficMetrics(ctx context.Context, daysBack, limit int) (*RunResult, error) {
	if daysBack < 1 {
		return nil, fmt.Errorf("%w: daysBack must be positive", calendar.ErrInvalidRange)
	}
	window := calendar.TrailingRange(s.now(), daysBack)

	stores, err := s.registry.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return s.run(ctx, newRunID("traffic"), stores, runPlan{
		operation: OperationTrafficMetrics,
		syncType:  "traffic_metrics",
		window:    &window,
		perStore: func(ctx context.Context, store *models.Store) (map[string]interface{}, error) {
			return s.syncStoreTraffic(ctx, store, window, daysBack, limit)
		},
	}), nil
}

func (s *MetricsSyncService) syncProducts(ctx context.Context, runID string, window *calendar.DateRange) (*RunResult, error) {
	stores, err := s.registry.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return s.run(ctx, runID, stores, runPlan{
		operation: OperationProductMetrics,
		syncType:  "product_metrics",
		window:    window,
		perStore: func(ctx context.Context, store *models.Store) (map[string]interface{}, error) {
			return s.syncStoreProducts(ctx, store, window)
		},
	}), nil
}

func (s *MetricsSyncService) dailyPlan(day time.Time) runPlan {
	window := calendar.DateRange{From: day, To: day}
	return runPlan{
		operation: OperationDailyMetrics,
		syncType:  "daily_metrics",
		window:    &window,
		perStore: func(ctx context.Context, store *models.Store) (map[string]interface{}, error) {
			return s.syncStoreDaily(ctx, store, day)
		},
	}
}

// run processes stores one after another. A store failure is audited and
// counted; it never stops the run.
func (s *MetricsSyncService) run(ctx context.Context, runID string, stores []models.Store, plan runPlan) *RunResult {
	result := &RunResult{
		RunID:     runID,
		Operation: plan.operation,
		State:     RunStateNotStarted,
		Total:     len(stores),
		StartedAt: s.now(),
	}
	if plan.window != nil {
		result.StartDate = plan.window.StartKey()
		result.EndDate = plan.window.EndKey()
	}

	s.logger.Info("Starting metrics sync",
		zap.String("run_id", runID),
		zap.String("operation", plan.operation),
		zap.Int("stores", len(stores)),
		zap.String("start_date", result.StartDate),
		zap.String("end_date", result.EndDate),
	)

	result.State = RunStateRunning
	for i := range stores {
		store := &stores[i]
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Metrics sync cancelled", zap.String("run_id", runID), zap.Error(err))
			result.Failed += len(stores) - i
			for _, rest := range stores[i:] {
				result.Failures = append(result.Failures, s.failure(&rest, result, err))
			}
			break
		}

		if err := s.runStore(ctx, runID, store, plan); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, s.failure(store, result, err))
			continue
		}
		result.Succeeded++
	}

	result.State = RunStateCompleted
	result.Duration = time.Since(result.StartedAt)

	s.logger.Info("Metrics sync completed",
		zap.String("run_id", runID),
		zap.String("operation", plan.operation),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result
}

func (s *MetricsSyncService) failure(store *models.Store, result *RunResult, err error) StoreFailure {
	return StoreFailure{
		StoreID:   store.ID,
		StoreName: store.Name,
		StartDate: result.StartDate,
		EndDate:   result.EndDate,
		Error:     err.Error(),
		err:       err,
	}
}

func (s *MetricsSyncService) runStore(ctx context.Context, runID string, store *models.Store, plan runPlan) error {
	started := time.Now()
	s.audit.Record(ctx, AuditEntry{
		RunID:  runID,
		Store:  store,
		Action: plan.operation + suffixStarted,
		Status: models.AuditStatusPending,
	})

	summary, err := plan.perStore(ctx, store)
	elapsed := time.Since(started)

	if err != nil {
		s.logger.Error("Failed to sync store",
			zap.String("run_id", runID),
			zap.String("operation", plan.operation),
			zap.String("store_id", store.ID.String()),
			zap.String("store_name", store.Name),
			zap.Error(err),
		)
		s.audit.Record(ctx, AuditEntry{
			RunID:    runID,
			Store:    store,
			Action:   plan.operation + suffixFailed,
			Status:   models.AuditStatusFailure,
			Duration: elapsed,
			Metadata: summary,
			Err:      err,
		})
		s.reportFailure(runID, store, plan, err)
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		RunID:    runID,
		Store:    store,
		Action:   plan.operation + suffixFetched,
		Status:   models.AuditStatusSuccess,
		Duration: elapsed,
		Metadata: summary,
	})
	s.reportSuccess(ctx, runID, store, plan, summary)

	s.logger.Info("Synced store",
		zap.String("run_id", runID),
		zap.String("operation", plan.operation),
		zap.String("store_name", store.Name),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func (s *MetricsSyncService) reportSuccess(ctx context.Context, runID string, store *models.Store, plan runPlan, summary map[string]interface{}) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, store.ID.String()); err != nil {
			s.logger.Warn("Failed to invalidate metrics cache", zap.String("store_id", store.ID.String()), zap.Error(err))
		}
	}

	if s.publisher == nil {
		return
	}
	event := &events.SyncCompletedEvent{
		RunID:     runID,
		StoreID:   store.ID,
		StoreName: store.Name,
		SyncType:  plan.syncType,
		Timestamp: time.Now().UTC(),
	}
	if plan.window != nil {
		event.StartDate = plan.window.StartKey()
		event.EndDate = plan.window.EndKey()
	}
	if degraded, ok := summary["spend_degraded"].(bool); ok {
		event.Degraded = degraded
	}
	if err := s.publisher.PublishSyncCompleted(event); err != nil {
		s.logger.Warn("Failed to publish sync completed event", zap.Error(err))
	}
}

func (s *MetricsSyncService) reportFailure(runID string, store *models.Store, plan runPlan, err error) {
	if s.reporter != nil {
		s.reporter.CaptureError(err, map[string]string{
			"run_id":    runID,
			"operation": plan.operation,
			"store_id":  store.ID.String(),
		})
	}

	if s.publisher == nil {
		return
	}
	if pubErr := s.publisher.PublishSyncFailed(&events.SyncFailedEvent{
		RunID:     runID,
		StoreID:   store.ID,
		StoreName: store.Name,
		SyncType:  plan.syncType,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("Failed to publish sync failed event", zap.Error(pubErr))
	}
}

func (s *MetricsSyncService) syncStoreDaily(ctx context.Context, store *models.Store, day time.Time) (map[string]interface{}, error) {
	dateKey := calendar.DateKey(day)

	aggregates, err := s.commerce.FetchDailyOrders(ctx, store, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	var fbSpend, googleSpend providers.Spend
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		spend, err := s.facebook.FetchSpend(gctx, store, day, day)
		if err != nil {
			return fmt.Errorf("failed to fetch %s spend: %w", s.facebook.GetPlatform(), err)
		}
		fbSpend = spend
		return nil
	})
	g.Go(func() error {
		spend, err := s.google.FetchSpend(gctx, store, day, day)
		if err != nil {
			return fmt.Errorf("failed to fetch %s spend: %w", s.google.GetPlatform(), err)
		}
		googleSpend = spend
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metric := &models.StoreMetric{
		StoreID:       store.ID,
		DateKey:       dateKey,
		FacebookSpend: fbSpend.Amount,
		GoogleSpend:   googleSpend.Amount,
		OrderValue:    decimal.Zero,
		SpendDegraded: fbSpend.Degraded || googleSpend.Degraded,
	}
	for _, agg := range aggregates {
		if agg.Date != dateKey {
			continue
		}
		metric.SoldOrders = agg.SoldOrders
		metric.OrderValue = agg.OrderValue
		metric.SoldItems = agg.SoldItems
	}

	if err := s.metrics.UpsertDailyMetric(ctx, metric); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"date":           dateKey,
		"sold_orders":    metric.SoldOrders,
		"order_value":    metric.OrderValue.String(),
		"sold_items":     metric.SoldItems,
		"facebook_spend": metric.FacebookSpend.String(),
		"google_spend":   metric.GoogleSpend.String(),
		"spend_degraded": metric.SpendDegraded,
	}, nil
}

// syncStoreProducts fetches before replacing so a failed fetch keeps the previous rows.
func (s *MetricsSyncService) syncStoreProducts(ctx context.Context, store *models.Store, window *calendar.DateRange) (map[string]interface{}, error) {
	sales, err := s.commerce.FetchProductSales(ctx, store, window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product sales: %w", err)
	}

	rows := make([]models.ProductMetric, 0, len(sales))
	for _, p := range sales {
		rows = append(rows, models.ProductMetric{
			StoreID:      store.ID,
			ProductID:    p.ProductID,
			ProductName:  p.ProductName,
			ProductImage: p.ProductImage,
			ProductURL:   p.ProductURL,
			QuantitySold: p.QuantitySold,
			Revenue:      p.Revenue,
		})
	}

	removed, err := s.products.ReplaceStoreProducts(ctx, store.ID, rows)
	if err != nil {
		return nil, err
	}

	summary := map[string]interface{}{
		"products": len(sales),
		"removed":  removed,
		"all_time": window == nil,
	}
	if window != nil {
		summary["start_date"] = window.StartKey()
		summary["end_date"] = window.EndKey()
	}
	return summary, nil
}

// syncStoreTraffic replaces the traffic rows of windows starting inside the new window.
func (s *MetricsSyncService) syncStoreTraffic(ctx context.Context, store *models.Store, window calendar.DateRange, daysBack, limit int) (map[string]interface{}, error) {
	pages, err := s.commerce.FetchTrafficAnalytics(ctx, store, daysBack, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch traffic analytics: %w", err)
	}

	since := window.StartKey()
	rows := make([]models.TrafficMetric, 0, len(pages))
	for _, page := range pages {
		rows = append(rows, models.TrafficMetric{
			StoreID:                     store.ID,
			LandingPageType:             page.LandingPageType,
			LandingPagePath:             page.LandingPagePath,
			StartDate:                   since,
			EndDate:                     window.EndKey(),
			OnlineStoreVisitors:         page.OnlineStoreVisitors,
			Sessions:                    page.Sessions,
			SessionsWithCartAdditions:   page.SessionsWithCartAdditions,
			SessionsThatReachedCheckout: page.SessionsThatReachedCheckout,
		})
	}

	removed, err := s.traffic.ReplaceStoreTraffic(ctx, store.ID, since, rows)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"start_date": since,
		"end_date":   window.EndKey(),
		"days_back":  daysBack,
		"pages":      len(pages),
		"removed":    removed,
	}, nil
}

func newRunID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
