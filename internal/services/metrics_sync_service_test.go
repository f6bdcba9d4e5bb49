package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

// 2025-02-02 10:00 at +05:30
var fixedNow = time.Date(2025, 2, 2, 4, 30, 0, 0, time.UTC)

type syncHarness struct {
	service   *MetricsSyncService
	registry  *fakeRegistry
	metrics   *memoryMetrics
	products  *memoryProducts
	traffic   *memoryTraffic
	audit     *recordingAudit
	commerce  *fakeCommerce
	facebook  *fakeSpend
	google    *fakeSpend
	publisher *recordingPublisher
	cache     *recordingCache
	reporter  *recordingReporter
}

func newSyncHarness(t *testing.T, stores ...models.Store) *syncHarness {
	t.Helper()
	h := &syncHarness{
		registry:  &fakeRegistry{stores: stores},
		metrics:   newMemoryMetrics(),
		products:  newMemoryProducts(),
		traffic:   &memoryTraffic{},
		audit:     &recordingAudit{},
		commerce:  newFakeCommerce(),
		facebook:  &fakeSpend{platform: "facebook", spend: providers.Spend{Amount: decimal.RequireFromString("25.50")}},
		google:    &fakeSpend{platform: "google", spend: providers.ZeroSpend()},
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
		reporter:  &recordingReporter{},
	}

	svc, err := NewMetricsSyncService(&MetricsSyncServiceConfig{
		Registry:  h.registry,
		Metrics:   h.metrics,
		Products:  h.products,
		Traffic:   h.traffic,
		Commerce:  h.commerce,
		Facebook:  h.facebook,
		Google:    h.google,
		Audit:     NewAuditService(h.audit, nil),
		Publisher: h.publisher,
		Cache:     h.cache,
		Reporter:  h.reporter,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	h.service = svc
	return h
}

func newStore(name string) models.Store {
	return models.Store{
		ID:                uuid.New(),
		Name:              name,
		ShopifyStoreURL:   strings.ToLower(name) + ".myshopify.com",
		ShopifyToken:      "shpat_" + name,
		FacebookAccountID: "act_" + name,
		IsActive:          true,
	}
}

func TestNewMetricsSyncService_RequiresCollaborators(t *testing.T) {
	_, err := NewMetricsSyncService(nil)
	assert.Error(t, err)

	_, err = NewMetricsSyncService(&MetricsSyncServiceConfig{Registry: &fakeRegistry{}})
	assert.Error(t, err)
}

func TestSyncDailyMetrics_SyncsYesterday(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.commerce.orders[store.ID] = providers.DailyOrderAggregate{
		SoldOrders: 3,
		OrderValue: decimal.RequireFromString("150.00"),
		SoldItems:  7,
	}

	result, err := h.service.SyncDailyMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStateCompleted, result.State)
	assert.Equal(t, OperationDailyMetrics, result.Operation)
	assert.Equal(t, "2025-02-01", result.StartDate)
	assert.Equal(t, "2025-02-01", result.EndDate)
	assert.Equal(t, 1, result.Succeeded)
	assert.True(t, strings.HasPrefix(result.RunID, "daily-"))

	row, ok := h.metrics.get(store.ID, "2025-02-01")
	require.True(t, ok)
	assert.Equal(t, int64(3), row.SoldOrders)
	assert.True(t, row.OrderValue.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, int64(7), row.SoldItems)
	assert.True(t, row.FacebookSpend.Equal(decimal.RequireFromString("25.5")))
	assert.True(t, row.GoogleSpend.IsZero())
	assert.False(t, row.SpendDegraded)

	require.Len(t, h.commerce.dailyFrom, 1)
	assert.Equal(t, "2025-02-01", calendar.DateKey(h.commerce.dailyFrom[0]))
	assert.Equal(t, 1, h.facebook.calls)
	assert.Equal(t, 1, h.google.calls)
}

func TestSyncDailyMetrics_OneStoreFailureDoesNotStopTheRun(t *testing.T) {
	storeA := newStore("A")
	storeB := newStore("B")
	h := newSyncHarness(t, storeA, storeB)
	h.commerce.failing[storeA.ID] = true

	result, err := h.service.SyncDailyMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, storeA.ID, result.Failures[0].StoreID)
	assert.Equal(t, "2025-02-01", result.Failures[0].StartDate)
	assert.Contains(t, result.Failures[0].Error, "page 2")

	_, ok := h.metrics.get(storeA.ID, "2025-02-01")
	assert.False(t, ok)
	_, ok = h.metrics.get(storeB.ID, "2025-02-01")
	assert.True(t, ok)

	assert.Equal(t, []string{
		"A:DAILY_METRICS_STARTED",
		"A:DAILY_METRICS_FAILED",
		"B:DAILY_METRICS_STARTED",
		"B:DAILY_METRICS_FETCHED",
	}, h.audit.actions())

	failed := h.audit.entries[1]
	assert.Equal(t, models.AuditStatusFailure, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "page 2")
	assert.Equal(t, models.AuditStatusSuccess, h.audit.entries[3].Status)
	assert.Contains(t, string(h.audit.entries[3].Metadata), `"date":"2025-02-01"`)

	require.Len(t, h.publisher.failed, 1)
	assert.Equal(t, storeA.ID, h.publisher.failed[0].StoreID)
	require.Len(t, h.publisher.completed, 1)
	assert.Equal(t, storeB.ID, h.publisher.completed[0].StoreID)

	assert.Equal(t, []string{storeB.ID.String()}, h.cache.invalidated)
	require.Len(t, h.reporter.errs, 1)
	assert.Equal(t, OperationDailyMetrics, h.reporter.tags[0]["operation"])
}

func TestSyncDailyMetrics_IsIdempotent(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	for i := 0; i < 2; i++ {
		_, err := h.service.SyncDailyMetrics(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, h.metrics.count())
}

func TestSyncDailyMetrics_DegradedSpendIsFlagged(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.facebook.spend = providers.DegradedSpend()

	result, err := h.service.SyncDailyMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	row, ok := h.metrics.get(store.ID, "2025-02-01")
	require.True(t, ok)
	assert.True(t, row.FacebookSpend.IsZero())
	assert.True(t, row.SpendDegraded)

	require.Len(t, h.publisher.completed, 1)
	assert.True(t, h.publisher.completed[0].Degraded)
}

func TestSyncDailyMetrics_SpendErrorFailsStore(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.google.err = context.DeadlineExceeded

	result, err := h.service.SyncDailyMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, h.metrics.count())
}

func TestSyncDailyMetrics_AuditFailureIsSwallowed(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.audit.err = errors.New("audit table locked")

	result, err := h.service.SyncDailyMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, h.metrics.count())
}

func TestSyncDailyMetrics_CancelledRunMarksRemainingStores(t *testing.T) {
	h := newSyncHarness(t, newStore("A"), newStore("B"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.service.SyncDailyMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunStateCompleted, result.State)
	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, h.audit.actions())
}

func TestSyncStoreDailyMetrics(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	jobID, err := h.service.SyncStoreDailyMetrics(context.Background(), store.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jobID, "manual-"))

	_, err = uuid.Parse(strings.TrimPrefix(jobID, "manual-"))
	assert.NoError(t, err)

	for _, entry := range h.audit.entries {
		assert.Equal(t, jobID, entry.RunID)
	}
	_, ok := h.metrics.get(store.ID, "2025-02-01")
	assert.True(t, ok)
}

func TestSyncStoreDailyMetrics_Errors(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	_, err := h.service.SyncStoreDailyMetrics(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrStoreNotFound)

	h.commerce.failing[store.ID] = true
	jobID, err := h.service.SyncStoreDailyMetrics(context.Background(), store.ID)
	assert.Error(t, err)
	assert.NotEmpty(t, jobID)
}

func TestSyncProductMetrics_RemovesStaleProducts(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	h.commerce.products[store.ID] = []providers.ProductSales{
		{ProductID: "1", ProductName: "Tee", QuantitySold: 2, Revenue: decimal.NewFromInt(40)},
		{ProductID: "2", ProductName: "Cap", QuantitySold: 1, Revenue: decimal.NewFromInt(15)},
	}
	_, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)

	h.commerce.products[store.ID] = []providers.ProductSales{
		{ProductID: "1", ProductName: "Tee", QuantitySold: 5, Revenue: decimal.NewFromInt(100)},
	}
	result, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03", result.StartDate)
	assert.Equal(t, "2025-02-01", result.EndDate)

	rows, _ := h.products.ListByStore(context.Background(), store.ID, 0)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ProductID)
	assert.Equal(t, int64(5), rows[0].QuantitySold)

	require.Len(t, h.commerce.windows, 2)
	require.NotNil(t, h.commerce.windows[0])
	assert.Len(t, h.commerce.windows[0].Days(), 30)

	last := h.audit.entries[len(h.audit.entries)-1]
	assert.Equal(t, "PRODUCT_METRICS_FETCHED", last.Action)
	assert.Contains(t, string(last.Metadata), `"removed":2`)
}

func TestSyncProductMetrics_FetchFailureKeepsPreviousRows(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.commerce.products[store.ID] = []providers.ProductSales{{ProductID: "1", Revenue: decimal.NewFromInt(1)}}
	_, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)

	h.commerce.failing[store.ID] = true
	result, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	rows, _ := h.products.ListByStore(context.Background(), store.ID, 0)
	assert.Len(t, rows, 1)
}

func TestSyncProductMetrics_WriteFailureKeepsPreviousRows(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	h.commerce.products[store.ID] = []providers.ProductSales{
		{ProductID: "1", QuantitySold: 1, Revenue: decimal.NewFromInt(10)},
		{ProductID: "2", QuantitySold: 1, Revenue: decimal.NewFromInt(20)},
		{ProductID: "3", QuantitySold: 1, Revenue: decimal.NewFromInt(30)},
	}
	_, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)

	h.commerce.products[store.ID] = []providers.ProductSales{
		{ProductID: "1", QuantitySold: 5, Revenue: decimal.NewFromInt(50)},
		{ProductID: "2", QuantitySold: 5, Revenue: decimal.NewFromInt(60)},
		{ProductID: "3", QuantitySold: 5, Revenue: decimal.NewFromInt(70)},
	}
	h.products.failAt = 2
	result, err := h.service.SyncProductMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.ErrorIs(t, result.Failures[0].err, errWriteFailed)

	rows, _ := h.products.ListByStore(context.Background(), store.ID, 0)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Revenue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "PRODUCT_METRICS_FAILED", h.audit.entries[len(h.audit.entries)-1].Action)
}

func TestSyncAllTimeProductMetrics_UsesNoWindow(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	result, err := h.service.SyncAllTimeProductMetrics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.StartDate)
	assert.True(t, strings.HasPrefix(result.RunID, "products-alltime-"))

	require.Len(t, h.commerce.windows, 1)
	assert.Nil(t, h.commerce.windows[0])
}

func TestSyncTrafficMetrics_ResetIsScopedToWindow(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)

	older := models.TrafficMetric{StoreID: store.ID, LandingPageType: "Homepage", LandingPagePath: "/", StartDate: "2024-12-01", EndDate: "2024-12-30"}
	stale := models.TrafficMetric{StoreID: store.ID, LandingPageType: "Product", LandingPagePath: "/products/old", StartDate: "2025-01-26", EndDate: "2025-02-01"}
	h.traffic.rows = append(h.traffic.rows, older, stale)

	h.commerce.traffic[store.ID] = []providers.TrafficPage{
		{LandingPageType: "Homepage", LandingPagePath: "/", Sessions: 120, OnlineStoreVisitors: 100},
		{LandingPageType: "Collection", LandingPagePath: "/collections/all", Sessions: 40},
	}

	result, err := h.service.SyncTrafficMetrics(context.Background(), 7, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, "2025-01-26", result.StartDate)
	assert.Equal(t, "2025-02-01", result.EndDate)
	assert.Equal(t, [][2]int{{7, 20}}, h.commerce.trafficArgs)

	require.Len(t, h.traffic.rows, 3)
	assert.Equal(t, older, h.traffic.rows[0])
	for _, row := range h.traffic.rows[1:] {
		assert.Equal(t, "2025-01-26", row.StartDate)
		assert.Equal(t, "2025-02-01", row.EndDate)
		assert.NotEqual(t, "/products/old", row.LandingPagePath)
	}
}

func TestSyncTrafficMetrics_WriteFailureKeepsPreviousRows(t *testing.T) {
	store := newStore("Acme")
	h := newSyncHarness(t, store)
	previous := models.TrafficMetric{StoreID: store.ID, LandingPageType: "Product", LandingPagePath: "/products/tee", StartDate: "2025-01-26", EndDate: "2025-02-01", Sessions: 9}
	h.traffic.rows = append(h.traffic.rows, previous)

	h.commerce.traffic[store.ID] = []providers.TrafficPage{
		{LandingPageType: "Homepage", LandingPagePath: "/", Sessions: 120},
		{LandingPageType: "Collection", LandingPagePath: "/collections/all", Sessions: 40},
	}
	h.traffic.failAt = 2

	result, err := h.service.SyncTrafficMetrics(context.Background(), 7, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []models.TrafficMetric{previous}, h.traffic.rows)
}

func TestSyncTrafficMetrics_RejectsBadWindow(t *testing.T) {
	h := newSyncHarness(t, newStore("Acme"))
	_, err := h.service.SyncTrafficMetrics(context.Background(), 0, 20)
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
}
