package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/events"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

type fakeRegistry struct {
	stores []models.Store
}

func (r *fakeRegistry) ListStores(context.Context) ([]models.Store, error) {
	out := make([]models.Store, len(r.stores))
	copy(out, r.stores)
	return out, nil
}

func (r *fakeRegistry) GetStore(_ context.Context, id uuid.UUID) (*models.Store, error) {
	for i := range r.stores {
		if r.stores[i].ID == id {
			store := r.stores[i]
			return &store, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrStoreNotFound, id)
}

type memoryMetrics struct {
	mu   sync.Mutex
	rows map[string]models.StoreMetric
}

func newMemoryMetrics() *memoryMetrics {
	return &memoryMetrics{rows: make(map[string]models.StoreMetric)}
}

func (m *memoryMetrics) UpsertDailyMetric(_ context.Context, metric *models.StoreMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[metric.StoreID.String()+"|"+metric.DateKey] = *metric
	return nil
}

func (m *memoryMetrics) FindByStoreAndRange(_ context.Context, storeID uuid.UUID, dr calendar.DateRange) ([]models.StoreMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StoreMetric
	for _, row := range m.rows {
		if row.StoreID == storeID && row.DateKey >= dr.StartKey() && row.DateKey <= dr.EndKey() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out, nil
}

func (m *memoryMetrics) AggregateAcrossStores(_ context.Context, dr calendar.DateRange) ([]models.StoreMetricTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStore := make(map[uuid.UUID]*models.StoreMetricTotals)
	for _, row := range m.rows {
		if row.DateKey < dr.StartKey() || row.DateKey > dr.EndKey() {
			continue
		}
		t, ok := byStore[row.StoreID]
		if !ok {
			t = &models.StoreMetricTotals{StoreID: row.StoreID}
			byStore[row.StoreID] = t
		}
		t.FacebookSpend = t.FacebookSpend.Add(row.FacebookSpend)
		t.GoogleSpend = t.GoogleSpend.Add(row.GoogleSpend)
		t.SoldOrders += row.SoldOrders
		t.OrderValue = t.OrderValue.Add(row.OrderValue)
		t.SoldItems += row.SoldItems
		t.Days++
	}
	var out []models.StoreMetricTotals
	for _, t := range byStore {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memoryMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memoryMetrics) get(storeID uuid.UUID, dateKey string) (models.StoreMetric, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[storeID.String()+"|"+dateKey]
	return row, ok
}

var errWriteFailed = errors.New("failed to upsert: connection reset")

// memoryProducts stages a replace and commits it only when every row is written.
type memoryProducts struct {
	rows map[uuid.UUID]map[string]models.ProductMetric
	// failAt makes the nth row of the next replace fail; zero never fails.
	failAt int
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{rows: make(map[uuid.UUID]map[string]models.ProductMetric)}
}

func (m *memoryProducts) ReplaceStoreProducts(_ context.Context, storeID uuid.UUID, rows []models.ProductMetric) (int64, error) {
	staged := make(map[string]models.ProductMetric, len(rows))
	for i, row := range rows {
		if m.failAt == i+1 {
			m.failAt = 0
			return 0, errWriteFailed
		}
		row.StoreID = storeID
		staged[row.ProductID] = row
	}
	removed := int64(len(m.rows[storeID]))
	m.rows[storeID] = staged
	return removed, nil
}

func (m *memoryProducts) ListByStore(_ context.Context, storeID uuid.UUID, _ int) ([]models.ProductMetric, error) {
	var out []models.ProductMetric
	for _, row := range m.rows[storeID] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

type memoryTraffic struct {
	rows   []models.TrafficMetric
	failAt int
}

func (m *memoryTraffic) ReplaceStoreTraffic(_ context.Context, storeID uuid.UUID, since string, rows []models.TrafficMetric) (int64, error) {
	var kept []models.TrafficMetric
	var removed int64
	for _, row := range m.rows {
		if row.StoreID == storeID && row.StartDate >= since {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	for i, row := range rows {
		if m.failAt == i+1 {
			m.failAt = 0
			return 0, errWriteFailed
		}
		row.StoreID = storeID
		kept = upsertTraffic(kept, row)
	}
	m.rows = kept
	return removed, nil
}

func upsertTraffic(rows []models.TrafficMetric, metric models.TrafficMetric) []models.TrafficMetric {
	for i, row := range rows {
		if row.StoreID == metric.StoreID && row.LandingPageType == metric.LandingPageType &&
			row.LandingPagePath == metric.LandingPagePath && row.StartDate == metric.StartDate && row.EndDate == metric.EndDate {
			rows[i] = metric
			return rows
		}
	}
	return append(rows, metric)
}

func (m *memoryTraffic) ListLatestByStore(_ context.Context, storeID uuid.UUID, _ int) ([]models.TrafficMetric, error) {
	var out []models.TrafficMetric
	for _, row := range m.rows {
		if row.StoreID == storeID {
			out = append(out, row)
		}
	}
	return out, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.SyncAuditLog
	err     error
}

func (a *recordingAudit) Record(_ context.Context, entry *models.SyncAuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *recordingAudit) ListByStore(_ context.Context, storeID uuid.UUID, _ int) ([]models.SyncAuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.SyncAuditLog
	for _, e := range a.entries {
		if e.StoreID == storeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.StoreName+":"+e.Action)
	}
	return out
}

// fakeCommerce serves canned data per store; failing stores return failErr.
type fakeCommerce struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]providers.DailyOrderAggregate
	products    map[uuid.UUID][]providers.ProductSales
	traffic     map[uuid.UUID][]providers.TrafficPage
	failing     map[uuid.UUID]bool
	failErr     error
	dailyFrom   []time.Time
	windows     []*calendar.DateRange
	trafficArgs [][2]int
}

func newFakeCommerce() *fakeCommerce {
	return &fakeCommerce{
		orders:   make(map[uuid.UUID]providers.DailyOrderAggregate),
		products: make(map[uuid.UUID][]providers.ProductSales),
		traffic:  make(map[uuid.UUID][]providers.TrafficPage),
		failing:  make(map[uuid.UUID]bool),
		failErr:  errors.New("failed to fetch orders page 2: upstream returned 500"),
	}
}

func (f *fakeCommerce) GetPlatform() string { return "fake" }

func (f *fakeCommerce) FetchDailyOrders(_ context.Context, store *models.Store, from, to time.Time) ([]providers.DailyOrderAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dailyFrom = append(f.dailyFrom, from)
	if f.failing[store.ID] {
		return nil, f.failErr
	}
	var out []providers.DailyOrderAggregate
	for _, key := range calendar.DaysInRange(from, to) {
		agg, ok := f.orders[store.ID]
		if !ok {
			agg = providers.DailyOrderAggregate{OrderValue: decimal.Zero}
		}
		agg.Date = key
		out = append(out, agg)
	}
	return out, nil
}

func (f *fakeCommerce) FetchProductSales(_ context.Context, store *models.Store, window *calendar.DateRange) ([]providers.ProductSales, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window)
	if f.failing[store.ID] {
		return nil, f.failErr
	}
	return f.products[store.ID], nil
}

func (f *fakeCommerce) FetchTrafficAnalytics(_ context.Context, store *models.Store, daysBack, limit int) ([]providers.TrafficPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trafficArgs = append(f.trafficArgs, [2]int{daysBack, limit})
	if f.failing[store.ID] {
		return nil, f.failErr
	}
	return f.traffic[store.ID], nil
}

type fakeSpend struct {
	platform string
	spend    providers.Spend
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *fakeSpend) GetPlatform() string { return f.platform }

func (f *fakeSpend) FetchSpend(context.Context, *models.Store, time.Time, time.Time) (providers.Spend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.spend, f.err
}

type recordingPublisher struct {
	completed []events.SyncCompletedEvent
	failed    []events.SyncFailedEvent
}

func (p *recordingPublisher) PublishSyncCompleted(event *events.SyncCompletedEvent) error {
	p.completed = append(p.completed, *event)
	return nil
}

func (p *recordingPublisher) PublishSyncFailed(event *events.SyncFailedEvent) error {
	p.failed = append(p.failed, *event)
	return nil
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, storeID string) error {
	c.invalidated = append(c.invalidated, storeID)
	return nil
}

type recordingReporter struct {
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) CaptureError(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
