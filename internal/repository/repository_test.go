package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// sqlCapture records every statement gorm builds.
type sqlCapture struct {
	mu         sync.Mutex
	statements []string
}

func (c *sqlCapture) LogMode(gormlogger.LogLevel) gormlogger.Interface { return c }
func (c *sqlCapture) Info(context.Context, string, ...interface{})     {}
func (c *sqlCapture) Warn(context.Context, string, ...interface{})     {}
func (c *sqlCapture) Error(context.Context, string, ...interface{})    {}
func (c *sqlCapture) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	c.mu.Lock()
	c.statements = append(c.statements, sql)
	c.mu.Unlock()
}

func (c *sqlCapture) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

func (c *sqlCapture) last(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.statements)
	return c.statements[len(c.statements)-1]
}

func newDryRunDB(t *testing.T) (*gorm.DB, *sqlCapture) {
	t.Helper()
	capture := &sqlCapture{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "host=localhost user=test dbname=test sslmode=disable",
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 capture,
	})
	require.NoError(t, err)
	return db, capture
}

func testRange(t *testing.T) calendar.DateRange {
	t.Helper()
	from, err := calendar.ParseDateKey("2025-02-01")
	require.NoError(t, err)
	to, err := calendar.ParseDateKey("2025-02-07")
	require.NoError(t, err)
	return calendar.DateRange{From: from, To: to}
}

func TestMetricRepository_UpsertIsKeyedOnStoreAndDate(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewMetricRepository(db)

	err := repo.UpsertDailyMetric(context.Background(), &models.StoreMetric{
		StoreID:       uuid.New(),
		DateKey:       "2025-02-01",
		FacebookSpend: decimal.NewFromInt(12),
		SoldOrders:    3,
		OrderValue:    decimal.RequireFromString("99.90"),
		SoldItems:     5,
		SpendDegraded: true,
	})
	require.NoError(t, err)

	sql := capture.last(t)
	assert.Contains(t, sql, `INSERT INTO "store_metrics"`)
	assert.Contains(t, sql, `ON CONFLICT ("store_id","date_key") DO UPDATE SET`)
	for _, col := range []string{"facebook_spend", "google_spend", "sold_orders", "order_value", "sold_items", "spend_degraded"} {
		assert.Contains(t, sql, `"`+col+`"="excluded"."`+col+`"`)
	}
	assert.NotContains(t, sql, `"created_at"="excluded"`)
}

func TestMetricRepository_FindByStoreAndRange(t *testing.T) {
	db, capture := newDryRunDB(t)
	storeID := uuid.New()

	_, err := NewMetricRepository(db).FindByStoreAndRange(context.Background(), storeID, testRange(t))
	require.NoError(t, err)

	sql := capture.last(t)
	assert.Contains(t, sql, `FROM "store_metrics"`)
	assert.Contains(t, sql, storeID.String())
	assert.Contains(t, sql, "date_key BETWEEN '2025-02-01' AND '2025-02-07'")
	assert.Contains(t, sql, "ORDER BY date_key ASC")
}

func TestMetricRepository_AggregateAcrossStores(t *testing.T) {
	db, capture := newDryRunDB(t)

	_, err := NewMetricRepository(db).AggregateAcrossStores(context.Background(), testRange(t))
	require.NoError(t, err)

	sql := capture.last(t)
	assert.Contains(t, sql, "SUM(facebook_spend)")
	assert.Contains(t, sql, "SUM(order_value)")
	assert.Contains(t, sql, "GROUP BY")
	assert.Contains(t, sql, "date_key BETWEEN '2025-02-01' AND '2025-02-07'")
}

func TestProductMetricRepository_ResetAndUpsert(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewProductMetricRepository(db)
	storeID := uuid.New()

	_, err := repo.ResetStoreProducts(context.Background(), storeID)
	require.NoError(t, err)
	reset := capture.last(t)
	assert.Contains(t, reset, `DELETE FROM "product_metrics"`)
	assert.Contains(t, reset, storeID.String())

	err = repo.UpsertProductMetric(context.Background(), &models.ProductMetric{
		StoreID:      storeID,
		ProductID:    "42",
		ProductName:  "Tee",
		QuantitySold: 2,
		Revenue:      decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Contains(t, capture.last(t), `ON CONFLICT ("store_id","product_id") DO UPDATE SET`)
}

func TestTrafficMetricRepository_ResetScopedToWindow(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewTrafficMetricRepository(db)
	storeID := uuid.New()

	_, err := repo.ResetStoreTraffic(context.Background(), storeID, "2025-02-01")
	require.NoError(t, err)

	sql := capture.last(t)
	assert.Contains(t, sql, `DELETE FROM "traffic_metrics"`)
	assert.Contains(t, sql, "start_date >= '2025-02-01'")

	err = repo.UpsertTrafficMetric(context.Background(), &models.TrafficMetric{
		StoreID:         storeID,
		LandingPageType: "Homepage",
		LandingPagePath: "/",
		StartDate:       "2025-02-01",
		EndDate:         "2025-02-07",
		Sessions:        10,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(capture.last(t),
		`ON CONFLICT ("store_id","landing_page_type","landing_page_path","start_date","end_date")`))
}

func TestReplaceStoreProducts_DeletesThenUpserts(t *testing.T) {
	db, capture := newDryRunDB(t)
	storeID := uuid.New()

	_, err := replaceStoreProducts(context.Background(), NewProductMetricRepository(db), storeID, []models.ProductMetric{
		{ProductID: "1", QuantitySold: 1, Revenue: decimal.NewFromInt(10)},
		{ProductID: "2", QuantitySold: 2, Revenue: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)

	statements := capture.all()
	require.Len(t, statements, 3)
	assert.Contains(t, statements[0], `DELETE FROM "product_metrics"`)
	for _, sql := range statements[1:] {
		assert.Contains(t, sql, `INSERT INTO "product_metrics"`)
		assert.Contains(t, sql, storeID.String())
	}
}

func TestReplaceStoreTraffic_DeletesThenUpserts(t *testing.T) {
	db, capture := newDryRunDB(t)
	storeID := uuid.New()

	_, err := replaceStoreTraffic(context.Background(), NewTrafficMetricRepository(db), storeID, "2025-02-01", []models.TrafficMetric{
		{LandingPageType: "Homepage", LandingPagePath: "/", StartDate: "2025-02-01", EndDate: "2025-02-07"},
	})
	require.NoError(t, err)

	statements := capture.all()
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], "start_date >= '2025-02-01'")
	assert.Contains(t, statements[1], `INSERT INTO "traffic_metrics"`)
}

func TestAuditRepository_Record(t *testing.T) {
	db, capture := newDryRunDB(t)
	msg := "boom"

	err := NewAuditRepository(db).Record(context.Background(), &models.SyncAuditLog{
		RunID:   "run-1",
		StoreID: uuid.New(),
		Action:  "DAILY_METRICS_FAILED",
		Status:  models.AuditStatusFailure,
		Error:   &msg,
	})
	require.NoError(t, err)

	sql := capture.last(t)
	assert.Contains(t, sql, `INSERT INTO "sync_audit_logs"`)
	assert.Contains(t, sql, "DAILY_METRICS_FAILED")
}

func TestStoreRepository(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewStoreRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.Store{Name: "Acme"}))
	assert.Contains(t, capture.last(t), `INSERT INTO "stores"`)

	_, err := repo.ListStores(context.Background())
	require.NoError(t, err)
	assert.Contains(t, capture.last(t), `ORDER BY created_at ASC`)
}
