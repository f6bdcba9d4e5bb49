package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	metadomain "github.com/niaga-platform/service-storemetrics/internal/domain/meta"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

const rateLimitBody = `{"error":{"message":"User request limit reached","type":"OAuthException","code":17,"fbtrace_id":"AbC"}}`

func newTestProvider(t *testing.T, handler http.HandlerFunc, cfg ProviderConfig) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.GraphURL = srv.URL
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = metadomain.DefaultRetryPolicy().WithDelay(time.Millisecond)
	}
	return NewProvider(&cfg)
}

func testStore() *models.Store {
	return &models.Store{ID: uuid.New(), Name: "Acme", FacebookAccountID: "123456"}
}

var testDay = time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC) // 2025-02-01 IST

func TestFetchSpend_Success(t *testing.T) {
	var got *http.Request
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"data":[{"spend":"123.45","date_start":"2025-02-01","date_stop":"2025-02-01"}]}`))
	}, ProviderConfig{AccessToken: "global-token", AppSecret: "s3cret"})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.False(t, spend.Degraded)
	assert.True(t, decimal.RequireFromString("123.45").Equal(spend.Amount))

	require.NotNil(t, got)
	assert.Equal(t, "/v19.0/act_123456/insights", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "spend", q.Get("fields"))
	assert.Equal(t, "Bearer global-token", got.Header.Get("Authorization"))
	assert.Empty(t, q.Get("access_token"))
	assert.Equal(t, metadomain.AppSecretProof("s3cret", "global-token"), q.Get("appsecret_proof"))

	var tr map[string]string
	require.NoError(t, json.Unmarshal([]byte(q.Get("time_range")), &tr))
	assert.Equal(t, map[string]string{"since": "2025-02-01", "until": "2025-02-01"}, tr)
}

func TestFetchSpend_StoreTokenOverridesGlobal(t *testing.T) {
	var token atomic.Value
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		token.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, ProviderConfig{AccessToken: "global-token"})

	store := testStore()
	store.FacebookAccessToken = "store-token"

	spend, err := p.FetchSpend(context.Background(), store, testDay, testDay)
	require.NoError(t, err)
	assert.True(t, spend.Amount.IsZero())
	assert.False(t, spend.Degraded)
	assert.Equal(t, "Bearer store-token", token.Load())
}

func TestFetchSpend_RecoversAfterThreeRateLimits(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(rateLimitBody))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"spend":"10"}]}`))
	}, ProviderConfig{AccessToken: "t"})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.False(t, spend.Degraded)
	assert.True(t, decimal.NewFromInt(10).Equal(spend.Amount))
}

func TestFetchSpend_DegradesAfterFourRateLimits(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(rateLimitBody))
	}, ProviderConfig{AccessToken: "t"})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "no fifth attempt")
	assert.True(t, spend.Degraded)
	assert.True(t, spend.Amount.IsZero())
}

func TestFetchSpend_TerminalErrorNotRetried(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}, ProviderConfig{AccessToken: "t"})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, spend.Degraded)
}

func TestFetchSpend_NoAccountIsConfirmedZero(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, ProviderConfig{AccessToken: "t"})

	store := testStore()
	store.FacebookAccountID = ""

	spend, err := p.FetchSpend(context.Background(), store, testDay, testDay)
	require.NoError(t, err)
	assert.False(t, spend.Degraded)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchSpend_NoTokenIsDegraded(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	}, ProviderConfig{})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.True(t, spend.Degraded)
}

func TestFetchSpend_CancelledContextIsReturned(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(rateLimitBody))
	}, ProviderConfig{
		AccessToken: "t",
		RetryPolicy: metadomain.DefaultRetryPolicy().WithDelay(time.Hour),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.FetchSpend(ctx, testStore(), testDay, testDay)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInsightsURL_RangeUsesCalendarDays(t *testing.T) {
	p := NewProvider(&ProviderConfig{GraphURL: "https://graph.example/"})
	from := time.Date(2025, 1, 31, 18, 30, 0, 0, time.UTC)
	to := time.Date(2025, 2, 2, 18, 29, 0, 0, time.UTC)

	raw := p.insightsURL("act_1", "tok", calendar.DateKey(from), calendar.DateKey(to))
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "graph.example", u.Host)
	assert.Equal(t, `{"since":"2025-02-01","until":"2025-02-02"}`, u.Query().Get("time_range"))
	assert.Empty(t, u.Query().Get("appsecret_proof"))
}

func TestFetchSpend_TransportErrorDoesNotLogCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	p := NewProvider(&ProviderConfig{
		GraphURL:    srv.URL,
		AccessToken: "SECRET-TOKEN-123",
		AppSecret:   "s3cret",
		RetryPolicy: metadomain.DefaultRetryPolicy().WithDelay(time.Millisecond),
		Logger:      zap.New(core),
	})

	spend, err := p.FetchSpend(context.Background(), testStore(), testDay, testDay)
	require.NoError(t, err)
	assert.True(t, spend.Degraded)

	entries := logs.FilterMessage("facebook spend degraded to zero").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["error"]
	require.NotNil(t, logged)
	assert.Contains(t, logged, "/v19.0/act_123456/insights")
	assert.NotContains(t, logged, "SECRET-TOKEN-123")
	assert.NotContains(t, logged, metadomain.AppSecretProof("s3cret", "SECRET-TOKEN-123"))
}
