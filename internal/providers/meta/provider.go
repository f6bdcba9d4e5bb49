// Package meta implements the social ads spend provider on the Meta Graph API.
package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	metadomain "github.com/niaga-platform/service-storemetrics/internal/domain/meta"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const (
	PlatformName = "facebook"

	DefaultGraphURL   = "https://graph.facebook.com"
	DefaultAPIVersion = "v19.0"
)

// Provider fetches ad account spend from the insights endpoint.
// Rate limited calls are retried; any other failure degrades the spend to zero.
type Provider struct {
	graphURL    string
	apiVersion  string
	accessToken string
	appSecret   string
	httpClient  *http.Client
	retryPolicy *metadomain.RetryPolicy
	logger      *zap.Logger
}

var _ providers.AdSpendProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the Meta provider.
type ProviderConfig struct {
	GraphURL       string
	APIVersion     string
	AccessToken    string // used when the store has no token of its own
	AppSecret      string
	RequestTimeout time.Duration
	RetryPolicy    *metadomain.RetryPolicy
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewProvider creates a new Meta ad spend provider.
func NewProvider(cfg *ProviderConfig) *Provider {
	if cfg == nil {
		cfg = &ProviderConfig{}
	}

	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	retryPolicy := cfg.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = metadomain.DefaultRetryPolicy()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		graphURL:    graphURL,
		apiVersion:  apiVersion,
		accessToken: cfg.AccessToken,
		appSecret:   cfg.AppSecret,
		httpClient:  httpClient,
		retryPolicy: retryPolicy,
		logger:      logger,
	}
}

// GetPlatform returns the platform identifier.
func (p *Provider) GetPlatform() string {
	return PlatformName
}

type insightsResponse struct {
	Data []struct {
		Spend     string `json:"spend"`
		DateStart string `json:"date_start"`
		DateStop  string `json:"date_stop"`
	} `json:"data"`
}

// FetchSpend returns the account spend for the calendar days of from and to.
//
// A store without an ad account has a confirmed zero spend. Exhausted retries,
// terminal API errors and unreadable payloads return a degraded zero spend and
// a nil error. Only context cancellation is returned as an error.
func (p *Provider) FetchSpend(ctx context.Context, store *models.Store, from, to time.Time) (providers.Spend, error) {
	accountID := metadomain.NormalizeAccountID(store.FacebookAccountID)
	if accountID == "" {
		return providers.ZeroSpend(), nil
	}

	token := store.FacebookAccessToken
	if token == "" {
		token = p.accessToken
	}
	if token == "" {
		p.logger.Warn("facebook spend unavailable: no access token",
			zap.String("store_id", store.ID.String()),
			zap.String("account_id", accountID),
		)
		return providers.DegradedSpend(), nil
	}

	since, until := calendar.DateKey(from), calendar.DateKey(to)
	endpoint := p.insightsURL(accountID, token, since, until)

	var resp insightsResponse
	executor := metadomain.NewExecutor(p.retryPolicy)
	result := executor.Execute(ctx, func() error {
		resp = insightsResponse{}
		return p.doRequest(ctx, endpoint, token, &resp)
	})

	if result.LastError != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return providers.Spend{}, ctxErr
		}
		p.logger.Warn("facebook spend degraded to zero",
			zap.String("store_id", store.ID.String()),
			zap.String("store_name", store.Name),
			zap.String("account_id", accountID),
			zap.String("since", since),
			zap.String("until", until),
			zap.Int("attempts", result.Attempts),
			zap.Duration("duration", result.Duration),
			zap.Error(result.LastError),
		)
		return providers.DegradedSpend(), nil
	}

	total := decimal.Zero
	for _, row := range resp.Data {
		if strings.TrimSpace(row.Spend) == "" {
			continue
		}
		amount, err := decimal.NewFromString(row.Spend)
		if err != nil {
			p.logger.Warn("facebook spend degraded to zero: unreadable amount",
				zap.String("store_id", store.ID.String()),
				zap.String("spend", row.Spend),
			)
			return providers.DegradedSpend(), nil
		}
		total = total.Add(amount)
	}

	if result.Retries() > 0 {
		p.logger.Info("facebook spend fetched after rate limit retries",
			zap.String("store_id", store.ID.String()),
			zap.Int("attempts", result.Attempts),
		)
	}

	return providers.Spend{Amount: total}, nil
}

func (p *Provider) insightsURL(accountID, token, since, until string) string {
	timeRange, _ := json.Marshal(map[string]string{"since": since, "until": until})

	q := url.Values{}
	q.Set("fields", "spend")
	q.Set("time_range", string(timeRange))
	if proof := metadomain.AppSecretProof(p.appSecret, token); proof != "" {
		q.Set("appsecret_proof", proof)
	}

	return fmt.Sprintf("%s/%s/%s/insights?%s", p.graphURL, p.apiVersion, accountID, q.Encode())
}

// doRequest performs a single HTTP request without retry.
// Errors never carry the request URL or the token.
func (p *Provider) doRequest(ctx context.Context, endpoint, token string, result interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	startTime := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("request %s %s failed: %w", urlErr.Op, httpReq.URL.Path, urlErr.Err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	p.logger.Debug("Graph API request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(startTime)),
	)

	var envelope metadomain.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		if envelope.Error.IsRetryable() {
			p.logger.Warn("Graph API rate limit hit",
				zap.String("fbtrace_id", envelope.Error.FBTraceID),
				zap.Duration("retry_in", p.retryPolicy.Delay()),
			)
		}
		return envelope.Error
	}

	if resp.StatusCode >= 400 {
		return metadomain.NewAPIError(metadomain.CodeUnknown, fmt.Sprintf("HTTP error: %d", resp.StatusCode), resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
