package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	shopifydomain "github.com/niaga-platform/service-storemetrics/internal/domain/shopify"
)

// Client is the Shopify Admin GraphQL client with per-shop rate limiting.
// One client serves every storefront; credentials travel with each request.
type Client struct {
	apiVersion string
	httpClient *http.Client
	limiter    *shopifydomain.RateLimiter
	logger     *zap.Logger
}

// ClientConfig holds configuration for the Shopify client.
type ClientConfig struct {
	APIVersion     string
	RequestTimeout time.Duration
	RateLimit      *shopifydomain.RateLimitConfig
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewClient creates a new Shopify Admin API client.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = shopifydomain.DefaultAPIVersion
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	rateLimit := shopifydomain.DefaultRateLimitConfig()
	if cfg.RateLimit != nil {
		rateLimit = *cfg.RateLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiVersion: apiVersion,
		httpClient: httpClient,
		limiter:    shopifydomain.NewRateLimiter(rateLimit),
		logger:     logger,
	}
}

// Request is a single GraphQL operation.
type Request struct {
	Operation string
	Query     string
	Variables map[string]interface{}
}

type graphQLResponse struct {
	Data   json.RawMessage              `json:"data"`
	Errors []shopifydomain.GraphQLError `json:"errors"`
}

// Do performs one GraphQL request and decodes its data into result.
// Calls are never retried here: a failed page aborts the caller's walk.
func (c *Client) Do(ctx context.Context, creds *shopifydomain.Credentials, req *Request, result interface{}) error {
	if err := c.limiter.Wait(ctx, creds.Shop()); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":     req.Query,
		"variables": req.Variables,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.Endpoint(c.apiVersion), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", creds.AccessToken())

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Shopify API request completed",
		zap.String("shop", creds.Shop()),
		zap.String("operation", req.Operation),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", truncateString(string(respBody), 500)),
	)

	if resp.StatusCode >= 400 {
		return &shopifydomain.QueryError{
			StatusCode: resp.StatusCode,
			Body:       truncateString(string(respBody), 200),
		}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return fmt.Errorf("%w: %v", shopifydomain.ErrMalformedPayload, err)
	}

	if len(gqlResp.Errors) > 0 {
		c.logger.Warn("Shopify GraphQL errors",
			zap.String("shop", creds.Shop()),
			zap.String("operation", req.Operation),
			zap.Int("error_count", len(gqlResp.Errors)),
			zap.String("first_error", gqlResp.Errors[0].Message),
		)
		return &shopifydomain.QueryError{
			StatusCode: resp.StatusCode,
			Errors:     gqlResp.Errors,
		}
	}

	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return fmt.Errorf("%w: empty data", shopifydomain.ErrMalformedPayload)
	}

	if result != nil {
		if err := json.Unmarshal(gqlResp.Data, result); err != nil {
			return fmt.Errorf("%w: %v", shopifydomain.ErrMalformedPayload, err)
		}
	}

	return nil
}

// truncateString truncates a string to the specified length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
