package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// StoreClient reads the storefront registry from service-store
type StoreClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStoreClient creates a new StoreClient
func NewStoreClient(baseURL string, logger *zap.Logger) *StoreClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Store represents a storefront with its integration credentials as served by service-store
type Store struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	ShopifyStoreURL     string `json:"shopify_store_url"`
	ShopifyToken        string `json:"shopify_token"`
	FacebookAccountID   string `json:"fb_account_id"`
	FacebookAccessToken string `json:"fb_access_token"`
	GoogleAdsCustomerID string `json:"google_ads_customer_id"`
	IsActive            *bool  `json:"is_active"`
}

func (s *Store) toModel() (*models.Store, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid store id %q: %w", s.ID, err)
	}
	active := s.IsActive == nil || *s.IsActive
	return &models.Store{
		ID:                  id,
		Name:                s.Name,
		ShopifyStoreURL:     s.ShopifyStoreURL,
		ShopifyToken:        s.ShopifyToken,
		FacebookAccountID:   s.FacebookAccountID,
		FacebookAccessToken: s.FacebookAccessToken,
		GoogleAdsCustomerID: s.GoogleAdsCustomerID,
		IsActive:            active,
	}, nil
}

// ListStores fetches every active storefront
func (c *StoreClient) ListStores(ctx context.Context) ([]models.Store, error) {
	var payload []Store
	if err := c.get(ctx, "/api/v1/internal/stores", &payload); err != nil {
		return nil, err
	}

	stores := make([]models.Store, 0, len(payload))
	for i := range payload {
		store, err := payload[i].toModel()
		if err != nil {
			c.logger.Warn("Skipping store with invalid id", zap.String("id", payload[i].ID), zap.Error(err))
			continue
		}
		if !store.IsActive {
			continue
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

// GetStore fetches a storefront by ID
func (c *StoreClient) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var payload Store
	if err := c.get(ctx, "/api/v1/internal/stores/"+id.String(), &payload); err != nil {
		return nil, err
	}
	return payload.toModel()
}

func (c *StoreClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", models.ErrStoreNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// service-store returns {success, message, data}
	var result struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to decode store data: %w", err)
	}
	return nil
}
