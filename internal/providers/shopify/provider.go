// Package shopify implements the commerce provider on the Shopify Admin GraphQL API.
package shopify

import (
	"fmt"

	shopifydomain "github.com/niaga-platform/service-storemetrics/internal/domain/shopify"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const (
	PlatformName = "shopify"
)

// Provider implements the CommerceProvider interface for Shopify.
type Provider struct {
	*OrderProvider
	*ProductProvider
	*AnalyticsProvider

	client *Client
}

var _ providers.CommerceProvider = (*Provider)(nil)

// NewProvider creates a new Shopify commerce provider.
func NewProvider(cfg *ClientConfig) *Provider {
	client := NewClient(cfg)
	return &Provider{
		OrderProvider:     NewOrderProvider(client),
		ProductProvider:   NewProductProvider(client),
		AnalyticsProvider: NewAnalyticsProvider(client),
		client:            client,
	}
}

// GetPlatform returns the platform identifier.
func (p *Provider) GetPlatform() string {
	return PlatformName
}

func credentialsFor(store *models.Store) (*shopifydomain.Credentials, error) {
	creds, err := shopifydomain.NewCredentials(store.ShopifyStoreURL, store.ShopifyToken)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", store.ID, err)
	}
	return creds, nil
}
