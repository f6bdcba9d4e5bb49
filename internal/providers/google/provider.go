// Package google holds the search ads spend provider.
package google

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const PlatformName = "google"

// Provider reports Google Ads spend. It is a placeholder that always reports
// a confirmed zero until the Ads API integration lands.
type Provider struct {
	developerToken string
	logger         *zap.Logger
}

var _ providers.AdSpendProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the Google provider.
type ProviderConfig struct {
	DeveloperToken string
	Logger         *zap.Logger
}

// NewProvider creates a new Google ad spend provider.
func NewProvider(cfg *ProviderConfig) *Provider {
	if cfg == nil {
		cfg = &ProviderConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{developerToken: cfg.DeveloperToken, logger: logger}
}

// GetPlatform returns the platform identifier.
func (p *Provider) GetPlatform() string {
	return PlatformName
}

// FetchSpend returns zero spend.
// TODO: query customers/{id}/googleAds:searchStream for metrics.cost_micros once developer tokens are issued.
func (p *Provider) FetchSpend(ctx context.Context, store *models.Store, from, to time.Time) (providers.Spend, error) {
	if err := ctx.Err(); err != nil {
		return providers.Spend{}, err
	}

	p.logger.Debug("google spend not implemented, reporting zero",
		zap.String("store_id", store.ID.String()),
		zap.String("customer_id", store.GoogleAdsCustomerID),
		zap.String("since", calendar.DateKey(from)),
		zap.String("until", calendar.DateKey(to)),
		zap.Bool("developer_token_set", p.developerToken != ""),
	)
	return providers.ZeroSpend(), nil
}
