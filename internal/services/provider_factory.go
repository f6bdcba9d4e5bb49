package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/config"
	metadomain "github.com/niaga-platform/service-storemetrics/internal/domain/meta"
	shopifydomain "github.com/niaga-platform/service-storemetrics/internal/domain/shopify"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
	"github.com/niaga-platform/service-storemetrics/internal/providers/google"
	"github.com/niaga-platform/service-storemetrics/internal/providers/meta"
	"github.com/niaga-platform/service-storemetrics/internal/providers/shopify"
)

// ProviderFactoryService creates upstream providers with proper configuration.
type ProviderFactoryService struct {
	shopifyConfig  config.ShopifyConfig
	facebookConfig config.FacebookConfig
	googleConfig   config.GoogleConfig
	logger         *zap.Logger
}

// ProviderFactoryConfig holds configuration for the factory service.
type ProviderFactoryConfig struct {
	Shopify  config.ShopifyConfig
	Facebook config.FacebookConfig
	Google   config.GoogleConfig
}

// NewProviderFactoryService creates a new provider factory service.
func NewProviderFactoryService(cfg *ProviderFactoryConfig, logger *zap.Logger) *ProviderFactoryService {
	if cfg == nil {
		cfg = &ProviderFactoryConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderFactoryService{
		shopifyConfig:  cfg.Shopify,
		facebookConfig: cfg.Facebook,
		googleConfig:   cfg.Google,
		logger:         logger,
	}
}

// CreateShopifyProvider creates the commerce provider.
func (f *ProviderFactoryService) CreateShopifyProvider() *shopify.Provider {
	rateLimit := shopifydomain.DefaultRateLimitConfig()
	if f.shopifyConfig.RPS > 0 {
		rateLimit.RPS = f.shopifyConfig.RPS
	}
	if f.shopifyConfig.Burst > 0 {
		rateLimit.Burst = f.shopifyConfig.Burst
	}

	return shopify.NewProvider(&shopify.ClientConfig{
		APIVersion:     f.shopifyConfig.APIVersion,
		RequestTimeout: f.shopifyConfig.RequestTimeout,
		RateLimit:      &rateLimit,
		Logger:         f.logger.Named("shopify"),
	})
}

// CreateMetaProvider creates the Facebook ad spend provider.
func (f *ProviderFactoryService) CreateMetaProvider() *meta.Provider {
	policy := metadomain.DefaultRetryPolicy()
	if f.facebookConfig.MaxRetries > 0 {
		policy = policy.WithMaxRetries(f.facebookConfig.MaxRetries)
	}
	if f.facebookConfig.RetryDelay > 0 {
		policy = policy.WithDelay(f.facebookConfig.RetryDelay)
	}

	return meta.NewProvider(&meta.ProviderConfig{
		GraphURL:       f.facebookConfig.GraphURL,
		APIVersion:     f.facebookConfig.APIVersion,
		AccessToken:    f.facebookConfig.AccessToken,
		AppSecret:      f.facebookConfig.AppSecret,
		RequestTimeout: f.facebookConfig.RequestTimeout,
		RetryPolicy:    policy,
		Logger:         f.logger.Named("meta"),
	})
}

// CreateGoogleProvider creates the Google ad spend provider.
func (f *ProviderFactoryService) CreateGoogleProvider() *google.Provider {
	return google.NewProvider(&google.ProviderConfig{
		DeveloperToken: f.googleConfig.DeveloperToken,
		Logger:         f.logger.Named("google"),
	})
}

// CreateAdSpendProvider creates the ad spend provider for a platform name.
func (f *ProviderFactoryService) CreateAdSpendProvider(platform string) (providers.AdSpendProvider, error) {
	switch platform {
	case meta.PlatformName:
		return f.CreateMetaProvider(), nil
	case google.PlatformName:
		return f.CreateGoogleProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported ad spend platform: %s", platform)
	}
}
