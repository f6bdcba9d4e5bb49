package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the store metrics service
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Shopify   ShopifyConfig   `mapstructure:"shopify"`
	Facebook  FacebookConfig  `mapstructure:"facebook"`
	Google    GoogleConfig    `mapstructure:"google"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Services  ServicesConfig  `mapstructure:"services"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// ShopifyConfig holds Shopify Admin API configuration
type ShopifyConfig struct {
	APIVersion     string        `mapstructure:"api_version"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RPS            float64       `mapstructure:"rps"`
	Burst          int           `mapstructure:"burst"`
}

// FacebookConfig holds Meta Graph API configuration
type FacebookConfig struct {
	GraphURL       string        `mapstructure:"graph_url"`
	APIVersion     string        `mapstructure:"api_version"`
	AccessToken    string        `mapstructure:"access_token"`
	AppSecret      string        `mapstructure:"app_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// GoogleConfig holds Google Ads configuration
type GoogleConfig struct {
	DeveloperToken string `mapstructure:"developer_token"`
}

// SchedulerConfig holds the sync schedule configuration
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Minutes east of UTC for schedule times; defaults to the +05:30 reporting calendar.
	OffsetMinutes int `mapstructure:"offset_minutes"`
}

// ServicesConfig holds URLs for other microservices
type ServicesConfig struct {
	StoreURL string `mapstructure:"store_url"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Automatically load environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("") // No prefix, read exact variable names

	// Bind specific environment variables
	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("app.env", "APP_ENV")
	_ = v.BindEnv("app.port", "APP_PORT")

	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.ssl_mode", "DB_SSLMODE")

	_ = v.BindEnv("nats.url", "NATS_URL")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.cache_ttl", "METRICS_CACHE_TTL")

	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = v.BindEnv("sentry.environment", "APP_ENV")
	_ = v.BindEnv("sentry.release", "APP_VERSION")

	// Shopify
	_ = v.BindEnv("shopify.api_version", "SHOPIFY_API_VERSION")
	_ = v.BindEnv("shopify.request_timeout", "SHOPIFY_REQUEST_TIMEOUT")
	_ = v.BindEnv("shopify.rps", "SHOPIFY_RPS")
	_ = v.BindEnv("shopify.burst", "SHOPIFY_BURST")

	// Facebook
	_ = v.BindEnv("facebook.graph_url", "FB_GRAPH_URL")
	_ = v.BindEnv("facebook.api_version", "FB_API_VERSION")
	_ = v.BindEnv("facebook.access_token", "FB_ACCESS_TOKEN")
	_ = v.BindEnv("facebook.app_secret", "FB_APP_SECRET")
	_ = v.BindEnv("facebook.request_timeout", "FB_REQUEST_TIMEOUT")
	_ = v.BindEnv("facebook.retry_delay", "FB_RETRY_DELAY")
	_ = v.BindEnv("facebook.max_retries", "FB_MAX_RETRIES")

	// Google
	_ = v.BindEnv("google.developer_token", "GOOGLE_ADS_DEVELOPER_TOKEN")

	// Scheduler
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.offset_minutes", "SCHEDULER_OFFSET_MINUTES")

	// Services
	_ = v.BindEnv("services.store_url", "SERVICE_STORE_URL")

	// Set defaults
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "service-storemetrics")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8014")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.ssl_mode", "disable")

	// NATS
	v.SetDefault("nats.url", "nats://localhost:4222")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "10m")

	// Shopify
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.request_timeout", "30s")
	v.SetDefault("shopify.rps", 2)
	v.SetDefault("shopify.burst", 4)

	// Facebook
	v.SetDefault("facebook.graph_url", "https://graph.facebook.com")
	v.SetDefault("facebook.api_version", "v19.0")
	v.SetDefault("facebook.request_timeout", "30s")
	v.SetDefault("facebook.retry_delay", "2s")
	v.SetDefault("facebook.max_retries", 3)

	// Scheduler
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.offset_minutes", 330)

	// Services
	v.SetDefault("services.store_url", "")

	// Sentry
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "1.0.0")
}
