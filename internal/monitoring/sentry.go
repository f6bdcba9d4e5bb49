// Package monitoring wires Sentry error tracking into the service.
package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SentryConfig holds Sentry client options.
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	ServiceName      string
	TracesSampleRate float64
}

// SentryMonitor reports errors to Sentry. A monitor without a DSN is a no-op.
type SentryMonitor struct {
	enabled bool
	service string
	logger  *zap.Logger
}

// NewSentryMonitor initializes the Sentry client. An empty DSN returns a
// disabled monitor and no error.
func NewSentryMonitor(cfg *SentryConfig, logger *zap.Logger) (*SentryMonitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SentryMonitor{service: cfg.ServiceName, logger: logger}
	if cfg.DSN == "" {
		return m, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServiceName,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return m, fmt.Errorf("failed to init sentry: %w", err)
	}

	m.enabled = true
	logger.Info("Sentry initialized", zap.String("environment", cfg.Environment))
	return m, nil
}

// Enabled reports whether events are sent.
func (m *SentryMonitor) Enabled() bool {
	return m != nil && m.enabled
}

// Middleware returns the request middleware in mounting order. Recovery sits
// outside the Sentry handler so a panic is reported before it is recovered.
func (m *SentryMonitor) Middleware() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.RecoveryMiddleware(), m.GinMiddleware()}
}

// GinMiddleware attaches a Sentry hub to each request.
func (m *SentryMonitor) GinMiddleware() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second})
}

// RecoveryMiddleware turns panics into 500 responses after they were reported.
func (m *SentryMonitor) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		m.logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// CaptureError reports err with the given tags.
func (m *SentryMonitor) CaptureError(err error, tags map[string]string) {
	if !m.Enabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", m.service)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (m *SentryMonitor) Flush(timeout time.Duration) {
	if m.Enabled() {
		sentry.Flush(timeout)
	}
}
