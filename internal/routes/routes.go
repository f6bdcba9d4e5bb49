package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/niaga-platform/service-storemetrics/internal/handlers"
)

// RouteConfig holds configuration for routes
type RouteConfig struct {
	MetricsHandler *handlers.MetricsHandler
	SyncHandler    *handlers.SyncHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *RouteConfig) {
	// API v1 routes
	v1 := router.Group("/api/v1")

	stores := v1.Group("/stores/:storeId")
	{
		stores.GET("/metrics", cfg.MetricsHandler.GetStoreMetrics)
		stores.GET("/products", cfg.MetricsHandler.GetProducts)
		stores.GET("/traffic", cfg.MetricsHandler.GetTraffic)
		stores.GET("/sync-logs", cfg.MetricsHandler.GetSyncLogs)
	}

	metrics := v1.Group("/metrics")
	{
		metrics.GET("/aggregate", cfg.MetricsHandler.GetAggregate)
		if cfg.SyncHandler != nil {
			metrics.POST("/sync/:storeId", cfg.SyncHandler.ManualSync)
		}
	}
}
