package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/services"
)

// MetricsQuerier serves dashboard reads.
type MetricsQuerier interface {
	GetStoreMetrics(ctx context.Context, storeID uuid.UUID, preset, startDate, endDate string) (*services.StoreMetricsReport, error)
	GetAggregate(ctx context.Context, preset string) (*services.AggregateReport, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ProductMetric, error)
	ListTraffic(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrafficMetric, error)
	ListSyncLogs(ctx context.Context, storeID uuid.UUID, limit int) ([]models.SyncAuditLog, error)
}

// MetricsHandler handles metrics query API requests
type MetricsHandler struct {
	service MetricsQuerier
	logger  *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(service MetricsQuerier, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{
		service: service,
		logger:  logger,
	}
}

// GetStoreMetrics returns the daily metrics of a store
// GET /api/v1/stores/:storeId/metrics?range=&startDate=&endDate=
func (h *MetricsHandler) GetStoreMetrics(c *gin.Context) {
	storeID, ok := parseStoreID(c)
	if !ok {
		return
	}

	report, err := h.service.GetStoreMetrics(c.Request.Context(), storeID,
		c.Query("range"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		h.respondError(c, "Failed to get store metrics", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetAggregate returns totals across all stores
// GET /api/v1/metrics/aggregate?range=
func (h *MetricsHandler) GetAggregate(c *gin.Context) {
	report, err := h.service.GetAggregate(c.Request.Context(), c.DefaultQuery("range", calendar.PresetLast30Days))
	if err != nil {
		h.respondError(c, "Failed to aggregate metrics", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetProducts lists product sales of a store
// GET /api/v1/stores/:storeId/products?limit=
func (h *MetricsHandler) GetProducts(c *gin.Context) {
	storeID, ok := parseStoreID(c)
	if !ok {
		return
	}

	products, err := h.service.ListProducts(c.Request.Context(), storeID, queryLimit(c, 50))
	if err != nil {
		h.respondError(c, "Failed to list product metrics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// GetTraffic lists landing page traffic of a store
// GET /api/v1/stores/:storeId/traffic?limit=
func (h *MetricsHandler) GetTraffic(c *gin.Context) {
	storeID, ok := parseStoreID(c)
	if !ok {
		return
	}

	pages, err := h.service.ListTraffic(c.Request.Context(), storeID, queryLimit(c, 20))
	if err != nil {
		h.respondError(c, "Failed to list traffic metrics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pages": pages, "total": len(pages)})
}

// GetSyncLogs lists recent sync audit events of a store
// GET /api/v1/stores/:storeId/sync-logs?limit=
func (h *MetricsHandler) GetSyncLogs(c *gin.Context) {
	storeID, ok := parseStoreID(c)
	if !ok {
		return
	}

	logs, err := h.service.ListSyncLogs(c.Request.Context(), storeID, queryLimit(c, 100))
	if err != nil {
		h.respondError(c, "Failed to list sync logs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

func (h *MetricsHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrStoreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
	case errors.Is(err, calendar.ErrUnknownPreset),
		errors.Is(err, calendar.ErrInvalidRange),
		errors.Is(err, calendar.ErrInvalidDateKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func parseStoreID(c *gin.Context) (uuid.UUID, bool) {
	storeID, err := uuid.Parse(c.Param("storeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store ID"})
		return uuid.Nil, false
	}
	return storeID, true
}

func queryLimit(c *gin.Context, fallback int) int {
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			return limit
		}
	}
	return fallback
}
