package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/services"
)

// StoreSyncer runs an on-demand sync of one store.
type StoreSyncer interface {
	SyncStoreDailyMetrics(ctx context.Context, storeID uuid.UUID) (string, error)
}

// SyncHandler handles manual sync requests
type SyncHandler struct {
	service StoreSyncer
	logger  *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service StoreSyncer, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{service: service, logger: logger}
}

// ManualSync syncs yesterday's metrics for a store
// POST /api/v1/metrics/sync/:storeId
func (h *SyncHandler) ManualSync(c *gin.Context) {
	storeID, ok := parseStoreID(c)
	if !ok {
		return
	}

	jobID, err := h.service.SyncStoreDailyMetrics(c.Request.Context(), storeID)
	if err != nil {
		if errors.Is(err, services.ErrStoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found", "jobId": jobID})
			return
		}
		h.logger.Error("Manual sync failed",
			zap.String("store_id", storeID.String()),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sync failed", "message": err.Error(), "jobId": jobID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sync completed successfully",
		"jobId":   jobID,
	})
}
