package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/niaga-platform/service-storemetrics/internal/models"
)

const defaultAuditTimeout = 5 * time.Second

// AuditService writes sync lifecycle events. Writes never fail the caller.
type AuditService struct {
	store   AuditStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, timeout: defaultAuditTimeout, logger: logger}
}

// AuditEntry is one event to record.
type AuditEntry struct {
	RunID    string
	Store    *models.Store
	Action   string
	Status   models.AuditStatus
	Duration time.Duration
	Metadata map[string]interface{}
	Err      error
}

// Record appends an audit event, logging and swallowing any failure.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.store == nil {
		return
	}

	row := &models.SyncAuditLog{
		RunID:      entry.RunID,
		Action:     entry.Action,
		Status:     entry.Status,
		DurationMs: entry.Duration.Milliseconds(),
	}
	if entry.Store != nil {
		row.StoreID = entry.Store.ID
		row.StoreName = entry.Store.Name
	}
	if len(entry.Metadata) > 0 {
		if data, err := json.Marshal(entry.Metadata); err == nil {
			row.Metadata = datatypes.JSON(data)
		}
	}
	if entry.Err != nil {
		msg := entry.Err.Error()
		row.Error = &msg
	}

	// detached from the caller so a cancelled sync still leaves its trail
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.Record(writeCtx, row); err != nil {
		s.logger.Warn("Failed to record audit event",
			zap.String("run_id", entry.RunID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// ListByStore returns the store's recent audit events.
func (s *AuditService) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.SyncAuditLog, error) {
	return s.store.ListByStore(ctx, storeID, limit)
}
