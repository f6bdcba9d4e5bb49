package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event subjects
const (
	SubjectSyncRequested = "metrics.sync.requested"
	SubjectSyncCompleted = "metrics.sync.completed"
	SubjectSyncFailed    = "metrics.sync.failed"
)

// SyncRequestedEvent asks for an on-demand daily metrics sync of one store
type SyncRequestedEvent struct {
	StoreID uuid.UUID `json:"store_id"`
}

// SyncCompletedEvent represents a successful per-store sync
type SyncCompletedEvent struct {
	RunID     string    `json:"run_id"`
	StoreID   uuid.UUID `json:"store_id"`
	StoreName string    `json:"store_name"`
	SyncType  string    `json:"sync_type"` // daily_metrics, product_metrics, traffic_metrics
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncFailedEvent represents a failed per-store sync
type SyncFailedEvent struct {
	RunID     string    `json:"run_id"`
	StoreID   uuid.UUID `json:"store_id"`
	StoreName string    `json:"store_name"`
	SyncType  string    `json:"sync_type"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// DecodeSyncRequested parses a sync request payload.
func DecodeSyncRequested(data []byte) (*SyncRequestedEvent, error) {
	var event SyncRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync requested event: %w", err)
	}
	if event.StoreID == uuid.Nil {
		return nil, fmt.Errorf("sync requested event is missing store_id")
	}
	return &event, nil
}
