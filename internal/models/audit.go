package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditStatus is the outcome recorded by a sync audit event.
type AuditStatus string

const (
	AuditStatusPending AuditStatus = "pending"
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// SyncAuditLog is one append-only lifecycle event of a storefront sync.
type SyncAuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID      string         `gorm:"size:64;not null;index" json:"run_id"`
	StoreID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"store_id"`
	StoreName  string         `gorm:"size:255" json:"store_name"`
	Action     string         `gorm:"size:64;not null" json:"action"`
	Status     AuditStatus    `gorm:"size:16;not null" json:"status"`
	DurationMs int64          `gorm:"not null;default:0" json:"duration_ms"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	Error      *string        `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName sets the table name.
func (SyncAuditLog) TableName() string {
	return "sync_audit_logs"
}

// BeforeCreate assigns an id when none is set.
func (l *SyncAuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
