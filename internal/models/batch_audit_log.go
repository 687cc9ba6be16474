package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BatchAuditLog records every status transition of a batch.
type BatchAuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID     uuid.UUID `gorm:"type:uuid;index"`
	CompanyID   string    `gorm:"index"`
	Action      string
	FromStatus  string
	ToStatus    string
	PerformedBy string
	Reason      string
	Details     datatypes.JSON
	CreatedAt   time.Time
}
