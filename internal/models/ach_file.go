package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AchFile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID       uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CompanyID     string    `gorm:"index"`
	Name          string
	Content       []byte `gorm:"type:bytea"`
	ControlTotals datatypes.JSON
	GeneratedAt   time.Time
	TransmittedAt *time.Time
	CreatedAt     time.Time
}
