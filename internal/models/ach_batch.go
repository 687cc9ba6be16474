package models

import (
	"time"

	"github.com/google/uuid"
)

// AchBatch has no total column; totals are aggregated from ach_entries.
type AchBatch struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     string    `gorm:"index;not null"`
	Name          string    `gorm:"not null"`
	Type          string    `gorm:"index;not null"`
	EffectiveDate time.Time `gorm:"type:date;not null"`
	Status        string    `gorm:"index;not null"`
	FailureReason string
	ScheduledDate *time.Time `gorm:"type:date"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
