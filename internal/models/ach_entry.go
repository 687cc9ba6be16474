package models

import (
	"time"

	"github.com/google/uuid"
)

type AchEntry struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ach_entries_batch_seq"`
	Sequence        int       `gorm:"not null;uniqueIndex:idx_ach_entries_batch_seq"`
	TransactionType string    `gorm:"not null"`
	AccountType     string
	RoutingNumber   string
	AccountNumber   string
	Amount          int64 `gorm:"not null"`
	ReferenceCode   string
	RecipientID     string `gorm:"index"`
	RecipientName   string
	CreatedAt       time.Time
}
