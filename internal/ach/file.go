package ach

import (
	"time"

	"github.com/google/uuid"
)

// File is a generated NACHA file together with the control totals read back
// from it.
type File struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	CompanyID     string
	Name          string
	Content       []byte
	EntryCount    int
	TotalDebit    int64
	TotalCredit   int64
	EntryHash     int64
	BlockCount    int
	GeneratedAt   time.Time
	TransmittedAt *time.Time
}
