package repository

import (
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/google/uuid"
)

type BatchFilter struct {
	Status ach.Status
	Type   ach.BatchType
	Limit  int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f BatchFilter) limit() int {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		return defaultListLimit
	}
	return f.Limit
}

// StatusChange moves a batch to To only if its current status is one of
// From. That conditional write is what keeps two processors off one batch.
type StatusChange struct {
	CompanyID   string
	BatchID     uuid.UUID
	From        []ach.Status
	To          ach.Status
	Reason      string
	PerformedBy string
	At          time.Time
}

func (c StatusChange) allows(current ach.Status) bool {
	for _, s := range c.From {
		if s == current {
			return true
		}
	}
	return false
}

func statusStrings(ss []ach.Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
