package ach

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BatchType string

const (
	Payroll  BatchType = "Payroll"
	Benefits BatchType = "Benefits"
	Tax      BatchType = "Tax"
	Vendor   BatchType = "Vendor"
)

var batchTypes = []BatchType{Payroll, Benefits, Tax, Vendor}

func (t BatchType) IsValid() bool {
	for _, bt := range batchTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// ParseBatchType accepts the canonical spelling or any casing of it.
func ParseBatchType(s string) (BatchType, error) {
	for _, bt := range batchTypes {
		if strings.EqualFold(s, string(bt)) {
			return bt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBatchType, s)
}

type Status string

const (
	StatusDraft      Status = "draft"
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusDraft:      {StatusReady, StatusProcessing},
	StatusReady:      {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Batch is a named, dated collection of entries. EntryCount and TotalAmount are
// derived: they are set by SetEntries or by the store's aggregate query and
// never assigned independently.
type Batch struct {
	ID            uuid.UUID
	CompanyID     string
	Name          string
	Type          BatchType
	EffectiveDate time.Time
	Status        Status
	Entries       []Entry
	EntryCount    int
	TotalAmount   int64
	FailureReason string
	CreatedAt     time.Time
	ScheduledDate *time.Time
	CompletedAt   *time.Time
}

// SetEntries attaches entries and recomputes the derived totals.
func (b *Batch) SetEntries(entries []Entry) {
	b.Entries = entries
	b.EntryCount = len(entries)
	b.TotalAmount = SumAmounts(entries)
}

func SumAmounts(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
