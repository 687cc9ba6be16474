package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/google/uuid"
)

// MemoryRepository keeps batches in process memory. One mutex serialises all
// reads and writes, which makes its status checks as strict as the
// row-locking postgres repository.
type MemoryRepository struct {
	mu      sync.Mutex
	now     func() time.Time
	batches map[uuid.UUID]*ach.Batch
	entries map[uuid.UUID][]ach.Entry
	files   map[uuid.UUID]ach.File
	audit   map[uuid.UUID][]AuditEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:     time.Now,
		batches: make(map[uuid.UUID]*ach.Batch),
		entries: make(map[uuid.UUID][]ach.Entry),
		files:   make(map[uuid.UUID]ach.File),
		audit:   make(map[uuid.UUID][]AuditEntry),
	}
}

// batch must be called with mu held.
func (m *MemoryRepository) batch(companyID string, id uuid.UUID) (*ach.Batch, error) {
	b, ok := m.batches[id]
	if !ok || b.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return b, nil
}

// snapshot must be called with mu held.
func (m *MemoryRepository) snapshot(b *ach.Batch) ach.Batch {
	cp := *b
	cp.Entries = nil
	cp.EntryCount = len(m.entries[b.ID])
	cp.TotalAmount = ach.SumAmounts(m.entries[b.ID])
	return cp
}

func (m *MemoryRepository) Create(_ context.Context, b *ach.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.batches[b.ID]; exists {
		return fmt.Errorf("%w: batch %s exists", ErrWriteConflict, b.ID)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now()
	}
	cp := *b
	cp.Entries = nil
	m.batches[b.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, companyID string, id uuid.UUID) (*ach.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.batch(companyID, id)
	if err != nil {
		return nil, err
	}
	cp := m.snapshot(b)
	return &cp, nil
}

func (m *MemoryRepository) ListBatches(_ context.Context, companyID string, f BatchFilter) ([]ach.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ach.Batch, 0)
	for _, b := range m.batches {
		if b.CompanyID != companyID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Type != "" && b.Type != f.Type {
			continue
		}
		out = append(out, m.snapshot(b))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := f.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) AddEntry(_ context.Context, companyID string, batchID uuid.UUID, e *ach.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.batch(companyID, batchID)
	if err != nil {
		return err
	}
	if b.Status != ach.StatusDraft {
		return fmt.Errorf("%w: batch is %s", ErrBatchLocked, b.Status)
	}
	e.BatchID = batchID
	e.Sequence = len(m.entries[batchID]) + 1
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	m.entries[batchID] = append(m.entries[batchID], *e)
	return nil
}

func (m *MemoryRepository) ListEntries(_ context.Context, companyID string, batchID uuid.UUID) ([]ach.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.batch(companyID, batchID); err != nil {
		return nil, err
	}
	return append([]ach.Entry{}, m.entries[batchID]...), nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, c StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.batch(c.CompanyID, c.BatchID)
	if err != nil {
		return err
	}
	if !c.allows(b.Status) {
		return fmt.Errorf("%w: batch is %s, expected one of %v", ErrStatusConflict, b.Status, c.From)
	}

	at := c.At
	if at.IsZero() {
		at = m.now()
	}
	from := b.Status
	b.Status = c.To
	switch c.To {
	case ach.StatusCompleted:
		b.CompletedAt = &at
	case ach.StatusFailed:
		b.FailureReason = c.Reason
	}

	m.audit[c.BatchID] = append(m.audit[c.BatchID], AuditEntry{
		ID:          uuid.NewString(),
		FromStatus:  from,
		ToStatus:    c.To,
		PerformedBy: c.PerformedBy,
		Reason:      c.Reason,
		CreatedAt:   at,
	})
	return nil
}

func (m *MemoryRepository) ListAudit(_ context.Context, companyID string, batchID uuid.UUID) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.batch(companyID, batchID); err != nil {
		return nil, err
	}
	return append([]AuditEntry{}, m.audit[batchID]...), nil
}

func (m *MemoryRepository) SaveFile(_ context.Context, f *ach.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.batch(f.CompanyID, f.BatchID); err != nil {
		return err
	}
	if _, exists := m.files[f.BatchID]; exists {
		return fmt.Errorf("%w: file for batch %s exists", ErrWriteConflict, f.BatchID)
	}
	cp := *f
	cp.Content = append([]byte(nil), f.Content...)
	m.files[f.BatchID] = cp
	return nil
}

func (m *MemoryRepository) GetFile(_ context.Context, companyID string, batchID uuid.UUID) (*ach.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[batchID]
	if !ok || f.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *MemoryRepository) MarkTransmitted(_ context.Context, companyID string, batchID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[batchID]
	if !ok || f.CompanyID != companyID {
		return ErrNotFound
	}
	f.TransmittedAt = &at
	m.files[batchID] = f
	return nil
}
