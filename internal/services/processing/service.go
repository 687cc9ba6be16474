package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ach-batch-backend/internal/ach"
	"ach-batch-backend/internal/repository"
	"ach-batch-backend/internal/services/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBatchNotProcessable = errors.New("batch cannot be processed in its current status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProcessingFailed    = errors.New("batch processing failed")
	ErrEntriesChanged      = errors.New("batch entries changed after validation")
	ErrFileTransmitted     = errors.New("file already transmitted")
)

const actor = "processing-service"

// ValidationError is returned when a batch fails validation. It keeps every
// message so callers can point at each offending entry.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "batch validation failed: " + strings.Join(e.Errors, "; ")
}

// BatchStore is the persistence the service needs. It is the only I/O the
// service performs besides the optional Transmitter.
type BatchStore interface {
	Create(ctx context.Context, b *ach.Batch) error
	GetByID(ctx context.Context, companyID string, id uuid.UUID) (*ach.Batch, error)
	ListBatches(ctx context.Context, companyID string, f repository.BatchFilter) ([]ach.Batch, error)
	AddEntry(ctx context.Context, companyID string, batchID uuid.UUID, e *ach.Entry) error
	ListEntries(ctx context.Context, companyID string, batchID uuid.UUID) ([]ach.Entry, error)
	UpdateStatus(ctx context.Context, c repository.StatusChange) error
	ListAudit(ctx context.Context, companyID string, batchID uuid.UUID) ([]repository.AuditEntry, error)
	SaveFile(ctx context.Context, f *ach.File) error
	GetFile(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.File, error)
	MarkTransmitted(ctx context.Context, companyID string, batchID uuid.UUID, at time.Time) error
}

type Formatter interface {
	Format(batch ach.Batch, entries []ach.Entry) (*ach.File, error)
}

// Transmitter hands a finished file to the bank or ACH operator.
type Transmitter interface {
	Transmit(ctx context.Context, f *ach.File) error
}

type Service struct {
	store       BatchStore
	formatter   Formatter
	transmitter Transmitter
	rules       validation.Rules
	clock       func() time.Time
	logger      *zap.Logger
}

type Option func(*Service)

func WithTransmitter(t Transmitter) Option {
	return func(s *Service) { s.transmitter = t }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRules(r validation.Rules) Option {
	return func(s *Service) { s.rules = r }
}

func NewService(store BatchStore, formatter Formatter, opts ...Option) *Service {
	s := &Service{
		store:     store,
		formatter: formatter,
		rules:     validation.DefaultRules,
		clock:     time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateBatchInput struct {
	Name          string
	Type          ach.BatchType
	EffectiveDate time.Time
	ScheduledDate *time.Time
}

// CreateBatch stores a new, empty batch in draft.
func (s *Service) CreateBatch(ctx context.Context, companyID string, in CreateBatchInput) (*ach.Batch, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !in.Type.IsValid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ach.ErrInvalidBatchType)
	}
	if in.EffectiveDate.IsZero() {
		return nil, fmt.Errorf("%w: effective date is required", ErrInvalidInput)
	}

	b := &ach.Batch{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Name:          name,
		Type:          in.Type,
		EffectiveDate: ach.DateOf(in.EffectiveDate),
		Status:        ach.StatusDraft,
		CreatedAt:     s.clock(),
		ScheduledDate: in.ScheduledDate,
	}
	b.SetEntries(nil)
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	s.logger.Info("batch created",
		zap.String("batch_id", b.ID.String()),
		zap.String("company_id", companyID),
		zap.String("type", string(b.Type)))
	return b, nil
}

type AddEntryInput struct {
	TransactionType ach.TransactionType
	AccountType     ach.AccountType
	RoutingNumber   string
	AccountNumber   string
	Amount          int64
	ReferenceCode   string
	RecipientID     string
	RecipientName   string
}

// AddEntry appends an entry to a draft batch. Field problems are reported by
// validation, not here, so that every bad entry shows up in one result.
func (s *Service) AddEntry(ctx context.Context, companyID string, batchID uuid.UUID, in AddEntryInput) (*ach.Entry, error) {
	accountType := in.AccountType
	if accountType == "" {
		accountType = ach.Checking
	}
	e := &ach.Entry{
		ID:              uuid.New(),
		TransactionType: in.TransactionType,
		AccountType:     accountType,
		RoutingNumber:   strings.TrimSpace(in.RoutingNumber),
		AccountNumber:   strings.TrimSpace(in.AccountNumber),
		Amount:          in.Amount,
		ReferenceCode:   strings.TrimSpace(in.ReferenceCode),
		RecipientID:     strings.TrimSpace(in.RecipientID),
		RecipientName:   strings.TrimSpace(in.RecipientName),
		CreatedAt:       s.clock(),
	}
	if err := s.store.AddEntry(ctx, companyID, batchID, e); err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	return e, nil
}

// load fetches a batch and its entries and recomputes the totals from the
// entries actually loaded.
func (s *Service) load(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.Batch, []ach.Entry, error) {
	b, err := s.store.GetByID(ctx, companyID, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("load batch: %w", err)
	}
	entries, err := s.store.ListEntries(ctx, companyID, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("load entries: %w", err)
	}
	b.SetEntries(entries)
	return b, entries, nil
}

// ValidateBatch runs validation against the stored batch without changing
// its status. A returned error means the batch could not be loaded.
func (s *Service) ValidateBatch(ctx context.Context, companyID string, batchID uuid.UUID) (ach.ValidationResult, error) {
	b, entries, err := s.load(ctx, companyID, batchID)
	if err != nil {
		return ach.ValidationResult{}, err
	}
	return s.rules.Validate(*b, entries, s.clock()), nil
}

// MarkReady moves a clean draft batch to ready, after which no more entries
// can be added.
func (s *Service) MarkReady(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.Batch, error) {
	b, entries, err := s.load(ctx, companyID, batchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(ach.StatusReady) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, ach.StatusReady)
	}
	res := s.rules.Validate(*b, entries, s.clock())
	if !res.IsValid {
		return nil, &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
	}

	err = s.store.UpdateStatus(ctx, repository.StatusChange{
		CompanyID:   companyID,
		BatchID:     batchID,
		From:        []ach.Status{ach.StatusDraft},
		To:          ach.StatusReady,
		PerformedBy: actor,
		At:          s.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("mark ready: %w", err)
	}
	b.Status = ach.StatusReady
	return b, nil
}

// ProcessBatch validates, formats and completes a batch. Until the batch is
// marked processing, any failure leaves its status untouched. After that,
// every failure is recorded as failed before it is returned.
func (s *Service) ProcessBatch(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.Batch, error) {
	log := s.logger.With(
		zap.String("batch_id", batchID.String()),
		zap.String("company_id", companyID))

	b, entries, err := s.load(ctx, companyID, batchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransition(ach.StatusProcessing) {
		return nil, fmt.Errorf("%w: batch is %s", ErrBatchNotProcessable, b.Status)
	}

	res := s.rules.Validate(*b, entries, s.clock())
	if !res.IsValid {
		log.Info("batch rejected by validation", zap.Strings("errors", res.Errors))
		return nil, &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
	}
	for _, w := range res.Warnings {
		log.Warn("batch validation warning", zap.String("warning", w))
	}

	// last point at which the caller may abandon the request
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.store.UpdateStatus(ctx, repository.StatusChange{
		CompanyID:   companyID,
		BatchID:     batchID,
		From:        []ach.Status{ach.StatusDraft, ach.StatusReady},
		To:          ach.StatusProcessing,
		PerformedBy: actor,
		At:          s.clock(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %w", ErrBatchNotProcessable, err)
		}
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	log.Info("batch processing started", zap.Int("entries", len(entries)), zap.Int64("total_amount", b.TotalAmount))

	// from here on the caller's cancellation must not stop the status writes
	ctx = context.WithoutCancel(ctx)
	b.Status = ach.StatusProcessing

	// the entry set is final once the batch has left draft
	if err := s.confirmEntries(ctx, companyID, batchID, entries); err != nil {
		return nil, s.fail(ctx, log, b, err)
	}

	file, err := s.generate(*b, entries)
	if err != nil {
		return nil, s.fail(ctx, log, b, err)
	}
	if err := s.store.SaveFile(ctx, file); err != nil {
		return nil, s.fail(ctx, log, b, fmt.Errorf("save file: %w", err))
	}
	transmitted := false
	if s.transmitter != nil {
		if err := s.transmitter.Transmit(ctx, file); err != nil {
			return nil, s.fail(ctx, log, b, fmt.Errorf("transmit file: %w", err))
		}
		transmitted = true
		// the file has left; a failure to stamp it is logged, not treated as
		// a failed batch that someone might resubmit
		if err := s.store.MarkTransmitted(ctx, companyID, batchID, s.clock()); err != nil {
			log.Error("failed to record transmission time", zap.Error(err))
		}
	}

	completedAt := s.clock()
	err = s.store.UpdateStatus(ctx, repository.StatusChange{
		CompanyID:   companyID,
		BatchID:     batchID,
		From:        []ach.Status{ach.StatusProcessing},
		To:          ach.StatusCompleted,
		PerformedBy: actor,
		At:          completedAt,
	})
	if err != nil {
		cause := fmt.Errorf("mark completed: %w", err)
		if transmitted {
			log.Error("transmitted batch could not be marked completed, do not resubmit",
				zap.String("file", file.Name), zap.Error(err))
			cause = fmt.Errorf("%w (%s): %w", ErrFileTransmitted, file.Name, cause)
		}
		return nil, s.fail(ctx, log, b, cause)
	}

	b.Status = ach.StatusCompleted
	b.CompletedAt = &completedAt
	log.Info("batch completed",
		zap.String("file", file.Name),
		zap.Int64("total_debit", file.TotalDebit),
		zap.Int64("total_credit", file.TotalCredit))
	return b, nil
}

// confirmEntries reloads the entries and compares them with the validated
// set. An entry added between validation and the processing write would
// otherwise be stored in the batch but missing from the file.
func (s *Service) confirmEntries(ctx context.Context, companyID string, batchID uuid.UUID, validated []ach.Entry) error {
	current, err := s.store.ListEntries(ctx, companyID, batchID)
	if err != nil {
		return fmt.Errorf("reload entries: %w", err)
	}
	if len(current) != len(validated) {
		return fmt.Errorf("%w: validated %d entries, batch now has %d", ErrEntriesChanged, len(validated), len(current))
	}
	for i := range current {
		if current[i].ID != validated[i].ID || current[i].Amount != validated[i].Amount {
			return fmt.Errorf("%w: entry %s differs", ErrEntriesChanged, current[i].Label())
		}
	}
	if got, want := ach.SumAmounts(current), ach.SumAmounts(validated); got != want {
		return fmt.Errorf("%w: total %d, validated %d", ErrEntriesChanged, got, want)
	}
	return nil
}

// generate formats the file in memory and reads it back to prove the control
// records agree with the entry records.
func (s *Service) generate(b ach.Batch, entries []ach.Entry) (*ach.File, error) {
	file, err := s.formatter.Format(b, entries)
	if err != nil {
		return nil, fmt.Errorf("format file: %w", err)
	}
	if err := verify(file); err != nil {
		return nil, fmt.Errorf("verify file: %w", err)
	}
	if got := file.TotalDebit + file.TotalCredit; got != b.TotalAmount {
		return nil, fmt.Errorf("verify file: file total %d != batch total %d", got, b.TotalAmount)
	}
	return file, nil
}

// fail records the batch as failed and returns the cause. If the failed
// status cannot be written either, both errors are returned.
func (s *Service) fail(ctx context.Context, log *zap.Logger, b *ach.Batch, cause error) error {
	log.Error("batch processing failed", zap.Error(cause))

	err := s.store.UpdateStatus(ctx, repository.StatusChange{
		CompanyID:   b.CompanyID,
		BatchID:     b.ID,
		From:        []ach.Status{ach.StatusProcessing},
		To:          ach.StatusFailed,
		Reason:      cause.Error(),
		PerformedBy: actor,
		At:          s.clock(),
	})
	if err != nil {
		log.Error("failed to record failed status", zap.Error(err))
		return errors.Join(fmt.Errorf("%w: %w", ErrProcessingFailed, cause), fmt.Errorf("record failed status: %w", err))
	}
	b.Status = ach.StatusFailed
	b.FailureReason = cause.Error()
	return fmt.Errorf("%w: %w", ErrProcessingFailed, cause)
}

func (s *Service) GetBatch(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.Batch, error) {
	return s.store.GetByID(ctx, companyID, batchID)
}

func (s *Service) ListBatches(ctx context.Context, companyID string, f repository.BatchFilter) ([]ach.Batch, error) {
	return s.store.ListBatches(ctx, companyID, f)
}

func (s *Service) ListEntries(ctx context.Context, companyID string, batchID uuid.UUID) ([]ach.Entry, error) {
	return s.store.ListEntries(ctx, companyID, batchID)
}

func (s *Service) History(ctx context.Context, companyID string, batchID uuid.UUID) ([]repository.AuditEntry, error) {
	return s.store.ListAudit(ctx, companyID, batchID)
}

func (s *Service) GetFile(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.File, error) {
	return s.store.GetFile(ctx, companyID, batchID)
}
