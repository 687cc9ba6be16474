package repository

import (
	"encoding/json"
	"time"

	"ach-batch-backend/internal/ach"
	"ach-batch-backend/internal/models"

	"gorm.io/datatypes"
)

// Row types never leave this package; everything above it works on ach types.

func batchFromRow(row models.AchBatch, entryCount int, total int64) ach.Batch {
	return ach.Batch{
		ID:            row.ID,
		CompanyID:     row.CompanyID,
		Name:          row.Name,
		Type:          ach.BatchType(row.Type),
		EffectiveDate: ach.DateOf(row.EffectiveDate),
		Status:        ach.Status(row.Status),
		EntryCount:    entryCount,
		TotalAmount:   total,
		FailureReason: row.FailureReason,
		CreatedAt:     row.CreatedAt,
		ScheduledDate: row.ScheduledDate,
		CompletedAt:   row.CompletedAt,
	}
}

func batchToRow(b ach.Batch) models.AchBatch {
	return models.AchBatch{
		ID:            b.ID,
		CompanyID:     b.CompanyID,
		Name:          b.Name,
		Type:          string(b.Type),
		EffectiveDate: ach.DateOf(b.EffectiveDate),
		Status:        string(b.Status),
		FailureReason: b.FailureReason,
		ScheduledDate: b.ScheduledDate,
		CompletedAt:   b.CompletedAt,
		CreatedAt:     b.CreatedAt,
	}
}

func entryFromRow(row models.AchEntry) ach.Entry {
	return ach.Entry{
		ID:              row.ID,
		BatchID:         row.BatchID,
		Sequence:        row.Sequence,
		TransactionType: ach.TransactionType(row.TransactionType),
		AccountType:     ach.AccountType(row.AccountType),
		RoutingNumber:   row.RoutingNumber,
		AccountNumber:   row.AccountNumber,
		Amount:          row.Amount,
		ReferenceCode:   row.ReferenceCode,
		RecipientID:     row.RecipientID,
		RecipientName:   row.RecipientName,
		CreatedAt:       row.CreatedAt,
	}
}

func entryToRow(e ach.Entry) models.AchEntry {
	return models.AchEntry{
		ID:              e.ID,
		BatchID:         e.BatchID,
		Sequence:        e.Sequence,
		TransactionType: string(e.TransactionType),
		AccountType:     string(e.AccountType),
		RoutingNumber:   e.RoutingNumber,
		AccountNumber:   e.AccountNumber,
		Amount:          e.Amount,
		ReferenceCode:   e.ReferenceCode,
		RecipientID:     e.RecipientID,
		RecipientName:   e.RecipientName,
		CreatedAt:       e.CreatedAt,
	}
}

type controlTotals struct {
	EntryCount  int   `json:"entry_count"`
	EntryHash   int64 `json:"entry_hash"`
	TotalDebit  int64 `json:"total_debit"`
	TotalCredit int64 `json:"total_credit"`
	BlockCount  int   `json:"block_count"`
}

func fileToRow(f ach.File) (models.AchFile, error) {
	totals, err := json.Marshal(controlTotals{
		EntryCount:  f.EntryCount,
		EntryHash:   f.EntryHash,
		TotalDebit:  f.TotalDebit,
		TotalCredit: f.TotalCredit,
		BlockCount:  f.BlockCount,
	})
	if err != nil {
		return models.AchFile{}, err
	}
	return models.AchFile{
		ID:            f.ID,
		BatchID:       f.BatchID,
		CompanyID:     f.CompanyID,
		Name:          f.Name,
		Content:       f.Content,
		ControlTotals: datatypes.JSON(totals),
		GeneratedAt:   f.GeneratedAt,
		TransmittedAt: f.TransmittedAt,
	}, nil
}

func fileFromRow(row models.AchFile) (ach.File, error) {
	var totals controlTotals
	if len(row.ControlTotals) > 0 {
		if err := json.Unmarshal(row.ControlTotals, &totals); err != nil {
			return ach.File{}, err
		}
	}
	return ach.File{
		ID:            row.ID,
		BatchID:       row.BatchID,
		CompanyID:     row.CompanyID,
		Name:          row.Name,
		Content:       row.Content,
		EntryCount:    totals.EntryCount,
		TotalDebit:    totals.TotalDebit,
		TotalCredit:   totals.TotalCredit,
		EntryHash:     totals.EntryHash,
		BlockCount:    totals.BlockCount,
		GeneratedAt:   row.GeneratedAt,
		TransmittedAt: row.TransmittedAt,
	}, nil
}

// AuditEntry is one recorded status transition.
type AuditEntry struct {
	ID          string     `json:"id"`
	FromStatus  ach.Status `json:"from_status"`
	ToStatus    ach.Status `json:"to_status"`
	PerformedBy string     `json:"performed_by,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func auditFromRow(row models.BatchAuditLog) AuditEntry {
	return AuditEntry{
		ID:          row.ID.String(),
		FromStatus:  ach.Status(row.FromStatus),
		ToStatus:    ach.Status(row.ToStatus),
		PerformedBy: row.PerformedBy,
		Reason:      row.Reason,
		CreatedAt:   row.CreatedAt,
	}
}
