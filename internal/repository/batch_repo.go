package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ach-batch-backend/internal/ach"
	"ach-batch-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Migrate creates or updates the tables the repository owns.
func (r *BatchRepository) Migrate() error {
	return r.db.AutoMigrate(
		&models.AchBatch{},
		&models.AchEntry{},
		&models.AchFile{},
		&models.BatchAuditLog{},
	)
}

type aggregateRow struct {
	EntryCount  int
	TotalAmount int64
}

type batchAggregateRow struct {
	models.AchBatch `gorm:"embedded"`
	EntryCount      int
	TotalAmount     int64
}

func (r *BatchRepository) Create(ctx context.Context, b *ach.Batch) error {
	row := batchToRow(*b)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	b.CreatedAt = row.CreatedAt
	return nil
}

// GetByID loads the batch with its entry count and amount summed in SQL.
func (r *BatchRepository) GetByID(ctx context.Context, companyID string, id uuid.UUID) (*ach.Batch, error) {
	db := r.db.WithContext(ctx)

	var row models.AchBatch
	if err := db.First(&row, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		return nil, translate(err)
	}

	var agg aggregateRow
	err := db.Model(&models.AchEntry{}).
		Where("batch_id = ?", id).
		Select("COUNT(*) AS entry_count, COALESCE(SUM(amount), 0) AS total_amount").
		Scan(&agg).Error
	if err != nil {
		return nil, translate(err)
	}

	b := batchFromRow(row, agg.EntryCount, agg.TotalAmount)
	return &b, nil
}

func (r *BatchRepository) ListBatches(ctx context.Context, companyID string, f BatchFilter) ([]ach.Batch, error) {
	query := r.db.WithContext(ctx).
		Table("ach_batches AS b").
		Select("b.*, COUNT(e.id) AS entry_count, COALESCE(SUM(e.amount), 0) AS total_amount").
		Joins("LEFT JOIN ach_entries AS e ON e.batch_id = b.id").
		Where("b.company_id = ?", companyID).
		Group("b.id").
		Order("b.created_at DESC").
		Limit(f.limit())

	if f.Status != "" {
		query = query.Where("b.status = ?", string(f.Status))
	}
	if f.Type != "" {
		query = query.Where("b.type = ?", string(f.Type))
	}

	var rows []batchAggregateRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}

	out := make([]ach.Batch, 0, len(rows))
	for _, row := range rows {
		out = append(out, batchFromRow(row.AchBatch, row.EntryCount, row.TotalAmount))
	}
	return out, nil
}

// AddEntry appends an entry to a draft batch. The batch row is locked so
// sequences are handed out one at a time.
func (r *BatchRepository) AddEntry(ctx context.Context, companyID string, batchID uuid.UUID, e *ach.Entry) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.AchBatch
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&batch, "id = ? AND company_id = ?", batchID, companyID).Error
		if err != nil {
			return err
		}
		if ach.Status(batch.Status) != ach.StatusDraft {
			return fmt.Errorf("%w: batch is %s", ErrBatchLocked, batch.Status)
		}

		var next int
		err = tx.Model(&models.AchEntry{}).
			Where("batch_id = ?", batchID).
			Select("COALESCE(MAX(sequence), 0) + 1").
			Scan(&next).Error
		if err != nil {
			return err
		}

		e.BatchID = batchID
		e.Sequence = next
		row := entryToRow(*e)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		e.CreatedAt = row.CreatedAt
		return nil
	}))
}

// ListEntries returns entries in sequence order.
func (r *BatchRepository) ListEntries(ctx context.Context, companyID string, batchID uuid.UUID) ([]ach.Entry, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.AchBatch{}).
		Where("id = ? AND company_id = ?", batchID, companyID).
		Count(&count).Error; err != nil {
		return nil, translate(err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var rows []models.AchEntry
	if err := db.Where("batch_id = ?", batchID).Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	out := make([]ach.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

// UpdateStatus performs the conditional status write and its audit row in
// one transaction.
func (r *BatchRepository) UpdateStatus(ctx context.Context, c StatusChange) error {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}

	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.AchBatch
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&batch, "id = ? AND company_id = ?", c.BatchID, c.CompanyID).Error
		if err != nil {
			return err
		}
		current := ach.Status(batch.Status)
		if !c.allows(current) {
			return fmt.Errorf("%w: batch is %s, expected one of %v", ErrStatusConflict, current, c.From)
		}

		updates := map[string]interface{}{
			"status":     string(c.To),
			"updated_at": at,
		}
		switch c.To {
		case ach.StatusProcessing:
			updates["started_at"] = at
		case ach.StatusCompleted:
			updates["completed_at"] = at
		case ach.StatusFailed:
			updates["failure_reason"] = c.Reason
		}

		res := tx.Model(&models.AchBatch{}).
			Where("id = ? AND status IN ?", c.BatchID, statusStrings(c.From)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		details, _ := json.Marshal(map[string]interface{}{
			"allowed_from": statusStrings(c.From),
		})
		return tx.Create(&models.BatchAuditLog{
			ID:          uuid.New(),
			BatchID:     c.BatchID,
			CompanyID:   c.CompanyID,
			Action:      "status_change",
			FromStatus:  string(current),
			ToStatus:    string(c.To),
			PerformedBy: c.PerformedBy,
			Reason:      c.Reason,
			Details:     datatypes.JSON(details),
			CreatedAt:   at,
		}).Error
	}))
}

func (r *BatchRepository) ListAudit(ctx context.Context, companyID string, batchID uuid.UUID) ([]AuditEntry, error) {
	var rows []models.BatchAuditLog
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND company_id = ?", batchID, companyID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	out := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, auditFromRow(row))
	}
	return out, nil
}

func (r *BatchRepository) SaveFile(ctx context.Context, f *ach.File) error {
	row, err := fileToRow(*f)
	if err != nil {
		return err
	}
	return translate(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *BatchRepository) GetFile(ctx context.Context, companyID string, batchID uuid.UUID) (*ach.File, error) {
	var row models.AchFile
	if err := r.db.WithContext(ctx).
		First(&row, "batch_id = ? AND company_id = ?", batchID, companyID).Error; err != nil {
		return nil, translate(err)
	}
	f, err := fileFromRow(row)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// MarkTransmitted stamps the hand-off time on a stored file.
func (r *BatchRepository) MarkTransmitted(ctx context.Context, companyID string, batchID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.AchFile{}).
		Where("batch_id = ? AND company_id = ?", batchID, companyID).
		Update("transmitted_at", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
