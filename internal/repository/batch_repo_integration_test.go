//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupRepository(t *testing.T) *BatchRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ach"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	repo := NewBatchRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestIntegration_BatchLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	b := &ach.Batch{
		ID:            uuid.New(),
		CompanyID:     "acme",
		Name:          "Payroll Jan",
		Type:          ach.Payroll,
		EffectiveDate: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		Status:        ach.StatusDraft,
	}
	require.NoError(t, repo.Create(ctx, b))

	for i, amt := range []int64{250000, 1} {
		e := &ach.Entry{
			ID:              uuid.New(),
			TransactionType: ach.Credit,
			RoutingNumber:   "021000021",
			AccountNumber:   "1234567",
			Amount:          amt,
			ReferenceCode:   "E100" + string(rune('1'+i)),
			RecipientID:     "emp-1",
		}
		require.NoError(t, repo.AddEntry(ctx, "acme", b.ID, e))
		assert.Equal(t, i+1, e.Sequence)
	}

	got, err := repo.GetByID(ctx, "acme", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EntryCount)
	assert.Equal(t, int64(250001), got.TotalAmount)
	assert.True(t, b.EffectiveDate.Equal(got.EffectiveDate))

	list, err := repo.ListBatches(ctx, "acme", BatchFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(250001), list[0].TotalAmount)

	_, err = repo.GetByID(ctx, "globex", b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	change := StatusChange{
		CompanyID: "acme",
		BatchID:   b.ID,
		From:      []ach.Status{ach.StatusDraft, ach.StatusReady},
		To:        ach.StatusProcessing,
	}
	require.NoError(t, repo.UpdateStatus(ctx, change))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, change), ErrStatusConflict)
	assert.ErrorIs(t, repo.AddEntry(ctx, "acme", b.ID, &ach.Entry{ID: uuid.New()}), ErrBatchLocked)

	f := &ach.File{ID: uuid.New(), BatchID: b.ID, CompanyID: "acme", Name: "f.txt", Content: []byte("101"), EntryCount: 2}
	require.NoError(t, repo.SaveFile(ctx, f))
	f.ID = uuid.New()
	assert.ErrorIs(t, repo.SaveFile(ctx, f), ErrWriteConflict)

	stored, err := repo.GetFile(ctx, "acme", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.EntryCount)

	require.NoError(t, repo.UpdateStatus(ctx, StatusChange{
		CompanyID: "acme",
		BatchID:   b.ID,
		From:      []ach.Status{ach.StatusProcessing},
		To:        ach.StatusCompleted,
	}))
	audit, err := repo.ListAudit(ctx, "acme", b.ID)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, ach.StatusCompleted, audit[1].ToStatus)
}
