package transmit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ach-batch-backend/internal/ach"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile() *ach.File {
	return &ach.File{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		Name:    "ACH_PAYROLL_20260310T090500_6f1c2a4e.txt",
		Content: []byte("101 ...\n"),
	}
}

func TestTransmitWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	tx, err := NewDirectoryTransmitter(dir, nil)
	require.NoError(t, err)

	f := testFile()
	require.NoError(t, tx.Transmit(context.Background(), f))

	got, err := os.ReadFile(filepath.Join(dir, f.Name))
	require.NoError(t, err)
	assert.Equal(t, f.Content, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestTransmitRefusesOverwrite(t *testing.T) {
	tx, err := NewDirectoryTransmitter(t.TempDir(), nil)
	require.NoError(t, err)

	f := testFile()
	require.NoError(t, tx.Transmit(context.Background(), f))

	f.Content = []byte("other")
	assert.ErrorIs(t, tx.Transmit(context.Background(), f), ErrFileExists)
}

func TestTransmitStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	tx, err := NewDirectoryTransmitter(dir, nil)
	require.NoError(t, err)

	f := testFile()
	f.Name = "../../escape.txt"
	require.NoError(t, tx.Transmit(context.Background(), f))
	assert.FileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestTransmitHonoursCancellation(t *testing.T) {
	tx, err := NewDirectoryTransmitter(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tx.Transmit(ctx, testFile()), context.Canceled)
}

func TestNewDirectoryTransmitterRequiresDir(t *testing.T) {
	_, err := NewDirectoryTransmitter("", nil)
	assert.Error(t, err)
}
