package transmit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ach-batch-backend/internal/ach"

	"go.uber.org/zap"
)

var ErrFileExists = errors.New("file already in outbox")

// DirectoryTransmitter drops finished files into an outbox directory that an
// SFTP job or bank connector picks up.
type DirectoryTransmitter struct {
	dir    string
	logger *zap.Logger
}

func NewDirectoryTransmitter(dir string, logger *zap.Logger) (*DirectoryTransmitter, error) {
	if dir == "" {
		return nil, errors.New("outbox directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create outbox %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryTransmitter{dir: dir, logger: logger}, nil
}

// Transmit writes the file under a temporary name and renames it, so the
// pickup job never sees a half written file. An existing file with the same
// name is never overwritten.
func (t *DirectoryTransmitter) Transmit(ctx context.Context, f *ach.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(f.Name)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid file name %q", f.Name)
	}
	dst := filepath.Join(t.dir, name)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrFileExists, name)
	}

	tmp, err := os.CreateTemp(t.dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(f.Content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move %s into outbox: %w", name, err)
	}

	t.logger.Info("file written to outbox",
		zap.String("batch_id", f.BatchID.String()),
		zap.String("path", dst),
		zap.Int("bytes", len(f.Content)))
	return nil
}
