package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStatusConflict = errors.New("batch status changed concurrently")
	ErrBatchLocked    = errors.New("entries can only be added to draft batches")
	ErrWriteConflict  = errors.New("conflicting write")
)

const pgUniqueViolation = "23505"

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(ErrWriteConflict, err)
	}
	return err
}
