package processing

import (
	"fmt"

	"ach-batch-backend/internal/ach"
	"ach-batch-backend/internal/services/nacha"
)

// verify parses the generated bytes and checks that the control records, the
// re-summed entry records and the figures reported by the formatter agree.
func verify(f *ach.File) error {
	sum, err := nacha.Parse(f.Content)
	if err != nil {
		return err
	}
	if err := sum.Verify(); err != nil {
		return err
	}
	fc := sum.FileControl
	if fc.EntryCount != f.EntryCount || fc.TotalDebit != f.TotalDebit || fc.TotalCredit != f.TotalCredit {
		return fmt.Errorf("%w: file control %+v, formatter reported %d entries, %d debit, %d credit",
			nacha.ErrControlMismatch, fc, f.EntryCount, f.TotalDebit, f.TotalCredit)
	}
	return nil
}
