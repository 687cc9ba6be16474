package nacha

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	RecordLength   = 94
	BlockingFactor = 10

	recordFileHeader   = '1'
	recordBatchHeader  = '5'
	recordEntryDetail  = '6'
	recordBatchControl = '8'
	recordFileControl  = '9'
)

// record packs fields left to right. The first failure sticks and every
// later call is a no-op, so a record is either complete or an error.
type record struct {
	b   strings.Builder
	err error
}

func newRecord(kind byte) *record {
	r := &record{}
	r.b.Grow(RecordLength)
	r.b.WriteByte(kind)
	return r
}

// alpha writes an alphanumeric field: upper-cased, left-justified, space
// padded and cut to width.
func (r *record) alpha(s string, width int) {
	if r.err != nil {
		return
	}
	s = strings.ToUpper(printable(s))
	if len(s) > width {
		s = s[:width]
	}
	r.b.WriteString(s)
	r.b.WriteString(strings.Repeat(" ", width-len(s)))
}

// num writes a non-negative integer right-justified and zero padded. A value
// that needs more digits than width fails the record instead of being cut.
func (r *record) num(field string, v int64, width int) {
	if r.err != nil {
		return
	}
	if v < 0 {
		r.err = fmt.Errorf("%w: %s is negative (%d)", ErrFieldOverflow, field, v)
		return
	}
	s := strconv.FormatInt(v, 10)
	if len(s) > width {
		r.err = fmt.Errorf("%w: %s %d does not fit %d digits", ErrFieldOverflow, field, v, width)
		return
	}
	r.b.WriteString(strings.Repeat("0", width-len(s)))
	r.b.WriteString(s)
}

// digits writes a string of ASCII digits right-justified and zero padded.
func (r *record) digits(field, s string, width int) {
	if r.err != nil {
		return
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			r.err = fmt.Errorf("%w: %s %q is not numeric", ErrInvalidField, field, s)
			return
		}
	}
	if len(s) > width {
		r.err = fmt.Errorf("%w: %s %q does not fit %d digits", ErrFieldOverflow, field, s, width)
		return
	}
	r.b.WriteString(strings.Repeat("0", width-len(s)))
	r.b.WriteString(s)
}

// exact writes a field that must already have the right width.
func (r *record) exact(field, s string, width int) {
	if r.err != nil {
		return
	}
	if len(s) != width {
		r.err = fmt.Errorf("%w: %s %q must be %d characters", ErrInvalidField, field, s, width)
		return
	}
	r.b.WriteString(s)
}

func (r *record) blank(width int) {
	if r.err != nil {
		return
	}
	r.b.WriteString(strings.Repeat(" ", width))
}

func (r *record) line() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	s := r.b.String()
	if len(s) != RecordLength {
		return "", fmt.Errorf("%w: record %c is %d characters", ErrRecordLength, s[0], len(s))
	}
	return s, nil
}

// printable replaces anything outside printable ASCII with a space.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, s)
}
