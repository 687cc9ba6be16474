package nacha

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// EntryRecord is a type 6 record as read back from a file.
type EntryRecord struct {
	TransactionCode int
	RoutingNumber   string
	AccountNumber   string
	Amount          int64
	ReferenceCode   string
	Name            string
	TraceNumber     string
}

func (e EntryRecord) IsDebit() bool {
	switch e.TransactionCode % 10 {
	case 7, 8, 9:
		return true
	}
	return false
}

// Control holds the figures of a batch control (8) or file control (9).
type Control struct {
	BatchCount  int
	BlockCount  int
	EntryCount  int
	EntryHash   int64
	TotalDebit  int64
	TotalCredit int64
}

type BatchRecord struct {
	ServiceClass  int
	CompanyID     string
	SECCode       string
	EffectiveDate string
	Number        int
	Entries       []EntryRecord
	Control       Control
}

// Summary is a parsed file.
type Summary struct {
	ImmediateDestination string
	ImmediateOrigin      string
	CreationDate         string
	CreationTime         string
	Batches              []BatchRecord
	FileControl          Control
	Lines                int
}

// Parse reads a NACHA file written by Formatter. It checks record lengths
// and layout but not the totals; call Verify for that.
func Parse(data []byte) (*Summary, error) {
	s := &Summary{}
	var cur *BatchRecord
	sawFileControl := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		s.Lines++
		if len(line) != RecordLength {
			return nil, fmt.Errorf("%w: line %d is %d characters", ErrRecordLength, s.Lines, len(line))
		}
		p := &parser{line: line}

		switch line[0] {
		case recordFileHeader:
			if s.Lines != 1 {
				return nil, fmt.Errorf("%w: file header on line %d", ErrMalformedFile, s.Lines)
			}
			s.ImmediateDestination = strings.TrimSpace(line[3:13])
			s.ImmediateOrigin = strings.TrimSpace(line[13:23])
			s.CreationDate = line[23:29]
			s.CreationTime = line[29:33]
		case recordBatchHeader:
			if cur != nil {
				return nil, fmt.Errorf("%w: batch header inside batch on line %d", ErrMalformedFile, s.Lines)
			}
			cur = &BatchRecord{
				ServiceClass:  p.atoi(1, 4),
				CompanyID:     strings.TrimSpace(line[40:50]),
				SECCode:       line[50:53],
				EffectiveDate: line[69:75],
				Number:        p.atoi(87, 94),
			}
		case recordEntryDetail:
			if cur == nil {
				return nil, fmt.Errorf("%w: entry outside batch on line %d", ErrMalformedFile, s.Lines)
			}
			cur.Entries = append(cur.Entries, EntryRecord{
				TransactionCode: p.atoi(1, 3),
				RoutingNumber:   line[3:12],
				AccountNumber:   strings.TrimSpace(line[12:29]),
				Amount:          p.atoi64(29, 39),
				ReferenceCode:   strings.TrimSpace(line[39:54]),
				Name:            strings.TrimSpace(line[54:76]),
				TraceNumber:     line[79:94],
			})
		case recordBatchControl:
			if cur == nil {
				return nil, fmt.Errorf("%w: batch control outside batch on line %d", ErrMalformedFile, s.Lines)
			}
			cur.Control = Control{
				BatchCount:  1,
				EntryCount:  p.atoi(4, 10),
				EntryHash:   p.atoi64(10, 20),
				TotalDebit:  p.atoi64(20, 32),
				TotalCredit: p.atoi64(32, 44),
			}
			s.Batches = append(s.Batches, *cur)
			cur = nil
		case recordFileControl:
			if line == strings.Repeat("9", RecordLength) {
				if !sawFileControl {
					return nil, fmt.Errorf("%w: filler before file control on line %d", ErrMalformedFile, s.Lines)
				}
				continue
			}
			if cur != nil {
				return nil, fmt.Errorf("%w: file control inside batch on line %d", ErrMalformedFile, s.Lines)
			}
			s.FileControl = Control{
				BatchCount:  p.atoi(1, 7),
				BlockCount:  p.atoi(7, 13),
				EntryCount:  p.atoi(13, 21),
				EntryHash:   p.atoi64(21, 31),
				TotalDebit:  p.atoi64(31, 43),
				TotalCredit: p.atoi64(43, 55),
			}
			sawFileControl = true
		default:
			return nil, fmt.Errorf("%w: unknown record type %q on line %d", ErrMalformedFile, line[0], s.Lines)
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", s.Lines, p.err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if s.Lines == 0 || !sawFileControl {
		return nil, fmt.Errorf("%w: missing file control", ErrMalformedFile)
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: unterminated batch", ErrMalformedFile)
	}
	return s, nil
}

// Recount sums the entry records of b the way the formatter does.
func (b BatchRecord) Recount() Control {
	c := Control{BatchCount: 1}
	for _, e := range b.Entries {
		c.EntryCount++
		rdfi, _ := strconv.ParseInt(e.RoutingNumber[:8], 10, 64)
		c.EntryHash = (c.EntryHash + rdfi) % entryHashModulus
		if e.IsDebit() {
			c.TotalDebit += e.Amount
		} else {
			c.TotalCredit += e.Amount
		}
	}
	return c
}

// Verify re-sums every entry record and compares the result with each batch
// control and the file control.
func (s *Summary) Verify() error {
	var file Control
	for _, b := range s.Batches {
		got := b.Recount()
		if got != b.Control {
			return fmt.Errorf("%w: batch %d control %+v, entries sum to %+v", ErrControlMismatch, b.Number, b.Control, got)
		}
		file.BatchCount++
		file.EntryCount += got.EntryCount
		file.EntryHash = (file.EntryHash + got.EntryHash) % entryHashModulus
		file.TotalDebit += got.TotalDebit
		file.TotalCredit += got.TotalCredit
	}
	if s.Lines%BlockingFactor != 0 {
		return fmt.Errorf("%w: %d lines is not a whole number of blocks", ErrMalformedFile, s.Lines)
	}
	file.BlockCount = s.Lines / BlockingFactor
	if file != s.FileControl {
		return fmt.Errorf("%w: file control %+v, entries sum to %+v", ErrControlMismatch, s.FileControl, file)
	}
	return nil
}

type parser struct {
	line string
	err  error
}

func (p *parser) atoi64(from, to int) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(p.line[from:to], 10, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: columns %d-%d %q", ErrInvalidField, from+1, to, p.line[from:to])
	}
	return v
}

func (p *parser) atoi(from, to int) int {
	return int(p.atoi64(from, to))
}
