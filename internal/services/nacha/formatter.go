package nacha

import (
	"fmt"
	"strings"
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/google/uuid"
)

// Service class codes for the batch header and control.
const (
	ServiceClassMixed   = 200
	ServiceClassCredits = 220
	ServiceClassDebits  = 225
)

const entryHashModulus = 10_000_000_000

// Originator identifies who sends the file and to which ACH operator.
type Originator struct {
	ImmediateDestination     string // 9-digit routing number of the receiving point
	ImmediateDestinationName string
	ImmediateOrigin          string // 9-digit routing number or 10-character company id
	ImmediateOriginName      string
	CompanyName              string
	CompanyID                string // 10 characters, usually "1" + EIN
	CompanyDiscretionary     string
	ODFIRouting              string // originating bank routing number
	FileIDModifier           string // A-Z or 0-9
	ReferenceCode            string
}

// Validate checks the settings that end up in numeric or fixed fields.
func (o Originator) Validate() error {
	if !ach.ValidRoutingNumber(o.ImmediateDestination) {
		return fmt.Errorf("%w: immediate destination %q", ErrInvalidOrigin, o.ImmediateDestination)
	}
	switch len(o.ImmediateOrigin) {
	case 9, 10:
	default:
		return fmt.Errorf("%w: immediate origin %q", ErrInvalidOrigin, o.ImmediateOrigin)
	}
	if !ach.ValidRoutingNumber(o.ODFIRouting) {
		return fmt.Errorf("%w: ODFI routing %q", ErrInvalidOrigin, o.ODFIRouting)
	}
	if len(o.CompanyID) == 0 || len(o.CompanyID) > 10 {
		return fmt.Errorf("%w: company id %q", ErrInvalidOrigin, o.CompanyID)
	}
	if strings.TrimSpace(o.CompanyName) == "" {
		return fmt.Errorf("%w: company name is empty", ErrInvalidOrigin)
	}
	if len(o.FileIDModifier) != 1 || !isModifier(o.FileIDModifier[0]) {
		return fmt.Errorf("%w: file id modifier %q", ErrInvalidOrigin, o.FileIDModifier)
	}
	return nil
}

func isModifier(c byte) bool {
	return 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// Formatter renders one batch into a NACHA file. Apart from the creation
// date and time taken from the clock, output depends only on its inputs.
// Build it with NewFormatter.
type Formatter struct {
	originator Originator
	clock      func() time.Time
}

// Originator returns the validated originator the formatter writes.
func (f *Formatter) Originator() Originator {
	return f.originator
}

func NewFormatter(o Originator, clock func() time.Time) (*Formatter, error) {
	if o.FileIDModifier == "" {
		o.FileIDModifier = "A"
	}
	o.FileIDModifier = strings.ToUpper(o.FileIDModifier)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Formatter{originator: o, clock: clock}, nil
}

type totals struct {
	entries int
	hash    int64
	debit   int64
	credit  int64
}

// Format writes the file header, one batch, and the file control padded to
// full blocks. Every control figure is counted from the entry records as
// they are written and then checked against the batch total.
func (f *Formatter) Format(batch ach.Batch, entries []ach.Entry) (*ach.File, error) {
	if f.clock == nil || !ach.ValidRoutingNumber(f.originator.ODFIRouting) {
		return nil, fmt.Errorf("%w: formatter not built with NewFormatter", ErrInvalidOrigin)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: batch %s has no entries", ErrInvalidField, batch.ID)
	}
	now := f.clock()
	odfi := f.originator.ODFIRouting[:8]
	class := serviceClass(entries)
	const batchNumber = 1

	lines := make([]string, 0, len(entries)+6)
	add := func(r *record) error {
		l, err := r.line()
		if err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	}

	if err := add(f.fileHeader(now)); err != nil {
		return nil, err
	}
	if err := add(f.batchHeader(batch, class, batchNumber)); err != nil {
		return nil, err
	}

	var t totals
	for i, e := range entries {
		rec, rdfi, err := entryDetail(e, odfi, i+1)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Label(), err)
		}
		if err := add(rec); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Label(), err)
		}
		t.entries++
		t.hash = (t.hash + rdfi) % entryHashModulus
		if e.TransactionType == ach.Debit {
			t.debit += e.Amount
		} else {
			t.credit += e.Amount
		}
	}

	if written := t.debit + t.credit; written != batch.TotalAmount {
		return nil, fmt.Errorf("%w: wrote %d cents, batch total is %d", ErrControlMismatch, written, batch.TotalAmount)
	}

	if err := add(f.batchControl(class, t, batchNumber)); err != nil {
		return nil, err
	}

	// file control counts itself
	blocks := (len(lines) + 1 + BlockingFactor - 1) / BlockingFactor
	if err := add(fileControl(1, blocks, t)); err != nil {
		return nil, err
	}
	filler := strings.Repeat("9", RecordLength)
	for len(lines)%BlockingFactor != 0 {
		lines = append(lines, filler)
	}

	return &ach.File{
		ID:          uuid.New(),
		BatchID:     batch.ID,
		CompanyID:   batch.CompanyID,
		Name:        FileName(batch, now),
		Content:     []byte(strings.Join(lines, "\n") + "\n"),
		EntryCount:  t.entries,
		TotalDebit:  t.debit,
		TotalCredit: t.credit,
		EntryHash:   t.hash,
		BlockCount:  blocks,
		GeneratedAt: now,
	}, nil
}

// FileName is the name the file is stored and handed off under.
func FileName(batch ach.Batch, now time.Time) string {
	return fmt.Sprintf("ACH_%s_%s_%s.txt",
		strings.ToUpper(string(batch.Type)),
		now.Format("20060102T150405"),
		strings.SplitN(batch.ID.String(), "-", 2)[0])
}

func (f *Formatter) fileHeader(now time.Time) *record {
	o := f.originator
	r := newRecord(recordFileHeader)
	r.exact("priority code", "01", 2)
	r.exact("immediate destination", " "+o.ImmediateDestination, 10)
	if len(o.ImmediateOrigin) == 9 {
		r.exact("immediate origin", " "+o.ImmediateOrigin, 10)
	} else {
		r.exact("immediate origin", o.ImmediateOrigin, 10)
	}
	r.exact("file creation date", now.Format("060102"), 6)
	r.exact("file creation time", now.Format("1504"), 4)
	r.exact("file id modifier", o.FileIDModifier, 1)
	r.exact("record size", "094", 3)
	r.num("blocking factor", BlockingFactor, 2)
	r.exact("format code", "1", 1)
	r.alpha(o.ImmediateDestinationName, 23)
	r.alpha(o.ImmediateOriginName, 23)
	r.alpha(o.ReferenceCode, 8)
	return r
}

func (f *Formatter) batchHeader(batch ach.Batch, class, number int) *record {
	o := f.originator
	r := newRecord(recordBatchHeader)
	r.num("service class code", int64(class), 3)
	r.alpha(o.CompanyName, 16)
	r.alpha(o.CompanyDiscretionary, 20)
	r.alpha(o.CompanyID, 10)
	r.exact("standard entry class", SECCode(batch.Type), 3)
	r.alpha(EntryDescription(batch.Type), 10)
	r.alpha(batch.EffectiveDate.Format("Jan 06"), 6)
	r.exact("effective entry date", batch.EffectiveDate.Format("060102"), 6)
	r.blank(3) // settlement date, filled in by the ACH operator
	r.exact("originator status code", "1", 1)
	r.exact("originating DFI", o.ODFIRouting[:8], 8)
	r.num("batch number", int64(number), 7)
	return r
}

// entryDetail returns the record and the receiving DFI id that feeds the
// entry hash.
func entryDetail(e ach.Entry, odfi string, seq int) (*record, int64, error) {
	if !ach.ValidRoutingNumber(e.RoutingNumber) {
		return nil, 0, fmt.Errorf("%w: routing number %q", ErrInvalidField, e.RoutingNumber)
	}
	if len(e.AccountNumber) > 17 {
		return nil, 0, fmt.Errorf("%w: account number is %d characters", ErrFieldOverflow, len(e.AccountNumber))
	}
	code, err := TransactionCode(e.TransactionType, e.AccountType)
	if err != nil {
		return nil, 0, err
	}
	if e.Amount <= 0 {
		return nil, 0, fmt.Errorf("%w: amount %d", ErrInvalidField, e.Amount)
	}

	var rdfi int64
	for i := 0; i < 8; i++ {
		rdfi = rdfi*10 + int64(e.RoutingNumber[i]-'0')
	}

	name := e.RecipientName
	if name == "" {
		name = e.RecipientID
	}

	r := newRecord(recordEntryDetail)
	r.num("transaction code", int64(code), 2)
	r.exact("receiving DFI", e.RoutingNumber[:8], 8)
	r.exact("check digit", e.RoutingNumber[8:], 1)
	r.alpha(e.AccountNumber, 17)
	r.num("amount", e.Amount, 10)
	r.alpha(e.ReferenceCode, 15)
	r.alpha(name, 22)
	r.blank(2)
	r.exact("addenda indicator", "0", 1)
	r.exact("trace ODFI", odfi, 8)
	r.num("trace sequence", int64(seq), 7)
	return r, rdfi, nil
}

func (f *Formatter) batchControl(class int, t totals, number int) *record {
	r := newRecord(recordBatchControl)
	r.num("service class code", int64(class), 3)
	r.num("entry/addenda count", int64(t.entries), 6)
	r.num("entry hash", t.hash, 10)
	r.num("total debit", t.debit, 12)
	r.num("total credit", t.credit, 12)
	r.alpha(f.originator.CompanyID, 10)
	r.blank(19) // message authentication code
	r.blank(6)
	r.exact("originating DFI", f.originator.ODFIRouting[:8], 8)
	r.num("batch number", int64(number), 7)
	return r
}

func fileControl(batches, blocks int, t totals) *record {
	r := newRecord(recordFileControl)
	r.num("batch count", int64(batches), 6)
	r.num("block count", int64(blocks), 6)
	r.num("entry/addenda count", int64(t.entries), 8)
	r.num("entry hash", t.hash, 10)
	r.num("total debit", t.debit, 12)
	r.num("total credit", t.credit, 12)
	r.blank(39)
	return r
}

func serviceClass(entries []ach.Entry) int {
	var debits, credits bool
	for _, e := range entries {
		if e.TransactionType == ach.Debit {
			debits = true
		} else {
			credits = true
		}
	}
	switch {
	case debits && credits:
		return ServiceClassMixed
	case debits:
		return ServiceClassDebits
	default:
		return ServiceClassCredits
	}
}

// TransactionCode maps an entry to its two-digit NACHA transaction code.
// An empty account type means checking.
func TransactionCode(tt ach.TransactionType, at ach.AccountType) (int, error) {
	if at == "" {
		at = ach.Checking
	}
	switch {
	case tt == ach.Credit && at == ach.Checking:
		return 22, nil
	case tt == ach.Debit && at == ach.Checking:
		return 27, nil
	case tt == ach.Credit && at == ach.Savings:
		return 32, nil
	case tt == ach.Debit && at == ach.Savings:
		return 37, nil
	}
	return 0, fmt.Errorf("%w: transaction %q account %q", ErrInvalidField, tt, at)
}

// SECCode picks the standard entry class: consumer accounts for payroll and
// benefits, corporate accounts for tax and vendor payments.
func SECCode(t ach.BatchType) string {
	switch t {
	case ach.Tax, ach.Vendor:
		return "CCD"
	default:
		return "PPD"
	}
}

func EntryDescription(t ach.BatchType) string {
	switch t {
	case ach.Payroll:
		return "PAYROLL"
	case ach.Benefits:
		return "BENEFITS"
	case ach.Tax:
		return "TAX PYMT"
	case ach.Vendor:
		return "VENDOR PAY"
	}
	return strings.ToUpper(string(t))
}
