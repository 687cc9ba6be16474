package validation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func payrollBatch(effective time.Time) ach.Batch {
	return ach.Batch{
		Name:          "Payroll Jan",
		Type:          ach.Payroll,
		EffectiveDate: effective,
		Status:        ach.StatusDraft,
	}
}

func validEntry() ach.Entry {
	return ach.Entry{
		Sequence:        1,
		TransactionType: ach.Credit,
		AccountType:     ach.Checking,
		RoutingNumber:   "021000021",
		AccountNumber:   "1234567",
		Amount:          250000,
		ReferenceCode:   "E1001",
		RecipientID:     "emp-1",
	}
}

func TestValidateSingleValidEntry(t *testing.T) {
	res := Validate(payrollBatch(today.AddDate(0, 0, 1)), []ach.Entry{validEntry()}, today)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Warnings)
}

func TestValidateOneCentIsValid(t *testing.T) {
	e := validEntry()
	e.Amount = 1

	res := Validate(payrollBatch(today), []ach.Entry{e}, today)
	assert.True(t, res.IsValid, res.Errors)
}

func TestValidateZeroAmount(t *testing.T) {
	e := validEntry()
	e.Amount = 0

	res := Validate(payrollBatch(today.AddDate(0, 0, 1)), []ach.Entry{e}, today)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Invalid amount for entry E1001"), res.Errors[0])
}

func TestValidatePastEffectiveDate(t *testing.T) {
	res := Validate(payrollBatch(today.AddDate(0, 0, -1)), []ach.Entry{validEntry()}, today)

	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "Effective date cannot be in the past")
}

func TestValidateTodayIsNotPast(t *testing.T) {
	// effective date at midnight, validated in the afternoon of the same day
	res := Validate(payrollBatch(ach.DateOf(today)), []ach.Entry{validEntry()}, today)
	assert.True(t, res.IsValid, res.Errors)
}

func TestValidateFarFutureWarns(t *testing.T) {
	res := Validate(payrollBatch(today.AddDate(0, 0, 31)), []ach.Entry{validEntry()}, today)
	assert.True(t, res.IsValid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "more than 30 days")

	res = Validate(payrollBatch(today.AddDate(0, 0, 30)), []ach.Entry{validEntry()}, today)
	assert.Empty(t, res.Warnings)
}

func TestValidateEmptyBatch(t *testing.T) {
	res := Validate(payrollBatch(today), nil, today)

	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"Batch must contain at least one entry"}, res.Errors)
}

func TestValidateLargeBatchWarns(t *testing.T) {
	entries := make([]ach.Entry, 10001)
	for i := range entries {
		e := validEntry()
		e.Sequence = i + 1
		e.ReferenceCode = fmt.Sprintf("E%05d", i)
		entries[i] = e
	}

	res := Validate(payrollBatch(today.AddDate(0, 0, 1)), entries, today)

	assert.True(t, res.IsValid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "consider splitting")
}

func TestValidateLargeAmountWarns(t *testing.T) {
	e := validEntry()
	e.Amount = 100_000_001

	res := Validate(payrollBatch(today), []ach.Entry{e}, today)
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{"Large amount for entry E1001: 1000000.01"}, res.Warnings)
}

func TestValidateCollectsEveryEntryError(t *testing.T) {
	bad := ach.Entry{Sequence: 2, TransactionType: "refund", RoutingNumber: "021000022", Amount: -5}
	long := validEntry()
	long.Sequence = 3
	long.ReferenceCode = "E3"
	long.AccountNumber = strings.Repeat("9", 18)
	dashed := validEntry()
	dashed.Sequence = 4
	dashed.ReferenceCode = "E4"
	dashed.AccountNumber = "12-34"

	res := Validate(payrollBatch(today), []ach.Entry{validEntry(), bad, long, dashed}, today)

	assert.False(t, res.IsValid)
	assert.Equal(t, []string{
		"Missing reference code for entry #2",
		"Invalid amount for entry #2: amount must be greater than zero",
		"Missing recipient ID for entry #2",
		`Invalid transaction type for entry #2: "refund"`,
		"Invalid routing number for entry #2",
		"Missing account number for entry #2",
		"Account number for entry E3 exceeds 17 characters",
		"Account number for entry E4 must be alphanumeric",
	}, res.Errors)
}

func TestValidateIsPure(t *testing.T) {
	batch := payrollBatch(today.AddDate(0, 0, 45))
	entries := []ach.Entry{validEntry(), {Sequence: 2, Amount: 0}}
	snapshot := append([]ach.Entry(nil), entries...)

	first := Validate(batch, entries, today)
	second := Validate(batch, entries, today)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, entries)
	assert.Equal(t, len(first.Errors) == 0, first.IsValid)
}

func TestCustomRules(t *testing.T) {
	rules := DefaultRules
	rules.LargeBatchEntries = 1

	res := rules.Validate(payrollBatch(today), []ach.Entry{validEntry(), validEntry()}, today)
	assert.True(t, res.IsValid)
	assert.Len(t, res.Warnings, 1)
}
