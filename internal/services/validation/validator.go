package validation

import (
	"fmt"
	"strconv"
	"time"

	"ach-batch-backend/internal/ach"
)

// Rules holds the thresholds the validator warns on. None of them are hard
// limits; clearing-house caps are environment specific.
type Rules struct {
	LargeBatchEntries   int
	LargeEntryAmount    int64
	MaxFutureDays       int
	MaxAccountNumberLen int
}

var DefaultRules = Rules{
	LargeBatchEntries:   10000,
	LargeEntryAmount:    100_000_000, // $1,000,000.00
	MaxFutureDays:       30,
	MaxAccountNumberLen: 17,
}

// Validate checks a batch and its entries with DefaultRules.
func Validate(batch ach.Batch, entries []ach.Entry, today time.Time) ach.ValidationResult {
	return DefaultRules.Validate(batch, entries, today)
}

// Validate never mutates its inputs and never touches storage; the same
// arguments always produce the same result.
func (r Rules) Validate(batch ach.Batch, entries []ach.Entry, today time.Time) ach.ValidationResult {
	var errs, warnings []string

	if len(entries) == 0 {
		errs = append(errs, "Batch must contain at least one entry")
	}
	if r.LargeBatchEntries > 0 && len(entries) > r.LargeBatchEntries {
		warnings = append(warnings, fmt.Sprintf(
			"Batch contains %d entries, consider splitting it into smaller batches", len(entries)))
	}

	for i, e := range entries {
		label := e.Label()
		if e.ReferenceCode == "" && e.Sequence == 0 {
			label = "#" + strconv.Itoa(i+1)
		}

		if e.ReferenceCode == "" {
			errs = append(errs, fmt.Sprintf("Missing reference code for entry %s", label))
		}
		if e.Amount <= 0 {
			errs = append(errs, fmt.Sprintf("Invalid amount for entry %s: amount must be greater than zero", label))
		} else if r.LargeEntryAmount > 0 && e.Amount > r.LargeEntryAmount {
			warnings = append(warnings, fmt.Sprintf(
				"Large amount for entry %s: %s", label, ach.FormatMinorUnits(e.Amount)))
		}
		if e.RecipientID == "" {
			errs = append(errs, fmt.Sprintf("Missing recipient ID for entry %s", label))
		}
		if !e.TransactionType.IsValid() {
			errs = append(errs, fmt.Sprintf("Invalid transaction type for entry %s: %q", label, e.TransactionType))
		}
		if e.AccountType != "" && !e.AccountType.IsValid() {
			errs = append(errs, fmt.Sprintf("Invalid account type for entry %s: %q", label, e.AccountType))
		}
		if !ach.ValidRoutingNumber(e.RoutingNumber) {
			errs = append(errs, fmt.Sprintf("Invalid routing number for entry %s", label))
		}
		switch {
		case e.AccountNumber == "":
			errs = append(errs, fmt.Sprintf("Missing account number for entry %s", label))
		case r.MaxAccountNumberLen > 0 && len(e.AccountNumber) > r.MaxAccountNumberLen:
			errs = append(errs, fmt.Sprintf("Account number for entry %s exceeds %d characters", label, r.MaxAccountNumberLen))
		case !alphanumeric(e.AccountNumber):
			errs = append(errs, fmt.Sprintf("Account number for entry %s must be alphanumeric", label))
		}
	}

	effective := ach.DateOf(batch.EffectiveDate)
	day := ach.DateOf(today)
	if effective.Before(day) {
		errs = append(errs, "Effective date cannot be in the past")
	} else if r.MaxFutureDays > 0 && effective.After(day.AddDate(0, 0, r.MaxFutureDays)) {
		warnings = append(warnings, fmt.Sprintf(
			"Effective date is more than %d days in the future", r.MaxFutureDays))
	}

	return ach.NewValidationResult(errs, warnings)
}

func alphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z') {
			return false
		}
	}
	return true
}
