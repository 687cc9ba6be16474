package ach

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

func (t TransactionType) IsValid() bool {
	return t == Debit || t == Credit
}

// AccountType selects the receiving account kind and, with the transaction
// type, the NACHA transaction code.
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

func (a AccountType) IsValid() bool {
	return a == Checking || a == Savings
}

// Entry is one debit or credit instruction inside a batch. Amount is always in
// cents.
type Entry struct {
	ID              uuid.UUID
	BatchID         uuid.UUID
	Sequence        int
	TransactionType TransactionType
	AccountType     AccountType
	RoutingNumber   string
	AccountNumber   string
	Amount          int64
	ReferenceCode   string
	RecipientID     string
	RecipientName   string
	CreatedAt       time.Time
}

// Label identifies an entry in validation messages.
func (e Entry) Label() string {
	if e.ReferenceCode != "" {
		return e.ReferenceCode
	}
	if e.Sequence > 0 {
		return "#" + strconv.Itoa(e.Sequence)
	}
	return "#?"
}
