package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankEntry is one ledger line from an imported bank statement.
// Amount is signed: positive for credits (inflows), negative for debits
// (outflows). Amount, date and description are immutable once imported;
// only the reconciled flag and timestamp are ever mutated.
type BankEntry struct {
	ID           string           `json:"id" db:"id"`
	Amount       decimal.Decimal  `json:"amount" db:"amount"`
	Date         time.Time        `json:"date" db:"date"`
	Description  string           `json:"description" db:"description"`
	Reference    string           `json:"reference,omitempty" db:"reference"`
	Source       string           `json:"source" db:"source"` // Bank identifier
	Reconciled   bool             `json:"reconciled" db:"reconciled"`
	ReconciledAt *time.Time       `json:"reconciled_at,omitempty" db:"reconciled_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// IsCredit reports whether the entry is an inflow.
func (e BankEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// IsDebit reports whether the entry is an outflow.
func (e BankEntry) IsDebit() bool {
	return e.Amount.IsNegative()
}

// AbsAmount returns the unsigned amount of the entry.
func (e BankEntry) AbsAmount() decimal.Decimal {
	return e.Amount.Abs()
}
