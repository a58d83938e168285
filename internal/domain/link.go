package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationLink is the persisted artifact of a successful
// reconciliation: it attributes part (or all) of a bank entry's amount
// to one obligation. At most one of the obligation id fields is set.
// One bank entry may own several links (grouped matches) and one
// obligation may be the target of several links (several bank entries
// paying one obligation).
type ReconciliationLink struct {
	ID                    string          `json:"id" db:"id"`
	BankEntryID           string          `json:"bank_entry_id" db:"bank_entry_id"`
	LoanTransactionID     *int64          `json:"loan_transaction_id,omitempty" db:"loan_transaction_id"`
	InvestorTransactionID *int64          `json:"investor_transaction_id,omitempty" db:"investor_transaction_id"`
	InterestEntryID       *int64          `json:"interest_entry_id,omitempty" db:"interest_entry_id"`
	ExpenseID             *int64          `json:"expense_id,omitempty" db:"expense_id"`
	Amount                decimal.Decimal `json:"amount" db:"amount"`
	Category              Category        `json:"category" db:"category"`
	WasCreated            bool            `json:"was_created" db:"was_created"`
	Notes                 string          `json:"notes,omitempty" db:"notes"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}

// Ref returns the obligation the link points at, or false when the
// link carries no obligation reference.
func (l ReconciliationLink) Ref() (ObligationRef, bool) {
	switch {
	case l.LoanTransactionID != nil:
		return LoanTxRef(*l.LoanTransactionID), true
	case l.InvestorTransactionID != nil:
		return InvestorTxRef(*l.InvestorTransactionID), true
	case l.InterestEntryID != nil:
		return InterestRef(*l.InterestEntryID), true
	case l.ExpenseID != nil:
		return ExpenseRef(*l.ExpenseID), true
	}
	return ObligationRef{}, false
}
