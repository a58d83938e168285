package domain

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// LearnedPattern is a persisted vendor-keyword association strengthened
// by past confirmed create-mode reconciliations. Read-mostly input to
// the classifier; strengthened by the executor after a successful
// create.
type LearnedPattern struct {
	ID         int64           `json:"id" db:"id"`
	Keywords   pq.StringArray  `json:"keywords" db:"keywords"`
	Category   Category        `json:"category" db:"category"`
	Direction  Direction       `json:"direction" db:"direction"`
	MinAmount  decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount  decimal.Decimal `json:"max_amount" db:"max_amount"`
	Confidence float64         `json:"confidence" db:"confidence"`
	MatchCount int             `json:"match_count" db:"match_count"`
	// ExpenseTypeID hints which expense type past confirmations used;
	// zero for non-expense patterns.
	ExpenseTypeID int64 `json:"expense_type_id,omitempty" db:"expense_type_id"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Direction is the sign of a bank entry a pattern admits.
type Direction string

const (
	DirCredit Direction = "CREDIT"
	DirDebit  Direction = "DEBIT"
)

// Admits reports whether the entry's direction and absolute amount fall
// inside the pattern's gate.
func (p LearnedPattern) Admits(e BankEntry) bool {
	if p.Direction == DirCredit && !e.IsCredit() {
		return false
	}
	if p.Direction == DirDebit && !e.IsDebit() {
		return false
	}
	amt := e.AbsAmount()
	if p.MinAmount.IsPositive() && amt.LessThan(p.MinAmount) {
		return false
	}
	if p.MaxAmount.IsPositive() && amt.GreaterThan(p.MaxAmount) {
		return false
	}
	return true
}
