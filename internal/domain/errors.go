package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyReconciled is returned when a reconciliation would
	// claim a bank entry or obligation that is already linked.
	ErrAlreadyReconciled = errors.New("already reconciled")

	// ErrEntryNotFound is returned when a bank entry id has no row.
	ErrEntryNotFound = errors.New("bank entry not found")

	// ErrObligationNotFound is returned when a referenced obligation
	// has no row.
	ErrObligationNotFound = errors.New("obligation not found")
)

// BalanceMismatchError reports a failed amount-balance validation. It
// is always fatal to the attempted reconciliation and must abort before
// any write.
type BalanceMismatchError struct {
	BankTotal       decimal.Decimal
	ObligationTotal decimal.Decimal
}

func (e *BalanceMismatchError) Error() string {
	diff := e.BankTotal.Sub(e.ObligationTotal)
	return fmt.Sprintf("amounts do not balance: bank total %s, obligation total %s, difference %s",
		e.BankTotal.StringFixed(2), e.ObligationTotal.StringFixed(2), diff.StringFixed(2))
}

// IsBalanceMismatch reports whether err is (or wraps) a
// BalanceMismatchError.
func IsBalanceMismatch(err error) bool {
	var bm *BalanceMismatchError
	return errors.As(err, &bm)
}
