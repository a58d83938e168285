package service

import (
	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
)

// balanceTolerance is one cent. The single most important invariant in
// the system: every reconciliation's bank-side and obligation-side
// totals must agree to the cent, and the check is never bypassed,
// relaxed or rounded around.
var balanceTolerance = decimal.NewFromFloat(0.01)

// validateAmountsBalance fails fast when the two totals differ beyond
// one cent. It must run before any write of a reconciliation.
func validateAmountsBalance(bankTotal, obligationTotal decimal.Decimal) error {
	if bankTotal.Sub(obligationTotal).Abs().GreaterThan(balanceTolerance) {
		return &domain.BalanceMismatchError{
			BankTotal:       bankTotal,
			ObligationTotal: obligationTotal,
		}
	}
	return nil
}
