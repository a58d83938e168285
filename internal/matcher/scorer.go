package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"lending-recon/internal/similarity"
)

// Amount tolerance tiers, percent of the larger amount.
const (
	ExactAmountTolerance = 0.5
	CloseAmountTolerance = 5.0
)

// The confidence ladder. Amount exactness dominates, date proximity
// breaks ties. The ladder is monotonically non-increasing as the date
// distance grows within an amount tier, and as the amount tolerance
// widens within a date tier; the tests pin that ordering down.
const (
	scoreExactSameDay = 0.95
	scoreExact3Days   = 0.90
	scoreExact7Days   = 0.80
	scoreCloseSameDay = 0.72
	scoreExact14Days  = 0.60
	scoreClose7Days   = 0.50
	scoreExact30Days  = 0.35
	scoreClose14Days  = 0.25
	scoreCloseBeyond  = 0.10
)

// CalculateMatchScore scores how plausibly one obligation explains one
// bank entry, in [0,1], from the amount tolerance tier and the date
// distance alone.
func CalculateMatchScore(entryAmount decimal.Decimal, entryDate time.Time, obligationAmount decimal.Decimal, obligationDate time.Time) float64 {
	exact := similarity.AmountsMatch(entryAmount, obligationAmount, ExactAmountTolerance)
	closeEnough := similarity.AmountsMatch(entryAmount, obligationAmount, CloseAmountTolerance)
	if !closeEnough {
		return 0
	}
	if entryDate.IsZero() || obligationDate.IsZero() {
		return 0
	}

	days := similarity.DaysBetween(entryDate, obligationDate)

	switch {
	case exact && days == 0:
		return scoreExactSameDay
	case exact && days <= 3:
		return scoreExact3Days
	case exact && days <= 7:
		return scoreExact7Days
	case days == 0:
		return scoreCloseSameDay
	case exact && days <= 14:
		return scoreExact14Days
	case days <= 7:
		return scoreClose7Days
	case exact && days <= 30:
		return scoreExact30Days
	case days <= 14:
		return scoreClose14Days
	default:
		return scoreCloseBeyond
	}
}
