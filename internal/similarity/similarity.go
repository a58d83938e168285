// Package similarity holds the pure text, amount and date comparison
// primitives the matching engine is built on. No state, no I/O.
package similarity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// LevenshteinSimilarity returns edit-distance similarity normalized to
// [0,1]. Returns 0 immediately when the length delta exceeds half the
// longer string; no edit sequence that short can be a plausible vendor
// match and the distance computation is the expensive part.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longer := la
	if lb > la {
		longer = lb
	}
	delta := la - lb
	if delta < 0 {
		delta = -delta
	}
	if float64(delta) > float64(longer)*0.5 {
		return 0
	}

	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return 1 - float64(distance)/float64(longer)
}

// StringSimilarity scores two free-text strings in [0,1]: exact match
// 1.0, substring containment 0.8, otherwise the fraction of the smaller
// keyword set that at least partially overlaps the larger. Either side
// yielding no keywords scores 0.
func StringSimilarity(a, b string) float64 {
	al := strings.ToLower(strings.TrimSpace(a))
	bl := strings.ToLower(strings.TrimSpace(b))
	if al == "" || bl == "" {
		return 0
	}
	if al == bl {
		return 1
	}
	if strings.Contains(al, bl) || strings.Contains(bl, al) {
		return 0.8
	}

	ka := ExtractKeywords(al)
	kb := ExtractKeywords(bl)
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}

	// Score the smaller keyword set against the larger so the result
	// stays in [0,1] regardless of which side carries more tokens.
	smaller, larger := ka, kb
	if len(kb) < len(ka) {
		smaller, larger = kb, ka
	}
	matched := 0
	for _, t := range smaller {
		if anyTokenOverlaps(t, larger) {
			matched++
		}
	}
	return float64(matched) / float64(len(smaller))
}

func anyTokenOverlaps(token string, candidates []string) bool {
	for _, c := range candidates {
		if token == c || strings.Contains(c, token) || strings.Contains(token, c) {
			return true
		}
	}
	return false
}

// AmountsMatch reports whether two amounts agree within a percentage
// tolerance of the larger. Both zero is a match; exactly one zero never
// is.
func AmountsMatch(a, b decimal.Decimal, tolerancePercent float64) bool {
	aAbs, bAbs := a.Abs(), b.Abs()
	if aAbs.IsZero() && bAbs.IsZero() {
		return true
	}
	if aAbs.IsZero() || bAbs.IsZero() {
		return false
	}
	larger := aAbs
	if bAbs.GreaterThan(aAbs) {
		larger = bAbs
	}
	tolerance := larger.Mul(decimal.NewFromFloat(tolerancePercent / 100))
	return aAbs.Sub(bAbs).Abs().LessThanOrEqual(tolerance)
}

// DatesWithinDays reports whether two dates fall within n calendar days
// of each other. Zero dates never match.
func DatesWithinDays(d1, d2 time.Time, n int) bool {
	if d1.IsZero() || d2.IsZero() {
		return false
	}
	diff := DaysBetween(d1, d2)
	return diff <= n
}

// DaysBetween returns the absolute whole-day difference between two
// dates, ignoring time of day.
func DaysBetween(d1, d2 time.Time) int {
	t1 := time.Date(d1.Year(), d1.Month(), d1.Day(), 0, 0, 0, 0, time.UTC)
	t2 := time.Date(d2.Year(), d2.Month(), d2.Day(), 0, 0, 0, 0, time.UTC)
	diff := t1.Sub(t2)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(d1, d2 time.Time) bool {
	return d1.Year() == d2.Year() && d1.YearDay() == d2.YearDay()
}
