package matcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/internal/similarity"
)

// DefaultGroupWindowDays bounds how far an obligation's date may drift
// from the bank entry's for it to join a group.
const DefaultGroupWindowDays = 3

// GroupAmountTolerancePercent is the tolerance on the summed group
// amount against the bank entry amount.
const GroupAmountTolerancePercent = 1.0

const (
	groupConfidenceSameDay = 0.92
	groupConfidenceSpread  = 0.84
)

// Grouper searches for sets of two or more obligations that jointly
// explain one bank entry, and verifies the symmetric case of several
// bank entries explaining one obligation.
type Grouper struct {
	windowDays int
}

func NewGrouper(windowDays int) *Grouper {
	if windowDays <= 0 {
		windowDays = DefaultGroupWindowDays
	}
	return &Grouper{windowDays: windowDays}
}

// FindObligationGroup proposes a match_group of 2+ repayment
// obligations whose amounts sum to the entry within tolerance.
// Candidates are partitioned by owning borrower and, separately, by
// shared contact email across distinct borrower records. The
// by-borrower partition is checked first and wins equal-confidence
// ties: the narrower grouping is the stable preference, never map
// iteration order. Returns nil when no partition qualifies.
func (g *Grouper) FindObligationGroup(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) *domain.Suggestion {
	if !e.IsCredit() {
		return nil
	}

	candidates := g.candidateRepayments(e, snap, claims)
	if len(candidates) < 2 {
		return nil
	}

	byBorrower := make(map[int64][]domain.LoanTransaction)
	byEmail := make(map[string][]domain.LoanTransaction)
	for _, lt := range candidates {
		b, ok := snap.BorrowerForLoan(lt.LoanID)
		if !ok {
			continue
		}
		byBorrower[b.ID] = append(byBorrower[b.ID], lt)
		if email := strings.ToLower(strings.TrimSpace(b.Email)); email != "" {
			byEmail[email] = append(byEmail[email], lt)
		}
	}

	best := g.bestPartition(e, byBorrower, snap)
	if emailBest := g.bestEmailPartition(e, byEmail, snap); emailBest != nil {
		// Strictly greater: the by-borrower grouping keeps ties.
		if best == nil || emailBest.Confidence > best.Confidence {
			best = emailBest
		}
	}
	return best
}

func (g *Grouper) candidateRepayments(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) []domain.LoanTransaction {
	var out []domain.LoanTransaction
	for _, lt := range snap.LoanTransactions {
		if lt.Type != domain.Repayment {
			continue
		}
		ref := domain.LoanTxRef(lt.ID)
		if snap.IsReconciled(ref) || claims.Claimed(ref) {
			continue
		}
		if !similarity.DatesWithinDays(e.Date, lt.Date, g.windowDays) {
			continue
		}
		out = append(out, lt)
	}
	return out
}

func (g *Grouper) bestPartition(e domain.BankEntry, parts map[int64][]domain.LoanTransaction, snap *domain.Snapshot) *domain.Suggestion {
	keys := make([]int64, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var best *domain.Suggestion
	for _, k := range keys {
		if s := g.evaluateGroup(e, parts[k], g.partitionRationale(parts[k], snap)); s != nil {
			if best == nil || s.Confidence > best.Confidence {
				best = s
			}
		}
	}
	return best
}

func (g *Grouper) bestEmailPartition(e domain.BankEntry, parts map[string][]domain.LoanTransaction, snap *domain.Snapshot) *domain.Suggestion {
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best *domain.Suggestion
	for _, k := range keys {
		group := parts[k]
		if !spansDistinctBorrowers(group, snap) {
			// Same-borrower members are already covered by the
			// by-borrower partition; the email heuristic only adds
			// value across distinct borrower records.
			continue
		}
		rationale := fmt.Sprintf("%s (shared contact %s)", g.partitionRationale(group, snap), k)
		if s := g.evaluateGroup(e, group, rationale); s != nil {
			if best == nil || s.Confidence > best.Confidence {
				best = s
			}
		}
	}
	return best
}

// evaluateGroup applies the size and sum gates to one partition. A
// partition of size 1 never qualifies: a single obligation equaling the
// amount is a direct match, not a group.
func (g *Grouper) evaluateGroup(e domain.BankEntry, group []domain.LoanTransaction, rationale string) *domain.Suggestion {
	if len(group) < 2 {
		return nil
	}

	sum := decimal.Zero
	ids := make([]int64, 0, len(group))
	sameDay := true
	for _, lt := range group {
		sum = sum.Add(lt.Amount)
		ids = append(ids, lt.ID)
		if !similarity.SameDay(e.Date, lt.Date) {
			sameDay = false
		}
	}
	if !similarity.AmountsMatch(e.AbsAmount(), sum, GroupAmountTolerancePercent) {
		return nil
	}

	confidence := groupConfidenceSpread
	if sameDay {
		confidence = groupConfidenceSameDay
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s := domain.NewGroupMatch(e.ID, ids, confidence,
		fmt.Sprintf("%d repayments summing to %s: %s", len(group), sum.StringFixed(2), rationale))
	return &s
}

func (g *Grouper) partitionRationale(group []domain.LoanTransaction, snap *domain.Snapshot) string {
	names := make([]string, 0, len(group))
	seen := make(map[string]bool)
	for _, lt := range group {
		if b, ok := snap.BorrowerForLoan(lt.LoanID); ok && !seen[b.Name] {
			names = append(names, b.Name)
			seen[b.Name] = true
		}
	}
	return strings.Join(names, ", ")
}

func spansDistinctBorrowers(group []domain.LoanTransaction, snap *domain.Snapshot) bool {
	seen := make(map[int64]bool)
	for _, lt := range group {
		if b, ok := snap.BorrowerForLoan(lt.LoanID); ok {
			seen[b.ID] = true
		}
	}
	return len(seen) > 1
}

// EntriesSumToObligation verifies that a caller-supplied cluster of 2+
// bank entries jointly pays one obligation, comparing the sum of
// absolute entry amounts to the obligation amount within tolerance.
func EntriesSumToObligation(entries []domain.BankEntry, obligationAmount decimal.Decimal, tolerancePercent float64) bool {
	if len(entries) < 2 {
		return false
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.AbsAmount())
	}
	return similarity.AmountsMatch(sum, obligationAmount, tolerancePercent)
}

// EntriesDateSpan returns the widest day gap between any entry and the
// obligation date; used to sanity-check grouped-entry reconciliation.
func EntriesDateSpan(entries []domain.BankEntry, obligationDate time.Time) int {
	widest := 0
	for _, e := range entries {
		if d := similarity.DaysBetween(e.Date, obligationDate); d > widest {
			widest = d
		}
	}
	return widest
}
