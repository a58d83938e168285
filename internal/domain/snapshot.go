package domain

// Snapshot is the immutable context one classification batch runs
// over: every outstanding obligation, the entity lookup tables, the
// learned patterns, and a precomputed reconciled index. Taken once per
// batch; classification never mutates it. The claimed-obligation
// accumulator lives outside the snapshot (see matcher.ClaimSet) so the
// sequential-claim rule stays explicit.
type Snapshot struct {
	LoanTransactions     []LoanTransaction
	InvestorTransactions []InvestorTransaction
	InterestEntries      []InterestEntry
	Expenses             []Expense
	Patterns             []LearnedPattern

	Loans        map[int64]Loan
	Borrowers    map[int64]Borrower
	Investors    map[int64]Investor
	ExpenseTypes map[int64]ExpenseType

	// Reconciled indexes every obligation already claimed by a
	// persisted ReconciliationLink. Built once per batch from the links
	// table; the single source of truth for "is this taken".
	Reconciled map[ObligationRef]bool
}

// IsReconciled reports whether the obligation is already linked.
func (s *Snapshot) IsReconciled(ref ObligationRef) bool {
	return s.Reconciled[ref]
}

// BorrowerForLoan resolves the borrower owning a loan, if both exist.
func (s *Snapshot) BorrowerForLoan(loanID int64) (Borrower, bool) {
	loan, ok := s.Loans[loanID]
	if !ok {
		return Borrower{}, false
	}
	b, ok := s.Borrowers[loan.BorrowerID]
	return b, ok
}

// BuildReconciledIndex derives the claimed index from persisted links.
func BuildReconciledIndex(links []ReconciliationLink) map[ObligationRef]bool {
	idx := make(map[ObligationRef]bool, len(links))
	for _, l := range links {
		if ref, ok := l.Ref(); ok {
			idx[ref] = true
		}
	}
	return idx
}
