package service

import (
	"fmt"

	"lending-recon/internal/domain"
	"lending-recon/internal/repository"
)

// SnapshotLoader assembles the immutable context one classification
// batch runs over: every outstanding obligation, the entity lookup
// tables, the learned patterns, and the reconciled index derived from
// the persisted links.
type SnapshotLoader struct {
	loans     repository.LoanRepository
	investors repository.InvestorRepository
	expenses  repository.ExpenseRepository
	patterns  repository.PatternRepository
	links     repository.LinkRepository
}

func NewSnapshotLoader(
	loans repository.LoanRepository,
	investors repository.InvestorRepository,
	expenses repository.ExpenseRepository,
	patterns repository.PatternRepository,
	links repository.LinkRepository,
) *SnapshotLoader {
	return &SnapshotLoader{
		loans:     loans,
		investors: investors,
		expenses:  expenses,
		patterns:  patterns,
		links:     links,
	}
}

func (l *SnapshotLoader) Load() (*domain.Snapshot, error) {
	loanTxs, err := l.loans.ListOutstandingTransactions()
	if err != nil {
		return nil, fmt.Errorf("loading loan transactions: %w", err)
	}
	investorTxs, err := l.investors.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("loading investor transactions: %w", err)
	}
	interestEntries, err := l.investors.ListInterestEntries()
	if err != nil {
		return nil, fmt.Errorf("loading interest entries: %w", err)
	}
	expenses, err := l.expenses.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}
	patterns, err := l.patterns.List()
	if err != nil {
		return nil, fmt.Errorf("loading learned patterns: %w", err)
	}
	loans, err := l.loans.ListLoans()
	if err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}
	borrowers, err := l.loans.ListBorrowers()
	if err != nil {
		return nil, fmt.Errorf("loading borrowers: %w", err)
	}
	investors, err := l.investors.ListInvestors()
	if err != nil {
		return nil, fmt.Errorf("loading investors: %w", err)
	}
	expenseTypes, err := l.expenses.ListExpenseTypes()
	if err != nil {
		return nil, fmt.Errorf("loading expense types: %w", err)
	}
	links, err := l.links.GetAll()
	if err != nil {
		return nil, fmt.Errorf("loading reconciliation links: %w", err)
	}

	snap := &domain.Snapshot{
		LoanTransactions:     loanTxs,
		InvestorTransactions: investorTxs,
		InterestEntries:      interestEntries,
		Expenses:             expenses,
		Patterns:             patterns,
		Loans:                make(map[int64]domain.Loan, len(loans)),
		Borrowers:            make(map[int64]domain.Borrower, len(borrowers)),
		Investors:            make(map[int64]domain.Investor, len(investors)),
		ExpenseTypes:         make(map[int64]domain.ExpenseType, len(expenseTypes)),
		Reconciled:           domain.BuildReconciledIndex(links),
	}
	for _, loan := range loans {
		snap.Loans[loan.ID] = loan
	}
	for _, b := range borrowers {
		snap.Borrowers[b.ID] = b
	}
	for _, inv := range investors {
		snap.Investors[inv.ID] = inv
	}
	for _, t := range expenseTypes {
		snap.ExpenseTypes[t.ID] = t
	}
	return snap, nil
}
