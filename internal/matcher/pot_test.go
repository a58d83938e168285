package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-recon/internal/domain"
)

func TestAssignPot(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := emptySnapshot()
	snap.LoanTransactions = []domain.LoanTransaction{
		{ID: 1, LoanID: 3, Type: domain.Repayment, Amount: decimal.NewFromFloat(500.00), Date: day},
	}
	snap.InvestorTransactions = []domain.InvestorTransaction{
		{ID: 2, InvestorID: 5, Type: domain.Deposit, Amount: decimal.NewFromFloat(25000.00), Date: day},
	}
	snap.Expenses = []domain.Expense{
		{ID: 3, ExpenseTypeID: 1, Amount: decimal.NewFromFloat(89.99), Date: day},
	}
	snap.Loans[3] = domain.Loan{ID: 3, BorrowerID: 1, Status: domain.LoanActive}
	snap.Borrowers[1] = domain.Borrower{ID: 1, Name: "Jane Doe"}
	snap.Investors[5] = domain.Investor{ID: 5, Name: "Venkman"}

	p := NewPotClassifier(0)

	credit := func(amount float64, desc string) domain.BankEntry {
		return domain.BankEntry{ID: "c", Amount: decimal.NewFromFloat(amount), Date: day, Description: desc}
	}
	debit := func(amount float64, desc string) domain.BankEntry {
		return domain.BankEntry{ID: "d", Amount: decimal.NewFromFloat(-amount), Date: day, Description: desc}
	}

	assert.Equal(t, PotLoans, p.AssignPot(credit(500.00, "EFT"), snap), "close loan amount wins")
	assert.Equal(t, PotInvestors, p.AssignPot(credit(25000.00, "EFT"), snap))
	assert.Equal(t, PotExpenses, p.AssignPot(debit(89.99, "CARD"), snap))

	assert.Equal(t, PotLoans, p.AssignPot(credit(123.00, "JANE DOE"), snap), "name hint with no amount signal")
	assert.Equal(t, PotInvestors, p.AssignPot(credit(123.00, "VENKMAN"), snap))
	assert.Equal(t, PotUnclassified, p.AssignPot(credit(123.00, "MYSTERY"), snap))
}

func TestRun_OverrideWins(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := emptySnapshot()
	snap.LoanTransactions = []domain.LoanTransaction{
		{ID: 1, LoanID: 3, Type: domain.Repayment, Amount: decimal.NewFromFloat(500.00), Date: day},
	}
	snap.Loans[3] = domain.Loan{ID: 3, BorrowerID: 1, Status: domain.LoanActive}
	snap.Borrowers[1] = domain.Borrower{ID: 1, Name: "Jane Doe"}

	entries := []domain.BankEntry{
		{ID: "e1", Amount: decimal.NewFromFloat(500.00), Date: day, Description: "EFT"},
	}

	p := NewPotClassifier(0)
	out := p.Run(entries, snap, map[string]Pot{"e1": PotInvestors})

	assert.Empty(t, out[PotLoans])
	require.Len(t, out[PotInvestors], 1)
	// Forced into the investor pot where nothing fits, so the matcher
	// proposes a create.
	assert.Equal(t, domain.ModeCreate, out[PotInvestors][0].Suggestion.Mode)
}

func TestRun_ClaimsPreventDoubleResolution(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := emptySnapshot()
	snap.LoanTransactions = []domain.LoanTransaction{
		{ID: 1, LoanID: 3, Type: domain.Repayment, Amount: decimal.NewFromFloat(500.00), Date: day},
	}
	snap.Loans[3] = domain.Loan{ID: 3, BorrowerID: 1, Status: domain.LoanActive}
	snap.Borrowers[1] = domain.Borrower{ID: 1, Name: "Jane Doe"}

	entries := []domain.BankEntry{
		{ID: "e1", Amount: decimal.NewFromFloat(500.00), Date: day, Description: "EFT"},
		{ID: "e2", Amount: decimal.NewFromFloat(500.00), Date: day, Description: "EFT"},
	}

	p := NewPotClassifier(0)
	out := p.Run(entries, snap, nil)

	require.Len(t, out[PotLoans], 2)
	matched, created := 0, 0
	for _, ps := range out[PotLoans] {
		switch ps.Suggestion.Mode {
		case domain.ModeMatch:
			matched++
		case domain.ModeCreate:
			created++
		}
	}
	assert.Equal(t, 1, matched, "only one entry may take the obligation")
	assert.Equal(t, 1, created)
}

func TestRun_SortMatchesBeforeCreates(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := emptySnapshot()
	snap.LoanTransactions = []domain.LoanTransaction{
		{ID: 1, LoanID: 3, Type: domain.Repayment, Amount: decimal.NewFromFloat(500.00), Date: day},
		{ID: 2, LoanID: 3, Type: domain.Repayment, Amount: decimal.NewFromFloat(900.00), Date: day.AddDate(0, 0, -5)},
	}
	snap.Loans[3] = domain.Loan{ID: 3, BorrowerID: 1, Status: domain.LoanActive}
	snap.Borrowers[1] = domain.Borrower{ID: 1, Name: "Jane Doe"}

	entries := []domain.BankEntry{
		// Name hint only: ends up a create proposal.
		{ID: "e1", Amount: decimal.NewFromFloat(123.00), Date: day, Description: "JANE DOE"},
		// Exact amount five days out: 0.80 match.
		{ID: "e2", Amount: decimal.NewFromFloat(900.00), Date: day, Description: "EFT"},
		// Exact same-day: 0.95 match.
		{ID: "e3", Amount: decimal.NewFromFloat(500.00), Date: day, Description: "EFT"},
	}

	p := NewPotClassifier(0)
	out := p.Run(entries, snap, nil)

	require.Len(t, out[PotLoans], 3)
	assert.Equal(t, "e3", out[PotLoans][0].Suggestion.BankEntryID, "highest-confidence match first")
	assert.Equal(t, "e2", out[PotLoans][1].Suggestion.BankEntryID)
	assert.Equal(t, "e1", out[PotLoans][2].Suggestion.BankEntryID, "creates sort after matches")
}

func TestMatchExpensePot_PatternSuggestsType(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := emptySnapshot()
	snap.Patterns = []domain.LearnedPattern{
		{
			Keywords:      []string{"acme", "stationery"},
			Category:      domain.OperatingExpense,
			Direction:     domain.DirDebit,
			Confidence:    0.8,
			MatchCount:    4,
			ExpenseTypeID: 9,
		},
	}

	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(-45.00), Date: day, Description: "ACME STATIONERY"}

	p := NewPotClassifier(0)
	ps := p.matchExpensePot(entry, snap, NewClaimSet())

	assert.Equal(t, PotExpenses, ps.Pot)
	assert.Equal(t, domain.ModeCreate, ps.Suggestion.Mode)
	assert.Equal(t, int64(9), ps.Suggestion.ExpenseTypeID)
	assert.False(t, ps.NeedsExpenseType)
}

func TestMatchExpensePot_ManualFallback(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(-45.00), Date: day, Description: "MYSTERY VENDOR"}

	p := NewPotClassifier(0)
	ps := p.matchExpensePot(entry, emptySnapshot(), NewClaimSet())

	assert.Equal(t, domain.ModeCreate, ps.Suggestion.Mode)
	assert.Equal(t, 0.4, ps.Suggestion.Confidence)
	assert.True(t, ps.NeedsExpenseType)
}
