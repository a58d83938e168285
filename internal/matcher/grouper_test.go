package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-recon/internal/domain"
)

func groupSnapshot(txs []domain.LoanTransaction, loans map[int64]domain.Loan, borrowers map[int64]domain.Borrower) *domain.Snapshot {
	return &domain.Snapshot{
		LoanTransactions: txs,
		Loans:            loans,
		Borrowers:        borrowers,
		Reconciled:       map[domain.ObligationRef]bool{},
	}
}

func TestFindObligationGroup_TwoRepaymentsSameDay(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	snap := groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 2, LoanID: 11, Type: domain.Repayment, Amount: decimal.NewFromFloat(35.50), Date: day},
		},
		map[int64]domain.Loan{
			10: {ID: 10, BorrowerID: 100},
			11: {ID: 11, BorrowerID: 100},
		},
		map[int64]domain.Borrower{
			100: {ID: 100, Name: "Jane Doe", Email: "jane@example.com"},
		},
	)
	entry := domain.BankEntry{
		ID:          "e1",
		Amount:      decimal.NewFromFloat(75.50),
		Date:        day,
		Description: "TRANSFER JANE DOE",
	}

	g := NewGrouper(DefaultGroupWindowDays)
	s := g.FindObligationGroup(entry, snap, NewClaimSet())

	require.NotNil(t, s)
	assert.Equal(t, domain.ModeMatchGroup, s.Mode)
	assert.Equal(t, []int64{1, 2}, s.LoanTransactionIDs)
	assert.Equal(t, 0.92, s.Confidence, "all members on the entry's day")
}

func TestFindObligationGroup_SpreadDatesLowerConfidence(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	snap := groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 2, LoanID: 11, Type: domain.Repayment, Amount: decimal.NewFromFloat(35.50), Date: day.AddDate(0, 0, 2)},
		},
		map[int64]domain.Loan{
			10: {ID: 10, BorrowerID: 100},
			11: {ID: 11, BorrowerID: 100},
		},
		map[int64]domain.Borrower{
			100: {ID: 100, Name: "Jane Doe"},
		},
	)
	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(75.50), Date: day}

	g := NewGrouper(DefaultGroupWindowDays)
	s := g.FindObligationGroup(entry, snap, NewClaimSet())

	require.NotNil(t, s)
	assert.Equal(t, 0.84, s.Confidence)
}

func TestFindObligationGroup_Rejections(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	loans := map[int64]domain.Loan{10: {ID: 10, BorrowerID: 100}}
	borrowers := map[int64]domain.Borrower{100: {ID: 100, Name: "Jane Doe"}}

	g := NewGrouper(DefaultGroupWindowDays)

	// A single obligation is a direct match's job, never a group.
	snap := groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(75.50), Date: day},
		},
		loans, borrowers,
	)
	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(75.50), Date: day}
	assert.Nil(t, g.FindObligationGroup(entry, snap, NewClaimSet()))

	// Debits never group against repayments.
	debit := domain.BankEntry{ID: "e2", Amount: decimal.NewFromFloat(-75.50), Date: day}
	assert.Nil(t, g.FindObligationGroup(debit, snap, NewClaimSet()))

	// Sum outside the tolerance.
	snap = groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 2, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(20.00), Date: day},
		},
		loans, borrowers,
	)
	assert.Nil(t, g.FindObligationGroup(entry, snap, NewClaimSet()))
}

func TestFindObligationGroup_ClaimedMembersExcluded(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	snap := groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 2, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(35.50), Date: day},
		},
		map[int64]domain.Loan{10: {ID: 10, BorrowerID: 100}},
		map[int64]domain.Borrower{100: {ID: 100, Name: "Jane Doe"}},
	)
	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(75.50), Date: day}

	claims := NewClaimSet()
	claims.Claim(domain.LoanTxRef(1))

	g := NewGrouper(DefaultGroupWindowDays)
	assert.Nil(t, g.FindObligationGroup(entry, snap, claims), "claimed member breaks the group")
}

func TestFindObligationGroup_BorrowerBeatsSharedEmailOnTie(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	// Borrower 100 has two repayments summing to the entry; borrowers
	// 101 and 102 share an email and their pair sums to it too. Both
	// partitions land on the same confidence, the narrower by-borrower
	// grouping must win.
	snap := groupSnapshot(
		[]domain.LoanTransaction{
			{ID: 1, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 2, LoanID: 10, Type: domain.Repayment, Amount: decimal.NewFromFloat(35.50), Date: day},
			{ID: 3, LoanID: 11, Type: domain.Repayment, Amount: decimal.NewFromFloat(40.00), Date: day},
			{ID: 4, LoanID: 12, Type: domain.Repayment, Amount: decimal.NewFromFloat(35.50), Date: day},
		},
		map[int64]domain.Loan{
			10: {ID: 10, BorrowerID: 100},
			11: {ID: 11, BorrowerID: 101},
			12: {ID: 12, BorrowerID: 102},
		},
		map[int64]domain.Borrower{
			100: {ID: 100, Name: "Jane Doe"},
			101: {ID: 101, Name: "John Doe", Email: "family@example.com"},
			102: {ID: 102, Name: "Jim Doe", Email: "family@example.com"},
		},
	)
	entry := domain.BankEntry{ID: "e1", Amount: decimal.NewFromFloat(75.50), Date: day}

	g := NewGrouper(DefaultGroupWindowDays)
	s := g.FindObligationGroup(entry, snap, NewClaimSet())

	require.NotNil(t, s)
	assert.Equal(t, []int64{1, 2}, s.LoanTransactionIDs)
}

func TestEntriesSumToObligation(t *testing.T) {
	day := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	entries := []domain.BankEntry{
		{ID: "e1", Amount: decimal.NewFromFloat(60.00), Date: day},
		{ID: "e2", Amount: decimal.NewFromFloat(40.00), Date: day},
	}

	assert.True(t, EntriesSumToObligation(entries, decimal.NewFromFloat(100.00), GroupAmountTolerancePercent))
	assert.False(t, EntriesSumToObligation(entries, decimal.NewFromFloat(150.00), GroupAmountTolerancePercent))
	assert.False(t, EntriesSumToObligation(entries[:1], decimal.NewFromFloat(60.00), GroupAmountTolerancePercent), "single entry is not a cluster")

	assert.Equal(t, 0, EntriesDateSpan(entries, day))
	assert.Equal(t, 3, EntriesDateSpan(entries, day.AddDate(0, 0, 3)))
}
