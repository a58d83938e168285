package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-recon/internal/domain"
)

// memStore backs the in-memory repositories the executor tests run
// against. Counters record balance-effect calls so tests can assert
// apply/revert pairing.
type memStore struct {
	entries   map[string]*domain.BankEntry
	links     []domain.ReconciliationLink
	loans     map[int64]*domain.Loan
	loanTxs   map[int64]*domain.LoanTransaction
	investors map[int64]*domain.Investor
	invTxs    map[int64]*domain.InvestorTransaction
	interest  map[int64]*domain.InterestEntry
	expenses  map[int64]*domain.Expense
	nextID    int64

	repaymentApplies int
	repaymentReverts int
	capitalDeltas    []decimal.Decimal
	strengthens      int
}

func newMemStore() *memStore {
	return &memStore{
		entries:   map[string]*domain.BankEntry{},
		loans:     map[int64]*domain.Loan{},
		loanTxs:   map[int64]*domain.LoanTransaction{},
		investors: map[int64]*domain.Investor{},
		invTxs:    map[int64]*domain.InvestorTransaction{},
		interest:  map[int64]*domain.InterestEntry{},
		expenses:  map[int64]*domain.Expense{},
		nextID:    1000,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type memEntryRepo struct{ s *memStore }

func (r *memEntryRepo) Create(e *domain.BankEntry) error {
	cp := *e
	r.s.entries[e.ID] = &cp
	return nil
}

func (r *memEntryRepo) BulkCreate(entries []domain.BankEntry) error {
	for i := range entries {
		if err := r.Create(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memEntryRepo) GetByID(id string) (*domain.BankEntry, error) {
	e, ok := r.s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEntryRepo) GetByIDs(ids []string) ([]domain.BankEntry, error) {
	var out []domain.BankEntry
	for _, id := range ids {
		e, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *memEntryRepo) List(*bool) ([]domain.BankEntry, error) { return nil, nil }

func (r *memEntryRepo) MarkReconciled(id string, at time.Time) error {
	e, ok := r.s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.Reconciled = true
	e.ReconciledAt = &at
	return nil
}

func (r *memEntryRepo) ResetReconciled(id string) error {
	e, ok := r.s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.Reconciled = false
	e.ReconciledAt = nil
	return nil
}

type memLinkRepo struct{ s *memStore }

func (r *memLinkRepo) Create(link *domain.ReconciliationLink) error {
	r.s.links = append(r.s.links, *link)
	return nil
}

func (r *memLinkRepo) GetByEntryID(entryID string) ([]domain.ReconciliationLink, error) {
	var out []domain.ReconciliationLink
	for _, l := range r.s.links {
		if l.BankEntryID == entryID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLinkRepo) GetAll() ([]domain.ReconciliationLink, error) {
	return append([]domain.ReconciliationLink(nil), r.s.links...), nil
}

func (r *memLinkRepo) DeleteByEntryID(entryID string) error {
	kept := r.s.links[:0]
	for _, l := range r.s.links {
		if l.BankEntryID != entryID {
			kept = append(kept, l)
		}
	}
	r.s.links = kept
	return nil
}

func (r *memLinkRepo) ExistsForObligation(ref domain.ObligationRef) (bool, error) {
	for _, l := range r.s.links {
		if lr, ok := l.Ref(); ok && lr == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLinkRepo) ExistsForObligationExcluding(ref domain.ObligationRef, entryID string) (bool, error) {
	for _, l := range r.s.links {
		if l.BankEntryID == entryID {
			continue
		}
		if lr, ok := l.Ref(); ok && lr == ref {
			return true, nil
		}
	}
	return false, nil
}

type memLoanRepo struct{ s *memStore }

func (r *memLoanRepo) ListLoans() ([]domain.Loan, error)         { return nil, nil }
func (r *memLoanRepo) ListBorrowers() ([]domain.Borrower, error) { return nil, nil }
func (r *memLoanRepo) ListOutstandingTransactions() ([]domain.LoanTransaction, error) {
	return nil, nil
}

func (r *memLoanRepo) GetTransaction(id int64) (*domain.LoanTransaction, error) {
	lt, ok := r.s.loanTxs[id]
	if !ok {
		return nil, domain.ErrObligationNotFound
	}
	cp := *lt
	return &cp, nil
}

func (r *memLoanRepo) CreateTransaction(tx *domain.LoanTransaction) error {
	tx.ID = r.s.id()
	cp := *tx
	r.s.loanTxs[tx.ID] = &cp
	return nil
}

func (r *memLoanRepo) DeleteTransaction(id int64) error {
	delete(r.s.loanTxs, id)
	return nil
}

func (r *memLoanRepo) ApplyRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error {
	loan, ok := r.s.loans[loanID]
	if !ok {
		return domain.ErrObligationNotFound
	}
	loan.PrincipalPaid = loan.PrincipalPaid.Add(principal)
	loan.InterestPaid = loan.InterestPaid.Add(interest)
	loan.FeesPaid = loan.FeesPaid.Add(fees)
	loan.TotalPaid = loan.TotalPaid.Add(principal).Add(interest).Add(fees)
	r.s.repaymentApplies++
	return nil
}

func (r *memLoanRepo) RevertRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error {
	loan, ok := r.s.loans[loanID]
	if !ok {
		return domain.ErrObligationNotFound
	}
	loan.PrincipalPaid = loan.PrincipalPaid.Sub(principal)
	loan.InterestPaid = loan.InterestPaid.Sub(interest)
	loan.FeesPaid = loan.FeesPaid.Sub(fees)
	loan.TotalPaid = loan.TotalPaid.Sub(principal).Sub(interest).Sub(fees)
	r.s.repaymentReverts++
	return nil
}

type memInvestorRepo struct{ s *memStore }

func (r *memInvestorRepo) ListInvestors() ([]domain.Investor, error) { return nil, nil }

func (r *memInvestorRepo) GetInvestor(id int64) (*domain.Investor, error) {
	inv, ok := r.s.investors[id]
	if !ok {
		return nil, domain.ErrObligationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvestorRepo) ListTransactions() ([]domain.InvestorTransaction, error) { return nil, nil }

func (r *memInvestorRepo) GetTransaction(id int64) (*domain.InvestorTransaction, error) {
	it, ok := r.s.invTxs[id]
	if !ok {
		return nil, domain.ErrObligationNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *memInvestorRepo) CreateTransaction(tx *domain.InvestorTransaction) error {
	tx.ID = r.s.id()
	cp := *tx
	r.s.invTxs[tx.ID] = &cp
	return nil
}

func (r *memInvestorRepo) DeleteTransaction(id int64) error {
	delete(r.s.invTxs, id)
	return nil
}

func (r *memInvestorRepo) ListInterestEntries() ([]domain.InterestEntry, error) { return nil, nil }

func (r *memInvestorRepo) CreateInterestEntry(entry *domain.InterestEntry) error {
	entry.ID = r.s.id()
	cp := *entry
	r.s.interest[entry.ID] = &cp
	return nil
}

func (r *memInvestorRepo) DeleteInterestEntry(id int64) error {
	delete(r.s.interest, id)
	return nil
}

func (r *memInvestorRepo) AdjustCapitalBalance(investorID int64, delta decimal.Decimal) error {
	inv, ok := r.s.investors[investorID]
	if !ok {
		return domain.ErrObligationNotFound
	}
	inv.CapitalBalance = inv.CapitalBalance.Add(delta)
	r.s.capitalDeltas = append(r.s.capitalDeltas, delta)
	return nil
}

type memExpenseRepo struct{ s *memStore }

func (r *memExpenseRepo) ListExpenses() ([]domain.Expense, error) { return nil, nil }

func (r *memExpenseRepo) GetExpense(id int64) (*domain.Expense, error) {
	e, ok := r.s.expenses[id]
	if !ok {
		return nil, domain.ErrObligationNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memExpenseRepo) CreateExpense(expense *domain.Expense) error {
	expense.ID = r.s.id()
	cp := *expense
	r.s.expenses[expense.ID] = &cp
	return nil
}

func (r *memExpenseRepo) DeleteExpense(id int64) error {
	delete(r.s.expenses, id)
	return nil
}

func (r *memExpenseRepo) ListExpenseTypes() ([]domain.ExpenseType, error) { return nil, nil }

type memPatternRepo struct{ s *memStore }

func (r *memPatternRepo) List() ([]domain.LearnedPattern, error) { return nil, nil }

func (r *memPatternRepo) Strengthen([]string, domain.Category, domain.Direction, decimal.Decimal, int64) error {
	r.s.strengthens++
	return nil
}

// newMemService binds the executor to the in-memory store. The balance
// checks run before any write, so failed operations must leave the
// store untouched even without transactional rollback.
func newMemService(store *memStore) ReconciliationService {
	repos := &txRepos{
		entries:   &memEntryRepo{store},
		links:     &memLinkRepo{store},
		loans:     &memLoanRepo{store},
		investors: &memInvestorRepo{store},
		expenses:  &memExpenseRepo{store},
		patterns:  &memPatternRepo{store},
	}
	s := &reconciliationService{scheduler: LoggingScheduleRegenerator{}}
	s.runTx = func(op string, fn func(r *txRepos, regen *[]int64) error) error {
		var regen []int64
		if err := fn(repos, &regen); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	return s
}

func seedEntry(store *memStore, id string, amount float64) {
	store.entries[id] = &domain.BankEntry{
		ID:          id,
		Amount:      decimal.NewFromFloat(amount),
		Date:        time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Description: "FT " + id,
	}
}

func seedRepaymentTx(store *memStore, id, loanID int64, amount, principal, interest, fees float64) {
	store.loans[loanID] = &domain.Loan{ID: loanID, Status: domain.LoanActive}
	store.loanTxs[id] = &domain.LoanTransaction{
		ID:        id,
		LoanID:    loanID,
		Type:      domain.Repayment,
		Amount:    decimal.NewFromFloat(amount),
		Principal: decimal.NewFromFloat(principal),
		Interest:  decimal.NewFromFloat(interest),
		Fees:      decimal.NewFromFloat(fees),
		Date:      time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestReconcileSingleMatch_BalanceMismatchWritesNothing(t *testing.T) {
	store := newMemStore()
	seedEntry(store, "e1", 100)
	seedRepaymentTx(store, 1, 10, 90, 80, 8, 2)
	svc := newMemService(store)

	err := svc.ReconcileSingleMatch("e1", domain.LoanTxRef(1), domain.LoanRepayment, "")
	require.Error(t, err)
	assert.True(t, domain.IsBalanceMismatch(err))

	assert.Empty(t, store.links, "failed reconciliation must not leave links")
	assert.False(t, store.entries["e1"].Reconciled)
	assert.Equal(t, 0, store.repaymentApplies, "loan totals untouched on mismatch")
}

func TestUnreconcile_RoundTripAndIdempotent(t *testing.T) {
	store := newMemStore()
	seedEntry(store, "e1", 750)
	seedRepaymentTx(store, 1, 10, 750, 600, 120, 30)
	svc := newMemService(store)

	require.NoError(t, svc.ReconcileSingleMatch("e1", domain.LoanTxRef(1), domain.LoanRepayment, ""))
	assert.True(t, store.entries["e1"].Reconciled)
	assert.True(t, store.loans[10].PrincipalPaid.Equal(decimal.NewFromFloat(600)))

	require.NoError(t, svc.Unreconcile("e1", false))
	assert.False(t, store.entries["e1"].Reconciled)
	assert.Empty(t, store.links)
	assert.True(t, store.loans[10].TotalPaid.IsZero(), "loan totals return to their pre-reconciliation state")
	assert.Equal(t, 1, store.repaymentReverts)

	// A second unreconcile finds nothing to undo.
	require.NoError(t, svc.Unreconcile("e1", false))
	assert.Equal(t, 1, store.repaymentReverts, "redundant unreconcile must not revert again")
}

func TestUnreconcile_GroupedRevertsEffectsOnce(t *testing.T) {
	store := newMemStore()
	seedEntry(store, "e1", 40)
	seedEntry(store, "e2", 35.50)
	seedRepaymentTx(store, 1, 10, 75.50, 60, 12, 3.50)
	svc := newMemService(store)

	require.NoError(t, svc.ReconcileGroupedRepayment([]string{"e1", "e2"}, 1, ""))
	assert.Equal(t, 1, store.repaymentApplies, "group applies the obligation's effects once")
	assert.True(t, store.loans[10].PrincipalPaid.Equal(decimal.NewFromFloat(60)))

	// The first entry out leaves the effects in place; a sibling still
	// funds the obligation.
	require.NoError(t, svc.Unreconcile("e1", false))
	assert.Equal(t, 0, store.repaymentReverts)
	assert.True(t, store.loans[10].PrincipalPaid.Equal(decimal.NewFromFloat(60)))
	assert.Len(t, store.links, 1)

	// The last entry out reverts them, exactly once.
	require.NoError(t, svc.Unreconcile("e2", false))
	assert.Equal(t, 1, store.repaymentReverts)
	assert.True(t, store.loans[10].TotalPaid.IsZero())
	assert.Empty(t, store.links)
}

func TestManualMatch_NetReceiptBalancesOnSignedSum(t *testing.T) {
	store := newMemStore()
	seedEntry(store, "e1", 500)
	seedEntry(store, "e2", -50)
	store.investors[7] = &domain.Investor{ID: 7, Name: "Dana Reeve", InterestMode: domain.InterestAuto}
	store.invTxs[3] = &domain.InvestorTransaction{
		ID: 3, InvestorID: 7, Type: domain.Deposit,
		Amount: decimal.NewFromFloat(450),
		Date:   time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
	}
	svc := newMemService(store)

	err := svc.ExecuteManualMatch(ManualMatchRequest{
		Shape:    ShapeNetReceipt,
		EntryIDs: []string{"e1", "e2"},
		Target:   &domain.ObligationRef{Kind: domain.KindInvestorTransaction, ID: 3},
		Category: domain.InvestorCredit,
	})
	require.NoError(t, err)

	require.Len(t, store.links, 2)
	assert.True(t, store.links[0].Amount.Equal(decimal.NewFromFloat(500)), "net-receipt links keep signed contributions")
	assert.True(t, store.links[1].Amount.Equal(decimal.NewFromFloat(-50)))
	require.Len(t, store.capitalDeltas, 1)
	assert.True(t, store.capitalDeltas[0].Equal(decimal.NewFromFloat(450)))
}

func TestManualMatch_AbsoluteSumRejectsNettedEntries(t *testing.T) {
	store := newMemStore()
	seedEntry(store, "e1", 500)
	seedEntry(store, "e2", -50)
	store.investors[7] = &domain.Investor{ID: 7, Name: "Dana Reeve", InterestMode: domain.InterestAuto}
	store.invTxs[3] = &domain.InvestorTransaction{
		ID: 3, InvestorID: 7, Type: domain.Deposit,
		Amount: decimal.NewFromFloat(450),
		Date:   time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
	}
	svc := newMemService(store)

	// The same pair sums to 550 on absolute values; only the net-receipt
	// shape can explain a netted deposit.
	err := svc.ExecuteManualMatch(ManualMatchRequest{
		Shape:    ShapeManyEntries,
		EntryIDs: []string{"e1", "e2"},
		Target:   &domain.ObligationRef{Kind: domain.KindInvestorTransaction, ID: 3},
		Category: domain.InvestorCredit,
	})
	require.Error(t, err)
	assert.True(t, domain.IsBalanceMismatch(err))
	assert.Empty(t, store.links)
	assert.Empty(t, store.capitalDeltas)
	assert.False(t, store.entries["e1"].Reconciled)
}
