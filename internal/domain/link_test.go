package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLinkRef(t *testing.T) {
	id := int64(7)

	link := ReconciliationLink{LoanTransactionID: &id}
	ref, ok := link.Ref()
	assert.True(t, ok)
	assert.Equal(t, LoanTxRef(7), ref)

	link = ReconciliationLink{ExpenseID: &id}
	ref, ok = link.Ref()
	assert.True(t, ok)
	assert.Equal(t, ExpenseRef(7), ref)

	_, ok = ReconciliationLink{}.Ref()
	assert.False(t, ok, "a link with no obligation column is dangling")
}

func TestBuildReconciledIndex(t *testing.T) {
	loanID, invID := int64(1), int64(2)
	links := []ReconciliationLink{
		{LoanTransactionID: &loanID},
		{InvestorTransactionID: &invID},
		{},
	}

	idx := BuildReconciledIndex(links)
	assert.Len(t, idx, 2)
	assert.True(t, idx[LoanTxRef(1)])
	assert.True(t, idx[InvestorTxRef(2)])
}

func TestBankEntryDirection(t *testing.T) {
	credit := BankEntry{Amount: decimal.NewFromFloat(75.50)}
	assert.True(t, credit.IsCredit())
	assert.False(t, credit.IsDebit())

	debit := BankEntry{Amount: decimal.NewFromFloat(-89.99)}
	assert.True(t, debit.IsDebit())
	assert.Equal(t, "89.99", debit.AbsAmount().StringFixed(2))

	zero := BankEntry{}
	assert.False(t, zero.IsCredit())
	assert.False(t, zero.IsDebit())
}
