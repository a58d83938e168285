package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestionValidate(t *testing.T) {
	unknown := NewUnknown("e1")
	assert.NoError(t, unknown.Validate())

	single := NewSingleMatch("e1", LoanRepayment, 0.95, "")
	assert.Error(t, single.Validate(), "single match without a target is malformed")
	single.LoanTransactionIDs = []int64{7}
	assert.NoError(t, single.Validate())

	// Two targets on a single match is malformed too.
	single.InvestorTransactionID = 9
	assert.Error(t, single.Validate())

	group := NewGroupMatch("e1", []int64{1}, 0.9, "")
	assert.Error(t, group.Validate(), "a group of one is a single match")
	group.LoanTransactionIDs = []int64{1, 2}
	assert.NoError(t, group.Validate())

	grouped := Suggestion{BankEntryID: "e1", Category: LoanRepayment, Mode: ModeGroupedRepayment, Confidence: 0.84}
	assert.Error(t, grouped.Validate())
	grouped.GroupedEntryIDs = []string{"e1", "e2"}
	assert.NoError(t, grouped.Validate())

	create := NewCreate("e1", Unknown, 0.5, "")
	assert.Error(t, create.Validate(), "create must carry a concrete category")

	bad := Suggestion{BankEntryID: "e1", Confidence: 1.5}
	assert.Error(t, bad.Validate())
}

func TestSuggestionSingleTarget(t *testing.T) {
	s := NewSingleMatch("e1", LoanRepayment, 0.95, "")
	s.LoanTransactionIDs = []int64{7}
	ref, ok := s.SingleTarget()
	assert.True(t, ok)
	assert.Equal(t, LoanTxRef(7), ref)

	s = NewSingleMatch("e1", InvestorCredit, 0.9, "")
	s.InvestorTransactionID = 3
	ref, ok = s.SingleTarget()
	assert.True(t, ok)
	assert.Equal(t, InvestorTxRef(3), ref)

	_, ok = NewCreate("e1", OperatingExpense, 0.6, "").SingleTarget()
	assert.False(t, ok, "create mode has no existing target")

	_, ok = NewUnknown("e1").SingleTarget()
	assert.False(t, ok)
}

func TestConfidenceLevels(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, Suggestion{Confidence: 0.95}.Level())
	assert.Equal(t, ConfidenceHigh, Suggestion{Confidence: 0.90}.Level())
	assert.Equal(t, ConfidenceMedium, Suggestion{Confidence: 0.72}.Level())
	assert.Equal(t, ConfidenceLow, Suggestion{Confidence: 0.5}.Level())

	assert.Equal(t, 95, Suggestion{Confidence: 0.95}.ConfidencePercent())
	assert.Equal(t, 81, Suggestion{Confidence: 0.805}.ConfidencePercent())
}
