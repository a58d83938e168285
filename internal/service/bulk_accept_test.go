package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"lending-recon/internal/domain"
	"lending-recon/internal/matcher"
)

type fakeSuggestionService struct {
	suggestions []EntrySuggestion
}

func (f *fakeSuggestionService) Suggest() ([]EntrySuggestion, error) {
	return f.suggestions, nil
}

func (f *fakeSuggestionService) Pots(map[string]matcher.Pot) (map[matcher.Pot][]matcher.PotSuggestion, error) {
	return nil, nil
}

type fakeReconService struct {
	ReconciliationService
	calls  []string
	reject map[string]error
}

func (f *fakeReconService) ReconcileSingleMatch(entryID string, ref domain.ObligationRef, category domain.Category, notes string) error {
	if err, ok := f.reject[entryID]; ok {
		return err
	}
	f.calls = append(f.calls, entryID)
	return nil
}

func singleMatchSuggestion(entryID string, loanTxID int64, confidence float64) EntrySuggestion {
	s := domain.NewSingleMatch(entryID, domain.LoanRepayment, confidence, "")
	s.LoanTransactionIDs = []int64{loanTxID}
	return EntrySuggestion{
		Suggestion:      s,
		Confidence:      s.ConfidencePercent(),
		ConfidenceLevel: s.Level(),
	}
}

func TestBulkAccept_OnlyHighConfidenceSingleMatches(t *testing.T) {
	creates := domain.NewCreate("e3", domain.OperatingExpense, 0.97, "")
	suggestions := []EntrySuggestion{
		singleMatchSuggestion("e1", 1, 0.95),
		singleMatchSuggestion("e2", 2, 0.80),
		{Suggestion: creates, Confidence: 97, ConfidenceLevel: domain.ConfidenceHigh},
	}

	recon := &fakeReconService{}
	svc := NewBulkAcceptService(&fakeSuggestionService{suggestions: suggestions}, recon, 90)

	result, err := svc.Accept()
	assert.NoError(t, err)
	assert.Equal(t, []string{"e1"}, recon.calls, "below-threshold and create-mode suggestions stay manual")
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, result.Failed)
}

func TestBulkAccept_ConflictCountsAsSkipped(t *testing.T) {
	suggestions := []EntrySuggestion{
		singleMatchSuggestion("e1", 1, 0.95),
		singleMatchSuggestion("e2", 2, 0.95),
	}

	recon := &fakeReconService{reject: map[string]error{"e1": domain.ErrAlreadyReconciled}}
	svc := NewBulkAcceptService(&fakeSuggestionService{suggestions: suggestions}, recon, 90)

	result, err := svc.Accept()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Skipped, "a raced entry is skipped, not failed")
	assert.Empty(t, result.Failed)
}

func TestBulkAccept_OtherErrorsReported(t *testing.T) {
	suggestions := []EntrySuggestion{
		singleMatchSuggestion("e1", 1, 0.95),
	}

	mismatch := &domain.BalanceMismatchError{
		BankTotal:       decimal.NewFromFloat(100),
		ObligationTotal: decimal.NewFromFloat(90),
	}
	recon := &fakeReconService{reject: map[string]error{"e1": mismatch}}
	svc := NewBulkAcceptService(&fakeSuggestionService{suggestions: suggestions}, recon, 90)

	result, err := svc.Accept()
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Accepted)
	assert.Equal(t, []string{"e1"}, result.Failed)
}
