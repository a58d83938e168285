package service

import (
	"fmt"
	"sort"

	"lending-recon/internal/domain"
	"lending-recon/internal/matcher"
	"lending-recon/internal/repository"
	"lending-recon/pkg/logger"
)

// EntrySuggestion is one entry's classification on the wire.
type EntrySuggestion struct {
	domain.Suggestion
	Confidence      int                    `json:"confidence"`
	ConfidenceLevel domain.ConfidenceLevel `json:"confidence_level"`
}

type SuggestionService interface {
	// Suggest classifies every unreconciled bank entry against a fresh
	// snapshot and returns one suggestion per entry, in entry order.
	Suggest() ([]EntrySuggestion, error)
	// Pots runs the alternate two-phase pipeline; overrides force
	// entries into a specific pot.
	Pots(overrides map[string]matcher.Pot) (map[matcher.Pot][]matcher.PotSuggestion, error)
}

type suggestionService struct {
	entries    repository.BankEntryRepository
	loader     *SnapshotLoader
	classifier *matcher.Classifier
	pots       *matcher.PotClassifier
}

func NewSuggestionService(entries repository.BankEntryRepository, loader *SnapshotLoader, groupWindowDays int) SuggestionService {
	return &suggestionService{
		entries:    entries,
		loader:     loader,
		classifier: matcher.NewClassifier(groupWindowDays),
		pots:       matcher.NewPotClassifier(groupWindowDays),
	}
}

func (s *suggestionService) Suggest() ([]EntrySuggestion, error) {
	unreconciled := false
	entries, err := s.entries.List(&unreconciled)
	if err != nil {
		return nil, fmt.Errorf("listing bank entries: %w", err)
	}

	snap, err := s.loader.Load()
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"entries":      len(entries),
		"loan_txs":     len(snap.LoanTransactions),
		"investor_txs": len(snap.InvestorTransactions),
		"expenses":     len(snap.Expenses),
		"patterns":     len(snap.Patterns),
	}).Info("Starting classification batch")

	suggestions := s.classifyBatch(entries, snap)

	high := 0
	for _, sg := range suggestions {
		if sg.ConfidenceLevel == domain.ConfidenceHigh {
			high++
		}
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"suggestions":     len(suggestions),
		"high_confidence": high,
	}).Info("Classification batch completed")

	return suggestions, nil
}

// classifyBatch runs two passes. The first scores every entry against
// an empty claim set; those provisional confidences fix the processing
// order. The second re-classifies sequentially in confidence-descending
// order, threading one claim set so no two entries claim the same
// obligation. Claims are sequenced this way so the strongest evidence
// keeps its obligation when two entries compete for it.
func (s *suggestionService) classifyBatch(entries []domain.BankEntry, snap *domain.Snapshot) []EntrySuggestion {
	type scored struct {
		index       int
		provisional float64
	}

	order := make([]scored, len(entries))
	empty := matcher.NewClaimSet()
	for i, e := range entries {
		provisional := s.classifier.Classify(e, snap, empty)
		order[i] = scored{index: i, provisional: provisional.Confidence}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].provisional > order[j].provisional
	})

	claims := matcher.NewClaimSet()
	results := make([]EntrySuggestion, len(entries))
	for _, o := range order {
		e := entries[o.index]
		suggestion := s.classifier.Classify(e, snap, claims)
		claims.ClaimSuggestion(suggestion)
		results[o.index] = EntrySuggestion{
			Suggestion:      suggestion,
			Confidence:      suggestion.ConfidencePercent(),
			ConfidenceLevel: suggestion.Level(),
		}
	}
	return results
}

func (s *suggestionService) Pots(overrides map[string]matcher.Pot) (map[matcher.Pot][]matcher.PotSuggestion, error) {
	unreconciled := false
	entries, err := s.entries.List(&unreconciled)
	if err != nil {
		return nil, fmt.Errorf("listing bank entries: %w", err)
	}

	snap, err := s.loader.Load()
	if err != nil {
		return nil, err
	}

	result := s.pots.Run(entries, snap, overrides)

	logger.GetLogger().WithFields(map[string]interface{}{
		"loans":        len(result[matcher.PotLoans]),
		"investors":    len(result[matcher.PotInvestors]),
		"expenses":     len(result[matcher.PotExpenses]),
		"unclassified": len(result[matcher.PotUnclassified]),
	}).Info("Pot classification completed")

	return result, nil
}
