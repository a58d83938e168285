package service

import (
	"errors"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

// BulkAcceptResult reports what an unattended acceptance run did.
type BulkAcceptResult struct {
	Accepted int      `json:"accepted"`
	Skipped  int      `json:"skipped"`
	Failed   []string `json:"failed,omitempty"`
}

// BulkAcceptService executes high-confidence suggestions without an
// operator. Only single-match suggestions are eligible; grouped and
// create modes always need a human because they either span entries or
// write new records.
type BulkAcceptService interface {
	Accept() (*BulkAcceptResult, error)
}

type bulkAcceptService struct {
	suggestions SuggestionService
	recon       ReconciliationService
	minPercent  int
}

func NewBulkAcceptService(suggestions SuggestionService, recon ReconciliationService, minPercent int) BulkAcceptService {
	return &bulkAcceptService{
		suggestions: suggestions,
		recon:       recon,
		minPercent:  minPercent,
	}
}

func (s *bulkAcceptService) Accept() (*BulkAcceptResult, error) {
	suggestions, err := s.suggestions.Suggest()
	if err != nil {
		return nil, err
	}

	result := &BulkAcceptResult{}
	for _, sg := range suggestions {
		target, ok := sg.SingleTarget()
		if !ok || sg.Confidence < s.minPercent {
			result.Skipped++
			continue
		}

		err := s.recon.ReconcileSingleMatch(sg.BankEntryID, target, sg.Category, "bulk accepted")
		if err != nil {
			// Conflicts are expected when the snapshot raced another
			// operator; the entry simply stays unreconciled.
			if errors.Is(err, domain.ErrAlreadyReconciled) {
				result.Skipped++
				continue
			}
			logger.GetLogger().WithError(err).WithField("entry_id", sg.BankEntryID).Warn("Bulk accept failed for entry")
			result.Failed = append(result.Failed, sg.BankEntryID)
			continue
		}
		result.Accepted++
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
		"failed":   len(result.Failed),
	}).Info("Bulk accept run complete")
	return result, nil
}
