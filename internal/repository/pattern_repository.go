package repository

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type PatternRepository interface {
	List() ([]domain.LearnedPattern, error)
	Strengthen(keywords []string, category domain.Category, direction domain.Direction, amount decimal.Decimal, expenseTypeID int64) error
}

type patternRepository struct {
	db Querier
}

func NewPatternRepository(db Querier) PatternRepository {
	return &patternRepository{db: db}
}

func (r *patternRepository) List() ([]domain.LearnedPattern, error) {
	rows, err := r.db.Query(`
		SELECT id, keywords, category, direction, min_amount, max_amount,
			   confidence, match_count, expense_type_id, updated_at
		FROM learned_patterns
		ORDER BY id
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query learned patterns")
		return nil, err
	}
	defer rows.Close()

	var patterns []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		if err := rows.Scan(&p.ID, &p.Keywords, &p.Category, &p.Direction, &p.MinAmount, &p.MaxAmount,
			&p.Confidence, &p.MatchCount, &p.ExpenseTypeID, &p.UpdatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan learned pattern")
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// Strengthen records one more confirmed create-mode reconciliation for
// a vendor: the match count climbs, the rolling confidence drifts
// toward 0.95, and the amount range widens to admit the new amount. A
// first confirmation inserts the pattern at 0.6 confidence.
func (r *patternRepository) Strengthen(keywords []string, category domain.Category, direction domain.Direction, amount decimal.Decimal, expenseTypeID int64) error {
	if len(keywords) == 0 {
		return nil
	}

	_, err := r.db.Exec(`
		INSERT INTO learned_patterns (keywords, category, direction, min_amount, max_amount, confidence, match_count, expense_type_id)
		VALUES ($1, $2, $3, $4, $4, 0.6, 1, $5)
		ON CONFLICT (keywords, category, direction) DO UPDATE SET
			match_count = learned_patterns.match_count + 1,
			confidence = LEAST(0.95, learned_patterns.confidence + (0.95 - learned_patterns.confidence) * 0.2),
			min_amount = LEAST(learned_patterns.min_amount, EXCLUDED.min_amount),
			max_amount = GREATEST(learned_patterns.max_amount, EXCLUDED.max_amount),
			updated_at = now()
	`, pq.StringArray(keywords), category, direction, amount, expenseTypeID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to strengthen learned pattern")
	}
	return err
}
