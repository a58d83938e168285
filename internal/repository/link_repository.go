package repository

import (
	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type LinkRepository interface {
	Create(link *domain.ReconciliationLink) error
	GetByEntryID(entryID string) ([]domain.ReconciliationLink, error)
	GetAll() ([]domain.ReconciliationLink, error)
	DeleteByEntryID(entryID string) error
	ExistsForObligation(ref domain.ObligationRef) (bool, error)
	ExistsForObligationExcluding(ref domain.ObligationRef, entryID string) (bool, error)
}

type linkRepository struct {
	db Querier
}

func NewLinkRepository(db Querier) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, bank_entry_id, loan_transaction_id, investor_transaction_id, interest_entry_id, expense_id, amount, category, was_created, notes, created_at`

func (r *linkRepository) Create(link *domain.ReconciliationLink) error {
	query := `
		INSERT INTO reconciliation_links (
			id, bank_entry_id, loan_transaction_id, investor_transaction_id,
			interest_entry_id, expense_id, amount, category, was_created, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		link.ID,
		link.BankEntryID,
		link.LoanTransactionID,
		link.InvestorTransactionID,
		link.InterestEntryID,
		link.ExpenseID,
		link.Amount,
		link.Category,
		link.WasCreated,
		link.Notes,
	).Scan(&link.CreatedAt)

	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create reconciliation link")
		return err
	}

	return nil
}

func (r *linkRepository) GetByEntryID(entryID string) ([]domain.ReconciliationLink, error) {
	query := `SELECT ` + linkColumns + ` FROM reconciliation_links WHERE bank_entry_id = $1 ORDER BY created_at`
	return r.queryLinks(query, entryID)
}

func (r *linkRepository) GetAll() ([]domain.ReconciliationLink, error) {
	query := `SELECT ` + linkColumns + ` FROM reconciliation_links ORDER BY created_at`
	return r.queryLinks(query)
}

func (r *linkRepository) queryLinks(query string, args ...interface{}) ([]domain.ReconciliationLink, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query reconciliation links")
		return nil, err
	}
	defer rows.Close()

	var links []domain.ReconciliationLink
	for rows.Next() {
		var link domain.ReconciliationLink
		err := rows.Scan(
			&link.ID,
			&link.BankEntryID,
			&link.LoanTransactionID,
			&link.InvestorTransactionID,
			&link.InterestEntryID,
			&link.ExpenseID,
			&link.Amount,
			&link.Category,
			&link.WasCreated,
			&link.Notes,
			&link.CreatedAt,
		)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan reconciliation link")
			continue
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *linkRepository) DeleteByEntryID(entryID string) error {
	_, err := r.db.Exec(`DELETE FROM reconciliation_links WHERE bank_entry_id = $1`, entryID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to delete reconciliation links")
	}
	return err
}

func obligationColumn(kind domain.ObligationKind) string {
	switch kind {
	case domain.KindLoanTransaction:
		return "loan_transaction_id"
	case domain.KindInvestorTransaction:
		return "investor_transaction_id"
	case domain.KindInterestEntry:
		return "interest_entry_id"
	case domain.KindExpense:
		return "expense_id"
	}
	return ""
}

// ExistsForObligation is the executor's double-spend check: any existing
// link pointing at the obligation marks it claimed. The grouped
// many-entries-to-one flows run this check once, before inserting their
// own stack of links.
func (r *linkRepository) ExistsForObligation(ref domain.ObligationRef) (bool, error) {
	column := obligationColumn(ref.Kind)
	if column == "" {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM reconciliation_links WHERE `+column+` = $1)`, ref.ID,
	).Scan(&exists)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to check obligation claim")
		return false, err
	}
	return exists, nil
}

// ExistsForObligationExcluding reports whether any entry other than
// entryID still links the obligation. Grouped reconciliations stack
// several entries' links onto one obligation; unreconcile reverts its
// balance effects only when removing the last of them.
func (r *linkRepository) ExistsForObligationExcluding(ref domain.ObligationRef, entryID string) (bool, error) {
	column := obligationColumn(ref.Kind)
	if column == "" {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM reconciliation_links WHERE `+column+` = $1 AND bank_entry_id <> $2)`,
		ref.ID, entryID,
	).Scan(&exists)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to check obligation claim")
		return false, err
	}
	return exists, nil
}
