package repository

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type InvestorRepository interface {
	ListInvestors() ([]domain.Investor, error)
	GetInvestor(id int64) (*domain.Investor, error)
	ListTransactions() ([]domain.InvestorTransaction, error)
	GetTransaction(id int64) (*domain.InvestorTransaction, error)
	CreateTransaction(tx *domain.InvestorTransaction) error
	DeleteTransaction(id int64) error
	ListInterestEntries() ([]domain.InterestEntry, error)
	CreateInterestEntry(entry *domain.InterestEntry) error
	DeleteInterestEntry(id int64) error
	AdjustCapitalBalance(investorID int64, delta decimal.Decimal) error
}

type investorRepository struct {
	db Querier
}

func NewInvestorRepository(db Querier) InvestorRepository {
	return &investorRepository{db: db}
}

func (r *investorRepository) ListInvestors() ([]domain.Investor, error) {
	rows, err := r.db.Query(`
		SELECT id, name, business_name, interest_mode, capital_balance FROM investors
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query investors")
		return nil, err
	}
	defer rows.Close()

	var investors []domain.Investor
	for rows.Next() {
		var inv domain.Investor
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.BusinessName, &inv.InterestMode, &inv.CapitalBalance); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan investor")
			continue
		}
		investors = append(investors, inv)
	}
	return investors, rows.Err()
}

func (r *investorRepository) GetInvestor(id int64) (*domain.Investor, error) {
	var inv domain.Investor
	err := r.db.QueryRow(`
		SELECT id, name, business_name, interest_mode, capital_balance FROM investors WHERE id = $1
	`, id).Scan(&inv.ID, &inv.Name, &inv.BusinessName, &inv.InterestMode, &inv.CapitalBalance)
	if err == sql.ErrNoRows {
		return nil, domain.ErrObligationNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get investor")
		return nil, err
	}
	return &inv, nil
}

const investorTxColumns = `id, investor_id, type, amount, date, created_at`

func (r *investorRepository) ListTransactions() ([]domain.InvestorTransaction, error) {
	rows, err := r.db.Query(`SELECT ` + investorTxColumns + ` FROM investor_transactions ORDER BY date, id`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query investor transactions")
		return nil, err
	}
	defer rows.Close()

	var txs []domain.InvestorTransaction
	for rows.Next() {
		var t domain.InvestorTransaction
		if err := rows.Scan(&t.ID, &t.InvestorID, &t.Type, &t.Amount, &t.Date, &t.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan investor transaction")
			continue
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *investorRepository) GetTransaction(id int64) (*domain.InvestorTransaction, error) {
	var t domain.InvestorTransaction
	err := r.db.QueryRow(`SELECT `+investorTxColumns+` FROM investor_transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.InvestorID, &t.Type, &t.Amount, &t.Date, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrObligationNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get investor transaction")
		return nil, err
	}
	return &t, nil
}

func (r *investorRepository) CreateTransaction(tx *domain.InvestorTransaction) error {
	err := r.db.QueryRow(`
		INSERT INTO investor_transactions (investor_id, type, amount, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, tx.InvestorID, tx.Type, tx.Amount, tx.Date).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create investor transaction")
	}
	return err
}

func (r *investorRepository) DeleteTransaction(id int64) error {
	_, err := r.db.Exec(`DELETE FROM investor_transactions WHERE id = $1`, id)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to delete investor transaction")
	}
	return err
}

func (r *investorRepository) ListInterestEntries() ([]domain.InterestEntry, error) {
	rows, err := r.db.Query(`SELECT id, investor_id, type, amount, date, created_at FROM interest_entries ORDER BY date, id`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query interest entries")
		return nil, err
	}
	defer rows.Close()

	var entries []domain.InterestEntry
	for rows.Next() {
		var e domain.InterestEntry
		if err := rows.Scan(&e.ID, &e.InvestorID, &e.Type, &e.Amount, &e.Date, &e.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan interest entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *investorRepository) CreateInterestEntry(entry *domain.InterestEntry) error {
	err := r.db.QueryRow(`
		INSERT INTO interest_entries (investor_id, type, amount, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, entry.InvestorID, entry.Type, entry.Amount, entry.Date).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create interest entry")
	}
	return err
}

func (r *investorRepository) DeleteInterestEntry(id int64) error {
	_, err := r.db.Exec(`DELETE FROM interest_entries WHERE id = $1`, id)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to delete interest entry")
	}
	return err
}

// AdjustCapitalBalance shifts an investor's capital balance by delta;
// negative for withdrawals.
func (r *investorRepository) AdjustCapitalBalance(investorID int64, delta decimal.Decimal) error {
	_, err := r.db.Exec(`
		UPDATE investors SET capital_balance = capital_balance + $2 WHERE id = $1
	`, investorID, delta)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("investor_id", investorID).Error("Failed to adjust capital balance")
	}
	return err
}
