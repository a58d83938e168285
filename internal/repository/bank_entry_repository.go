package repository

import (
	"database/sql"
	"time"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type BankEntryRepository interface {
	Create(entry *domain.BankEntry) error
	BulkCreate(entries []domain.BankEntry) error
	GetByID(id string) (*domain.BankEntry, error)
	GetByIDs(ids []string) ([]domain.BankEntry, error)
	List(reconciled *bool) ([]domain.BankEntry, error)
	MarkReconciled(id string, at time.Time) error
	ResetReconciled(id string) error
}

type bankEntryRepository struct {
	db Querier
}

func NewBankEntryRepository(db Querier) BankEntryRepository {
	return &bankEntryRepository{db: db}
}

const bankEntryColumns = `id, amount, date, description, reference, source, reconciled, reconciled_at, created_at`

func (r *bankEntryRepository) Create(entry *domain.BankEntry) error {
	query := `
		INSERT INTO bank_entries (id, amount, date, description, reference, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		entry.ID,
		entry.Amount,
		entry.Date,
		entry.Description,
		entry.Reference,
		entry.Source,
	).Scan(&entry.CreatedAt)

	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create bank entry")
		return err
	}

	return nil
}

func (r *bankEntryRepository) BulkCreate(entries []domain.BankEntry) error {
	if len(entries) == 0 {
		return nil
	}

	db, ok := r.db.(*sql.DB)
	if !ok {
		// Already bound to a transaction; insert on it directly.
		return r.insertAll(r.db, entries)
	}

	tx, err := db.Begin()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	if err := r.insertAll(tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to commit transaction")
		return err
	}

	return nil
}

func (r *bankEntryRepository) insertAll(q Querier, entries []domain.BankEntry) error {
	for _, entry := range entries {
		_, err := q.Exec(`
			INSERT INTO bank_entries (id, amount, date, description, reference, source)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`,
			entry.ID,
			entry.Amount,
			entry.Date,
			entry.Description,
			entry.Reference,
			entry.Source,
		)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("entry_id", entry.ID).Error("Failed to insert bank entry")
			continue
		}
	}
	return nil
}

func (r *bankEntryRepository) GetByID(id string) (*domain.BankEntry, error) {
	query := `SELECT ` + bankEntryColumns + ` FROM bank_entries WHERE id = $1`

	var entry domain.BankEntry
	err := r.db.QueryRow(query, id).Scan(
		&entry.ID,
		&entry.Amount,
		&entry.Date,
		&entry.Description,
		&entry.Reference,
		&entry.Source,
		&entry.Reconciled,
		&entry.ReconciledAt,
		&entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get bank entry")
		return nil, err
	}

	return &entry, nil
}

func (r *bankEntryRepository) GetByIDs(ids []string) ([]domain.BankEntry, error) {
	entries := make([]domain.BankEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (r *bankEntryRepository) List(reconciled *bool) ([]domain.BankEntry, error) {
	query := `SELECT ` + bankEntryColumns + ` FROM bank_entries ORDER BY date, id`
	args := []interface{}{}
	if reconciled != nil {
		query = `SELECT ` + bankEntryColumns + ` FROM bank_entries WHERE reconciled = $1 ORDER BY date, id`
		args = append(args, *reconciled)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query bank entries")
		return nil, err
	}
	defer rows.Close()

	var entries []domain.BankEntry
	for rows.Next() {
		var entry domain.BankEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Amount,
			&entry.Date,
			&entry.Description,
			&entry.Reference,
			&entry.Source,
			&entry.Reconciled,
			&entry.ReconciledAt,
			&entry.CreatedAt,
		)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan bank entry")
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// MarkReconciled flips the reconciled flag with a conditional update.
// Zero rows affected means another reconciliation won the race; the
// caller gets ErrAlreadyReconciled and must abort.
func (r *bankEntryRepository) MarkReconciled(id string, at time.Time) error {
	result, err := r.db.Exec(`
		UPDATE bank_entries
		SET reconciled = true, reconciled_at = $2
		WHERE id = $1 AND reconciled = false
	`, id, at)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to mark bank entry reconciled")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadyReconciled
	}
	return nil
}

func (r *bankEntryRepository) ResetReconciled(id string) error {
	_, err := r.db.Exec(`
		UPDATE bank_entries
		SET reconciled = false, reconciled_at = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to reset bank entry")
	}
	return err
}
