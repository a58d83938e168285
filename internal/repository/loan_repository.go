package repository

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type LoanRepository interface {
	ListLoans() ([]domain.Loan, error)
	ListBorrowers() ([]domain.Borrower, error)
	ListOutstandingTransactions() ([]domain.LoanTransaction, error)
	GetTransaction(id int64) (*domain.LoanTransaction, error)
	CreateTransaction(tx *domain.LoanTransaction) error
	DeleteTransaction(id int64) error
	ApplyRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error
	RevertRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error
}

type loanRepository struct {
	db Querier
}

func NewLoanRepository(db Querier) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) ListLoans() ([]domain.Loan, error) {
	rows, err := r.db.Query(`
		SELECT id, borrower_id, status, total_paid, principal_paid, interest_paid, fees_paid
		FROM loans
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query loans")
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(&l.ID, &l.BorrowerID, &l.Status, &l.TotalPaid, &l.PrincipalPaid, &l.InterestPaid, &l.FeesPaid); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan loan")
			continue
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) ListBorrowers() ([]domain.Borrower, error) {
	rows, err := r.db.Query(`SELECT id, name, email FROM borrowers`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query borrowers")
		return nil, err
	}
	defer rows.Close()

	var borrowers []domain.Borrower
	for rows.Next() {
		var b domain.Borrower
		if err := rows.Scan(&b.ID, &b.Name, &b.Email); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan borrower")
			continue
		}
		borrowers = append(borrowers, b)
	}
	return borrowers, rows.Err()
}

const loanTxColumns = `id, loan_id, type, amount, principal, interest, fees, date, created_at`

func (r *loanRepository) ListOutstandingTransactions() ([]domain.LoanTransaction, error) {
	rows, err := r.db.Query(`SELECT ` + loanTxColumns + ` FROM loan_transactions ORDER BY date, id`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query loan transactions")
		return nil, err
	}
	defer rows.Close()

	var txs []domain.LoanTransaction
	for rows.Next() {
		var t domain.LoanTransaction
		if err := rows.Scan(&t.ID, &t.LoanID, &t.Type, &t.Amount, &t.Principal, &t.Interest, &t.Fees, &t.Date, &t.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan loan transaction")
			continue
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *loanRepository) GetTransaction(id int64) (*domain.LoanTransaction, error) {
	var t domain.LoanTransaction
	err := r.db.QueryRow(`SELECT `+loanTxColumns+` FROM loan_transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.LoanID, &t.Type, &t.Amount, &t.Principal, &t.Interest, &t.Fees, &t.Date, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrObligationNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get loan transaction")
		return nil, err
	}
	return &t, nil
}

func (r *loanRepository) CreateTransaction(tx *domain.LoanTransaction) error {
	err := r.db.QueryRow(`
		INSERT INTO loan_transactions (loan_id, type, amount, principal, interest, fees, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, tx.LoanID, tx.Type, tx.Amount, tx.Principal, tx.Interest, tx.Fees, tx.Date).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create loan transaction")
	}
	return err
}

func (r *loanRepository) DeleteTransaction(id int64) error {
	_, err := r.db.Exec(`DELETE FROM loan_transactions WHERE id = $1`, id)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to delete loan transaction")
	}
	return err
}

// ApplyRepaymentTotals rolls a confirmed repayment into the loan's
// cumulative paid totals.
func (r *loanRepository) ApplyRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error {
	total := principal.Add(interest).Add(fees)
	_, err := r.db.Exec(`
		UPDATE loans
		SET total_paid = total_paid + $2,
			principal_paid = principal_paid + $3,
			interest_paid = interest_paid + $4,
			fees_paid = fees_paid + $5
		WHERE id = $1
	`, loanID, total, principal, interest, fees)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("loan_id", loanID).Error("Failed to apply repayment totals")
	}
	return err
}

// RevertRepaymentTotals undoes ApplyRepaymentTotals during unreconcile.
func (r *loanRepository) RevertRepaymentTotals(loanID int64, principal, interest, fees decimal.Decimal) error {
	total := principal.Add(interest).Add(fees)
	_, err := r.db.Exec(`
		UPDATE loans
		SET total_paid = total_paid - $2,
			principal_paid = principal_paid - $3,
			interest_paid = interest_paid - $4,
			fees_paid = fees_paid - $5
		WHERE id = $1
	`, loanID, total, principal, interest, fees)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("loan_id", loanID).Error("Failed to revert repayment totals")
	}
	return err
}
