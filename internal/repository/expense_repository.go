package repository

import (
	"database/sql"

	"lending-recon/internal/domain"
	"lending-recon/pkg/logger"
)

type ExpenseRepository interface {
	ListExpenses() ([]domain.Expense, error)
	GetExpense(id int64) (*domain.Expense, error)
	CreateExpense(expense *domain.Expense) error
	DeleteExpense(id int64) error
	ListExpenseTypes() ([]domain.ExpenseType, error)
}

type expenseRepository struct {
	db Querier
}

func NewExpenseRepository(db Querier) ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `id, expense_type_id, amount, date, description, created_at`

func (r *expenseRepository) ListExpenses() ([]domain.Expense, error) {
	rows, err := r.db.Query(`SELECT ` + expenseColumns + ` FROM expenses ORDER BY date, id`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query expenses")
		return nil, err
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.ExpenseTypeID, &e.Amount, &e.Date, &e.Description, &e.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan expense")
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *expenseRepository) GetExpense(id int64) (*domain.Expense, error) {
	var e domain.Expense
	err := r.db.QueryRow(`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id).
		Scan(&e.ID, &e.ExpenseTypeID, &e.Amount, &e.Date, &e.Description, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrObligationNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get expense")
		return nil, err
	}
	return &e, nil
}

func (r *expenseRepository) CreateExpense(expense *domain.Expense) error {
	err := r.db.QueryRow(`
		INSERT INTO expenses (expense_type_id, amount, date, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, expense.ExpenseTypeID, expense.Amount, expense.Date, expense.Description).
		Scan(&expense.ID, &expense.CreatedAt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create expense")
	}
	return err
}

func (r *expenseRepository) DeleteExpense(id int64) error {
	_, err := r.db.Exec(`DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to delete expense")
	}
	return err
}

func (r *expenseRepository) ListExpenseTypes() ([]domain.ExpenseType, error) {
	rows, err := r.db.Query(`SELECT id, name FROM expense_types ORDER BY id`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query expense types")
		return nil, err
	}
	defer rows.Close()

	var types []domain.ExpenseType
	for rows.Next() {
		var t domain.ExpenseType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan expense type")
			continue
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
