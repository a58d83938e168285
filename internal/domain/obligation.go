package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanTransactionType distinguishes money moving into a loan from money
// paid out of it.
type LoanTransactionType string

const (
	Repayment    LoanTransactionType = "REPAYMENT"
	Disbursement LoanTransactionType = "DISBURSEMENT"
)

// LoanTransaction is an outstanding loan-side obligation: an expected
// repayment from a borrower or a disbursement to one.
type LoanTransaction struct {
	ID        int64               `json:"id" db:"id"`
	LoanID    int64               `json:"loan_id" db:"loan_id"`
	Type      LoanTransactionType `json:"type" db:"type"`
	Amount    decimal.Decimal     `json:"amount" db:"amount"`
	Principal decimal.Decimal     `json:"principal" db:"principal"`
	Interest  decimal.Decimal     `json:"interest" db:"interest"`
	Fees      decimal.Decimal     `json:"fees" db:"fees"`
	Date      time.Time           `json:"date" db:"date"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
}

// InvestorTransactionType distinguishes capital coming in from capital
// going out.
type InvestorTransactionType string

const (
	Deposit    InvestorTransactionType = "DEPOSIT"
	Withdrawal InvestorTransactionType = "WITHDRAWAL"
)

// InvestorTransaction is a capital movement on an investor account.
type InvestorTransaction struct {
	ID         int64                   `json:"id" db:"id"`
	InvestorID int64                   `json:"investor_id" db:"investor_id"`
	Type       InvestorTransactionType `json:"type" db:"type"`
	Amount     decimal.Decimal         `json:"amount" db:"amount"`
	Date       time.Time               `json:"date" db:"date"`
	CreatedAt  time.Time               `json:"created_at" db:"created_at"`
}

// InterestEntryType distinguishes interest earned from interest paid
// out.
type InterestEntryType string

const (
	Accrual InterestEntryType = "ACCRUAL"
	Payout  InterestEntryType = "PAYOUT"
)

// InterestEntry is one line on an investor's interest ledger.
type InterestEntry struct {
	ID         int64             `json:"id" db:"id"`
	InvestorID int64             `json:"investor_id" db:"investor_id"`
	Type       InterestEntryType `json:"type" db:"type"`
	Amount     decimal.Decimal   `json:"amount" db:"amount"`
	Date       time.Time         `json:"date" db:"date"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Expense is an operating expense of the lending business.
type Expense struct {
	ID            int64           `json:"id" db:"id"`
	ExpenseTypeID int64           `json:"expense_type_id" db:"expense_type_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Date          time.Time       `json:"date" db:"date"`
	Description   string          `json:"description" db:"description"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ExpenseType is a category of operating expense (rent, salaries, ...).
type ExpenseType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LoanStatus tracks the lifecycle of a loan.
type LoanStatus string

const (
	LoanActive LoanStatus = "ACTIVE"
	LoanClosed LoanStatus = "CLOSED"
)

// Loan carries the cumulative paid totals the executor must keep in
// step with repayments.
type Loan struct {
	ID            int64           `json:"id" db:"id"`
	BorrowerID    int64           `json:"borrower_id" db:"borrower_id"`
	Status        LoanStatus      `json:"status" db:"status"`
	TotalPaid     decimal.Decimal `json:"total_paid" db:"total_paid"`
	PrincipalPaid decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	FeesPaid      decimal.Decimal `json:"fees_paid" db:"fees_paid"`
}

type Borrower struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// InterestMode controls how an investor's interest accrues. Manual-mode
// investors only accrue interest when an operator (or the withdrawal
// path) records it.
type InterestMode string

const (
	InterestAuto   InterestMode = "AUTO"
	InterestManual InterestMode = "MANUAL"
)

type Investor struct {
	ID             int64           `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	BusinessName   string          `json:"business_name" db:"business_name"`
	InterestMode   InterestMode    `json:"interest_mode" db:"interest_mode"`
	CapitalBalance decimal.Decimal `json:"capital_balance" db:"capital_balance"`
}

// ObligationKind identifies which concrete table an ObligationRef
// points into.
type ObligationKind string

const (
	KindLoanTransaction     ObligationKind = "loan_transaction"
	KindInvestorTransaction ObligationKind = "investor_transaction"
	KindInterestEntry       ObligationKind = "interest_entry"
	KindExpense             ObligationKind = "expense"
)

// ObligationRef is the key of the claimed/reconciled index: one
// outstanding record the engine can match a bank entry against.
type ObligationRef struct {
	Kind ObligationKind `json:"kind"`
	ID   int64          `json:"id"`
}

func LoanTxRef(id int64) ObligationRef {
	return ObligationRef{Kind: KindLoanTransaction, ID: id}
}

func InvestorTxRef(id int64) ObligationRef {
	return ObligationRef{Kind: KindInvestorTransaction, ID: id}
}

func InterestRef(id int64) ObligationRef {
	return ObligationRef{Kind: KindInterestEntry, ID: id}
}

func ExpenseRef(id int64) ObligationRef {
	return ObligationRef{Kind: KindExpense, ID: id}
}
