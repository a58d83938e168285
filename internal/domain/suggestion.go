package domain

import "fmt"

// Category is the semantic classification of a bank entry.
type Category string

const (
	LoanRepayment      Category = "loan_repayment"
	LoanDisbursement   Category = "loan_disbursement"
	InvestorCredit     Category = "investor_credit"
	InvestorWithdrawal Category = "investor_withdrawal"
	OperatingExpense   Category = "operating_expense"
	Unknown            Category = "unknown"
)

// MatchMode is the shape of a proposed reconciliation.
type MatchMode string

const (
	// ModeMatch links one bank entry to one existing obligation.
	ModeMatch MatchMode = "match"
	// ModeMatchGroup links one bank entry to several existing
	// obligations whose amounts sum to the entry.
	ModeMatchGroup MatchMode = "match_group"
	// ModeGroupedDisbursement, ModeGroupedRepayment and
	// ModeGroupedInvestor link several bank entries to one obligation.
	ModeGroupedDisbursement MatchMode = "grouped_disbursement"
	ModeGroupedRepayment    MatchMode = "grouped_repayment"
	ModeGroupedInvestor     MatchMode = "grouped_investor"
	// ModeCreate proposes creating a new obligation record because no
	// existing one matches.
	ModeCreate MatchMode = "create"
)

// ConfidenceLevel buckets a confidence for UI and bulk-acceptance
// gating. Only high-confidence suggestions are eligible for unattended
// bulk reconciliation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Suggestion is the best-guess match for one bank entry. It is derived
// state: recomputed whenever the snapshot changes, never persisted.
// Which reference fields are populated depends on Mode; use the
// constructors below rather than filling fields by hand, and Validate
// before acting on one.
type Suggestion struct {
	BankEntryID string   `json:"bank_entry_id"`
	Category    Category `json:"category"`
	Mode        MatchMode `json:"match_mode,omitempty"`
	// Confidence is in [0,1]. ConfidencePercent exposes the 0-100
	// integer form used on the wire.
	Confidence float64 `json:"-"`
	Rationale  string  `json:"rationale"`

	// ModeMatch / ModeMatchGroup targets.
	LoanTransactionIDs   []int64 `json:"loan_transaction_ids,omitempty"`
	InvestorTransactionID int64  `json:"investor_transaction_id,omitempty"`
	ExpenseID            int64   `json:"expense_id,omitempty"`

	// ModeCreate targets: the entity the new record should hang off.
	LoanID        int64 `json:"loan_id,omitempty"`
	InvestorID    int64 `json:"investor_id,omitempty"`
	ExpenseTypeID int64 `json:"expense_type_id,omitempty"`

	// Grouped-entry modes: sibling bank entries believed to belong to
	// the same obligation.
	GroupedEntryIDs []string `json:"grouped_entry_ids,omitempty"`
}

// NewUnknown is the terminal classification for entries below the
// confidence floor. Not an error: it means "needs manual handling".
func NewUnknown(entryID string) Suggestion {
	return Suggestion{
		BankEntryID: entryID,
		Category:    Unknown,
		Confidence:  0,
		Rationale:   "no match above confidence floor",
	}
}

func NewSingleMatch(entryID string, cat Category, confidence float64, rationale string) Suggestion {
	return Suggestion{
		BankEntryID: entryID,
		Category:    cat,
		Mode:        ModeMatch,
		Confidence:  confidence,
		Rationale:   rationale,
	}
}

func NewGroupMatch(entryID string, loanTxIDs []int64, confidence float64, rationale string) Suggestion {
	return Suggestion{
		BankEntryID:        entryID,
		Category:           LoanRepayment,
		Mode:               ModeMatchGroup,
		Confidence:         confidence,
		Rationale:          rationale,
		LoanTransactionIDs: loanTxIDs,
	}
}

func NewCreate(entryID string, cat Category, confidence float64, rationale string) Suggestion {
	return Suggestion{
		BankEntryID: entryID,
		Category:    cat,
		Mode:        ModeCreate,
		Confidence:  confidence,
		Rationale:   rationale,
	}
}

// SingleTarget resolves a ModeMatch suggestion to its one obligation.
// It reports false for every other mode and for malformed suggestions.
func (s Suggestion) SingleTarget() (ObligationRef, bool) {
	if s.Mode != ModeMatch {
		return ObligationRef{}, false
	}
	switch {
	case len(s.LoanTransactionIDs) == 1:
		return LoanTxRef(s.LoanTransactionIDs[0]), true
	case s.InvestorTransactionID != 0:
		return InvestorTxRef(s.InvestorTransactionID), true
	case s.ExpenseID != 0:
		return ExpenseRef(s.ExpenseID), true
	}
	return ObligationRef{}, false
}

// ConfidencePercent returns the integer percent form of Confidence.
func (s Suggestion) ConfidencePercent() int {
	return int(s.Confidence*100 + 0.5)
}

// Level buckets the confidence: >=90 high, >=70 medium, else low.
func (s Suggestion) Level() ConfidenceLevel {
	switch p := s.ConfidencePercent(); {
	case p >= 90:
		return ConfidenceHigh
	case p >= 70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Validate rejects suggestions whose populated fields do not fit their
// mode.
func (s Suggestion) Validate() error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range", s.Confidence)
	}
	switch s.Mode {
	case "":
		if s.Category != Unknown {
			return fmt.Errorf("category %s requires a match mode", s.Category)
		}
	case ModeMatch:
		targets := 0
		if len(s.LoanTransactionIDs) == 1 {
			targets++
		}
		if s.InvestorTransactionID != 0 {
			targets++
		}
		if s.ExpenseID != 0 {
			targets++
		}
		if targets != 1 {
			return fmt.Errorf("single match must reference exactly one obligation, got %d", targets)
		}
	case ModeMatchGroup:
		if len(s.LoanTransactionIDs) < 2 {
			return fmt.Errorf("match group needs at least 2 obligations, got %d", len(s.LoanTransactionIDs))
		}
	case ModeGroupedDisbursement, ModeGroupedRepayment, ModeGroupedInvestor:
		if len(s.GroupedEntryIDs) < 2 {
			return fmt.Errorf("grouped-entry mode needs at least 2 bank entries, got %d", len(s.GroupedEntryIDs))
		}
	case ModeCreate:
		if s.Category == Unknown {
			return fmt.Errorf("create mode requires a concrete category")
		}
	default:
		return fmt.Errorf("unknown match mode %q", s.Mode)
	}
	return nil
}
