package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/internal/repository"
	"lending-recon/internal/similarity"
	"lending-recon/pkg/logger"
)

// RepaymentSplit is the caller-supplied breakdown of a created
// repayment. The components must sum to the bank entry amount.
type RepaymentSplit struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Fees      decimal.Decimal `json:"fees"`
}

func (s RepaymentSplit) Total() decimal.Decimal {
	return s.Principal.Add(s.Interest).Add(s.Fees)
}

// ManualMatchShape selects the relationship of a manual match.
type ManualMatchShape string

const (
	ShapeOneToOne      ManualMatchShape = "one_to_one"
	ShapeManyEntries   ManualMatchShape = "many_entries_to_one"
	ShapeManyTargets   ManualMatchShape = "one_to_many"
	// ShapeNetReceipt covers statements that net a fee against a
	// deposit: several mixed-sign entries whose signed sum pays one
	// obligation.
	ShapeNetReceipt ManualMatchShape = "net_receipt"
)

type ManualMatchRequest struct {
	Shape    ManualMatchShape      `json:"shape"`
	EntryIDs []string              `json:"entry_ids"`
	Target   *domain.ObligationRef `json:"target,omitempty"`
	Targets  []domain.ObligationRef `json:"targets,omitempty"`
	Category domain.Category       `json:"category"`
	Notes    string                `json:"notes"`
}

// ReconciliationService is the executor: the only component with side
// effects. Every operation is one atomic unit: all created records,
// links and reconciled flags for one logical reconciliation commit
// together or not at all.
type ReconciliationService interface {
	ReconcileSingleMatch(entryID string, ref domain.ObligationRef, category domain.Category, notes string) error
	ReconcileMatchGroup(entryID string, loanTxIDs []int64, notes string) error
	ReconcileGroupedRepayment(entryIDs []string, loanTxID int64, notes string) error
	ReconcileGroupedDisbursement(entryIDs []string, loanTxID int64, notes string) error
	ReconcileGroupedInvestor(entryIDs []string, investorTxID int64, notes string) error
	CreateLoanRepayment(entryID string, loanID int64, split RepaymentSplit, notes string) error
	CreateLoanDisbursement(entryID string, loanID int64, notes string) error
	CreateInvestorCredit(entryID string, investorID int64, notes string) error
	CreateInvestorWithdrawal(entryID string, investorID int64, capitalAmount, interestAmount decimal.Decimal, notes string) error
	CreateExpense(entryID string, expenseTypeID int64, notes string) error
	Unreconcile(entryID string, deleteCreated bool) error
	ExecuteManualMatch(req ManualMatchRequest) error
}

type reconciliationService struct {
	db        *sql.DB
	scheduler ScheduleRegenerator
	// runTx executes one operation body atomically. Bound to withTx in
	// production; tests swap it to run against in-memory repositories.
	runTx func(op string, fn func(r *txRepos, regen *[]int64) error) error
}

func NewReconciliationService(db *sql.DB, scheduler ScheduleRegenerator) ReconciliationService {
	if scheduler == nil {
		scheduler = LoggingScheduleRegenerator{}
	}
	s := &reconciliationService{db: db, scheduler: scheduler}
	s.runTx = s.withTx
	return s
}

// txRepos binds every repository to one transaction.
type txRepos struct {
	entries   repository.BankEntryRepository
	links     repository.LinkRepository
	loans     repository.LoanRepository
	investors repository.InvestorRepository
	expenses  repository.ExpenseRepository
	patterns  repository.PatternRepository
}

func newTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		entries:   repository.NewBankEntryRepository(tx),
		links:     repository.NewLinkRepository(tx),
		loans:     repository.NewLoanRepository(tx),
		investors: repository.NewInvestorRepository(tx),
		expenses:  repository.NewExpenseRepository(tx),
		patterns:  repository.NewPatternRepository(tx),
	}
}

// withTx runs one reconciliation atomically. The closure may request
// schedule regenerations; they run only after a successful commit,
// since the collaborator is external to the transaction.
func (s *reconciliationService) withTx(op string, fn func(r *txRepos, regen *[]int64) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	var regen []int64
	if err := fn(newTxRepos(tx), &regen); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.GetLogger().WithError(err).WithField("operation", op).Error("Failed to commit reconciliation")
		return err
	}

	for _, loanID := range regen {
		if err := s.scheduler.Regenerate(loanID); err != nil {
			logger.GetLogger().WithError(err).WithField("loan_id", loanID).Error("Schedule regeneration failed")
		}
	}
	return nil
}

func (s *reconciliationService) ReconcileSingleMatch(entryID string, ref domain.ObligationRef, category domain.Category, notes string) error {
	return s.runTx("reconcile single match", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}
		if err := s.requireUnclaimed(r, ref); err != nil {
			return err
		}

		obligationAmount, err := s.obligationAmount(r, ref)
		if err != nil {
			return err
		}
		if err := validateAmountsBalance(entry.AbsAmount(), obligationAmount); err != nil {
			return err
		}

		link := newLink(entry.ID, ref, entry.AbsAmount(), category, false, notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		if err := s.applyObligationEffects(r, ref, category, regen); err != nil {
			return err
		}
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

func (s *reconciliationService) ReconcileMatchGroup(entryID string, loanTxIDs []int64, notes string) error {
	return s.runTx("reconcile match group", func(r *txRepos, regen *[]int64) error {
		if len(loanTxIDs) < 2 {
			return fmt.Errorf("match group needs at least 2 obligations, got %d", len(loanTxIDs))
		}
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}

		total := decimal.Zero
		txs := make([]domain.LoanTransaction, 0, len(loanTxIDs))
		for _, id := range loanTxIDs {
			ref := domain.LoanTxRef(id)
			if err := s.requireUnclaimed(r, ref); err != nil {
				return err
			}
			lt, err := r.loans.GetTransaction(id)
			if err != nil {
				return err
			}
			total = total.Add(lt.Amount)
			txs = append(txs, *lt)
		}
		if err := validateAmountsBalance(entry.AbsAmount(), total); err != nil {
			return err
		}

		for _, lt := range txs {
			link := newLink(entry.ID, domain.LoanTxRef(lt.ID), lt.Amount, domain.LoanRepayment, false, notes)
			if err := r.links.Create(&link); err != nil {
				return err
			}
			if err := s.applyObligationEffects(r, domain.LoanTxRef(lt.ID), domain.LoanRepayment, regen); err != nil {
				return err
			}
		}
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

func (s *reconciliationService) ReconcileGroupedRepayment(entryIDs []string, loanTxID int64, notes string) error {
	return s.reconcileGroupedLoanTx("reconcile grouped repayment", entryIDs, loanTxID, domain.LoanRepayment, notes)
}

func (s *reconciliationService) ReconcileGroupedDisbursement(entryIDs []string, loanTxID int64, notes string) error {
	return s.reconcileGroupedLoanTx("reconcile grouped disbursement", entryIDs, loanTxID, domain.LoanDisbursement, notes)
}

// reconcileGroupedLoanTx links several bank entries to one loan
// transaction: one link per entry, every entry marked reconciled.
func (s *reconciliationService) reconcileGroupedLoanTx(op string, entryIDs []string, loanTxID int64, category domain.Category, notes string) error {
	return s.runTx(op, func(r *txRepos, regen *[]int64) error {
		entries, err := s.loadUnreconciledEntries(r, entryIDs)
		if err != nil {
			return err
		}
		ref := domain.LoanTxRef(loanTxID)
		if err := s.requireUnclaimed(r, ref); err != nil {
			return err
		}
		lt, err := r.loans.GetTransaction(loanTxID)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.AbsAmount())
		}
		if err := validateAmountsBalance(total, lt.Amount); err != nil {
			return err
		}

		for _, e := range entries {
			link := newLink(e.ID, ref, e.AbsAmount(), category, false, notes)
			if err := r.links.Create(&link); err != nil {
				return err
			}
		}
		if err := s.applyObligationEffects(r, ref, category, regen); err != nil {
			return err
		}
		now := time.Now()
		for _, e := range entries {
			if err := r.entries.MarkReconciled(e.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *reconciliationService) ReconcileGroupedInvestor(entryIDs []string, investorTxID int64, notes string) error {
	return s.runTx("reconcile grouped investor", func(r *txRepos, regen *[]int64) error {
		entries, err := s.loadUnreconciledEntries(r, entryIDs)
		if err != nil {
			return err
		}
		ref := domain.InvestorTxRef(investorTxID)
		if err := s.requireUnclaimed(r, ref); err != nil {
			return err
		}
		it, err := r.investors.GetTransaction(investorTxID)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.AbsAmount())
		}
		if err := validateAmountsBalance(total, it.Amount); err != nil {
			return err
		}

		category := domain.InvestorCredit
		if it.Type == domain.Withdrawal {
			category = domain.InvestorWithdrawal
		}
		for _, e := range entries {
			link := newLink(e.ID, ref, e.AbsAmount(), category, false, notes)
			if err := r.links.Create(&link); err != nil {
				return err
			}
		}
		if err := s.applyObligationEffects(r, ref, category, regen); err != nil {
			return err
		}
		now := time.Now()
		for _, e := range entries {
			if err := r.entries.MarkReconciled(e.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *reconciliationService) CreateLoanRepayment(entryID string, loanID int64, split RepaymentSplit, notes string) error {
	return s.runTx("create loan repayment", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}
		// The created record takes the entry amount exactly, so the
		// balance check reduces to validating the caller's split.
		if err := validateAmountsBalance(entry.AbsAmount(), split.Total()); err != nil {
			return err
		}

		lt := domain.LoanTransaction{
			LoanID:    loanID,
			Type:      domain.Repayment,
			Amount:    entry.AbsAmount(),
			Principal: split.Principal,
			Interest:  split.Interest,
			Fees:      split.Fees,
			Date:      entry.Date,
		}
		if err := r.loans.CreateTransaction(&lt); err != nil {
			return err
		}
		if err := r.loans.ApplyRepaymentTotals(loanID, split.Principal, split.Interest, split.Fees); err != nil {
			return err
		}

		link := newLink(entry.ID, domain.LoanTxRef(lt.ID), entry.AbsAmount(), domain.LoanRepayment, true, notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		s.strengthenPattern(r, *entry, domain.LoanRepayment, 0)
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

func (s *reconciliationService) CreateLoanDisbursement(entryID string, loanID int64, notes string) error {
	return s.runTx("create loan disbursement", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}

		lt := domain.LoanTransaction{
			LoanID: loanID,
			Type:   domain.Disbursement,
			Amount: entry.AbsAmount(),
			Date:   entry.Date,
		}
		if err := r.loans.CreateTransaction(&lt); err != nil {
			return err
		}

		link := newLink(entry.ID, domain.LoanTxRef(lt.ID), entry.AbsAmount(), domain.LoanDisbursement, true, notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		s.strengthenPattern(r, *entry, domain.LoanDisbursement, 0)

		// Outstanding capital changed; the amortization schedule must
		// be rebuilt.
		*regen = append(*regen, loanID)
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

func (s *reconciliationService) CreateInvestorCredit(entryID string, investorID int64, notes string) error {
	return s.runTx("create investor credit", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}

		it := domain.InvestorTransaction{
			InvestorID: investorID,
			Type:       domain.Deposit,
			Amount:     entry.AbsAmount(),
			Date:       entry.Date,
		}
		if err := r.investors.CreateTransaction(&it); err != nil {
			return err
		}
		if err := r.investors.AdjustCapitalBalance(investorID, entry.AbsAmount()); err != nil {
			return err
		}

		link := newLink(entry.ID, domain.InvestorTxRef(it.ID), entry.AbsAmount(), domain.InvestorCredit, true, notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		s.strengthenPattern(r, *entry, domain.InvestorCredit, 0)
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

// CreateInvestorWithdrawal may produce two records from one bank entry:
// a capital debit and/or an interest payout. For manual-interest
// investors a matching accrual is synthesized before the payout so the
// interest ledger never goes net negative from a withdrawal alone.
func (s *reconciliationService) CreateInvestorWithdrawal(entryID string, investorID int64, capitalAmount, interestAmount decimal.Decimal, notes string) error {
	return s.runTx("create investor withdrawal", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}
		if capitalAmount.IsNegative() || interestAmount.IsNegative() {
			return fmt.Errorf("withdrawal components must be non-negative")
		}
		if err := validateAmountsBalance(entry.AbsAmount(), capitalAmount.Add(interestAmount)); err != nil {
			return err
		}

		investor, err := r.investors.GetInvestor(investorID)
		if err != nil {
			return err
		}

		if interestAmount.IsPositive() {
			if investor.InterestMode == domain.InterestManual {
				accrual := domain.InterestEntry{
					InvestorID: investorID,
					Type:       domain.Accrual,
					Amount:     interestAmount,
					Date:       entry.Date,
				}
				if err := r.investors.CreateInterestEntry(&accrual); err != nil {
					return err
				}
			}
			payout := domain.InterestEntry{
				InvestorID: investorID,
				Type:       domain.Payout,
				Amount:     interestAmount,
				Date:       entry.Date,
			}
			if err := r.investors.CreateInterestEntry(&payout); err != nil {
				return err
			}
			link := newLink(entry.ID, domain.InterestRef(payout.ID), interestAmount, domain.InvestorWithdrawal, true, notes)
			if err := r.links.Create(&link); err != nil {
				return err
			}
		}

		if capitalAmount.IsPositive() {
			it := domain.InvestorTransaction{
				InvestorID: investorID,
				Type:       domain.Withdrawal,
				Amount:     capitalAmount,
				Date:       entry.Date,
			}
			if err := r.investors.CreateTransaction(&it); err != nil {
				return err
			}
			if err := r.investors.AdjustCapitalBalance(investorID, capitalAmount.Neg()); err != nil {
				return err
			}
			link := newLink(entry.ID, domain.InvestorTxRef(it.ID), capitalAmount, domain.InvestorWithdrawal, true, notes)
			if err := r.links.Create(&link); err != nil {
				return err
			}
		}

		s.strengthenPattern(r, *entry, domain.InvestorWithdrawal, 0)
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

func (s *reconciliationService) CreateExpense(entryID string, expenseTypeID int64, notes string) error {
	return s.runTx("create expense", func(r *txRepos, regen *[]int64) error {
		entry, err := s.loadUnreconciledEntry(r, entryID)
		if err != nil {
			return err
		}

		expense := domain.Expense{
			ExpenseTypeID: expenseTypeID,
			Amount:        entry.AbsAmount(),
			Date:          entry.Date,
			Description:   entry.Description,
		}
		if err := r.expenses.CreateExpense(&expense); err != nil {
			return err
		}

		link := newLink(entry.ID, domain.ExpenseRef(expense.ID), entry.AbsAmount(), domain.OperatingExpense, true, notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		s.strengthenPattern(r, *entry, domain.OperatingExpense, expenseTypeID)
		return r.entries.MarkReconciled(entry.ID, time.Now())
	})
}

// Unreconcile reverses a reconciliation: the entry's links are deleted,
// an obligation's applied balance effects are reverted when the last
// link pointing at it goes, and optionally the records created by the
// reconciliation are removed. Unreconciling an entry with no links is a
// no-op, not an error.
func (s *reconciliationService) Unreconcile(entryID string, deleteCreated bool) error {
	return s.runTx("unreconcile", func(r *txRepos, regen *[]int64) error {
		entry, err := r.entries.GetByID(entryID)
		if err != nil {
			return err
		}

		links, err := r.links.GetByEntryID(entry.ID)
		if err != nil {
			return err
		}
		if len(links) == 0 && !entry.Reconciled {
			// Redundant unreconcile; nothing to do.
			return nil
		}

		for _, link := range links {
			ref, ok := link.Ref()
			if !ok {
				continue
			}
			// Grouped reconciliations apply an obligation's balance
			// effects once for the whole group. While sibling entries
			// still link the obligation, the effects stay; the last
			// link out reverts them.
			shared, err := r.links.ExistsForObligationExcluding(ref, entry.ID)
			if err != nil {
				return err
			}
			if shared {
				continue
			}
			if err := s.revertObligationEffects(r, ref, link.Category, regen); err != nil {
				return err
			}
		}

		if err := r.links.DeleteByEntryID(entry.ID); err != nil {
			return err
		}

		if deleteCreated {
			for _, link := range links {
				if !link.WasCreated {
					continue
				}
				if ref, ok := link.Ref(); ok {
					stillLinked, err := r.links.ExistsForObligation(ref)
					if err != nil {
						return err
					}
					if stillLinked {
						continue
					}
				}
				if err := s.deleteCreatedRecord(r, link); err != nil {
					return err
				}
			}
		}

		return r.entries.ResetReconciled(entry.ID)
	})
}

// ExecuteManualMatch supports the four manual relationship shapes. The
// net-receipt shape balances on the signed sum of the entries; all
// other shapes balance on absolute values.
func (s *reconciliationService) ExecuteManualMatch(req ManualMatchRequest) error {
	return s.runTx("manual match", func(r *txRepos, regen *[]int64) error {
		if len(req.EntryIDs) == 0 {
			return fmt.Errorf("at least one bank entry is required")
		}
		entries, err := s.loadUnreconciledEntries(r, req.EntryIDs)
		if err != nil {
			return err
		}

		switch req.Shape {
		case ShapeOneToOne:
			if len(entries) != 1 || req.Target == nil {
				return fmt.Errorf("one-to-one match needs exactly one entry and one target")
			}
			return s.manualLinkEntries(r, entries, *req.Target, req, entries[0].AbsAmount(), false, regen)

		case ShapeManyEntries:
			if len(entries) < 2 || req.Target == nil {
				return fmt.Errorf("many-to-one match needs 2+ entries and one target")
			}
			total := decimal.Zero
			for _, e := range entries {
				total = total.Add(e.AbsAmount())
			}
			return s.manualLinkEntries(r, entries, *req.Target, req, total, false, regen)

		case ShapeNetReceipt:
			if len(entries) < 2 || req.Target == nil {
				return fmt.Errorf("net-receipt match needs 2+ entries and one target")
			}
			signed := decimal.Zero
			for _, e := range entries {
				signed = signed.Add(e.Amount)
			}
			return s.manualLinkEntries(r, entries, *req.Target, req, signed.Abs(), true, regen)

		case ShapeManyTargets:
			if len(entries) != 1 || len(req.Targets) < 2 {
				return fmt.Errorf("one-to-many match needs one entry and 2+ targets")
			}
			return s.manualLinkTargets(r, entries[0], req, regen)

		default:
			return fmt.Errorf("unknown manual match shape %q", req.Shape)
		}
	})
}

// manualLinkEntries links every entry to one target obligation after a
// single balance check against bankTotal. In net-receipt mode each link
// carries the entry's signed contribution so the link amounts explain
// the netting.
func (s *reconciliationService) manualLinkEntries(r *txRepos, entries []domain.BankEntry, target domain.ObligationRef, req ManualMatchRequest, bankTotal decimal.Decimal, signed bool, regen *[]int64) error {
	if err := s.requireUnclaimed(r, target); err != nil {
		return err
	}
	obligationAmount, err := s.obligationAmount(r, target)
	if err != nil {
		return err
	}
	if err := validateAmountsBalance(bankTotal, obligationAmount); err != nil {
		return err
	}

	for _, e := range entries {
		amount := e.AbsAmount()
		if signed {
			amount = e.Amount
		}
		link := newLink(e.ID, target, amount, req.Category, false, req.Notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
	}
	if err := s.applyObligationEffects(r, target, req.Category, regen); err != nil {
		return err
	}
	now := time.Now()
	for _, e := range entries {
		if err := r.entries.MarkReconciled(e.ID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *reconciliationService) manualLinkTargets(r *txRepos, entry domain.BankEntry, req ManualMatchRequest, regen *[]int64) error {
	total := decimal.Zero
	amounts := make([]decimal.Decimal, 0, len(req.Targets))
	for _, target := range req.Targets {
		if err := s.requireUnclaimed(r, target); err != nil {
			return err
		}
		amount, err := s.obligationAmount(r, target)
		if err != nil {
			return err
		}
		amounts = append(amounts, amount)
		total = total.Add(amount)
	}
	if err := validateAmountsBalance(entry.AbsAmount(), total); err != nil {
		return err
	}

	for i, target := range req.Targets {
		link := newLink(entry.ID, target, amounts[i], req.Category, false, req.Notes)
		if err := r.links.Create(&link); err != nil {
			return err
		}
		if err := s.applyObligationEffects(r, target, req.Category, regen); err != nil {
			return err
		}
	}
	return r.entries.MarkReconciled(entry.ID, time.Now())
}

func (s *reconciliationService) loadUnreconciledEntry(r *txRepos, entryID string) (*domain.BankEntry, error) {
	entry, err := r.entries.GetByID(entryID)
	if err != nil {
		return nil, err
	}
	if entry.Reconciled {
		return nil, domain.ErrAlreadyReconciled
	}
	return entry, nil
}

func (s *reconciliationService) loadUnreconciledEntries(r *txRepos, entryIDs []string) ([]domain.BankEntry, error) {
	entries := make([]domain.BankEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		entry, err := s.loadUnreconciledEntry(r, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// requireUnclaimed rejects obligations already pointed at by a link.
// Combined with the conditional reconciled-flag update on bank entries
// this is the optimistic guard against double-spending one obligation
// across two concurrent reconciliations.
func (s *reconciliationService) requireUnclaimed(r *txRepos, ref domain.ObligationRef) error {
	claimed, err := r.links.ExistsForObligation(ref)
	if err != nil {
		return err
	}
	if claimed {
		return domain.ErrAlreadyReconciled
	}
	return nil
}

func (s *reconciliationService) obligationAmount(r *txRepos, ref domain.ObligationRef) (decimal.Decimal, error) {
	switch ref.Kind {
	case domain.KindLoanTransaction:
		lt, err := r.loans.GetTransaction(ref.ID)
		if err != nil {
			return decimal.Zero, err
		}
		return lt.Amount, nil
	case domain.KindInvestorTransaction:
		it, err := r.investors.GetTransaction(ref.ID)
		if err != nil {
			return decimal.Zero, err
		}
		return it.Amount, nil
	case domain.KindExpense:
		e, err := r.expenses.GetExpense(ref.ID)
		if err != nil {
			return decimal.Zero, err
		}
		return e.Amount, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported obligation kind %q", ref.Kind)
}

// applyObligationEffects rolls a confirmed link into the owning
// entity's balances: repayments into loan paid totals, capital
// transactions into the investor balance. Disbursements queue a
// schedule regeneration because outstanding capital changed.
func (s *reconciliationService) applyObligationEffects(r *txRepos, ref domain.ObligationRef, category domain.Category, regen *[]int64) error {
	switch ref.Kind {
	case domain.KindLoanTransaction:
		lt, err := r.loans.GetTransaction(ref.ID)
		if err != nil {
			return err
		}
		if category == domain.LoanRepayment {
			return r.loans.ApplyRepaymentTotals(lt.LoanID, lt.Principal, lt.Interest, lt.Fees)
		}
		if category == domain.LoanDisbursement {
			*regen = append(*regen, lt.LoanID)
		}
	case domain.KindInvestorTransaction:
		it, err := r.investors.GetTransaction(ref.ID)
		if err != nil {
			return err
		}
		delta := it.Amount
		if it.Type == domain.Withdrawal {
			delta = delta.Neg()
		}
		return r.investors.AdjustCapitalBalance(it.InvestorID, delta)
	}
	return nil
}

func (s *reconciliationService) revertObligationEffects(r *txRepos, ref domain.ObligationRef, category domain.Category, regen *[]int64) error {
	switch ref.Kind {
	case domain.KindLoanTransaction:
		lt, err := r.loans.GetTransaction(ref.ID)
		if err != nil {
			return err
		}
		if category == domain.LoanRepayment {
			return r.loans.RevertRepaymentTotals(lt.LoanID, lt.Principal, lt.Interest, lt.Fees)
		}
		if category == domain.LoanDisbursement {
			*regen = append(*regen, lt.LoanID)
		}
	case domain.KindInvestorTransaction:
		it, err := r.investors.GetTransaction(ref.ID)
		if err != nil {
			return err
		}
		delta := it.Amount.Neg()
		if it.Type == domain.Withdrawal {
			delta = it.Amount
		}
		return r.investors.AdjustCapitalBalance(it.InvestorID, delta)
	}
	return nil
}

func (s *reconciliationService) deleteCreatedRecord(r *txRepos, link domain.ReconciliationLink) error {
	switch {
	case link.LoanTransactionID != nil:
		return r.loans.DeleteTransaction(*link.LoanTransactionID)
	case link.InvestorTransactionID != nil:
		return r.investors.DeleteTransaction(*link.InvestorTransactionID)
	case link.InterestEntryID != nil:
		return r.investors.DeleteInterestEntry(*link.InterestEntryID)
	case link.ExpenseID != nil:
		return r.expenses.DeleteExpense(*link.ExpenseID)
	}
	return nil
}

// strengthenPattern records a confirmed create-mode reconciliation so
// repeated vendors classify with growing confidence. Failure here never
// aborts the reconciliation; the worst case is a pattern that learns
// one confirmation late.
func (s *reconciliationService) strengthenPattern(r *txRepos, entry domain.BankEntry, category domain.Category, expenseTypeID int64) {
	keywords := similarity.ExtractVendorKeywords(entry.Description)
	if len(keywords) == 0 {
		return
	}
	direction := domain.DirCredit
	if entry.IsDebit() {
		direction = domain.DirDebit
	}
	if err := r.patterns.Strengthen(keywords, category, direction, entry.AbsAmount(), expenseTypeID); err != nil {
		logger.GetLogger().WithError(err).Warn("Failed to strengthen learned pattern")
	}
}

func newLink(entryID string, ref domain.ObligationRef, amount decimal.Decimal, category domain.Category, wasCreated bool, notes string) domain.ReconciliationLink {
	link := domain.ReconciliationLink{
		ID:          uuid.New().String(),
		BankEntryID: entryID,
		Amount:      amount,
		Category:    category,
		WasCreated:  wasCreated,
		Notes:       notes,
	}
	switch ref.Kind {
	case domain.KindLoanTransaction:
		link.LoanTransactionID = &ref.ID
	case domain.KindInvestorTransaction:
		link.InvestorTransactionID = &ref.ID
	case domain.KindInterestEntry:
		link.InterestEntryID = &ref.ID
	case domain.KindExpense:
		link.ExpenseID = &ref.ID
	}
	return link
}
