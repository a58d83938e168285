package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/internal/service"
	"lending-recon/pkg/logger"
	"lending-recon/pkg/response"
)

type ReconciliationHandler struct {
	service service.ReconciliationService
}

func NewReconciliationHandler(service service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

type ObligationRefRequest struct {
	Kind string `json:"kind" binding:"required"`
	ID   int64  `json:"id" binding:"required"`
}

func (r ObligationRefRequest) toRef() (domain.ObligationRef, bool) {
	kind := domain.ObligationKind(r.Kind)
	switch kind {
	case domain.KindLoanTransaction, domain.KindInvestorTransaction, domain.KindInterestEntry, domain.KindExpense:
		return domain.ObligationRef{Kind: kind, ID: r.ID}, true
	}
	return domain.ObligationRef{}, false
}

type MatchRequest struct {
	EntryID  string               `json:"entry_id" binding:"required"`
	Target   ObligationRefRequest `json:"target" binding:"required"`
	Category string               `json:"category" binding:"required"`
	Notes    string               `json:"notes"`
}

// Match godoc
// @Summary Reconcile a single match
// @Description Link one bank entry to one existing obligation
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body MatchRequest true "Match request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/reconcile/match [post]
func (h *ReconciliationHandler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	ref, ok := req.Target.toRef()
	if !ok {
		response.BadRequest(c, "Invalid obligation kind", req.Target.Kind)
		return
	}
	category, ok := parseCategory(req.Category)
	if !ok {
		response.BadRequest(c, "Invalid category", req.Category)
		return
	}

	if err := h.service.ReconcileSingleMatch(req.EntryID, ref, category, req.Notes); err != nil {
		h.writeError(c, err, "Single match reconciliation failed")
		return
	}

	response.Success(c, http.StatusOK, "Entry reconciled successfully", gin.H{"entry_id": req.EntryID})
}

type MatchGroupRequest struct {
	EntryID   string  `json:"entry_id" binding:"required"`
	LoanTxIDs []int64 `json:"loan_transaction_ids" binding:"required,min=2"`
	Notes     string  `json:"notes"`
}

// MatchGroup godoc
// @Summary Reconcile one entry against several loan transactions
// @Description Link one bulk bank entry to the group of loan transactions it pays
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body MatchGroupRequest true "Match group request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/reconcile/match-group [post]
func (h *ReconciliationHandler) MatchGroup(c *gin.Context) {
	var req MatchGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.service.ReconcileMatchGroup(req.EntryID, req.LoanTxIDs, req.Notes); err != nil {
		h.writeError(c, err, "Match group reconciliation failed")
		return
	}

	response.Success(c, http.StatusOK, "Entry reconciled successfully", gin.H{"entry_id": req.EntryID})
}

type GroupedRequest struct {
	Mode         string   `json:"mode" binding:"required"`
	EntryIDs     []string `json:"entry_ids" binding:"required,min=2"`
	ObligationID int64    `json:"obligation_id" binding:"required"`
	Notes        string   `json:"notes"`
}

// Grouped godoc
// @Summary Reconcile several entries against one obligation
// @Description Link a cluster of bank entries that together pay one loan or investor transaction
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body GroupedRequest true "Grouped reconciliation request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/reconcile/grouped [post]
func (h *ReconciliationHandler) Grouped(c *gin.Context) {
	var req GroupedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	var err error
	switch domain.MatchMode(req.Mode) {
	case domain.ModeGroupedRepayment:
		err = h.service.ReconcileGroupedRepayment(req.EntryIDs, req.ObligationID, req.Notes)
	case domain.ModeGroupedDisbursement:
		err = h.service.ReconcileGroupedDisbursement(req.EntryIDs, req.ObligationID, req.Notes)
	case domain.ModeGroupedInvestor:
		err = h.service.ReconcileGroupedInvestor(req.EntryIDs, req.ObligationID, req.Notes)
	default:
		response.BadRequest(c, "Invalid grouped mode", req.Mode)
		return
	}
	if err != nil {
		h.writeError(c, err, "Grouped reconciliation failed")
		return
	}

	response.Success(c, http.StatusOK, "Entries reconciled successfully", gin.H{"entry_ids": req.EntryIDs})
}

type CreateRequest struct {
	EntryID  string `json:"entry_id" binding:"required"`
	Category string `json:"category" binding:"required"`
	Notes    string `json:"notes"`

	// Loan categories.
	LoanID    int64           `json:"loan_id"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Fees      decimal.Decimal `json:"fees"`

	// Investor categories.
	InvestorID     int64           `json:"investor_id"`
	CapitalAmount  decimal.Decimal `json:"capital_amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"`

	// Expense category.
	ExpenseTypeID int64 `json:"expense_type_id"`
}

// Create godoc
// @Summary Reconcile by creating a new record
// @Description Create the missing loan, investor or expense record and link the entry to it
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Create reconciliation request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/reconcile/create [post]
func (h *ReconciliationHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	var err error
	switch domain.Category(req.Category) {
	case domain.LoanRepayment:
		if req.LoanID == 0 {
			response.BadRequest(c, "loan_id is required", "")
			return
		}
		split := service.RepaymentSplit{Principal: req.Principal, Interest: req.Interest, Fees: req.Fees}
		err = h.service.CreateLoanRepayment(req.EntryID, req.LoanID, split, req.Notes)
	case domain.LoanDisbursement:
		if req.LoanID == 0 {
			response.BadRequest(c, "loan_id is required", "")
			return
		}
		err = h.service.CreateLoanDisbursement(req.EntryID, req.LoanID, req.Notes)
	case domain.InvestorCredit:
		if req.InvestorID == 0 {
			response.BadRequest(c, "investor_id is required", "")
			return
		}
		err = h.service.CreateInvestorCredit(req.EntryID, req.InvestorID, req.Notes)
	case domain.InvestorWithdrawal:
		if req.InvestorID == 0 {
			response.BadRequest(c, "investor_id is required", "")
			return
		}
		err = h.service.CreateInvestorWithdrawal(req.EntryID, req.InvestorID, req.CapitalAmount, req.InterestAmount, req.Notes)
	case domain.OperatingExpense:
		if req.ExpenseTypeID == 0 {
			response.BadRequest(c, "expense_type_id is required", "")
			return
		}
		err = h.service.CreateExpense(req.EntryID, req.ExpenseTypeID, req.Notes)
	default:
		response.BadRequest(c, "Invalid category", req.Category)
		return
	}
	if err != nil {
		h.writeError(c, err, "Create reconciliation failed")
		return
	}

	response.Success(c, http.StatusOK, "Entry reconciled successfully", gin.H{"entry_id": req.EntryID})
}

type ManualMatchRequestBody struct {
	Shape    string                 `json:"shape" binding:"required"`
	EntryIDs []string               `json:"entry_ids" binding:"required,min=1"`
	Target   *ObligationRefRequest  `json:"target"`
	Targets  []ObligationRefRequest `json:"targets"`
	Category string                 `json:"category" binding:"required"`
	Notes    string                 `json:"notes"`
}

// Manual godoc
// @Summary Execute a manual match
// @Description Reconcile an operator-chosen combination of entries and obligations
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body ManualMatchRequestBody true "Manual match request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/reconcile/manual [post]
func (h *ReconciliationHandler) Manual(c *gin.Context) {
	var req ManualMatchRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	category, ok := parseCategory(req.Category)
	if !ok {
		response.BadRequest(c, "Invalid category", req.Category)
		return
	}
	switch service.ManualMatchShape(req.Shape) {
	case service.ShapeOneToOne, service.ShapeManyEntries, service.ShapeManyTargets, service.ShapeNetReceipt:
	default:
		response.BadRequest(c, "Invalid manual match shape", req.Shape)
		return
	}

	manual := service.ManualMatchRequest{
		Shape:    service.ManualMatchShape(req.Shape),
		EntryIDs: req.EntryIDs,
		Category: category,
		Notes:    req.Notes,
	}
	if req.Target != nil {
		ref, ok := req.Target.toRef()
		if !ok {
			response.BadRequest(c, "Invalid obligation kind", req.Target.Kind)
			return
		}
		manual.Target = &ref
	}
	for _, target := range req.Targets {
		ref, ok := target.toRef()
		if !ok {
			response.BadRequest(c, "Invalid obligation kind", target.Kind)
			return
		}
		manual.Targets = append(manual.Targets, ref)
	}

	if err := h.service.ExecuteManualMatch(manual); err != nil {
		h.writeError(c, err, "Manual match failed")
		return
	}

	response.Success(c, http.StatusOK, "Entries reconciled successfully", gin.H{"entry_ids": req.EntryIDs})
}

type UnreconcileRequest struct {
	DeleteCreated bool `json:"delete_created"`
}

// Unreconcile godoc
// @Summary Reverse a reconciliation
// @Description Delete the entry's links, revert balance effects, optionally delete created records
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param entry_id path string true "Entry ID"
// @Param request body UnreconcileRequest false "Unreconcile options"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile/{entry_id}/unreconcile [post]
func (h *ReconciliationHandler) Unreconcile(c *gin.Context) {
	entryID := c.Param("entry_id")

	var req UnreconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}

	if err := h.service.Unreconcile(entryID, req.DeleteCreated); err != nil {
		h.writeError(c, err, "Unreconcile failed")
		return
	}

	response.Success(c, http.StatusOK, "Entry unreconciled successfully", gin.H{"entry_id": entryID})
}

func (h *ReconciliationHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case domain.IsBalanceMismatch(err):
		response.BalanceMismatch(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyReconciled):
		response.Conflict(c, "Already reconciled", err.Error())
	case errors.Is(err, domain.ErrEntryNotFound), errors.Is(err, domain.ErrObligationNotFound):
		response.NotFound(c, err.Error())
	default:
		logger.GetLogger().WithError(err).Error(message)
		response.InternalError(c, message, err.Error())
	}
}

func parseCategory(raw string) (domain.Category, bool) {
	category := domain.Category(raw)
	switch category {
	case domain.LoanRepayment, domain.LoanDisbursement, domain.InvestorCredit,
		domain.InvestorWithdrawal, domain.OperatingExpense:
		return category, true
	}
	return "", false
}
