package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lending-recon/internal/domain"
	"lending-recon/internal/service"
	"lending-recon/pkg/logger"
	"lending-recon/pkg/response"
)

type EntryHandler struct {
	service service.EntryService
}

func NewEntryHandler(service service.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

type BankEntryRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        string          `json:"date" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Reference   string          `json:"reference"`
	Source      string          `json:"source"`
}

type ImportEntriesRequest struct {
	Entries []BankEntryRequest `json:"entries" binding:"required,min=1"`
}

// Import godoc
// @Summary Import bank statement entries
// @Description Import a batch of bank statement entries for reconciliation
// @Tags entries
// @Accept json
// @Produce json
// @Param request body ImportEntriesRequest true "Entries to import"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/entries [post]
func (h *EntryHandler) Import(c *gin.Context) {
	var req ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	entries := make([]domain.BankEntry, 0, len(req.Entries))
	for _, item := range req.Entries {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			response.BadRequest(c, "Invalid date format", "Use YYYY-MM-DD format")
			return
		}
		entries = append(entries, domain.BankEntry{
			Amount:      item.Amount,
			Date:        date,
			Description: item.Description,
			Reference:   item.Reference,
			Source:      item.Source,
		})
	}

	imported, err := h.service.BulkCreate(entries)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to import bank entries")
		response.InternalError(c, "Failed to import entries", err.Error())
		return
	}

	response.Success(c, http.StatusCreated, "Entries imported successfully", gin.H{
		"imported": imported,
		"skipped":  len(req.Entries) - imported,
	})
}

// List godoc
// @Summary List bank entries
// @Description List bank entries, optionally filtered by reconciled status
// @Tags entries
// @Produce json
// @Param reconciled query bool false "Filter by reconciled status"
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	var reconciled *bool
	if raw, ok := c.GetQuery("reconciled"); ok {
		v := raw == "true"
		reconciled = &v
	}

	entries, err := h.service.List(reconciled)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list bank entries")
		response.InternalError(c, "Failed to list entries", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Entries retrieved successfully", entries)
}

// Get godoc
// @Summary Get a bank entry
// @Description Get one bank entry by ID
// @Tags entries
// @Produce json
// @Param entry_id path string true "Entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/entries/{entry_id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	entryID := c.Param("entry_id")

	entry, err := h.service.GetByID(entryID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			response.NotFound(c, "Entry not found")
			return
		}
		logger.GetLogger().WithError(err).WithField("entry_id", entryID).Error("Failed to get bank entry")
		response.InternalError(c, "Failed to get entry", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Entry retrieved successfully", entry)
}
