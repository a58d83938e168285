package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lending-recon/internal/matcher"
	"lending-recon/internal/service"
	"lending-recon/pkg/logger"
	"lending-recon/pkg/response"
)

type SuggestionHandler struct {
	service service.SuggestionService
}

func NewSuggestionHandler(service service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// Suggest godoc
// @Summary Classify unreconciled entries
// @Description Produce a match suggestion for every unreconciled bank entry
// @Tags suggestions
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/suggestions [post]
func (h *SuggestionHandler) Suggest(c *gin.Context) {
	suggestions, err := h.service.Suggest()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Classification failed")
		response.InternalError(c, "Classification failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Suggestions generated successfully", suggestions)
}

type PotsRequest struct {
	// Overrides force an entry into a pot regardless of its signals,
	// keyed by entry ID.
	Overrides map[string]string `json:"overrides"`
}

// Pots godoc
// @Summary Classify entries into pots
// @Description Run the two-phase pipeline: bucket entries into pots, then rank suggestions within each pot
// @Tags suggestions
// @Accept json
// @Produce json
// @Param request body PotsRequest true "Pot overrides"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/pots [post]
func (h *SuggestionHandler) Pots(c *gin.Context) {
	var req PotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithError(err).Error("Invalid request")
		response.ValidationError(c, err.Error())
		return
	}

	overrides := make(map[string]matcher.Pot, len(req.Overrides))
	for entryID, raw := range req.Overrides {
		pot := matcher.Pot(raw)
		switch pot {
		case matcher.PotLoans, matcher.PotInvestors, matcher.PotExpenses, matcher.PotUnclassified:
			overrides[entryID] = pot
		default:
			response.BadRequest(c, "Invalid pot override", "Pot must be one of loans, investors, expenses, unclassified")
			return
		}
	}

	pots, err := h.service.Pots(overrides)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Pot classification failed")
		response.InternalError(c, "Pot classification failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Pots generated successfully", pots)
}
