package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lending-recon/internal/service"
	"lending-recon/pkg/logger"
	"lending-recon/pkg/response"
)

type BulkAcceptHandler struct {
	service service.BulkAcceptService
}

func NewBulkAcceptHandler(service service.BulkAcceptService) *BulkAcceptHandler {
	return &BulkAcceptHandler{service: service}
}

// Accept godoc
// @Summary Accept high-confidence suggestions
// @Description Automatically reconcile every single-match suggestion above the configured confidence threshold
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile/bulk-accept [post]
func (h *BulkAcceptHandler) Accept(c *gin.Context) {
	result, err := h.service.Accept()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Bulk accept run failed")
		response.InternalError(c, "Bulk accept failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Bulk accept completed", result)
}
