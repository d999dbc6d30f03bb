package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voucher-market/internal/logging"
	"voucher-market/internal/services"
)

// AdminHandler handles admin endpoints. Routes must be guarded by auth.RequireRole(ADMIN).
type AdminHandler struct {
	partnerService *services.PartnerService
	logger         *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(partnerService *services.PartnerService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{partnerService: partnerService, logger: logging.OrNop(logger)}
}

// ApprovePartner lets a partner publish vouchers
// POST /api/admin/partners/:id/approve
func (h *AdminHandler) ApprovePartner(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}

	partner, err := h.partnerService.Approve(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"partner": partner,
		"message": "Partner approved",
	})
}
