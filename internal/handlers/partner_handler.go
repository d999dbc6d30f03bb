package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voucher-market/internal/auth"
	"voucher-market/internal/logging"
	"voucher-market/internal/services"
)

// PartnerHandler handles partner profile endpoints
type PartnerHandler struct {
	partnerService *services.PartnerService
	logger         *zap.Logger
}

// NewPartnerHandler creates a new PartnerHandler
func NewPartnerHandler(partnerService *services.PartnerService, logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService, logger: logging.OrNop(logger)}
}

type partnerProfileRequest struct {
	BusinessName *string `json:"businessName" binding:"omitempty,min=1,max=255"`
	Description  *string `json:"description"`
	Logo         *string `json:"logo" binding:"omitempty,url"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	Website      *string `json:"website" binding:"omitempty,url"`
}

func (r partnerProfileRequest) input() services.PartnerProfileInput {
	return services.PartnerProfileInput{
		BusinessName: r.BusinessName,
		Description:  r.Description,
		Logo:         r.Logo,
		Address:      r.Address,
		Phone:        r.Phone,
		Website:      r.Website,
	}
}

// Register creates a partner profile for the caller
// POST /api/partners
func (h *PartnerHandler) Register(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req partnerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	partner, err := h.partnerService.Register(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"partner": partner,
		"message": "Partner profile created, it will be visible once approved",
	})
}

// ListPartners returns approved partners
// GET /api/partners
func (h *PartnerHandler) ListPartners(c *gin.Context) {
	partners, err := h.partnerService.ListApproved(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"partners": partners})
}

// GetMyPartner returns the caller's partner profile with its vouchers
// GET /api/partners/me
func (h *PartnerHandler) GetMyPartner(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	partner, err := h.partnerService.GetOwn(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"partner": partner})
}

// UpdateMyPartner applies a partial update to the caller's partner profile
// PATCH /api/partners/me
func (h *PartnerHandler) UpdateMyPartner(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req partnerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	partner, err := h.partnerService.UpdateOwn(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"partner": partner})
}
