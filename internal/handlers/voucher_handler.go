package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"voucher-market/internal/auth"
	"voucher-market/internal/logging"
	"voucher-market/internal/services"
)

// VoucherHandler handles voucher endpoints
type VoucherHandler struct {
	voucherService    *services.VoucherService
	redemptionService *services.RedemptionService
	logger            *zap.Logger
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(voucherService *services.VoucherService, redemptionService *services.RedemptionService, logger *zap.Logger) *VoucherHandler {
	return &VoucherHandler{
		voucherService:    voucherService,
		redemptionService: redemptionService,
		logger:            logging.OrNop(logger),
	}
}

type createVoucherRequest struct {
	CategoryID     string           `json:"categoryId" binding:"required,uuid"`
	Title          string           `json:"title" binding:"required"`
	Description    string           `json:"description" binding:"required"`
	Terms          *string          `json:"terms"`
	Discount       *int             `json:"discount" binding:"omitempty,min=0,max=100"`
	Value          *decimal.Decimal `json:"value"`
	ImageURL       *string          `json:"imageUrl" binding:"omitempty,url"`
	ValidFrom      *time.Time       `json:"validFrom"`
	ValidUntil     *time.Time       `json:"validUntil"`
	MaxRedemptions *int             `json:"maxRedemptions" binding:"omitempty,gt=0"`
}

type updateVoucherRequest struct {
	CategoryID     *string          `json:"categoryId" binding:"omitempty,uuid"`
	Title          *string          `json:"title" binding:"omitempty,min=1"`
	Description    *string          `json:"description" binding:"omitempty,min=1"`
	Terms          *string          `json:"terms"`
	Discount       *int             `json:"discount" binding:"omitempty,min=0,max=100"`
	Value          *decimal.Decimal `json:"value"`
	ImageURL       *string          `json:"imageUrl" binding:"omitempty,url"`
	IsActive       *bool            `json:"isActive"`
	ValidFrom      *time.Time       `json:"validFrom"`
	ValidUntil     *time.Time       `json:"validUntil"`
	MaxRedemptions *int             `json:"maxRedemptions" binding:"omitempty,gt=0"`
}

// ListVouchers returns active, currently valid vouchers
// GET /api/vouchers?categoryId=&partnerId=
func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	var filter services.ListFilter
	for param, target := range map[string]**uuid.UUID{
		"categoryId": &filter.CategoryID,
		"partnerId":  &filter.PartnerID,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Validation failed",
				"details": []fieldError{{Field: param, Message: "must be a valid id"}},
			})
			return
		}
		*target = &id
	}

	vouchers, err := h.voucherService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vouchers": vouchers})
}

// GetVoucher returns a voucher with its partner and category
// GET /api/vouchers/:id
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	id, ok := voucherID(c)
	if !ok {
		return
	}

	voucher, err := h.voucherService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voucher":         voucher,
		"redemptionsLeft": voucher.RedemptionsLeft(),
	})
}

// CreateVoucher publishes a voucher for the caller's approved partner profile
// POST /api/vouchers
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req createVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.voucherService.Create(c.Request.Context(), userID, services.CreateVoucherInput{
		CategoryID:     uuid.MustParse(req.CategoryID),
		Title:          req.Title,
		Description:    req.Description,
		Terms:          req.Terms,
		Discount:       req.Discount,
		Value:          req.Value,
		ImageURL:       req.ImageURL,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		MaxRedemptions: req.MaxRedemptions,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"voucher":     created.Voucher,
		"qrCodeImage": created.QRCodeImage,
	})
}

// UpdateVoucher applies a partial update. Only the owning partner or an admin may update.
// PATCH /api/vouchers/:id
func (h *VoucherHandler) UpdateVoucher(c *gin.Context) {
	id, ok := voucherID(c)
	if !ok {
		return
	}

	var req updateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.UpdateVoucherInput{
		Title:          req.Title,
		Description:    req.Description,
		Terms:          req.Terms,
		Discount:       req.Discount,
		Value:          req.Value,
		ImageURL:       req.ImageURL,
		IsActive:       req.IsActive,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		MaxRedemptions: req.MaxRedemptions,
	}
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		in.CategoryID = &categoryID
	}

	voucher, err := h.voucherService.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"voucher": voucher})
}

// DeleteVoucher removes a voucher and its redemptions
// DELETE /api/vouchers/:id
func (h *VoucherHandler) DeleteVoucher(c *gin.Context) {
	id, ok := voucherID(c)
	if !ok {
		return
	}

	if err := h.voucherService.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetQRCode renders the voucher QR code as PNG
// GET /api/vouchers/:id/qrcode
func (h *VoucherHandler) GetQRCode(c *gin.Context) {
	id, ok := voucherID(c)
	if !ok {
		return
	}

	png, err := h.voucherService.QRCode(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// Redeem records a redemption of the voucher by the caller
// POST /api/vouchers/:id/redeem
func (h *VoucherHandler) Redeem(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, &services.RedemptionError{Reason: services.ReasonNotFound})
		return
	}

	var req struct {
		Location *string `json:"location"`
		Notes    *string `json:"notes"`
	}
	// the body is optional; chunked requests report ContentLength -1 even when empty
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	redemption, err := h.redemptionService.Redeem(c.Request.Context(), id, userID, services.RedeemRequest{
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"redemption": redemption,
		"message":    "Voucher redeemed successfully",
	})
}

// CheckEligibility reports whether the caller can redeem the voucher right now.
// Anonymous callers get not_authenticated.
// GET /api/vouchers/:id/redeem
func (h *VoucherHandler) CheckEligibility(c *gin.Context) {
	var userID *uuid.UUID
	if id, ok := auth.GetUserID(c); ok {
		userID = &id
	}

	// an unparsable id evaluates as not_found
	id, _ := uuid.Parse(c.Param("id"))

	report, err := h.redemptionService.CheckEligibility(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func voucherID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) services.Actor {
	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)
	return services.Actor{UserID: userID, Role: role}
}
