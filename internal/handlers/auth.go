package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voucher-market/internal/auth"
	"voucher-market/internal/logging"
	"voucher-market/internal/models"
	"voucher-market/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	otpService   *services.OTPService
	authService  *services.AuthService
	userService  *services.UserService
	tokens       *auth.TokenManager
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	otpService *services.OTPService,
	authService *services.AuthService,
	userService *services.UserService,
	tokens *auth.TokenManager,
	secureCookie bool,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		otpService:   otpService,
		authService:  authService,
		userService:  userService,
		tokens:       tokens,
		secureCookie: secureCookie,
		logger:       logging.OrNop(logger),
	}
}

// RequestOTP emails a one-time login code
// POST /api/auth/otp/request
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	email, err := h.otpService.RequestCode(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "A login code was sent to your email address",
		"email":   email,
	})
}

// VerifyOTP exchanges a login code for a session
// POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.otpService.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.startSession(c, user)
}

// BabsyVerify signs in with a token issued by the Babsy App
// POST /api/auth/babsy/verify
func (h *AuthHandler) BabsyVerify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.ProcessBabsyLogin(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.startSession(c, user)
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) {
	token, _, err := h.tokens.GenerateToken(user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	auth.SetSessionCookie(c, token, int(h.tokens.TTL().Seconds()), h.secureCookie)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"user":       services.SummarizeUser(user),
		"redirectTo": services.LandingPath(user),
	})
}

// Logout clears the session cookie. Tokens are stateless and expire on their own.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully logged out",
	})
}

// GetMe returns the currently authenticated user
// GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	user = h.authService.RefreshBabsyProfile(c.Request.Context(), user)

	c.JSON(http.StatusOK, gin.H{
		"user": services.SummarizeUser(user),
	})
}
