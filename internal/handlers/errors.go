package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voucher-market/internal/services"
)

// statusFor maps service errors to HTTP statuses
var statusFor = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrNotPartner, http.StatusForbidden},
	{services.ErrPartnerNotApproved, http.StatusForbidden},
	{services.ErrAlreadyPartner, http.StatusConflict},
	{services.ErrInvalidEmail, http.StatusBadRequest},
	{services.ErrInvalidCode, http.StatusUnauthorized},
	{services.ErrIdentityRejected, http.StatusUnauthorized},
}

// redemptionStatus maps rejection reasons to HTTP statuses
var redemptionStatus = map[services.Reason]int{
	services.ReasonNotFound:        http.StatusNotFound,
	services.ReasonNotActive:       http.StatusBadRequest,
	services.ReasonNotYetValid:     http.StatusBadRequest,
	services.ReasonExpired:         http.StatusBadRequest,
	services.ReasonLimitReached:    http.StatusConflict,
	services.ReasonAlreadyRedeemed: http.StatusConflict,
}

// respondError writes the JSON error body for err. Unknown errors are logged
// and reported without details.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if reason, ok := services.RedemptionReason(err); ok {
		status, known := redemptionStatus[reason]
		if !known {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": reason.Message(), "reason": reason})
		return
	}

	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": []fieldError{{Field: validationErr.Field, Message: validationErr.Message}},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrDomainNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Please use your company email address",
			"reason": "disallowed_domain",
		})
		return
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":  "A code was sent recently, please wait a minute before requesting a new one",
			"reason": "rate_limited",
		})
		return
	case errors.Is(err, services.ErrDelivery):
		logger.Error("Email delivery failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not send email, please try again"})
		return
	}

	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error()})
			return
		}
	}

	logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondBindError reports a request body that failed binding or validation
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fe.Field(), Message: describe(fe)})
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid id"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	default:
		return "is invalid"
	}
}
