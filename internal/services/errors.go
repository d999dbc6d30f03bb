package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// One-time-code login
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrRateLimited      = errors.New("a code was requested recently, please wait")
	ErrInvalidCode      = errors.New("invalid or expired code")
	ErrDelivery         = errors.New("failed to deliver email")

	// Delegated login
	ErrIdentityRejected = errors.New("identity token rejected")

	// Partners
	ErrNotPartner         = errors.New("partner profile required")
	ErrPartnerNotApproved = errors.New("partner profile not approved yet")
	ErrAlreadyPartner     = errors.New("user already has a partner profile")
)

// ValidationError reports an invalid input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RedemptionError is a business-rule rejection of a redemption
type RedemptionError struct {
	Reason Reason
}

func (e *RedemptionError) Error() string {
	return e.Reason.Message()
}

// RedemptionReason extracts the rejection reason from err, if any
func RedemptionReason(err error) (Reason, bool) {
	var re *RedemptionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return ReasonNone, false
}
