package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voucher-market/internal/logging"
	"voucher-market/internal/mail"
	"voucher-market/internal/metrics"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
	"voucher-market/internal/utils"
)

// usedCodeRetention is how long consumed codes are kept before cleanup
const usedCodeRetention = 24 * time.Hour

// OTPConfig controls code lifetime, throttling and delivery
type OTPConfig struct {
	Expiry          time.Duration
	ResendInterval  time.Duration
	DeliveryTimeout time.Duration
	BlockedDomains  []string
}

// OTPService issues and verifies emailed one-time login codes
type OTPService struct {
	repo     *repository.Repository
	sender   mail.Sender
	cfg      OTPConfig
	blocked  map[string]struct{}
	validate *validator.Validate
	generate func() (string, error)
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      Clock
}

// NewOTPService creates a new OTPService. The sender is used for every code email.
func NewOTPService(repo *repository.Repository, sender mail.Sender, cfg OTPConfig, m *metrics.Metrics, logger *zap.Logger) *OTPService {
	blocked := make(map[string]struct{}, len(cfg.BlockedDomains))
	for _, d := range cfg.BlockedDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &OTPService{
		repo:     repo,
		sender:   sender,
		cfg:      cfg,
		blocked:  blocked,
		validate: validator.New(),
		generate: utils.GenerateOTPCode,
		metrics:  m,
		logger:   logging.OrNop(logger),
		now:      utcNow,
	}
}

// SetClock replaces the time source
func (s *OTPService) SetClock(now Clock) {
	s.now = now
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DomainAllowed reports whether codes may be sent to the address's domain
func (s *OTPService) DomainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	_, blocked := s.blocked[email[at+1:]]
	return !blocked
}

// RequestCode sends a fresh login code to email and returns the normalised address.
// The user row, the code row and the delivery succeed or fail together: if the
// email cannot be sent within the delivery timeout nothing is persisted.
func (s *OTPService) RequestCode(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		s.metrics.OTPRequested("invalid_email")
		return email, ErrInvalidEmail
	}
	if !s.DomainAllowed(email) {
		s.metrics.OTPRequested("disallowed_domain")
		return email, ErrDomainNotAllowed
	}

	now := s.now()
	recent, err := s.repo.CountCodesSince(ctx, email, now.Add(-s.cfg.ResendInterval))
	if err != nil {
		return email, fmt.Errorf("failed to check recent codes: %w", err)
	}
	if recent > 0 {
		s.metrics.OTPRequested("rate_limited")
		return email, ErrRateLimited
	}

	code, err := s.generate()
	if err != nil {
		return email, err
	}
	msg, err := mail.OTPMessage(email, code, s.cfg.Expiry)
	if err != nil {
		return email, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.FindOrCreateUserByEmail(ctx, email, models.AuthMethodOTP)
		if err != nil {
			return fmt.Errorf("failed to find or create user: %w", err)
		}

		otp := &models.OneTimeCode{
			UserID:    user.ID,
			Email:     email,
			Code:      code,
			ExpiresAt: now.Add(s.cfg.Expiry),
			CreatedAt: now,
		}
		if err := tx.CreateOneTimeCode(ctx, otp); err != nil {
			return fmt.Errorf("failed to store code: %w", err)
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		defer cancel()
		if err := s.sender.Send(sendCtx, msg); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return nil
	})
	if err != nil {
		result := "error"
		if errors.Is(err, ErrDelivery) {
			result = "delivery_failed"
		}
		s.metrics.OTPRequested(result)
		s.logger.Error("Failed to issue login code", zap.String("email", email), zap.Error(err))
		return email, err
	}

	s.metrics.OTPRequested("sent")
	s.logger.Info("Login code sent", zap.String("email", email))
	return email, nil
}

// VerifyCode consumes a code and returns its user, stamping the email as verified.
// Every failure is reported as ErrInvalidCode so callers cannot tell which part was wrong.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) (*models.User, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || !utils.IsOTPCode(code) {
		s.metrics.OTPVerified("invalid")
		return nil, ErrInvalidCode
	}

	now := s.now()
	var user *models.User
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		otp, err := tx.ClaimOneTimeCode(ctx, email, code, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return fmt.Errorf("failed to claim code: %w", err)
		}

		if err := tx.MarkEmailVerified(ctx, otp.UserID, now); err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
		user, err = tx.GetUserByID(ctx, otp.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			s.metrics.OTPVerified("invalid")
			return nil, ErrInvalidCode
		}
		s.metrics.OTPVerified("error")
		return nil, err
	}

	s.metrics.OTPVerified("success")
	s.logger.Info("Login code verified", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Cleanup deletes expired codes and consumed codes older than a day
func (s *OTPService) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	deleted, err := s.repo.DeleteStaleCodes(ctx, now, now.Add(-usedCodeRetention))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale codes: %w", err)
	}
	s.metrics.OTPCodesDeleted(deleted)
	return deleted, nil
}
