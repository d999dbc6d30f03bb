package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voucher-market/internal/logging"
	"voucher-market/internal/metrics"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

// RedemptionService validates and records voucher redemptions
type RedemptionService struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     Clock
}

// NewRedemptionService creates a new RedemptionService
func NewRedemptionService(repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) *RedemptionService {
	return &RedemptionService{
		repo:    repo,
		metrics: m,
		logger:  logging.OrNop(logger),
		now:     utcNow,
	}
}

// SetClock replaces the time source
func (s *RedemptionService) SetClock(now Clock) {
	s.now = now
}

// RedeemRequest carries the optional details recorded with a redemption
type RedeemRequest struct {
	Location *string
	Notes    *string
}

// EligibilityReport is the read-only answer to "can this user redeem now?"
type EligibilityReport struct {
	CanRedeem       bool   `json:"canRedeem"`
	Reason          Reason `json:"reason,omitempty"`
	Message         string `json:"message,omitempty"`
	RedemptionsLeft *int   `json:"redemptionsLeft"`
}

// Redeem records a redemption if the voucher is eligible for the user.
// The rules are re-evaluated against the locked row inside one transaction,
// so concurrent callers can never exceed the cap or redeem twice.
// Rule failures are returned as *RedemptionError.
func (s *RedemptionService) Redeem(ctx context.Context, voucherID, userID uuid.UUID, req RedeemRequest) (*models.Redemption, error) {
	now := s.now()
	redemption := &models.Redemption{
		ID:        uuid.New(),
		VoucherID: voucherID,
		UserID:    userID,
		Location:  req.Location,
		Notes:     req.Notes,
		CreatedAt: now,
	}

	err := s.repo.AttemptRedemption(ctx, redemption, func(v *models.Voucher, alreadyRedeemed bool) error {
		if result := Evaluate(SnapshotOf(v, alreadyRedeemed), now); !result.Eligible {
			return &RedemptionError{Reason: result.Reason}
		}
		return nil
	})

	switch {
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		err = &RedemptionError{Reason: ReasonAlreadyRedeemed}
	case errors.Is(err, repository.ErrRedemptionLimit):
		err = &RedemptionError{Reason: ReasonLimitReached}
	}

	if err != nil {
		if reason, ok := RedemptionReason(err); ok {
			s.metrics.RedemptionAttempt(string(reason))
			s.logger.Debug("Redemption rejected",
				zap.String("voucher_id", voucherID.String()),
				zap.String("user_id", userID.String()),
				zap.String("reason", string(reason)),
			)
			return nil, err
		}
		s.metrics.RedemptionAttempt("error")
		return nil, fmt.Errorf("failed to redeem voucher: %w", err)
	}

	s.metrics.RedemptionAttempt("success")
	s.logger.Info("Voucher redeemed",
		zap.String("voucher_id", voucherID.String()),
		zap.String("user_id", userID.String()),
		zap.String("redemption_id", redemption.ID.String()),
	)

	stored, err := s.repo.GetRedemption(ctx, redemption.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load redemption: %w", err)
	}
	return stored, nil
}

// CheckEligibility evaluates the same rules as Redeem without writing.
// A nil userID yields not_authenticated.
func (s *RedemptionService) CheckEligibility(ctx context.Context, voucherID uuid.UUID, userID *uuid.UUID) (*EligibilityReport, error) {
	if userID == nil {
		return &EligibilityReport{
			Reason:  ReasonNotAuthenticated,
			Message: ReasonNotAuthenticated.Message(),
		}, nil
	}

	voucher, err := s.repo.GetVoucherByID(ctx, voucherID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}

	alreadyRedeemed := false
	if voucher != nil {
		alreadyRedeemed, err = s.repo.HasRedeemed(ctx, voucherID, *userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check redemption: %w", err)
		}
	}

	result := Evaluate(SnapshotOf(voucher, alreadyRedeemed), s.now())
	report := &EligibilityReport{CanRedeem: result.Eligible}
	if !result.Eligible {
		report.Reason = result.Reason
		report.Message = result.Reason.Message()
	}
	if voucher != nil {
		report.RedemptionsLeft = voucher.RedemptionsLeft()
	}
	return report, nil
}
