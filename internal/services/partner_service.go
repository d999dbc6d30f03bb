package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voucher-market/internal/logging"
	"voucher-market/internal/mail"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

const welcomeMailTimeout = 10 * time.Second

// PartnerService handles partner registration, profiles and approval
type PartnerService struct {
	repo   *repository.Repository
	sender mail.Sender
	appURL string
	logger *zap.Logger
}

// NewPartnerService creates a new PartnerService
func NewPartnerService(repo *repository.Repository, sender mail.Sender, appURL string, logger *zap.Logger) *PartnerService {
	return &PartnerService{
		repo:   repo,
		sender: sender,
		appURL: strings.TrimRight(appURL, "/"),
		logger: logging.OrNop(logger),
	}
}

// PartnerProfileInput holds partner profile fields. On update nil fields are left unchanged.
type PartnerProfileInput struct {
	BusinessName *string
	Description  *string
	Logo         *string
	Address      *string
	Phone        *string
	Website      *string
}

// Register creates the partner profile of a user and promotes the user to PARTNER.
// New partners start unapproved.
func (s *PartnerService) Register(ctx context.Context, userID uuid.UUID, in PartnerProfileInput) (*models.Partner, error) {
	if in.BusinessName == nil || strings.TrimSpace(*in.BusinessName) == "" {
		return nil, invalid("businessName", "is required")
	}

	var partner *models.Partner
	var owner *models.User
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Partner != nil {
			return ErrAlreadyPartner
		}

		partner = &models.Partner{
			UserID:       userID,
			BusinessName: strings.TrimSpace(*in.BusinessName),
			Description:  in.Description,
			Logo:         in.Logo,
			Address:      in.Address,
			Phone:        in.Phone,
			Website:      in.Website,
		}
		if err := tx.CreatePartner(ctx, partner); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAlreadyPartner
			}
			return fmt.Errorf("failed to create partner: %w", err)
		}

		if user.Role != models.UserRoleAdmin {
			if err := tx.SetUserRole(ctx, userID, models.UserRolePartner); err != nil {
				return fmt.Errorf("failed to update role: %w", err)
			}
		}
		owner = user
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Partner registered",
		zap.String("partner_id", partner.ID.String()),
		zap.String("user_id", userID.String()),
	)
	s.sendWelcome(ctx, owner.Email, partner.BusinessName)
	return partner, nil
}

// sendWelcome is best effort; a failed welcome mail does not undo the registration
func (s *PartnerService) sendWelcome(ctx context.Context, to, businessName string) {
	msg, err := mail.PartnerWelcomeMessage(to, businessName, s.appURL)
	if err != nil {
		s.logger.Warn("Failed to render welcome email", zap.Error(err))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, welcomeMailTimeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, msg); err != nil {
		s.logger.Warn("Failed to send welcome email", zap.String("to", to), zap.Error(err))
	}
}

// ListApproved returns approved partners with their active voucher counts
func (s *PartnerService) ListApproved(ctx context.Context) ([]repository.PartnerListing, error) {
	return s.repo.ListApprovedPartners(ctx)
}

// GetOwn returns the caller's partner profile with its vouchers
func (s *PartnerService) GetOwn(ctx context.Context, userID uuid.UUID) (*models.Partner, error) {
	partner, err := s.repo.GetPartnerByUserID(ctx, userID, true)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotPartner
	}
	return partner, err
}

// UpdateOwn applies a partial update to the caller's partner profile
func (s *PartnerService) UpdateOwn(ctx context.Context, userID uuid.UUID, in PartnerProfileInput) (*models.Partner, error) {
	partner, err := s.repo.GetPartnerByUserID(ctx, userID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotPartner
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.BusinessName != nil {
		name := strings.TrimSpace(*in.BusinessName)
		if name == "" {
			return nil, invalid("businessName", "must not be empty")
		}
		updates["business_name"] = name
	}
	for column, value := range map[string]*string{
		"description": in.Description,
		"logo":        in.Logo,
		"address":     in.Address,
		"phone":       in.Phone,
		"website":     in.Website,
	} {
		if value != nil {
			updates[column] = *value
		}
	}

	if err := s.repo.UpdatePartner(ctx, partner.ID, updates); err != nil {
		return nil, err
	}
	return s.GetOwn(ctx, userID)
}

// Approve marks a partner as approved so it can publish vouchers
func (s *PartnerService) Approve(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
	err := s.repo.UpdatePartner(ctx, partnerID, map[string]interface{}{"is_approved": true})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Partner approved", zap.String("partner_id", partnerID.String()))
	return s.repo.GetPartnerByID(ctx, partnerID)
}
