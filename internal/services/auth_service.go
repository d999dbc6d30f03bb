package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voucher-market/internal/babsy"
	"voucher-market/internal/logging"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

// IdentityVerifier resolves Babsy App tokens and accounts
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (*babsy.User, error)
	GetUser(ctx context.Context, userID string) (*babsy.User, error)
}

// AuthService handles delegated login through the Babsy App
type AuthService struct {
	repo     *repository.Repository
	verifier IdentityVerifier
	logger   *zap.Logger
	now      Clock
}

// NewAuthService creates a new AuthService
func NewAuthService(repo *repository.Repository, verifier IdentityVerifier, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		verifier: verifier,
		logger:   logging.OrNop(logger),
		now:      utcNow,
	}
}

// SetClock replaces the time source
func (s *AuthService) SetClock(now Clock) {
	s.now = now
}

// ProcessBabsyLogin verifies a Babsy App token and finds or creates the matching user.
// Existing users are matched by Babsy account ID first, then by email.
func (s *AuthService) ProcessBabsyLogin(ctx context.Context, token string) (*models.User, error) {
	remote, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, babsy.ErrInvalidToken) || errors.Is(err, babsy.ErrNotConfigured) {
			s.logger.Warn("Babsy App token rejected", zap.Error(err))
			return nil, ErrIdentityRejected
		}
		return nil, fmt.Errorf("failed to verify babsy token: %w", err)
	}

	now := s.now()
	var user *models.User
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		existing, err := tx.GetUserByBabsyID(ctx, remote.ID)
		if errors.Is(err, repository.ErrNotFound) {
			existing, err = tx.FindOrCreateUserByEmail(ctx, remote.Email, models.AuthMethodBabsyApp)
		}
		if err != nil {
			return err
		}

		babsyID := remote.ID
		userType := models.BabsyUserType(remote.Type)
		existing.BabsyUserID = &babsyID
		existing.BabsyUserType = &userType
		existing.AuthMethod = models.AuthMethodBabsyApp
		if remote.Name != "" {
			name := remote.Name
			existing.Name = &name
		}
		if remote.Verified && existing.EmailVerified == nil {
			existing.EmailVerified = &now
		}

		if err := tx.SaveUser(ctx, existing); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in via Babsy App",
		zap.String("user_id", user.ID.String()),
		zap.String("babsy_user_id", remote.ID),
	)
	return user, nil
}

// RefreshBabsyProfile pulls the current name and verification state of a linked
// Babsy App account. Failures are logged and the stored user is returned as is.
func (s *AuthService) RefreshBabsyProfile(ctx context.Context, user *models.User) *models.User {
	if user == nil || user.BabsyUserID == nil {
		return user
	}

	remote, err := s.verifier.GetUser(ctx, *user.BabsyUserID)
	if err != nil {
		if !errors.Is(err, babsy.ErrNotConfigured) {
			s.logger.Warn("Failed to refresh Babsy App profile",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
		return user
	}

	changed := false
	if remote.Name != "" && (user.Name == nil || *user.Name != remote.Name) {
		name := remote.Name
		user.Name = &name
		changed = true
	}
	if remote.Verified && user.EmailVerified == nil {
		now := s.now()
		user.EmailVerified = &now
		changed = true
	}
	if !changed {
		return user
	}

	if err := s.repo.SaveUser(ctx, user); err != nil {
		s.logger.Warn("Failed to store refreshed Babsy App profile",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
	return user
}
