package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

// UserService handles user-related business logic
type UserService struct {
	repo *repository.Repository
}

// NewUserService creates a new UserService
func NewUserService(repo *repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// GetUserByID retrieves a user with its partner profile
func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// UserSummary is the user shape returned to clients after login
type UserSummary struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	Name            *string         `json:"name"`
	Role            models.UserRole `json:"role"`
	IsPartner       bool            `json:"isPartner"`
	PartnerApproved bool            `json:"partnerApproved"`
}

// SummarizeUser builds the client view of a user. Partner must be preloaded.
func SummarizeUser(u *models.User) UserSummary {
	return UserSummary{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		IsPartner:       u.IsPartner(),
		PartnerApproved: u.IsApprovedPartner(),
	}
}

// LandingPath is where a freshly signed-in user should go next
func LandingPath(u *models.User) string {
	switch {
	case u.IsApprovedPartner():
		return "/partner"
	case u.IsPartner():
		return "/partner/pending"
	default:
		return "/vouchers"
	}
}
