package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"voucher-market/internal/models"
)

// GetUserByID retrieves a user with its partner profile
func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Partner").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by normalised email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Partner").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByBabsyID retrieves a user linked to a Babsy App account
func (r *Repository) GetUserByBabsyID(ctx context.Context, babsyUserID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Partner").Where("babsy_user_id = ?", babsyUserID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindOrCreateUserByEmail returns the user owning email, creating it with the
// given auth method when missing. Concurrent creators converge on one row.
func (r *Repository) FindOrCreateUserByEmail(ctx context.Context, email string, method models.AuthMethod) (*models.User, error) {
	user := models.User{
		Email:      email,
		Role:       models.UserRoleUser,
		AuthMethod: method,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}
	return r.GetUserByEmail(ctx, email)
}

// SaveUser persists all fields of user
func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Partner").Save(user).Error
}

// MarkEmailVerified stamps email_verified unless it is already set
func (r *Repository) MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND email_verified IS NULL", userID).
		Update("email_verified", at).Error
}

// SetUserRole changes the role of a user
func (r *Repository) SetUserRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
