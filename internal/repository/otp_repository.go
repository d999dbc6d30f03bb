package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voucher-market/internal/models"
)

// CreateOneTimeCode stores a newly issued code
func (r *Repository) CreateOneTimeCode(ctx context.Context, code *models.OneTimeCode) error {
	return r.db.WithContext(ctx).Omit("User").Create(code).Error
}

// CountCodesSince counts codes issued for email at or after since
func (r *Repository) CountCodesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OneTimeCode{}).
		Where("email = ? AND created_at >= ?", email, since).
		Count(&count).Error
	return count, err
}

// ClaimOneTimeCode marks an unused, unexpired code as used and returns it.
// The guarded update makes the claim single-use even under concurrent verifies:
// only the caller whose update flips used from false to true wins.
func (r *Repository) ClaimOneTimeCode(ctx context.Context, email, code string, now time.Time) (*models.OneTimeCode, error) {
	var claimed models.OneTimeCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ? AND code = ? AND used = ? AND expires_at >= ?", email, code, false, now).
			Order("created_at DESC").
			First(&claimed).Error
		if err != nil {
			return translate(err)
		}

		result := tx.Model(&models.OneTimeCode{}).
			Where("id = ? AND used = ?", claimed.ID, false).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		claimed.Used = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// DeleteStaleCodes removes expired codes and used codes issued before usedBefore
func (r *Repository) DeleteStaleCodes(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR (used = ? AND created_at < ?)", now, true, usedBefore).
		Delete(&models.OneTimeCode{})
	return result.RowsAffected, result.Error
}
