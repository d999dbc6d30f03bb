package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voucher-market/internal/models"
)

// RedemptionCheck decides whether a redemption may proceed, given the locked
// voucher row (nil when it does not exist) and whether the user already redeemed it.
type RedemptionCheck func(voucher *models.Voucher, alreadyRedeemed bool) error

// AttemptRedemption is the single atomic write of a redemption. In one transaction it
// locks the voucher row, runs check against the locked state, inserts the redemption
// and increments the counter with a guarded update. Any failure rolls everything back.
//
// ErrAlreadyRedeemed is returned when the (voucher, user) unique index rejects the
// insert and ErrRedemptionLimit when the guarded update matched no row.
func (r *Repository) AttemptRedemption(ctx context.Context, redemption *models.Redemption, check RedemptionCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voucher models.Voucher
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", redemption.VoucherID).
			First(&voucher).Error
		if err != nil {
			err = translate(err)
			if err == ErrNotFound {
				return check(nil, false)
			}
			return fmt.Errorf("failed to lock voucher: %w", err)
		}

		var existing int64
		err = tx.Model(&models.Redemption{}).
			Where("voucher_id = ? AND user_id = ?", redemption.VoucherID, redemption.UserID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing redemption: %w", err)
		}

		if err := check(&voucher, existing > 0); err != nil {
			return err
		}

		if err := tx.Omit("Voucher", "User").Create(redemption).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("failed to insert redemption: %w", err)
		}

		result := tx.Model(&models.Voucher{}).
			Where("id = ?", voucher.ID).
			Where("max_redemptions IS NULL OR redemptions_used < max_redemptions").
			Update("redemptions_used", gorm.Expr("redemptions_used + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to increment redemptions: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRedemptionLimit
		}
		return nil
	})
}

// HasRedeemed reports whether a user already redeemed a voucher
func (r *Repository) HasRedeemed(ctx context.Context, voucherID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRedemption retrieves a redemption with its voucher, partner and category
func (r *Repository) GetRedemption(ctx context.Context, redemptionID uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).
		Preload("Voucher").
		Preload("Voucher.Partner").
		Preload("Voucher.Category").
		Where("id = ?", redemptionID).
		First(&redemption).Error
	if err != nil {
		return nil, translate(err)
	}
	return &redemption, nil
}
