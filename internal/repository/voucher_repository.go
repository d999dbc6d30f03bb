package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voucher-market/internal/models"
)

// VoucherFilter narrows the public voucher listing
type VoucherFilter struct {
	CategoryID *uuid.UUID
	PartnerID  *uuid.UUID
	// ValidAt keeps only active vouchers whose validity window contains it
	ValidAt time.Time
}

// VoucherUpdateFunc computes the column updates for a locked voucher
type VoucherUpdateFunc func(current *models.Voucher) (map[string]interface{}, error)

// CreateVoucher creates a new voucher
func (r *Repository) CreateVoucher(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Omit("Partner", "Category").Create(voucher).Error
}

// GetVoucherByID retrieves a voucher with partner and category
func (r *Repository) GetVoucherByID(ctx context.Context, voucherID uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Preload("Category").
		Where("id = ?", voucherID).
		First(&voucher).Error
	if err != nil {
		return nil, translate(err)
	}
	return &voucher, nil
}

// ListVouchers returns active, currently valid vouchers, newest first
func (r *Repository) ListVouchers(ctx context.Context, filter VoucherFilter) ([]models.Voucher, error) {
	q := r.db.WithContext(ctx).
		Preload("Partner").
		Preload("Category").
		Where("is_active = ?", true)

	if !filter.ValidAt.IsZero() {
		q = q.Where("valid_from <= ?", filter.ValidAt).
			Where("valid_until IS NULL OR valid_until >= ?", filter.ValidAt)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PartnerID != nil {
		q = q.Where("partner_id = ?", *filter.PartnerID)
	}

	var vouchers []models.Voucher
	if err := q.Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// UpdateVoucher locks the voucher row, lets prepare compute the changes
// against the current state and applies them in the same transaction.
func (r *Repository) UpdateVoucher(ctx context.Context, voucherID uuid.UUID, prepare VoucherUpdateFunc) (*models.Voucher, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Voucher
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", voucherID).
			First(&current).Error
		if err != nil {
			return translate(err)
		}

		updates, err := prepare(&current)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Voucher{}).Where("id = ?", voucherID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetVoucherByID(ctx, voucherID)
}

// DeleteVoucher removes a voucher together with its redemption history
func (r *Repository) DeleteVoucher(ctx context.Context, voucherID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("voucher_id = ?", voucherID).Delete(&models.Redemption{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", voucherID).Delete(&models.Voucher{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
