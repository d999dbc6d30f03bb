package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"voucher-market/internal/models"
)

// PartnerListing is an approved partner with its number of active vouchers
type PartnerListing struct {
	models.Partner
	ActiveVouchers int64 `json:"activeVouchers"`
}

// CreatePartner creates a new partner profile
func (r *Repository) CreatePartner(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Omit("User", "Vouchers").Create(partner).Error
}

// GetPartnerByID retrieves a partner by ID
func (r *Repository) GetPartnerByID(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).Where("id = ?", partnerID).First(&partner).Error; err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}

// GetPartnerByUserID retrieves the partner owned by a user, with its vouchers newest first
func (r *Repository) GetPartnerByUserID(ctx context.Context, userID uuid.UUID, withVouchers bool) (*models.Partner, error) {
	var partner models.Partner
	q := r.db.WithContext(ctx)
	if withVouchers {
		q = q.Preload("Vouchers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).Preload("Vouchers.Category")
	}
	if err := q.Where("user_id = ?", userID).First(&partner).Error; err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}

// ListApprovedPartners returns approved partners ordered by business name
func (r *Repository) ListApprovedPartners(ctx context.Context) ([]PartnerListing, error) {
	var partners []models.Partner
	err := r.db.WithContext(ctx).
		Where("is_approved = ?", true).
		Order("business_name ASC").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return []PartnerListing{}, nil
	}

	ids := make([]uuid.UUID, 0, len(partners))
	for _, p := range partners {
		ids = append(ids, p.ID)
	}

	var counts []struct {
		PartnerID uuid.UUID
		Total     int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Select("partner_id, COUNT(*) AS total").
		Where("partner_id IN ? AND is_active = ?", ids, true).
		Group("partner_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byPartner := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byPartner[c.PartnerID] = c.Total
	}

	listings := make([]PartnerListing, 0, len(partners))
	for _, p := range partners {
		listings = append(listings, PartnerListing{Partner: p, ActiveVouchers: byPartner[p.ID]})
	}
	return listings, nil
}

// UpdatePartner applies column updates to a partner
func (r *Repository) UpdatePartner(ctx context.Context, partnerID uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Partner{}).Where("id = ?", partnerID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
