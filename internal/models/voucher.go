package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Voucher is a redeemable offer published by a partner.
// RedemptionsUsed never exceeds MaxRedemptions when a cap is set.
type Voucher struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PartnerID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"partnerId"`
	Partner         *Partner         `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	CategoryID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category        *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title           string           `gorm:"size:255;not null" json:"title"`
	Description     string           `gorm:"type:text;not null" json:"description"`
	Terms           *string          `gorm:"type:text" json:"terms"`
	Discount        *int             `json:"discount"`
	Value           *decimal.Decimal `gorm:"type:decimal(10,2)" json:"value"`
	ImageURL        *string          `gorm:"size:500" json:"imageUrl"`
	IsActive        bool             `gorm:"not null;index" json:"isActive"`
	ValidFrom       time.Time        `gorm:"not null" json:"validFrom"`
	ValidUntil      *time.Time       `json:"validUntil"`
	MaxRedemptions  *int             `json:"maxRedemptions"`
	RedemptionsUsed int              `gorm:"not null;default:0" json:"redemptionsUsed"`
	Code            string           `gorm:"uniqueIndex;size:64;not null" json:"code"`
	CreatedAt       time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// TableName specifies the table name for Voucher model
func (Voucher) TableName() string {
	return "vouchers"
}

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// RedemptionsLeft returns the remaining capacity, or nil when uncapped
func (v *Voucher) RedemptionsLeft() *int {
	if v.MaxRedemptions == nil {
		return nil
	}
	left := *v.MaxRedemptions - v.RedemptionsUsed
	if left < 0 {
		left = 0
	}
	return &left
}
