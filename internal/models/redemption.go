package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Redemption records that a user redeemed a voucher.
// The composite unique index allows at most one row per (voucher, user).
type Redemption struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_redemption_voucher_user,priority:1" json:"voucherId"`
	Voucher   *Voucher  `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_redemption_voucher_user,priority:2;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Location  *string   `gorm:"size:255" json:"location"`
	Notes     *string   `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Redemption) TableName() string {
	return "voucher_redemptions"
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
