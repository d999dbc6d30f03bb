package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Partner is a business offering vouchers. One partner profile per user.
type Partner struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BusinessName string    `gorm:"size:255;not null" json:"businessName"`
	Description  *string   `gorm:"type:text" json:"description"`
	Logo         *string   `gorm:"size:500" json:"logo"`
	Address      *string   `gorm:"size:500" json:"address"`
	Phone        *string   `gorm:"size:50" json:"phone"`
	Website      *string   `gorm:"size:500" json:"website"`
	IsApproved   bool      `gorm:"not null;index" json:"isApproved"`
	Vouchers     []Voucher `gorm:"foreignKey:PartnerID" json:"vouchers,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Partner) TableName() string {
	return "partners"
}

func (p *Partner) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
