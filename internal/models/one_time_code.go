package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OneTimeCode is a short-lived numeric login code sent by email.
// A code is consumed at most once and only while ExpiresAt has not passed.
type OneTimeCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Email     string    `gorm:"size:320;not null;index:idx_otp_email_code,priority:1" json:"email"`
	Code      string    `gorm:"size:6;not null;index:idx_otp_email_code,priority:2" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (OneTimeCode) TableName() string {
	return "otp_tokens"
}

func (o *OneTimeCode) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
