package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is the authorization role of a user
type UserRole string

const (
	UserRoleUser    UserRole = "USER"
	UserRolePartner UserRole = "PARTNER"
	UserRoleAdmin   UserRole = "ADMIN"
)

// AuthMethod records how a user signed up
type AuthMethod string

const (
	AuthMethodOTP      AuthMethod = "OTP"
	AuthMethodBabsyApp AuthMethod = "BABSY_APP"
	AuthMethodEntraID  AuthMethod = "ENTRA_ID"
)

// BabsyUserType is the account type reported by the Babsy App
type BabsyUserType string

const (
	BabsyUserTypeSitter BabsyUserType = "SITTER"
	BabsyUserTypeParent BabsyUserType = "PARENT"
)

// User represents a user in the system
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Name          *string        `gorm:"size:255" json:"name"`
	Role          UserRole       `gorm:"size:20;not null;default:USER" json:"role"`
	AuthMethod    AuthMethod     `gorm:"size:20;not null;default:OTP" json:"authMethod"`
	EmailVerified *time.Time     `json:"emailVerified,omitempty"`
	BabsyUserID   *string        `gorm:"uniqueIndex;size:100" json:"babsyUserId,omitempty"`
	BabsyUserType *BabsyUserType `gorm:"size:20" json:"babsyUserType,omitempty"`
	Partner       *Partner       `gorm:"foreignKey:UserID" json:"partner,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when none is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsPartner reports whether the user has a partner profile
func (u *User) IsPartner() bool {
	return u.Partner != nil
}

// IsApprovedPartner reports whether the user's partner profile was approved
func (u *User) IsApprovedPartner() bool {
	return u.Partner != nil && u.Partner.IsApproved
}
