package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is a coarse access tag attached to a user.
type Permission string

const (
	PermissionUser       Permission = "USER"
	PermissionAdmin      Permission = "ADMIN"
	PermissionItemCreate Permission = "ITEMCREATE"
	PermissionItemUpdate Permission = "ITEMUPDATE"
	PermissionItemDelete Permission = "ITEMDELETE"
)

// User represents a storefront account. Email is stored lowercase and unique;
// ResetToken and ResetTokenExpiry are only non-nil while a password reset is
// pending and are cleared together when the reset is redeemed.
type User struct {
	ID               uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	Name             string       `json:"name" gorm:"size:255;not null"`
	Email            string       `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash     string       `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Permissions      []Permission `json:"permissions" gorm:"serializer:json;type:json"`
	ResetToken       *string      `json:"-" gorm:"size:64;index"`
	ResetTokenExpiry *time.Time   `json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// Relations
	Items []Item `json:"items,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID and the default permission set before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if len(u.Permissions) == 0 {
		u.Permissions = []Permission{PermissionUser}
	}
	return nil
}

// HasPermission reports whether the user carries the given tag.
func (u *User) HasPermission(p Permission) bool {
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}
