// Package models defines the GORM models persisted by the profile service.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account on the profile service. Besides the credentials it
// carries the per-account provisioning defaults shown on the settings page.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	IsAdmin  bool   `gorm:"default:false" json:"is_admin"`

	GlobalDomain            string `gorm:"default:example.local" json:"global_domain"`
	GlobalTimezone          string `gorm:"default:Etc/UTC" json:"global_timezone"`
	UniversalUsername       string `json:"universal_username"`
	PasswordMode            string `gorm:"default:generate" json:"password_mode"`
	UniversalPasswordCustom string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
