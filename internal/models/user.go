package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(150)" json:"last_name"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsStaff   bool      `gorm:"not null;default:false" json:"-"`

	// ConfirmationCode holds the argon2id hash of the last issued code, never the code itself.
	ConfirmationCode          string     `gorm:"type:varchar(255)" json:"-"`
	ConfirmationCodeExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user holds admin privileges, either through
// the admin role or elevated staff status.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff
}

// IsModerator reports whether the user may moderate other users' content.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}
