package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role decides what an authenticated caller may do
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the authenticated identity
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile is one-to-one with User and shares its id
type Profile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email,omitempty" gorm:"-"`
	Name      string    `json:"name" gorm:"type:varchar(80);not null"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	Phone     string    `json:"phone_number,omitempty" gorm:"column:phone_number;type:varchar(32)"`
	Address   string    `json:"address,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the stored role grants admin access
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RevokedToken records a logged-out token until it would have expired anyway
type RevokedToken struct {
	JTI       string    `gorm:"column:jti;type:varchar(64);primaryKey"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
