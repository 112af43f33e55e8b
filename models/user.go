package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleClient    = "client"
	RoleLawyer    = "lawyer"
	RoleAdmin     = "admin"
	RoleScheduler = "scheduler"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"not null;default:client;index" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`

	// Lawyer profile (only meaningful when Role == lawyer)
	Specialization *string  `gorm:"index" json:"specialization,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	QualifiedYear  *int     `json:"qualified_year,omitempty"` // year admitted to the bar
	IsAvailable    bool     `gorm:"not null;default:false;index" json:"is_available"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsLawyer checks if the user holds the lawyer role
func (u *User) IsLawyer() bool {
	return u.Role == RoleLawyer
}

// IsValidRole checks if the role is valid
func IsValidRole(role string) bool {
	switch role {
	case RoleClient, RoleLawyer, RoleAdmin, RoleScheduler:
		return true
	}
	return false
}
