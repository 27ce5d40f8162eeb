package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Users sign in with their phone number
// or, when linked, with Google.
type User struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	PhoneNumber  *string        `gorm:"uniqueIndex;size:15" json:"phone_number"`
	Email        *string        `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName    string         `gorm:"size:100" json:"first_name"`
	LastName     string         `gorm:"size:100" json:"last_name"`
	HashedPass   string         `gorm:"size:255" json:"-"`
	GoogleID     *string        `gorm:"uniqueIndex;size:128" json:"-"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url,omitempty"`
	TokenVersion int            `gorm:"not null;default:0" json:"-"`
	DateJoined   time.Time      `gorm:"not null" json:"date_joined"`
	LastLogin    time.Time      `gorm:"not null" json:"last_login"`
	CreatedAt    time.Time      `gorm:"not null" json:"-"`
	UpdatedAt    time.Time      `gorm:"not null" json:"-"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook is called before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	if u.LastLogin.IsZero() {
		u.LastLogin = now
	}
	return nil
}

// BeforeSave hook is called before saving the user
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "account"
}

// LoginLog records every successful sign-in
type LoginLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Method    string    `gorm:"size:20;not null" json:"method"` // password, google
	ClientIP  string    `gorm:"size:64" json:"client_ip"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// RegisterRequest represents the data needed to create a new account
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Password2   string `json:"password2" binding:"required"`
}

// TokenRequest represents the data needed to obtain a token pair
type TokenRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// UpdateProfileRequest holds the editable profile fields
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}
