package user

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash *string
	Role         Role
	IsVerified   bool
	RefreshToken *string
	AuthProvider AuthProvider
	GoogleID     *string
	Address      *string
	Phone        *string
	Preferences  json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

type UpdateProfileParams struct {
	Name        *string
	Address     *string
	Phone       *string
	Preferences json.RawMessage
}

type VerificationType string

const (
	VerificationEmail         VerificationType = "email_verification"
	VerificationPasswordReset VerificationType = "password_reset"
)

// Verification is a one-time token bound to an email and a purpose.
type Verification struct {
	ID        int64
	Email     string
	Token     string
	Type      VerificationType
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is the token pair handed to a client after login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}
