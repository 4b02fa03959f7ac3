package domain

import (
	"net/mail"
	"strings"
)

// User constraints.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
)

// User is an account holder of the trading API.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
	CreatedAt    int64  `json:"created_at"` // Unix ms
}

// NewUser creates a user with a generated ID. The email is normalized.
func NewUser(email, passwordHash string) (*User, error) {
	id, err := NewID(UserIDPrefix)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           id,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    currentTimeMillis(),
	}, nil
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks an email/password pair before hashing.
func ValidateRegistration(email, password string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrUserValidation.WithDetails("email is required")
	}
	if len(email) > MaxEmailLength {
		return ErrUserValidation.WithDetails("email too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrUserValidation.WithDetails("invalid email address")
	}
	if len(password) < MinPasswordLength {
		return ErrUserValidation.WithDetails("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return ErrUserValidation.WithDetails("password must be at most 72 bytes")
	}
	return nil
}
