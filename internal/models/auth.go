package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest is the staff sign-in payload.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required,max=128"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// Normalize trims the email and folds it to lower case; stored emails are lower case.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// LoginResponse carries the bearer token issued to a reviewer.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        StaffProfile `json:"user"`
}

// StaffProfile is the public view of a back-office account.
type StaffProfile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      UserRole   `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// JWTClaims is the access token payload.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
