package dto

import "time"

// AuthRegisterRequest is the payload for account registration.
type AuthRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AuthLoginRequest is the payload for login.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserSummary is the public representation of a user account.
type UserSummary struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	IsActive        bool      `json:"is_active"`
	DefaultLanguage string    `json:"default_language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuthResponse carries a session token plus the account it belongs to.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}
