package dto

import "github.com/hongminglow/cryptodesk-be/internal/models"

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User    models.User `json:"user"`
	Refresh string      `json:"refresh"`
	Access  string      `json:"access"`
}

// RefreshResponse carries a new access token, plus a new refresh token when rotation is on.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
