package auth

import "github.com/mylibrary/mylibrary/pkg/models"

// CredentialsPayload is the body of both register and login.
type CredentialsPayload struct {
	Username string `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SessionResponse carries the bearer token issued on register or login.
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
