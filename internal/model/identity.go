package model

import "time"

// Identity is an authenticated principal owned by the identity provider.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the signed-in user of one client session.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// ReauthenticateRequest re-validates the password of the current session.
type ReauthenticateRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}
