package types

import (
	"strings"
	"time"
)

// CreatedAtLayout is the ISO-8601 shape the auth API expects for createdAt.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
}

// TokenResponse is what /auth/login and /auth/register answer with.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Profile holds the display fields of the signed-in user.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileResponse is the full /auth/profile body served by the dev backend.
type ProfileResponse struct {
	Profile
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}
