package model

import (
	"strings"
	"time"
)

// Account is a registered user of the tracker.
type Account struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	// Password is only populated for directories written before hashing was
	// introduced. It is cleared as soon as the account is upgraded.
	Password   string `json:"password,omitempty"`
	DateJoined string `json:"date_joined"`
}

// FullName joins the first and last name.
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail canonicalizes an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is the persisted "currently logged in" marker.
type Session struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
	Email     string    `json:"email"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
