package domain

import (
	"strings"
	"time"
)

type User struct {
	ID       string
	Email    string
	Name     string
	GoogleID string
	// PasswordHash is written on create only; reads never select it.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lower-cases and trims an address so that lookups and the
// unique constraint agree on identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
