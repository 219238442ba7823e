package repository

import (
	"context"

	"github.com/ErlanBelekov/xblt/internal/domain"
)

// OTPRepository stores one-time codes. Implementations rely on the
// backend's native expiry to remove records; callers must still compare
// ExpiresAt against the clock since removal can lag.
type OTPRepository interface {
	// FindLatest returns the most recently created code for email, or
	// domain.ErrOTPNotFound.
	FindLatest(ctx context.Context, email string) (*domain.OTP, error)
	// Create persists otp. Stores running in exclusive mode return
	// domain.ErrOTPActive if a live code for the same email exists.
	Create(ctx context.Context, otp *domain.OTP) error
}
