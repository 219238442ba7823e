package repository

import (
	"context"

	"github.com/ErlanBelekov/xblt/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns domain.ErrUserExists when the email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	AttachGoogleID(ctx context.Context, userID, googleID string) error
}
