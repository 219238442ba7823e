package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/repository"
)

// TokenIssuer mints a session token for a resolved user.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

type OAuthUsecase struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewOAuthUsecase(users repository.UserRepository, tokens TokenIssuer) *OAuthUsecase {
	return &OAuthUsecase{users: users, tokens: tokens}
}

// CompleteLogin resolves the local user behind a provider profile and
// returns a signed session token for it. A nil profile yields
// domain.ErrNoOAuthUser; every other error means the login failed.
func (u *OAuthUsecase) CompleteLogin(ctx context.Context, profile *domain.OAuthProfile) (string, error) {
	if profile == nil {
		return "", domain.ErrNoOAuthUser
	}

	user, err := u.resolveUser(ctx, profile)
	if err != nil {
		return "", err
	}

	signed, err := u.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// resolveUser finds the user by email, linking the provider id on first
// OAuth login, or creates one. Losing a create race to a concurrent
// login falls back to the row that won.
func (u *OAuthUsecase) resolveUser(ctx context.Context, profile *domain.OAuthProfile) (*domain.User, error) {
	if profile.Provider != domain.ProviderGoogle {
		return nil, fmt.Errorf("unsupported provider %q", profile.Provider)
	}

	emailAddr := domain.NormalizeEmail(profile.Email)
	if emailAddr == "" {
		return nil, domain.ErrProfileEmailMissing
	}

	for attempt := 0; attempt < 2; attempt++ {
		user, err := u.users.FindByEmail(ctx, emailAddr)
		if err == nil {
			if user.GoogleID == "" {
				if err := u.users.AttachGoogleID(ctx, user.ID, profile.ProviderID); err != nil {
					return nil, fmt.Errorf("attach google id: %w", err)
				}
				user.GoogleID = profile.ProviderID
			}
			return user, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}

		created, err := u.users.Create(ctx, &domain.User{
			Email:    emailAddr,
			Name:     profile.Name,
			GoogleID: profile.ProviderID,
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrUserExists) {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	return nil, fmt.Errorf("resolve user %s: %w", emailAddr, domain.ErrUserExists)
}
