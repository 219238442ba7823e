package oauth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var (
	googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

	ErrMissingIDToken = errors.New("token response has no id_token")
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and JWKSURL default to Google's.
	Endpoint oauth2.Endpoint
	JWKSURL  string
}

// GoogleProvider runs the authorization-code flow against Google and
// turns the verified id_token into a domain.OAuthProfile.
type GoogleProvider struct {
	cfg      *oauth2.Config
	jwks     *jwk.Cache
	jwksURL  string
	clientID string
}

// NewGoogleProvider registers Google's key set with a refreshing cache.
// The cache lives as long as ctx.
func NewGoogleProvider(ctx context.Context, c GoogleConfig) (*GoogleProvider, error) {
	endpoint := c.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	jwksURL := c.JWKSURL
	if jwksURL == "" {
		jwksURL = GoogleJWKSURL
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("jwk cache register: %w", err)
	}

	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
		jwks:     cache,
		jwksURL:  jwksURL,
		clientID: c.ClientID,
	}, nil
}

func (p *GoogleProvider) Name() string {
	return domain.ProviderGoogle
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the authorization code for tokens and verifies the
// id_token signature, issuer, audience and expiry. An address Google
// marks as unverified is dropped from the profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	keySet, err := p.jwks.Get(ctx, p.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("fetch google keys: %w", err)
	}

	idToken, err := jwt.Parse([]byte(rawIDToken),
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithAudience(p.clientID),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if !slices.Contains(googleIssuers, idToken.Issuer()) {
		return nil, fmt.Errorf("verify id_token: unexpected issuer %q", idToken.Issuer())
	}

	claims := idToken.PrivateClaims()
	email, _ := claims["email"].(string)
	if !emailVerified(claims["email_verified"]) {
		email = ""
	}
	name, _ := claims["name"].(string)

	return &domain.OAuthProfile{
		Provider:   domain.ProviderGoogle,
		ProviderID: idToken.Subject(),
		Email:      email,
		Name:       name,
	}, nil
}

// Google has historically sent email_verified as both bool and string.
func emailVerified(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
