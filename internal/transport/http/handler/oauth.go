package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// OAuthProvider performs the provider-specific half of the login: where
// to send the browser and how to turn the returned code into a profile.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

type oauthUsecaser interface {
	CompleteLogin(ctx context.Context, profile *domain.OAuthProfile) (string, error)
}

type OAuthHandler struct {
	provider      OAuthProvider
	oauthUsecase  oauthUsecaser
	frontendURL   string
	secureCookies bool
	logger        *slog.Logger
}

func NewOAuthHandler(provider OAuthProvider, oauthUsecase oauthUsecaser, frontendURL string, secureCookies bool, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:      provider,
		oauthUsecase:  oauthUsecase,
		frontendURL:   frontendURL,
		secureCookies: secureCookies,
		logger:        logger.With("component", "oauth_handler", "provider", provider.Name()),
	}
}

// GET /users/google
func (h *OAuthHandler) Begin(c *gin.Context) {
	state, err := newState()
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "generate oauth state", "error", err)
		h.redirectSignin(c, codeAuthFailed)
		return
	}

	h.setStateCookie(c, state, int(stateTTL.Seconds()))
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GET /users/google/callback
// Always answers with a redirect: to the front-end with a token on
// success, to the sign-in page with NoUser or AuthFailed otherwise.
func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorContext(ctx, "oauth callback panic", "panic", fmt.Sprint(r))
			h.redirectSignin(c, codeAuthFailed)
		}
	}()

	state, _ := c.Cookie(stateCookie)
	h.setStateCookie(c, "", -1)

	code := c.Query("code")
	if providerErr := c.Query("error"); providerErr != "" || code == "" || !sameState(state, c.Query("state")) {
		h.logger.WarnContext(ctx, "oauth callback without user", "provider_error", providerErr, "has_code", code != "")
		h.redirectSignin(c, codeNoUser)
		return
	}

	profile, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "oauth exchange", "error", err)
		h.redirectSignin(c, codeAuthFailed)
		return
	}

	signed, err := h.oauthUsecase.CompleteLogin(ctx, profile)
	if err != nil {
		if errors.Is(err, domain.ErrNoOAuthUser) {
			h.redirectSignin(c, codeNoUser)
			return
		}
		h.logger.ErrorContext(ctx, "complete oauth login", "error", err)
		h.redirectSignin(c, codeAuthFailed)
		return
	}

	metrics.OAuthLoginsTotal.WithLabelValues(h.provider.Name(), metrics.OutcomeLoggedIn).Inc()
	c.Redirect(http.StatusFound, h.frontendURL+"/api/auth?"+url.Values{"token": {signed}}.Encode())
}

func (h *OAuthHandler) redirectSignin(c *gin.Context, code string) {
	outcome := metrics.OutcomeAuthFailed
	if code == codeNoUser {
		outcome = metrics.OutcomeNoUser
	}
	metrics.OAuthLoginsTotal.WithLabelValues(h.provider.Name(), outcome).Inc()
	c.Redirect(http.StatusFound, h.frontendURL+"/signin?"+url.Values{"error": {code}}.Encode())
}

func (h *OAuthHandler) setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, value, maxAge, "/users/"+h.provider.Name(), "", h.secureCookies, true)
}

func newState() (string, error) {
	raw := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func sameState(cookie, query string) bool {
	if cookie == "" || query == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(query)) == 1
}
