package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/xblt/internal/authctx"
	"github.com/ErlanBelekov/xblt/internal/token"
	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie is set by the front-end after the OAuth redirect.
	SessionCookie = "token_id_user"

	errLoginRequired = "Unauthorized Access. Please Login First!"
)

// TokenParser verifies a raw session token.
type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// Auth reads a session token from the token_id_user cookie or a Bearer
// Authorization header, verifies it and stores the claims in the request
// context. Verification errors are returned to the client as-is.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := extractToken(c)
		if rawToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errLoginRequired})
			return
		}

		claims, err := tokens.Parse(rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Request = c.Request.WithContext(authctx.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	// The auth scheme is case-insensitive.
	scheme, rawToken, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rawToken)
}
