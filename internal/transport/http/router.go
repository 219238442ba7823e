package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/xblt/internal/transport/http/handler"
	"github.com/ErlanBelekov/xblt/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	OTP   *handler.OTPHandler
	OAuth *handler.OAuthHandler
	User  *handler.UserHandler
}

func NewRouter(logger *slog.Logger, h Handlers, tokens middleware.TokenParser) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		// request_id comes from the context handler
		WithRequestID: false,
		Filters:       []sloggin.Filter{sloggin.IgnoreStatus(http.StatusNotFound)},
	}))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(tokens)

	users := r.Group("/users")
	users.POST("/otp-generate", h.OTP.Generate)
	users.GET("/google", h.OAuth.Begin)
	users.GET("/google/callback", h.OAuth.Callback)

	// Protected routes
	users.GET("/me", authMW, h.User.Me)

	return r
}
