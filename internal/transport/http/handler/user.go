package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/xblt/internal/authctx"
	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/gin-gonic/gin"
)

type userUsecaser interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type UserHandler struct {
	userUsecase userUsecaser
	logger      *slog.Logger
}

func NewUserHandler(userUsecase userUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{userUsecase: userUsecase, logger: logger.With("component", "user_handler")}
}

type meResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	GoogleLinked bool   `json:"google_linked"`
}

// GET /users/me (requires Auth)
func (h *UserHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	userID := authctx.UserID(ctx)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errNotLoggedIn})
		return
	}

	user, err := h.userUsecase.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.ErrorContext(ctx, "get current user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, meResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		GoogleLinked: user.GoogleID != "",
	})
}
