package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/gin-gonic/gin"
)

// otpUsecaser is the subset of OTPUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type otpUsecaser interface {
	RequestOTP(ctx context.Context, email string) error
}

type OTPHandler struct {
	otpUsecase otpUsecaser
	logger     *slog.Logger
}

func NewOTPHandler(otpUsecase otpUsecaser, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{
		otpUsecase: otpUsecase,
		logger:     logger.With("component", "otp_handler"),
	}
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /users/otp-generate
// The code itself is only ever delivered by email.
func (h *OTPHandler) Generate(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := validationErrors(err); fields != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": errInvalidBody})
		return
	}

	err := h.otpUsecase.RequestOTP(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeIssued).Inc()
		c.JSON(http.StatusOK, gin.H{"message": msgOTPSent})
	case errors.Is(err, domain.ErrUserExists):
		metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeUserExists).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": errUserExists})
	case errors.Is(err, domain.ErrOTPActive):
		metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeOTPActive).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": errOTPActive})
	default:
		metrics.OTPRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.ErrorContext(c.Request.Context(), "request otp", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
	}
}
