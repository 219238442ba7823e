package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/email"
	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/ErlanBelekov/xblt/internal/repository"
)

const (
	otpTTL       = 5 * time.Minute
	emailTimeout = 10 * time.Second
)

type OTPUsecase struct {
	users   repository.UserRepository
	otps    repository.OTPRepository
	email   email.Sender
	logger  *slog.Logger
	now     func() time.Time
	newCode func() (string, error)

	// tracks in-flight email dispatches so shutdown can drain them
	sending sync.WaitGroup
}

type OTPOption func(*OTPUsecase)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) OTPOption {
	return func(u *OTPUsecase) { u.now = now }
}

// WithCodeGenerator overrides the random 4-digit code source.
func WithCodeGenerator(gen func() (string, error)) OTPOption {
	return func(u *OTPUsecase) { u.newCode = gen }
}

func NewOTPUsecase(users repository.UserRepository, otps repository.OTPRepository, sender email.Sender, logger *slog.Logger, opts ...OTPOption) *OTPUsecase {
	u := &OTPUsecase{
		users:   users,
		otps:    otps,
		email:   sender,
		logger:  logger.With("component", "otp_usecase"),
		now:     time.Now,
		newCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RequestOTP issues a sign-up code for an address that has no account and
// no live code yet. The live-code check and the insert are separate
// operations: two concurrent requests can both pass the check unless the
// store runs in exclusive mode.
func (u *OTPUsecase) RequestOTP(ctx context.Context, emailAddr string) error {
	emailAddr = domain.NormalizeEmail(emailAddr)
	now := u.now()

	_, err := u.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("find user: %w", err)
	}

	existing, err := u.otps.FindLatest(ctx, emailAddr)
	switch {
	case err == nil:
		if existing.Live(now) {
			return domain.ErrOTPActive
		}
	case !errors.Is(err, domain.ErrOTPNotFound):
		return fmt.Errorf("find otp: %w", err)
	}

	code, err := u.newCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	otp := &domain.OTP{
		Email:     emailAddr,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(otpTTL),
	}
	if err := u.otps.Create(ctx, otp); err != nil {
		if errors.Is(err, domain.ErrOTPActive) {
			return domain.ErrOTPActive
		}
		return fmt.Errorf("store otp: %w", err)
	}

	u.dispatch(ctx, otp)
	return nil
}

// dispatch emails the code in the background. A failed send is logged
// and counted; the stored code stays valid.
func (u *OTPUsecase) dispatch(ctx context.Context, otp *domain.OTP) {
	msg := email.OTPMessage(otp.Email, otp.Code, int(otpTTL/time.Minute))
	sendCtx := context.WithoutCancel(ctx)

	u.sending.Add(1)
	go func() {
		defer u.sending.Done()

		ctx, cancel := context.WithTimeout(sendCtx, emailTimeout)
		defer cancel()

		if err := u.email.Send(ctx, msg); err != nil {
			metrics.EmailFailuresTotal.Inc()
			u.logger.ErrorContext(ctx, "send otp email", "email", otp.Email, "error", err)
		}
	}()
}

// Wait blocks until every background email dispatch has returned.
func (u *OTPUsecase) Wait() {
	u.sending.Wait()
}

// GenerateCode returns a uniformly random code in [1000, 9999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}
