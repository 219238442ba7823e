package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

type otpValue struct {
	Email     string    `json:"email"`
	Code      string    `json:"otp"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPRepository keeps one key per email with EXPIREAT set to the code's
// expiry. A newer code overwrites the older one unless exclusive is set,
// in which case the write is SET NX and a live key wins.
type OTPRepository struct {
	rdb       *redis.Client
	exclusive bool
}

func NewOTPRepository(rdb *redis.Client, exclusive bool) *OTPRepository {
	return &OTPRepository{rdb: rdb, exclusive: exclusive}
}

func (r *OTPRepository) FindLatest(ctx context.Context, email string) (*domain.OTP, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("get otp: %w", err)
	}

	var v otpValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}

	return &domain.OTP{
		Email:     v.Email,
		Code:      v.Code,
		CreatedAt: v.CreatedAt,
		ExpiresAt: v.ExpiresAt,
	}, nil
}

func (r *OTPRepository) Create(ctx context.Context, otp *domain.OTP) error {
	raw, err := json.Marshal(otpValue{
		Email:     otp.Email,
		Code:      otp.Code,
		CreatedAt: otp.CreatedAt,
		ExpiresAt: otp.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}

	args := redis.SetArgs{ExpireAt: otp.ExpiresAt}
	if r.exclusive {
		args.Mode = "NX"
	}

	err = r.rdb.SetArgs(ctx, keyPrefix+otp.Email, raw, args).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrOTPActive
		}
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
