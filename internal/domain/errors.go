package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	ErrOTPNotFound = errors.New("otp not found")
	ErrOTPActive   = errors.New("otp still active")

	ErrNoOAuthUser         = errors.New("oauth provider attached no user")
	ErrProfileEmailMissing = errors.New("no email found in provider profile")
)
