package domain

import "time"

type OTP struct {
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the code is still usable at now.
func (o *OTP) Live(now time.Time) bool {
	return o.ExpiresAt.After(now)
}
