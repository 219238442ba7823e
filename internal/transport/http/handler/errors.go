package handler

const (
	errInternalServer = "Something went wrong"
	errInvalidBody    = "Invalid request body"
	errUserExists     = "User already created with this email"
	errOTPActive      = "OTP already sent. Please check your email."
	errUserNotFound   = "User not found"
	errNotLoggedIn    = "Unauthorized Access. Please Login First!"

	msgOTPSent = "OTP sent successfully"
)

// Error codes appended to the sign-in redirect after a failed OAuth login.
const (
	codeNoUser     = "NoUser"
	codeAuthFailed = "AuthFailed"
)
