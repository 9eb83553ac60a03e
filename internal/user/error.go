package user

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailExists           = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrOAuthAccount          = errors.New("account uses google sign-in")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrAlreadyLoggedIn       = errors.New("user already logged in")
	ErrVerificationNotFound  = errors.New("invalid or expired token")
	ErrRefreshTokenMissing   = errors.New("refresh token missing")
	ErrRefreshTokenInvalid   = errors.New("refresh token invalid")
	ErrGoogleEmailUnverified = errors.New("google account email is not verified")
)
