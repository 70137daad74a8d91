package auth

import "errors"

var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenMalformed     = errors.New("token is malformed")

	// Account errors
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrInvalidRole      = errors.New("invalid role")
)
