package user

import "errors"

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("role cannot be self-registered")
	ErrUserNotFound       = errors.New("user not found")
)
