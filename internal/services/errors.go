package services

import "errors"

// Error kinds returned by the services. Callers add detail by wrapping:
//
//	fmt.Errorf("%w: name is required", ErrInvalidInput)
//
// Handlers translate kinds into HTTP responses with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrReuseDetected      = errors.New("refresh token reuse detected")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
)
