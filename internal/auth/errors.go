package auth

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource conflict")
)

// ErrInvalidToken indicates a bearer token failed validation.
var ErrInvalidToken = errors.New("invalid token")
