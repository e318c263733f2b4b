package fakebackend

import "errors"

var (
	ErrEmailExists       = errors.New("EMAIL_EXISTS")
	ErrEmailNotFound     = errors.New("EMAIL_NOT_FOUND")
	ErrInvalidPassword   = errors.New("INVALID_PASSWORD")
	ErrInvalidEmail      = errors.New("INVALID_EMAIL")
	ErrWeakPassword      = errors.New("WEAK_PASSWORD")
	ErrInvalidCredential = errors.New("INVALID_IDP_RESPONSE")
	ErrNoCurrentUser     = errors.New("USER_NOT_FOUND")
)
