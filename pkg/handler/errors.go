// Copyright 2024-2026 Aiku AI

package handler

import (
	"errors"
	"fmt"
)

var (
	ErrAuth               = errors.New("authentication failed")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrStoreCorrupted     = errors.New("session store corrupted")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrAlreadyInitialized = errors.New("shared handler already initialized")
)

// AuthError describes a rejected login. Code is the homeserver's errcode
// (for example M_FORBIDDEN) when one was returned.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrAuth, msg, e.Code)
	}
	if msg == "" {
		return ErrAuth.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAuth, msg)
}

// Unwrap makes errors.Is(err, ErrAuth) hold for every AuthError.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}
