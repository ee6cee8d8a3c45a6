package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so transports can decide between redelivery and the dead-letter path
// without inspecting infrastructure errors.
var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrTransient      = errors.New("transient dependency failure")
	ErrFatalInvariant = errors.New("fatal invariant violation")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidLength  = errors.New("invalid length")
)

// IsRetryable reports whether redelivering the event could succeed.
// Malformed payloads and broken directory contracts are never retried; everything else is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidPayload) && !errors.Is(err, ErrFatalInvariant)
}

// Transient marks err as a retryable dependency failure. Errors already classified
// are returned unchanged.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) || errors.Is(err, ErrFatalInvariant) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
