package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrAuthFailed     = errors.New("invalid username or password")
	ErrRateLimited    = errors.New("too many login attempts")
	ErrSessionMissing = errors.New("session missing")
	ErrSessionExpired = errors.New("session expired")
	ErrEmptyQuery     = errors.New("empty query")
)

// ValidationError 指明哪个字段不合法，errors.Is(err, ErrValidation) 为真
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
