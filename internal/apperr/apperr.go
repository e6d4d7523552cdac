// Package apperr defines the error kinds surfaced by the order core.
//
// Every error returned by the service layer either wraps one of the kind
// sentinels below or is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	ErrValidation   = errors.New("validation error")
	ErrBusinessRule = errors.New("business rule violation")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with message msg that matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Kind reports which kind sentinel err wraps, or nil for internal errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrBusinessRule, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsInternal reports whether err carries no known kind.
func IsInternal(err error) bool {
	return err != nil && Kind(err) == nil
}
