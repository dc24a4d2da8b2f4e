package store

import (
	"errors"
	"strings"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrInvalidMailType = errors.New("invalid mail type")
	ErrMissingFields   = errors.New("missing required fields")
	ErrClosed          = errors.New("store closed")
)

// ValidationError lists the required fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return ErrMissingFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingFields
}
