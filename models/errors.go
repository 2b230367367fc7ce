package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("store unavailable")
	ErrValidation       = errors.New("validation failed")
	ErrReadOnly         = errors.New("sections are read-only")
	ErrInvalidPath      = errors.New("invalid field path")
)

// StoreError wraps a backend failure with the operation that produced it and
// the taxonomy kind it was classified as.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel kind so callers can test with errors.Is.
func (e *StoreError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewStoreError builds a StoreError; kind should be one of the sentinels above.
func NewStoreError(op string, kind, err error) error {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// ValidationError reports a document whose shape could not be canonicalized.
// Fields names the top-level data keys the failure was found under, when known.
type ValidationError struct {
	Type   SectionType
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("section %s: %s", e.Type, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
