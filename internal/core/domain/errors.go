package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
	ErrExternalService  = errors.New("external service failure")
	ErrExtraction       = errors.New("extraction failure")
	ErrConflict         = errors.New("conflict")
	ErrPersistence      = errors.New("persistence failure")
)

var kinds = []error{
	ErrDocumentNotFound,
	ErrInvalidInput,
	ErrUnauthorized,
	ErrTemporary,
	ErrExternalService,
	ErrExtraction,
	ErrConflict,
	ErrPersistence,
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Cause returns the innermost error that is not one of the semantic kinds.
// It returns nil when err has no nested cause.
func Cause(err error) error {
	var cause error
	for current := err; current != nil; {
		next := unwrapCause(current)
		if next == nil {
			break
		}
		if !isSemanticKind(next) {
			cause = next
		}
		current = next
	}
	return cause
}

func unwrapCause(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var last error
		for _, inner := range e.Unwrap() {
			if inner != nil && !isSemanticKind(inner) {
				last = inner
			}
		}
		return last
	case interface{ Unwrap() error }:
		return e.Unwrap()
	default:
		return nil
	}
}

func isSemanticKind(err error) bool {
	for _, kind := range kinds {
		if err == kind {
			return true
		}
	}
	return false
}
