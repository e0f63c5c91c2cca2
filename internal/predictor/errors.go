package predictor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes predictor errors
type ErrorType string

const (
	// ErrTypeNotFound indicates the model file does not exist
	ErrTypeNotFound ErrorType = "not_found"

	// ErrTypeLoad indicates the model file could not be decoded
	ErrTypeLoad ErrorType = "load"

	// ErrTypeNotLoaded indicates an operation that needs a model ran before LoadModel
	ErrTypeNotLoaded ErrorType = "not_loaded"

	// ErrTypeState indicates a stage ran without the output of its predecessor
	ErrTypeState ErrorType = "state"

	// ErrTypeShape indicates a vector length that does not match the model
	ErrTypeShape ErrorType = "shape"

	// ErrTypeEmptyCatalog indicates an empty product catalog
	ErrTypeEmptyCatalog ErrorType = "empty_catalog"

	// ErrTypeInvalidCount indicates a requested count below one
	ErrTypeInvalidCount ErrorType = "invalid_count"

	// ErrTypeInput indicates input of the wrong kind, such as a vector without a user id
	ErrTypeInput ErrorType = "type"
)

// Error is returned by every predictor operation
type Error struct {
	Type    ErrorType `json:"type"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Sentinels for errors.Is; matching is by Type only.
var (
	ErrNotFound     = &Error{Type: ErrTypeNotFound}
	ErrLoad         = &Error{Type: ErrTypeLoad}
	ErrNotLoaded    = &Error{Type: ErrTypeNotLoaded}
	ErrState        = &Error{Type: ErrTypeState}
	ErrShape        = &Error{Type: ErrTypeShape}
	ErrEmptyCatalog = &Error{Type: ErrTypeEmptyCatalog}
	ErrInvalidCount = &Error{Type: ErrTypeInvalidCount}
	ErrInputType    = &Error{Type: ErrTypeInput}
)

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, fmt.Sprintf("type=%s", e.Type))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Type
func (e *Error) Is(target error) bool {
	if pe, ok := target.(*Error); ok {
		return e.Type == pe.Type
	}
	return false
}

func newError(errType ErrorType, op, message string, cause error) *Error {
	return &Error{Type: errType, Op: op, Message: message, Cause: cause}
}

// TypeOf returns the ErrorType of a predictor error, or "" for other errors
func TypeOf(err error) ErrorType {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}
