// Package preprocess validates raw interaction vectors and cleans the
// interaction matrix before training.
package preprocess

import (
	"errors"
	"fmt"

	"github.com/yildizm/recsvd/internal/dataset"
)

var (
	// ErrLength is returned when a vector does not have the expected number of items
	ErrLength = errors.New("invalid vector length")
	// ErrNotBinary is returned when a vector holds a value other than 0 or 1
	ErrNotBinary = errors.New("vector must be binary")
)

// Validator checks interaction vectors against the trained item dimensionality
type Validator struct {
	expected int
}

// NewValidator creates a validator for vectors of the given length
func NewValidator(expectedLength int) *Validator {
	return &Validator{expected: expectedLength}
}

// ExpectedLength returns the configured vector length
func (v *Validator) ExpectedLength() int {
	return v.expected
}

// Validate returns an error unless values has the expected length and only 0/1 entries
func (v *Validator) Validate(values []float64) error {
	if len(values) != v.expected {
		return fmt.Errorf("%w: expected %d items, got %d", ErrLength, v.expected, len(values))
	}
	for i, value := range values {
		if value != 0 && value != 1 {
			return fmt.Errorf("%w: value %g at position %d", ErrNotBinary, value, i)
		}
	}
	return nil
}

// ValidateVector validates an interaction vector's values
func (v *Validator) ValidateVector(vec dataset.InteractionVector) error {
	if err := v.Validate(vec.Values); err != nil {
		return fmt.Errorf("user %s: %w", vec.UserID, err)
	}
	return nil
}

// DropEmptyUsers returns a copy of m without users whose row is all zero.
// The second return value is the number of users removed.
func DropEmptyUsers(m *dataset.Matrix) (*dataset.Matrix, int) {
	out := &dataset.Matrix{Items: m.Items}
	for i, row := range m.Rows {
		if !hasInteraction(row) {
			continue
		}
		out.Users = append(out.Users, m.Users[i])
		out.Rows = append(out.Rows, row)
	}
	return out, len(m.Rows) - len(out.Rows)
}

func hasInteraction(row []float64) bool {
	for _, value := range row {
		if value != 0 {
			return true
		}
	}
	return false
}
