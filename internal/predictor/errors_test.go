package predictor

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorIsMatchesType(t *testing.T) {
	err := newError(ErrTypeShape, "rank", "vector has 3 items, model expects 4", nil)

	if !errors.Is(err, ErrShape) {
		t.Error("Expected error to match ErrShape")
	}
	if errors.Is(err, ErrState) {
		t.Error("Shape error must not match ErrState")
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	if !errors.Is(wrapped, ErrShape) {
		t.Error("Wrapped error should still match ErrShape")
	}
	if TypeOf(wrapped) != ErrTypeShape {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(wrapped), ErrTypeShape)
	}
	if TypeOf(errors.New("plain")) != "" {
		t.Error("TypeOf() of a plain error should be empty")
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("open model file: %w", os.ErrNotExist)
	err := newError(ErrTypeNotFound, "load_model", "model file m.gob.gz does not exist", cause)

	want := "load_model: type=not_found: model file m.gob.gz does not exist: open model file: file does not exist"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
}
