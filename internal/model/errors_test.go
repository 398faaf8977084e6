package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		err      error
		sentinel error
	}{
		{&InvalidInputError{Reason: "empty"}, ErrInvalidInput},
		{&ShapeMismatchError{Tensor: "input", Expected: Shape{1, 1, 28, 28}, Actual: Shape{1, 1, 14, 14}}, ErrShapeMismatch},
		{&InferenceError{Cause: cause}, ErrInference},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("classify: %w", NewStageError(StageInfer, tc.err))
		if !errors.Is(wrapped, tc.sentinel) {
			t.Fatalf("%T does not match %v through wrapping", tc.err, tc.sentinel)
		}
		for _, other := range []error{ErrInvalidInput, ErrShapeMismatch, ErrInference} {
			if other != tc.sentinel && errors.Is(tc.err, other) {
				t.Fatalf("%T unexpectedly matches %v", tc.err, other)
			}
		}
	}
}

func TestInferenceErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &InferenceError{Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "inference failed: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStageError(t *testing.T) {
	if NewStageError(StageDecide, nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	err := NewStageError(StageDecide, &InvalidInputError{Reason: "score vector is empty"})
	if err.Error() != "decide: invalid input: score vector is empty" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if StageOf(err) != StageDecide {
		t.Fatalf("unexpected stage %q", StageOf(err))
	}
	if StageOf(errors.New("plain")) != "" {
		t.Fatal("expected empty stage for plain error")
	}
}
