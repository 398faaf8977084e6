package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInference     = errors.New("inference failed")
)

// InvalidInputError reports degenerate caller input: an empty surface or an
// empty score vector.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ShapeMismatchError reports a tensor whose shape disagrees with what the
// engine declares. It is an integration bug and never retried.
type ShapeMismatchError struct {
	Tensor   string
	Expected Shape
	Actual   Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %q: expected %v, got %v", e.Tensor, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// InferenceError carries a failure raised by the inference engine.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string {
	if e.Cause == nil {
		return ErrInference.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInference, e.Cause)
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}

// Pipeline stage names carried by StageError.
const (
	StageRasterize = "rasterize"
	StageInfer     = "infer"
	StageDecide    = "decide"
	StageRender    = "render"
)

// StageError annotates an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStageError wraps err with the stage it occurred in. A nil err stays nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, or "" when none is.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
