// Package inference wraps a normalized buffer into the model's input tensor,
// runs it through an Engine and extracts the raw class scores.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/Brownie44l1/digit-api/internal/model"
)

// Engine is any inference backend that maps named input tensors to named
// output tensors. Run may block; it must not retain the inputs after it
// returns.
type Engine interface {
	Run(ctx context.Context, inputs map[string]*model.Tensor) (map[string]*model.Tensor, error)
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, inputs map[string]*model.Tensor) (map[string]*model.Tensor, error)

func (f EngineFunc) Run(ctx context.Context, inputs map[string]*model.Tensor) (map[string]*model.Tensor, error) {
	return f(ctx, inputs)
}

var errMissingOutput = errors.New("engine returned no tensor for declared output")

type Adapter struct {
	engine   Engine
	metadata model.Metadata
}

func NewAdapter(engine Engine, metadata model.Metadata) (*Adapter, error) {
	if engine == nil {
		return nil, fmt.Errorf("inference adapter: engine is required")
	}
	if err := metadata.Validate(); err != nil {
		return nil, fmt.Errorf("inference adapter: %w", err)
	}
	return &Adapter{engine: engine, metadata: metadata}, nil
}

func (a *Adapter) Metadata() model.Metadata {
	return a.metadata
}

// InputTensor reinterprets buf as a [1, 1, height, width] tensor and checks it
// against the declared input shape.
func (a *Adapter) InputTensor(buf *model.NormalizedBuffer) (*model.Tensor, error) {
	if buf == nil {
		return nil, &model.InvalidInputError{Reason: "normalized buffer is nil"}
	}

	shape := model.Shape{1, 1, int64(buf.Height), int64(buf.Width)}
	if !shape.Equal(a.metadata.InputShape) {
		return nil, &model.ShapeMismatchError{
			Tensor:   a.metadata.InputName,
			Expected: a.metadata.InputShape,
			Actual:   shape,
		}
	}
	if int64(len(buf.Data)) != shape.Size() {
		return nil, &model.ShapeMismatchError{
			Tensor:   a.metadata.InputName,
			Expected: a.metadata.InputShape,
			Actual:   model.Shape{int64(len(buf.Data))},
		}
	}

	data := make([]float32, len(buf.Data))
	copy(data, buf.Data)
	return &model.Tensor{DType: model.DTypeFloat32, Data: data, Shape: shape}, nil
}

// Scores runs buf through the engine once and returns the declared output
// flattened in index order.
func (a *Adapter) Scores(ctx context.Context, buf *model.NormalizedBuffer) (model.RawScores, error) {
	input, err := a.InputTensor(buf)
	if err != nil {
		return nil, err
	}

	outputs, err := a.engine.Run(ctx, map[string]*model.Tensor{a.metadata.InputName: input})
	if err != nil {
		return nil, &model.InferenceError{Cause: err}
	}

	output, ok := outputs[a.metadata.OutputName]
	if !ok || output == nil {
		return nil, &model.InferenceError{Cause: fmt.Errorf("%w %q", errMissingOutput, a.metadata.OutputName)}
	}
	if int64(len(output.Data)) != a.metadata.OutputShape.Size() {
		actual := output.Shape
		if int64(len(output.Data)) != actual.Size() {
			actual = model.Shape{int64(len(output.Data))}
		}
		return nil, &model.ShapeMismatchError{
			Tensor:   a.metadata.OutputName,
			Expected: a.metadata.OutputShape,
			Actual:   actual,
		}
	}

	scores := make(model.RawScores, len(output.Data))
	for i, v := range output.Data {
		scores[i] = float64(v)
	}
	return scores, nil
}
