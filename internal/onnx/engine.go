// Package onnx runs the digit model with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/Brownie44l1/digit-api/internal/model"
)

// Engine is an inference.Engine backed by a dynamic ONNX Runtime session.
// Tensors are allocated per call, so concurrent Run calls share nothing but
// the session.
type Engine struct {
	session  *ort.DynamicAdvancedSession
	metadata model.Metadata
	logger   *zap.Logger
}

// NewEngine initializes the ONNX Runtime environment and loads modelPath.
// libraryPath overrides the onnxruntime shared library location when set.
func NewEngine(modelPath, libraryPath string, metadata model.Metadata, logger *zap.Logger) (*Engine, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Info("onnx session ready",
		zap.String("model", modelPath),
		zap.String("input", metadata.InputName),
		zap.Int64s("input_shape", metadata.InputShape),
		zap.String("output", metadata.OutputName),
		zap.Int64s("output_shape", metadata.OutputShape),
	)

	return &Engine{session: session, metadata: metadata, logger: logger}, nil
}

func (e *Engine) Run(ctx context.Context, inputs map[string]*model.Tensor) (map[string]*model.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input, err := e.input(inputs)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.metadata.OutputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	// The tensor memory is released on return, so hand back a copy.
	data := make([]float32, len(outputTensor.GetData()))
	copy(data, outputTensor.GetData())
	shape := make(model.Shape, len(e.metadata.OutputShape))
	copy(shape, e.metadata.OutputShape)

	return map[string]*model.Tensor{
		e.metadata.OutputName: {DType: model.DTypeFloat32, Data: data, Shape: shape},
	}, nil
}

func (e *Engine) input(inputs map[string]*model.Tensor) (*model.Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected exactly one input tensor, got %d", len(inputs))
	}
	input, ok := inputs[e.metadata.InputName]
	if !ok || input == nil {
		return nil, fmt.Errorf("no tensor supplied for input %q", e.metadata.InputName)
	}
	if input.DType != model.DTypeFloat32 {
		return nil, fmt.Errorf("input %q has dtype %q, want %q", e.metadata.InputName, input.DType, model.DTypeFloat32)
	}
	if int64(len(input.Data)) != input.Shape.Size() {
		return nil, fmt.Errorf("input %q holds %d values for shape %v", e.metadata.InputName, len(input.Data), input.Shape)
	}
	return input, nil
}

func (e *Engine) Close() {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			e.logger.Warn("failed to destroy ONNX session", zap.Error(err))
		}
		e.session = nil
	}
	if ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			e.logger.Warn("failed to destroy ONNX environment", zap.Error(err))
		}
	}
}
