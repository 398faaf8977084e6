// Package pipeline composes rasterization, inference and decision into a
// single classification call. A Classifier holds only immutable
// configuration, so one instance may serve overlapping requests.
package pipeline

import (
	"context"
	"image"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/digit-api/internal/decision"
	"github.com/Brownie44l1/digit-api/internal/inference"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/raster"
)

type Classifier struct {
	adapter       *inference.Adapter
	tracer        Tracer
	interpolation resize.InterpolationFunction
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTracer installs an observability hook called on every request.
func WithTracer(tracer Tracer) Option {
	return func(c *Classifier) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithInterpolation selects the kernel used to downsample surfaces.
func WithInterpolation(fn resize.InterpolationFunction) Option {
	return func(c *Classifier) {
		c.interpolation = fn
	}
}

func NewClassifier(adapter *inference.Adapter, opts ...Option) *Classifier {
	c := &Classifier{
		adapter:       adapter,
		tracer:        NopTracer{},
		interpolation: resize.Bilinear,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Metadata() model.Metadata {
	return c.adapter.Metadata()
}

// Classify rasterizes surface to the model's input grid and classifies it.
func (c *Classifier) Classify(ctx context.Context, surface image.Image) (*model.ClassificationResult, error) {
	height, width := c.adapter.Metadata().InputSize()
	buf, err := raster.Downsample(surface,
		raster.WithSize(width, height),
		raster.WithInterpolation(c.interpolation),
	)
	if err != nil {
		return nil, model.NewStageError(model.StageRasterize, err)
	}
	return c.ClassifyBuffer(ctx, buf)
}

// ClassifyBuffer classifies an already normalized buffer. The engine call is
// the only step that may block.
func (c *Classifier) ClassifyBuffer(ctx context.Context, buf *model.NormalizedBuffer) (*model.ClassificationResult, error) {
	c.tracer.Input(ctx, raster.Stats(buf))

	scores, err := c.adapter.Scores(ctx, buf)
	if err != nil {
		return nil, model.NewStageError(model.StageInfer, err)
	}

	result, err := decision.Decide(scores)
	if err != nil {
		return nil, model.NewStageError(model.StageDecide, err)
	}

	c.tracer.Output(ctx, scores, result)
	return result, nil
}
