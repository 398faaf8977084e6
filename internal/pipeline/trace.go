package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/raster"
)

// Tracer observes a classification request. Implementations must not modify
// their arguments.
type Tracer interface {
	Input(ctx context.Context, stats raster.BufferStats)
	Output(ctx context.Context, scores model.RawScores, result *model.ClassificationResult)
}

type NopTracer struct{}

func (NopTracer) Input(context.Context, raster.BufferStats) {}

func (NopTracer) Output(context.Context, model.RawScores, *model.ClassificationResult) {}

type loggerKey struct{}

// ContextWithLogger attaches a request-scoped logger that ZapTracer prefers
// over its own.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ZapTracer writes input statistics and raw logits at debug level.
type ZapTracer struct {
	logger *zap.Logger
}

func NewZapTracer(logger *zap.Logger) *ZapTracer {
	return &ZapTracer{logger: logger.Named("trace")}
}

func (t *ZapTracer) loggerFor(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger.Named("trace")
	}
	return t.logger
}

func (t *ZapTracer) Input(ctx context.Context, stats raster.BufferStats) {
	t.loggerFor(ctx).Debug("input statistics",
		zap.Float64("mean", stats.Mean),
		zap.Float32("min", stats.Min),
		zap.Float32("max", stats.Max),
		zap.Int("ink_cells", stats.InkCells),
	)
}

func (t *ZapTracer) Output(ctx context.Context, scores model.RawScores, result *model.ClassificationResult) {
	var total float64
	for _, p := range result.Distribution {
		total += p
	}
	t.loggerFor(ctx).Debug("model output",
		zap.Float64s("logits", scores),
		zap.Float64s("probabilities", result.Distribution),
		zap.Float64("probability_sum", total),
		zap.Int("digit", result.PredictedClass),
		zap.Float64("confidence", result.Confidence),
	)
}
