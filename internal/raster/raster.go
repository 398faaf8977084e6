// Package raster turns a drawing surface of any resolution into the fixed-size
// normalized buffer the digit model was trained on: white strokes on black.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/Brownie44l1/digit-api/internal/model"
)

const maxChannel = 255.0

// MaxSurfaceSide bounds the width and height of any surface accepted for
// rasterization. Flattening allocates a full RGBA copy of the surface.
const MaxSurfaceSide = 2048

type options struct {
	width         int
	height        int
	interpolation resize.InterpolationFunction
}

// Option adjusts how Downsample resamples the surface.
type Option func(*options)

// WithSize sets the target grid. Non-positive values keep the default.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 {
			o.width = width
		}
		if height > 0 {
			o.height = height
		}
	}
}

// WithInterpolation selects the resampling kernel, e.g. resize.NearestNeighbor
// for point sampling.
func WithInterpolation(fn resize.InterpolationFunction) Option {
	return func(o *options) {
		o.interpolation = fn
	}
}

// Downsample resamples src into a NormalizedBuffer. Transparent or undrawn
// pixels count as background. Each cell is the plain average of its red,
// green and blue samples divided by 255; alpha is ignored.
func Downsample(src image.Image, opts ...Option) (*model.NormalizedBuffer, error) {
	o := options{
		width:         model.DefaultImageSize,
		height:        model.DefaultImageSize,
		interpolation: resize.Bilinear,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if src == nil || src.Bounds().Empty() {
		return nil, &model.InvalidInputError{Reason: "drawing surface is empty"}
	}
	if err := CheckSize(src.Bounds().Dx(), src.Bounds().Dy()); err != nil {
		return nil, err
	}

	canvas := flatten(src)
	resized := resize.Resize(uint(o.width), uint(o.height), canvas, o.interpolation)

	bounds := resized.Bounds()
	buf := &model.NormalizedBuffer{
		Width:  o.width,
		Height: o.height,
		Data:   make([]float32, o.width*o.height),
	}
	for y := 0; y < o.height; y++ {
		for x := 0; x < o.width; x++ {
			c := color.RGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			avg := (float64(c.R) + float64(c.G) + float64(c.B)) / 3
			buf.Data[y*o.width+x] = clamp(float32(avg / maxChannel))
		}
	}
	return buf, nil
}

// CheckSize rejects surfaces larger than MaxSurfaceSide on either side.
func CheckSize(width, height int) error {
	if width > MaxSurfaceSide || height > MaxSurfaceSide {
		return &model.InvalidInputError{Reason: fmt.Sprintf("surface %dx%d exceeds %dx%d", width, height, MaxSurfaceSide, MaxSurfaceSide)}
	}
	return nil
}

// flatten composites src over an opaque black canvas at source resolution.
func flatten(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)
	return canvas
}

func clamp(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
