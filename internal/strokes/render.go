// Package strokes renders pointer strokes the way the drawing canvas does:
// white, round-capped lines on a black square.
package strokes

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/raster"
)

const (
	DefaultSize      = 280
	DefaultLineWidth = 20
	// MaxPoints bounds the total number of points across all strokes.
	MaxPoints = 20000
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drawing is a canvas description: its size, the pen width and the polylines
// drawn on it in canvas pixel coordinates.
type Drawing struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	LineWidth float64   `json:"line_width"`
	Strokes   [][]Point `json:"strokes"`
}

func (d *Drawing) applyDefaults() {
	if d.Width == 0 {
		d.Width = DefaultSize
	}
	if d.Height == 0 {
		d.Height = DefaultSize
	}
	if d.LineWidth == 0 {
		d.LineWidth = DefaultLineWidth
	}
}

func (d Drawing) validate() error {
	if d.Width < 0 || d.Height < 0 || d.Width > raster.MaxSurfaceSide || d.Height > raster.MaxSurfaceSide {
		return &model.InvalidInputError{Reason: fmt.Sprintf("canvas %dx%d must be 1..%d pixels per side, or 0 for the default %d",
			d.Width, d.Height, raster.MaxSurfaceSide, DefaultSize)}
	}
	points := 0
	for _, stroke := range d.Strokes {
		points += len(stroke)
	}
	if points > MaxPoints {
		return &model.InvalidInputError{Reason: fmt.Sprintf("drawing has %d points, limit is %d", points, MaxPoints)}
	}
	if d.LineWidth < 0 {
		return &model.InvalidInputError{Reason: fmt.Sprintf("line width %v is negative", d.LineWidth)}
	}
	return nil
}

// Render rasterizes d into an RGBA surface. A drawing without strokes yields
// a plain black canvas.
func Render(d Drawing) (image.Image, error) {
	d.applyDefaults()
	if err := d.validate(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(d.Width, d.Height)
	defer dc.Close()

	dc.ClearWithColor(gg.Black)
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(d.LineWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for i, stroke := range d.Strokes {
		switch len(stroke) {
		case 0:
			continue
		case 1:
			dc.DrawCircle(stroke[0].X, stroke[0].Y, d.LineWidth/2)
			if err := dc.Fill(); err != nil {
				return nil, fmt.Errorf("render stroke %d: %w", i, err)
			}
		default:
			dc.MoveTo(stroke[0].X, stroke[0].Y)
			for _, p := range stroke[1:] {
				dc.LineTo(p.X, p.Y)
			}
			if err := dc.Stroke(); err != nil {
				return nil, fmt.Errorf("render stroke %d: %w", i, err)
			}
		}
	}

	return dc.Image(), nil
}
