package strokes

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/raster"
)

func TestRenderEmptyDrawingIsBlack(t *testing.T) {
	img, err := Render(Drawing{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != DefaultSize || bounds.Dy() != DefaultSize {
		t.Fatalf("expected %dx%d canvas, got %v", DefaultSize, DefaultSize, bounds)
	}
	for _, p := range [][2]int{{0, 0}, {140, 140}, {279, 279}} {
		c := color.RGBAModel.Convert(img.At(p[0], p[1])).(color.RGBA)
		if c.R != 0 || c.G != 0 || c.B != 0 {
			t.Fatalf("pixel %v = %+v, want black", p, c)
		}
	}
}

func TestRenderDrawsWhiteStroke(t *testing.T) {
	img, err := Render(Drawing{
		Strokes: [][]Point{{{X: 140, Y: 40}, {X: 140, Y: 240}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	on := color.RGBAModel.Convert(img.At(140, 140)).(color.RGBA)
	if on.R < 250 || on.G < 250 || on.B < 250 {
		t.Fatalf("expected white on the stroke, got %+v", on)
	}
	off := color.RGBAModel.Convert(img.At(40, 140)).(color.RGBA)
	if off.R != 0 || off.G != 0 || off.B != 0 {
		t.Fatalf("expected black away from the stroke, got %+v", off)
	}
}

func TestRenderSinglePointDrawsDot(t *testing.T) {
	img, err := Render(Drawing{Strokes: [][]Point{{{X: 100, Y: 100}}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := color.RGBAModel.Convert(img.At(100, 100)).(color.RGBA)
	if c.R < 250 {
		t.Fatalf("expected a dot at the point, got %+v", c)
	}
}

func TestRenderRejectsBadCanvas(t *testing.T) {
	cases := map[string]Drawing{
		"negative width": {Width: -1, Height: 10},
		"too large":      {Width: raster.MaxSurfaceSide + 1, Height: 10},
		"negative pen":   {LineWidth: -3},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Render(d); !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestRenderRejectsTooManyPoints(t *testing.T) {
	stroke := make([]Point, MaxPoints/2+1)
	d := Drawing{Strokes: [][]Point{stroke, stroke}}

	_, err := Render(d)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "points") {
		t.Fatalf("expected point limit in message, got %q", err.Error())
	}
}

func TestRenderCanvasErrorStatesAcceptedRange(t *testing.T) {
	_, err := Render(Drawing{Width: -1})
	if err == nil || !strings.Contains(err.Error(), "or 0 for the default") {
		t.Fatalf("expected message to mention the zero default, got %v", err)
	}
}
