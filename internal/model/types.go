package model

import "strconv"

// DTypeFloat32 is the only element type the digit model consumes and produces.
const DTypeFloat32 = "float32"

type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  Shape    `json:"input_shape"`
	OutputShape Shape    `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Shape lists tensor dimensions, outermost first.
type Shape []int64

// Size returns the number of elements a tensor of this shape holds.
func (s Shape) Size() int64 {
	if len(s) == 0 {
		return 0
	}
	size := int64(1)
	for _, dim := range s {
		size *= dim
	}
	return size
}

func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Tensor is a typed, shaped, flat numeric buffer exchanged with an engine.
type Tensor struct {
	DType string
	Data  []float32
	Shape Shape
}

// NormalizedBuffer is a single-channel, row-major grid of intensities in [0, 1].
// Background is 0.0.
type NormalizedBuffer struct {
	Width  int
	Height int
	Data   []float32
}

// RawScores holds one logit per class, in class index order.
type RawScores []float64

type ClassificationResult struct {
	PredictedClass int       `json:"digit"`
	Confidence     float64   `json:"confidence"`
	Distribution   []float64 `json:"probabilities"`
}

// Label returns the class name for the predicted index, or the index itself
// when the metadata carries no name for it.
func (r *ClassificationResult) Label(classes []string) string {
	if r.PredictedClass >= 0 && r.PredictedClass < len(classes) {
		return classes[r.PredictedClass]
	}
	return strconv.Itoa(r.PredictedClass)
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

type PredictionResponse struct {
	RequestID     string    `json:"request_id"`
	Digit         int       `json:"digit"`
	Label         string    `json:"label"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}
