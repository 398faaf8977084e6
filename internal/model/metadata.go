package model

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	DefaultInputName  = "input"
	DefaultOutputName = "output"
	DefaultImageSize  = 28
	DefaultClassCount = 10
)

// LoadMetadata reads the model description that ships next to the .onnx file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	metadata.Normalize()
	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

// DefaultMetadata describes the stock MNIST digit classifier.
func DefaultMetadata() Metadata {
	m := Metadata{}
	m.Normalize()
	return m
}

// Normalize fills in the fields older metadata files leave out.
func (m *Metadata) Normalize() {
	if m.InputName == "" {
		m.InputName = DefaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = DefaultOutputName
	}
	if m.ImageSize <= 0 {
		if len(m.InputShape) == 4 {
			m.ImageSize = int(m.InputShape[3])
		} else {
			m.ImageSize = DefaultImageSize
		}
	}
	if len(m.InputShape) == 0 {
		size := int64(m.ImageSize)
		m.InputShape = Shape{1, 1, size, size}
	}
	if len(m.Classes) == 0 {
		count := DefaultClassCount
		if len(m.OutputShape) > 0 {
			count = int(m.OutputShape.Size())
		}
		m.Classes = make([]string, count)
		for i := range m.Classes {
			m.Classes[i] = fmt.Sprintf("%d", i)
		}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = Shape{1, int64(len(m.Classes))}
	}
}

// Validate reports metadata that cannot describe a single-image digit model.
func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("metadata: input and output names are required")
	}
	if len(m.InputShape) != 4 {
		return fmt.Errorf("metadata: input shape %v is not [batch, channels, height, width]", m.InputShape)
	}
	for _, dim := range m.InputShape {
		if dim <= 0 {
			return fmt.Errorf("metadata: input shape %v has non-positive dimension", m.InputShape)
		}
	}
	if m.InputShape[0] != 1 || m.InputShape[1] != 1 {
		return fmt.Errorf("metadata: input shape %v must have batch=1 and channels=1", m.InputShape)
	}
	if int64(m.ImageSize) != m.InputShape[2] || int64(m.ImageSize) != m.InputShape[3] {
		return fmt.Errorf("metadata: image size %d disagrees with input shape %v", m.ImageSize, m.InputShape)
	}
	for _, dim := range m.OutputShape {
		if dim <= 0 {
			return fmt.Errorf("metadata: output shape %v has non-positive dimension", m.OutputShape)
		}
	}
	if m.OutputShape.Size() == 0 {
		return fmt.Errorf("metadata: output shape %v holds no classes", m.OutputShape)
	}
	if int64(len(m.Classes)) != m.OutputShape.Size() {
		return fmt.Errorf("metadata: %d classes for output shape %v", len(m.Classes), m.OutputShape)
	}
	return nil
}

// InputSize returns the declared input height and width.
func (m Metadata) InputSize() (height, width int) {
	return int(m.InputShape[2]), int(m.InputShape[3])
}
