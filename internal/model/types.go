package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
)

// Classifier is the loaded model as seen by request handling.
type Classifier interface {
	Predict(img image.Image) (*Prediction, error)
	Classes() []string
	Close()
}

type Metadata struct {
	InputShape   []int64    `json:"input_shape"`
	OutputShape  []int64    `json:"output_shape"`
	Classes      []string   `json:"classes"`
	ImageSize    int        `json:"image_size"`
	InputName    string     `json:"input_name"`
	OutputName   string     `json:"output_name"`
	Mean         [3]float32 `json:"mean"`
	Std          [3]float32 `json:"std"`
	ApplySoftmax bool       `json:"apply_softmax"`
}

type Prediction struct {
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	Distribution []float64 `json:"distribution"`
}

// ImageNet statistics, used by the shoe model's training pipeline.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// DefaultMetadata describes the exported shoe classifier.
func DefaultMetadata() Metadata {
	classes := append([]string(nil), ShoeClasses...)
	return Metadata{
		InputShape:   []int64{1, 3, 224, 224},
		OutputShape:  []int64{1, int64(len(classes))},
		Classes:      classes,
		ImageSize:    224,
		InputName:    "input",
		OutputName:   "output",
		Mean:         ImageNetMean,
		Std:          ImageNetStd,
		ApplySoftmax: true,
	}
}

// LoadMetadata reads a metadata sidecar. Fields it leaves out keep their
// DefaultMetadata values.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	if path == "" {
		return meta, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (m Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return errors.New("metadata lists no classes")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid image size %d", m.ImageSize)
	}
	if len(m.InputShape) != 4 || m.InputShape[1] != 3 ||
		m.InputShape[2] != int64(m.ImageSize) || m.InputShape[3] != int64(m.ImageSize) {
		return fmt.Errorf("input shape %v does not match a 3x%dx%d image", m.InputShape, m.ImageSize, m.ImageSize)
	}
	if len(m.OutputShape) != 2 || m.OutputShape[1] != int64(len(m.Classes)) {
		return fmt.Errorf("output shape %v does not match %d classes", m.OutputShape, len(m.Classes))
	}
	for i, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("std for channel %d is zero", i)
		}
	}
	return nil
}
