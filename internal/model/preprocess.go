package model

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/floats"
)

// preprocessImage resizes img to size x size and lays it out as normalized
// CHW float32 values.
func preprocessImage(img image.Image, size int, mean, std [3]float32) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	inputData := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = (float32(r)/65535.0 - mean[0]) / std[0]
			inputData[plane+pixelIndex] = (float32(g)/65535.0 - mean[1]) / std[1]
			inputData[2*plane+pixelIndex] = (float32(b)/65535.0 - mean[2]) / std[2]
		}
	}
	return inputData
}

// distribution turns raw model output into per-class probabilities.
func distribution(output []float32, applySoftmax bool) []float64 {
	dist := make([]float64, len(output))
	for i, v := range output {
		dist[i] = float64(v)
	}
	if !applySoftmax || len(dist) == 0 {
		return dist
	}

	floats.AddConst(-floats.Max(dist), dist)
	for i, v := range dist {
		dist[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(dist), dist)
	return dist
}

// toPrediction picks the argmax class from dist.
func toPrediction(dist []float64, classes []string) *Prediction {
	n := len(dist)
	if len(classes) < n {
		n = len(classes)
	}
	idx := floats.MaxIdx(dist[:n])
	return &Prediction{
		Label:        classes[idx],
		Confidence:   dist[idx],
		Distribution: dist[:n],
	}
}
