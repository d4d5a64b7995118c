package analysis

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/dumasj/fastai-v3/internal/catalog"
	"github.com/dumasj/fastai-v3/internal/model"
)

const (
	DefaultThreshold = 0.5

	NoMatchMessage = "No shoe found, please send us a request to add it to the database."
)

// Observer receives per-prediction measurements. It may be nil.
type Observer interface {
	ObserveInference(d time.Duration)
	ObservePrediction(label string, matched bool)
}

type Result struct {
	Message    string
	Label      string
	Confidence float64
	Matched    bool
	Price      catalog.PriceRange
}

// Analyzer turns a decoded image into an appraisal message.
type Analyzer struct {
	classifier model.Classifier
	catalog    *catalog.Catalog
	threshold  float64
	observer   Observer
}

func NewAnalyzer(classifier model.Classifier, cat *catalog.Catalog, threshold float64, observer Observer) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		catalog:    cat,
		threshold:  threshold,
		observer:   observer,
	}
}

// Analyze classifies img once and derives both label and confidence from
// that single prediction.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	start := time.Now()
	pred, err := a.classifier.Predict(img)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	if a.observer != nil {
		a.observer.ObserveInference(elapsed)
	}

	confidence := pred.Confidence
	if len(pred.Distribution) > 0 {
		confidence = floats.Max(pred.Distribution)
	}

	logger.Debug().
		Str("label", pred.Label).
		Float64("confidence", confidence).
		Dur("inference", elapsed).
		Msg("image classified")

	if confidence <= a.threshold {
		a.observe(pred.Label, false)
		return &Result{
			Message:    NoMatchMessage,
			Label:      pred.Label,
			Confidence: confidence,
		}, nil
	}

	price, err := a.catalog.Lookup(pred.Label)
	if err != nil {
		return nil, fmt.Errorf("price lookup failed: %w", err)
	}
	a.observe(pred.Label, true)

	return &Result{
		Message:    FormatMessage(pred.Label, confidence, price),
		Label:      pred.Label,
		Confidence: confidence,
		Matched:    true,
		Price:      price,
	}, nil
}

func (a *Analyzer) observe(label string, matched bool) {
	if a.observer != nil {
		a.observer.ObservePrediction(label, matched)
	}
}

func FormatMessage(label string, confidence float64, price catalog.PriceRange) string {
	return fmt.Sprintf("%s (probability %.2f), current market value is %.2f-%.2f USD.",
		label, confidence, price.Low, price.High)
}
