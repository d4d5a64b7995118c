package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrUnknownLabel = errors.New("label not in price catalog")

// PriceRange is a market value range in USD.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Catalog maps class labels to price ranges. It is read-only once built.
type Catalog struct {
	prices map[string]PriceRange
}

func New(prices map[string]PriceRange) (*Catalog, error) {
	if len(prices) == 0 {
		return nil, errors.New("price catalog is empty")
	}

	c := &Catalog{prices: make(map[string]PriceRange, len(prices))}
	for label, pr := range prices {
		if label == "" {
			return nil, errors.New("price catalog has an empty label")
		}
		if pr.Low < 0 || pr.High < 0 {
			return nil, fmt.Errorf("negative price for %s", label)
		}
		if pr.Low > pr.High {
			return nil, fmt.Errorf("price range for %s is inverted: %.2f > %.2f", label, pr.Low, pr.High)
		}
		c.prices[label] = pr
	}
	return c, nil
}

// LoadFile reads a JSON object of label -> {"low", "high"}.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var prices map[string]PriceRange
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(prices)
}

func (c *Catalog) Lookup(label string) (PriceRange, error) {
	pr, ok := c.prices[label]
	if !ok {
		return PriceRange{}, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return pr, nil
}

// Validate checks that every label has a price range.
func (c *Catalog) Validate(labels []string) error {
	var missing []string
	for _, l := range labels {
		if _, ok := c.prices[l]; !ok {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.prices))
	for l := range c.prices {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
