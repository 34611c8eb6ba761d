package dataset

import (
	"fmt"
	"time"
)

// Split parameter defaults and bounds
const (
	DefaultTestSize    = 0.4
	DefaultValSize     = 0.5
	DefaultRandomState = 42
	MinFraction        = 0.1
	MaxFraction        = 0.5
)

// SplitParams controls the two-stage train/validation/test split
type SplitParams struct {
	TestSize    float64 `json:"test_size"`
	ValSize     float64 `json:"val_size"`
	RandomState int64   `json:"random_state"`
	Shuffle     bool    `json:"shuffle"`
	Stratify    string  `json:"stratify,omitempty"`
}

// DefaultSplitParams returns the parameters used when a request omits them
func DefaultSplitParams() SplitParams {
	return SplitParams{
		TestSize:    DefaultTestSize,
		ValSize:     DefaultValSize,
		RandomState: DefaultRandomState,
		Shuffle:     true,
	}
}

// SplitSizes are the row counts of a split
type SplitSizes struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
	Total      int `json:"total"`
}

// SplitPercentages are partition shares of the total, rounded to 2 decimals
type SplitPercentages struct {
	Train      float64 `json:"train"`
	Validation float64 `json:"validation"`
	Test       float64 `json:"test"`
}

// SplitSummary is what a session remembers about its latest split
type SplitSummary struct {
	Parameters SplitParams `json:"parameters"`
	Sizes      SplitSizes  `json:"sizes"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Validate checks the fractions are within [MinFraction, MaxFraction]
func (p SplitParams) Validate() error {
	if p.TestSize < MinFraction || p.TestSize > MaxFraction {
		return fmt.Errorf("test_size must be between %.1f and %.1f, got %v", MinFraction, MaxFraction, p.TestSize)
	}
	if p.ValSize < MinFraction || p.ValSize > MaxFraction {
		return fmt.Errorf("val_size must be between %.1f and %.1f, got %v", MinFraction, MaxFraction, p.ValSize)
	}
	return nil
}
