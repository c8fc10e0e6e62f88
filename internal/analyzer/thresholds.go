package analyzer

import (
	"errors"
	"fmt"

	"github.com/dshills/sieve/internal/patterns"
)

// ErrInvalidThresholds is wrapped by every threshold validation failure.
var ErrInvalidThresholds = errors.New("invalid analyzer thresholds")

// Thresholds are the tunable cutoffs of the tiering policy.
type Thresholds struct {
	// MinCodeLines: files with fewer code lines and no red flags are trivial.
	MinCodeLines int `json:"minCodeLines"`
	// SmallFileLines: clean files below this many code lines get Minimal.
	SmallFileLines int `json:"smallFileLines"`
	// LowErrorRatio: a ratio below this with any unwrap is a red flag.
	LowErrorRatio float64 `json:"lowErrorRatio"`
	// UnwrapDensity is the unwrap-per-100-code-lines red-flag cutoff.
	UnwrapDensity float64 `json:"unwrapDensity"`
	// MinSecretConfidence is the weakest secret finding that is a red flag.
	MinSecretConfidence patterns.Confidence `json:"minSecretConfidence"`
	MaxComplexity       int                 `json:"maxComplexity"`
	MaxNesting          int                 `json:"maxNesting"`
	// MaxMarkers bounds FIXME+HACK+XXX.
	MaxMarkers int `json:"maxMarkers"`
	// HighPriorityTodos from an external TODO source that force DeepDive.
	HighPriorityTodos int `json:"highPriorityTodos"`
	// TodoDensity (per 100 code lines) that lifts Skip to Minimal.
	TodoDensity float64 `json:"todoDensity"`
	// SkipTestFiles skips clean test-only files.
	SkipTestFiles bool `json:"skipTestFiles"`
	// SkipNonCode skips clean vendored, configuration and documentation files.
	SkipNonCode bool `json:"skipNonCode"`
}

// DefaultThresholds returns the built-in cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCodeLines:        10,
		SmallFileLines:      150,
		LowErrorRatio:       0.3,
		UnwrapDensity:       5.0,
		MinSecretConfidence: patterns.ConfidenceLow,
		MaxComplexity:       50,
		MaxNesting:          5,
		MaxMarkers:          2,
		HighPriorityTodos:   3,
		TodoDensity:         5.0,
		SkipNonCode:         true,
	}
}

// Validate reports the first inconsistent threshold.
func (t Thresholds) Validate() error {
	switch {
	case t.MinCodeLines < 0:
		return fmt.Errorf("%w: minCodeLines must be >= 0, got %d", ErrInvalidThresholds, t.MinCodeLines)
	case t.SmallFileLines < t.MinCodeLines:
		return fmt.Errorf("%w: smallFileLines (%d) must be >= minCodeLines (%d)", ErrInvalidThresholds, t.SmallFileLines, t.MinCodeLines)
	case t.LowErrorRatio < 0 || t.LowErrorRatio > 1:
		return fmt.Errorf("%w: lowErrorRatio must be in [0,1], got %g", ErrInvalidThresholds, t.LowErrorRatio)
	case t.UnwrapDensity <= 0:
		return fmt.Errorf("%w: unwrapDensity must be > 0, got %g", ErrInvalidThresholds, t.UnwrapDensity)
	case t.MinSecretConfidence < patterns.ConfidenceLow || t.MinSecretConfidence > patterns.ConfidenceHigh:
		return fmt.Errorf("%w: minSecretConfidence out of range", ErrInvalidThresholds)
	case t.MaxComplexity < 1:
		return fmt.Errorf("%w: maxComplexity must be >= 1, got %d", ErrInvalidThresholds, t.MaxComplexity)
	case t.MaxNesting < 1:
		return fmt.Errorf("%w: maxNesting must be >= 1, got %d", ErrInvalidThresholds, t.MaxNesting)
	case t.MaxMarkers < 0:
		return fmt.Errorf("%w: maxMarkers must be >= 0, got %d", ErrInvalidThresholds, t.MaxMarkers)
	case t.HighPriorityTodos < 1:
		return fmt.Errorf("%w: highPriorityTodos must be >= 1, got %d", ErrInvalidThresholds, t.HighPriorityTodos)
	case t.TodoDensity <= 0:
		return fmt.Errorf("%w: todoDensity must be > 0, got %g", ErrInvalidThresholds, t.TodoDensity)
	}
	return nil
}
