// Package convergence implements the first-crossing convergence search
// and the counter-based join between error and timing series.
package convergence

import (
	"fmt"
	"math"
	"strings"

	"github.com/mikexyl/mesa/internal/model"
)

// Strategy selects the crossing condition used by Detect.
type Strategy int

const (
	// MonotonicUpperBound tests metric <= final*(1+pct/100). It assumes
	// the series approaches its final value from above; a series that
	// approaches from below crosses immediately at the first sample.
	MonotonicUpperBound Strategy = iota
	// SymmetricRelative tests |metric-final| <= |final|*pct/100.
	SymmetricRelative
)

// ParseStrategy resolves a strategy name from config or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upper", "monotonic-upper-bound":
		return MonotonicUpperBound, nil
	case "symmetric", "symmetric-relative":
		return SymmetricRelative, nil
	default:
		return MonotonicUpperBound, fmt.Errorf("unknown convergence strategy %q", s)
	}
}

// String returns the canonical strategy name.
func (s Strategy) String() string {
	if s == SymmetricRelative {
		return "symmetric-relative"
	}
	return "monotonic-upper-bound"
}

// Threshold returns the crossing threshold for a final value. Only
// meaningful for MonotonicUpperBound; SymmetricRelative compares
// distances instead of absolute levels.
func (s Strategy) Threshold(final, thresholdPercent float64) float64 {
	return final * (1 + thresholdPercent/100)
}

func (s Strategy) crosses(metric, final, thresholdPercent float64) bool {
	if s == SymmetricRelative {
		return math.Abs(metric-final) <= math.Abs(final)*thresholdPercent/100
	}
	return metric <= final*(1+thresholdPercent/100)
}

// Detect finds the earliest sample at which the metric has settled to
// within thresholdPercent of the run-final value. When no sample
// crosses, the result degrades to the whole run: Converged is false
// and CrossingCounter is the final counter.
func Detect(series model.ErrorSeries, thresholdPercent float64, strategy Strategy) (model.ConvergenceResult, error) {
	if len(series) == 0 {
		return model.ConvergenceResult{}, model.ErrEmptySeries
	}
	last := series[len(series)-1]
	for _, sample := range series {
		if strategy.crosses(sample.Metric, last.Metric, thresholdPercent) {
			return model.ConvergenceResult{
				Converged:       true,
				CrossingCounter: sample.Counter,
				RatioOfFinal:    counterRatio(sample.Counter, last.Counter),
			}, nil
		}
	}
	return model.ConvergenceResult{
		Converged:       false,
		CrossingCounter: last.Counter,
		RatioOfFinal:    counterRatio(last.Counter, last.Counter),
	}, nil
}

// DetectJoint finds the first record where position and rotation have
// both crossed their thresholds. Same fallback semantics as Detect.
func DetectJoint(records []model.Record, thresholdPercent float64, strategy Strategy) (model.ConvergenceResult, error) {
	if len(records) == 0 {
		return model.ConvergenceResult{}, model.ErrEmptySeries
	}
	last := records[len(records)-1]
	for _, rec := range records {
		if strategy.crosses(rec.Position, last.Position, thresholdPercent) &&
			strategy.crosses(rec.Rotation, last.Rotation, thresholdPercent) {
			return model.ConvergenceResult{
				Converged:       true,
				CrossingCounter: rec.Counter,
				RatioOfFinal:    counterRatio(rec.Counter, last.Counter),
			}, nil
		}
	}
	return model.ConvergenceResult{
		Converged:       false,
		CrossingCounter: last.Counter,
		RatioOfFinal:    counterRatio(last.Counter, last.Counter),
	}, nil
}

func counterRatio(counter, final uint64) float64 {
	if final == 0 {
		return 0
	}
	return float64(counter) / float64(final)
}
