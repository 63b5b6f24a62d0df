// Package model defines shared data structures.
package model

import "errors"

// ErrEmptySeries indicates a series with no valid samples.
var ErrEmptySeries = errors.New("series has no samples")

// ErrMissingFile indicates an expected experiment file is absent.
var ErrMissingFile = errors.New("file is missing")

// Channel identifies one of the tracked error metrics.
type Channel string

// Tracked error channels.
const (
	ChannelPosition Channel = "position"
	ChannelRotation Channel = "rotation"
)

// Record is one row of a residual-and-errors file: the cumulative
// communication count and the three metrics sampled at that point.
type Record struct {
	Counter  uint64
	Residual float64
	Position float64
	Rotation float64
}

// ErrorSample is one point of a single-channel error series.
type ErrorSample struct {
	Counter uint64
	Metric  float64
}

// ErrorSeries is an ordered error series. Counters are non-decreasing
// and the last sample holds the run-final value.
type ErrorSeries []ErrorSample

// ChannelSeries extracts the series for one channel from records.
func ChannelSeries(records []Record, ch Channel) ErrorSeries {
	series := make(ErrorSeries, 0, len(records))
	for _, rec := range records {
		metric := rec.Position
		if ch == ChannelRotation {
			metric = rec.Rotation
		}
		series = append(series, ErrorSample{Counter: rec.Counter, Metric: metric})
	}
	return series
}

// ResidualSeries extracts the residual column from records.
func ResidualSeries(records []Record) ErrorSeries {
	series := make(ErrorSeries, 0, len(records))
	for _, rec := range records {
		series = append(series, ErrorSample{Counter: rec.Counter, Metric: rec.Residual})
	}
	return series
}

// TimingSample is one row of an iteration-timing file. Counters share
// the communication axis of ErrorSeries but are sampled independently.
type TimingSample struct {
	Iteration      uint64
	ElapsedSeconds float64
	Counter        uint64
}

// TimingSeries is an ordered timing series with non-decreasing counters.
type TimingSeries []TimingSample

// ConvergenceResult reports the first crossing of a convergence threshold.
type ConvergenceResult struct {
	Converged       bool
	CrossingCounter uint64
	RatioOfFinal    float64
}

// JoinedConvergence extends a ConvergenceResult with the nearest-covering
// timing sample, when one exists.
type JoinedConvergence struct {
	ConvergenceResult
	Iteration      *uint64
	ElapsedSeconds *float64
}

// ExperimentResult is one aggregated row of a batch analysis.
type ExperimentResult struct {
	Experiment          string
	Algorithm           AlgorithmID
	Grid                string
	RobotCount          int
	TotalCommunications uint64
	FinalPosition       float64
	FinalRotation       float64
	Position            JoinedConvergence
	Rotation            JoinedConvergence
	TotalSamples        int
}

// FileAnalysis is the full single-file report: per-channel crossings,
// the conjunctive crossing, and the thresholds that produced them.
type FileAnalysis struct {
	TotalCommunications uint64
	FinalResidual       float64
	FinalPosition       float64
	FinalRotation       float64
	PositionThreshold   float64
	RotationThreshold   float64
	Position            ConvergenceResult
	Rotation            ConvergenceResult
	Joint               ConvergenceResult
	TotalSamples        int
	SkippedRows         int
}
