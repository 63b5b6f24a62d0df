// Package batch aggregates convergence results across experiment folders.
package batch

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/mikexyl/mesa/internal/convergence"
	"github.com/mikexyl/mesa/internal/model"
	"github.com/mikexyl/mesa/internal/seriesio"
)

// Expected file names inside each experiment folder.
const (
	ErrorFileName  = "residual_and_ate.txt"
	TimingFileName = "iter_time_comm.txt"
)

// Options configures a batch run.
type Options struct {
	ResultsDir       string
	ThresholdPercent float64
	Strategy         convergence.Strategy
}

// Summary collects the outcome of a batch run.
type Summary struct {
	Results   []model.ExperimentResult
	Processed int
	Skipped   int
}

// Logf receives progress and skip messages during a batch run.
type Logf func(format string, args ...any)

// Run analyzes every experiment folder under opts.ResultsDir. Folders
// without a readable error file are skipped and counted; a missing
// timing file only leaves the iteration/time columns empty.
func Run(opts Options, logf Logf) (Summary, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	entries, err := os.ReadDir(opts.ResultsDir)
	if err != nil {
		return Summary{}, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	summary := Summary{}
	for _, name := range names {
		folder := filepath.Join(opts.ResultsDir, name)
		result, err := analyzeExperiment(folder, name, opts)
		if err != nil {
			summary.Skipped++
			if errors.Is(err, model.ErrMissingFile) {
				logf("skipping %s: no %s", name, ErrorFileName)
			} else {
				logf("skipping %s: %v", name, err)
			}
			continue
		}
		summary.Results = append(summary.Results, result)
		summary.Processed++
	}
	return summary, nil
}

func analyzeExperiment(folder, name string, opts Options) (model.ExperimentResult, error) {
	records, _, err := seriesio.LoadRecords(filepath.Join(folder, ErrorFileName))
	if err != nil {
		return model.ExperimentResult{}, err
	}

	position, err := convergence.Detect(model.ChannelSeries(records, model.ChannelPosition), opts.ThresholdPercent, opts.Strategy)
	if err != nil {
		return model.ExperimentResult{}, err
	}
	rotation, err := convergence.Detect(model.ChannelSeries(records, model.ChannelRotation), opts.ThresholdPercent, opts.Strategy)
	if err != nil {
		return model.ExperimentResult{}, err
	}

	// A missing timing file is not fatal; the joined columns stay empty.
	timing, _, err := seriesio.LoadTimings(filepath.Join(folder, TimingFileName))
	if err != nil && !errors.Is(err, model.ErrMissingFile) {
		return model.ExperimentResult{}, err
	}

	last := records[len(records)-1]
	parts := ParseName(name)
	return model.ExperimentResult{
		Experiment:          name,
		Algorithm:           parts.Algorithm,
		Grid:                parts.Grid,
		RobotCount:          parts.RobotCount,
		TotalCommunications: last.Counter,
		FinalPosition:       last.Position,
		FinalRotation:       last.Rotation,
		Position:            convergence.JoinResult(position, timing),
		Rotation:            convergence.JoinResult(rotation, timing),
		TotalSamples:        len(records),
	}, nil
}

// AnalyzeFile runs the single-file analysis: per-channel crossings plus
// the conjunctive position-and-rotation crossing.
func AnalyzeFile(path string, thresholdPercent float64, strategy convergence.Strategy) (model.FileAnalysis, error) {
	records, skipped, err := seriesio.LoadRecords(path)
	if err != nil {
		return model.FileAnalysis{}, err
	}

	position, err := convergence.Detect(model.ChannelSeries(records, model.ChannelPosition), thresholdPercent, strategy)
	if err != nil {
		return model.FileAnalysis{}, err
	}
	rotation, err := convergence.Detect(model.ChannelSeries(records, model.ChannelRotation), thresholdPercent, strategy)
	if err != nil {
		return model.FileAnalysis{}, err
	}
	joint, err := convergence.DetectJoint(records, thresholdPercent, strategy)
	if err != nil {
		return model.FileAnalysis{}, err
	}

	last := records[len(records)-1]
	return model.FileAnalysis{
		TotalCommunications: last.Counter,
		FinalResidual:       last.Residual,
		FinalPosition:       last.Position,
		FinalRotation:       last.Rotation,
		PositionThreshold:   strategy.Threshold(last.Position, thresholdPercent),
		RotationThreshold:   strategy.Threshold(last.Rotation, thresholdPercent),
		Position:            position,
		Rotation:            rotation,
		Joint:               joint,
		TotalSamples:        len(records),
		SkippedRows:         skipped,
	}, nil
}
