package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/mikexyl/mesa/internal/model"
)

// AlgorithmSummary aggregates batch rows for one algorithm.
type AlgorithmSummary struct {
	Algorithm         model.AlgorithmID
	Experiments       int
	MeanPositionRatio float64
	MeanRotationRatio float64
	MeanFinalPosition float64
	MeanFinalRotation float64
	MinTotalComm      uint64
	MaxTotalComm      uint64
	RobotCounts       []int
}

// SummarizeByAlgorithm groups results by algorithm and computes means
// and ranges, ordered by algorithm label.
func SummarizeByAlgorithm(results []model.ExperimentResult) []AlgorithmSummary {
	grouped := map[model.AlgorithmID][]model.ExperimentResult{}
	for _, res := range results {
		grouped[res.Algorithm] = append(grouped[res.Algorithm], res)
	}

	summaries := make([]AlgorithmSummary, 0, len(grouped))
	for alg, group := range grouped {
		s := AlgorithmSummary{
			Algorithm:    alg,
			Experiments:  len(group),
			MinTotalComm: group[0].TotalCommunications,
			MaxTotalComm: group[0].TotalCommunications,
		}
		robotSet := map[int]struct{}{}
		for _, res := range group {
			s.MeanPositionRatio += res.Position.RatioOfFinal
			s.MeanRotationRatio += res.Rotation.RatioOfFinal
			s.MeanFinalPosition += res.FinalPosition
			s.MeanFinalRotation += res.FinalRotation
			if res.TotalCommunications < s.MinTotalComm {
				s.MinTotalComm = res.TotalCommunications
			}
			if res.TotalCommunications > s.MaxTotalComm {
				s.MaxTotalComm = res.TotalCommunications
			}
			robotSet[res.RobotCount] = struct{}{}
		}
		count := float64(len(group))
		s.MeanPositionRatio /= count
		s.MeanRotationRatio /= count
		s.MeanFinalPosition /= count
		s.MeanFinalRotation /= count
		for n := range robotSet {
			s.RobotCounts = append(s.RobotCounts, n)
		}
		sort.Ints(s.RobotCounts)
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Algorithm.String() < summaries[j].Algorithm.String()
	})
	return summaries
}

// RenderSummary prints the per-algorithm summary table.
func RenderSummary(w io.Writer, results []model.ExperimentResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	summaries := SummarizeByAlgorithm(results)

	if _, err := fmt.Fprintln(w, "Summary by Algorithm"); err != nil {
		return err
	}
	headers := []string{"Algorithm", "Runs", "Avg Pos Ratio", "Avg Rot Ratio", "Avg Final Pos", "Avg Final Rot", "Comm Range"}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Algorithm.String(),
			strconv.Itoa(s.Experiments),
			fmt.Sprintf("%.2f%%", s.MeanPositionRatio*100),
			fmt.Sprintf("%.2f%%", s.MeanRotationRatio*100),
			fmt.Sprintf("%.6f", s.MeanFinalPosition),
			fmt.Sprintf("%.6f", s.MeanFinalRotation),
			fmt.Sprintf("%d - %d", s.MinTotalComm, s.MaxTotalComm),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderResultsTable prints one aligned row per experiment.
func RenderResultsTable(w io.Writer, results []model.ExperimentResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	headers := []string{"Experiment", "Algorithm", "Robots", "Total Comm", "Pos Conv", "Pos Ratio", "Pos Iter", "Pos Time (s)", "Final Pos"}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			res.Experiment,
			res.Algorithm.String(),
			strconv.Itoa(res.RobotCount),
			strconv.FormatUint(res.TotalCommunications, 10),
			strconv.FormatUint(res.Position.CrossingCounter, 10),
			fmt.Sprintf("%.2f%%", res.Position.RatioOfFinal*100),
			optionalUint(res.Position.Iteration),
			optionalSeconds(res.Position.ElapsedSeconds),
			fmt.Sprintf("%.6f", res.FinalPosition),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderBatchReport prints the detailed per-experiment report followed
// by the per-algorithm summary.
func RenderBatchReport(w io.Writer, results []model.ExperimentResult, skipped int) error {
	if _, err := fmt.Fprintln(w, "Convergence Analysis Results"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Processed %d experiments, skipped %d\n\n", len(results), skipped); err != nil {
		return err
	}
	for _, res := range results {
		if err := renderExperiment(w, res); err != nil {
			return err
		}
	}
	return RenderSummary(w, results)
}

func renderExperiment(w io.Writer, res model.ExperimentResult) error {
	lines := []string{
		fmt.Sprintf("Experiment: %s", res.Experiment),
		fmt.Sprintf("  Algorithm: %s", res.Algorithm),
		fmt.Sprintf("  Grid: %s (robots: %d)", res.Grid, res.RobotCount),
		fmt.Sprintf("  Total Communications: %d", res.TotalCommunications),
		fmt.Sprintf("  Final Position Error: %.6f", res.FinalPosition),
		fmt.Sprintf("  Final Rotation Error: %.6f", res.FinalRotation),
		fmt.Sprintf("  Position Convergence: %s", describeJoined(res.Position)),
		fmt.Sprintf("  Rotation Convergence: %s", describeJoined(res.Rotation)),
		fmt.Sprintf("  Total Samples: %d", res.TotalSamples),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func describeJoined(j model.JoinedConvergence) string {
	desc := fmt.Sprintf("%d communications (%.2f%% of total)", j.CrossingCounter, j.RatioOfFinal*100)
	if !j.Converged {
		desc += " [never converged; run-final values]"
	}
	if j.Iteration != nil && j.ElapsedSeconds != nil {
		desc += fmt.Sprintf(", iteration %d, %.2fs", *j.Iteration, *j.ElapsedSeconds)
	}
	return desc
}

// RenderFileAnalysis prints the single-file convergence report.
func RenderFileAnalysis(w io.Writer, a model.FileAnalysis, thresholdPercent float64) error {
	lines := []string{
		"Final values:",
		fmt.Sprintf("  Communications: %d", a.TotalCommunications),
		fmt.Sprintf("  Residual: %.6f", a.FinalResidual),
		fmt.Sprintf("  Position Error: %.6f", a.FinalPosition),
		fmt.Sprintf("  Rotation Error: %.6f", a.FinalRotation),
		"",
		fmt.Sprintf("Threshold values (%g%% above final):", thresholdPercent),
		fmt.Sprintf("  Position threshold: %.6f", a.PositionThreshold),
		fmt.Sprintf("  Rotation threshold: %.6f", a.RotationThreshold),
		"",
		"Convergence analysis:",
		"  Position: " + describeCrossing(a.Position, thresholdPercent),
		"  Rotation: " + describeCrossing(a.Rotation, thresholdPercent),
		"  Both:     " + describeCrossing(a.Joint, thresholdPercent),
	}
	if a.SkippedRows > 0 {
		lines = append(lines, fmt.Sprintf("Skipped %d malformed rows", a.SkippedRows))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func describeCrossing(res model.ConvergenceResult, thresholdPercent float64) string {
	if !res.Converged {
		return fmt.Sprintf("never reaches within %g%% of final value", thresholdPercent)
	}
	return fmt.Sprintf("within %g%% at communication %d (%.1f%% of total)",
		thresholdPercent, res.CrossingCounter, res.RatioOfFinal*100)
}

func optionalUint(v *uint64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(*v, 10)
}

func optionalSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
