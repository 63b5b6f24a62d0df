package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mikexyl/mesa/internal/model"
)

func resultFixture(alg model.AlgorithmID, robots int, totalComm uint64, posRatio float64) model.ExperimentResult {
	return model.ExperimentResult{
		Experiment:          "grid_fixture",
		Algorithm:           alg,
		Grid:                "4_4",
		RobotCount:          robots,
		TotalCommunications: totalComm,
		FinalPosition:       0.5,
		FinalRotation:       0.05,
		Position: model.JoinedConvergence{
			ConvergenceResult: model.ConvergenceResult{Converged: true, CrossingCounter: totalComm / 2, RatioOfFinal: posRatio},
		},
		Rotation: model.JoinedConvergence{
			ConvergenceResult: model.ConvergenceResult{Converged: true, CrossingCounter: totalComm / 2, RatioOfFinal: posRatio},
		},
		TotalSamples: 10,
	}
}

func TestSummarizeByAlgorithm(t *testing.T) {
	results := []model.ExperimentResult{
		resultFixture(model.AlgorithmASAPP, 4, 100, 0.4),
		resultFixture(model.AlgorithmASAPP, 8, 300, 0.6),
		resultFixture(model.AlgorithmDGS, 4, 200, 0.8),
	}
	summaries := SummarizeByAlgorithm(results)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	asapp := summaries[0]
	if asapp.Algorithm != model.AlgorithmASAPP {
		t.Fatalf("summaries should be ordered by label, got %v first", asapp.Algorithm)
	}
	if asapp.Experiments != 2 {
		t.Fatalf("expected 2 asapp experiments, got %d", asapp.Experiments)
	}
	if asapp.MeanPositionRatio != 0.5 {
		t.Fatalf("unexpected mean ratio: %g", asapp.MeanPositionRatio)
	}
	if asapp.MinTotalComm != 100 || asapp.MaxTotalComm != 300 {
		t.Fatalf("unexpected comm range: %d - %d", asapp.MinTotalComm, asapp.MaxTotalComm)
	}
	if len(asapp.RobotCounts) != 2 || asapp.RobotCounts[0] != 4 || asapp.RobotCounts[1] != 8 {
		t.Fatalf("unexpected robot counts: %v", asapp.RobotCounts)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSummary(&buf, []model.ExperimentResult{
		resultFixture(model.AlgorithmCBS, 4, 100, 0.4),
	})
	if err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Summary by Algorithm") {
		t.Fatalf("expected summary title, got:\n%s", out)
	}
	if !strings.Contains(out, "cbs") {
		t.Fatalf("expected algorithm row, got:\n%s", out)
	}
	if !strings.Contains(out, "40.00%") {
		t.Fatalf("expected mean ratio column, got:\n%s", out)
	}
}

func TestRenderSummaryNoResults(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Fatalf("expected placeholder, got %q", buf.String())
	}
}

func TestRenderBatchReport(t *testing.T) {
	var buf bytes.Buffer
	res := resultFixture(model.AlgorithmGeodesicMESA, 15, 300, 0.6667)
	iteration := uint64(3)
	elapsed := 2.0
	res.Position.Iteration = &iteration
	res.Position.ElapsedSeconds = &elapsed
	if err := RenderBatchReport(&buf, []model.ExperimentResult{res}, 2); err != nil {
		t.Fatalf("RenderBatchReport failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Processed 1 experiments, skipped 2") {
		t.Fatalf("expected totals line, got:\n%s", out)
	}
	if !strings.Contains(out, "Experiment: grid_fixture") {
		t.Fatalf("expected experiment block, got:\n%s", out)
	}
	if !strings.Contains(out, "iteration 3, 2.00s") {
		t.Fatalf("expected joined timing, got:\n%s", out)
	}
}

func TestRenderFileAnalysis(t *testing.T) {
	a := model.FileAnalysis{
		TotalCommunications: 300,
		FinalResidual:       0.25,
		FinalPosition:       1,
		FinalRotation:       0.1,
		PositionThreshold:   1.01,
		RotationThreshold:   0.101,
		Position:            model.ConvergenceResult{Converged: true, CrossingCounter: 200, RatioOfFinal: 200.0 / 300.0},
		Rotation:            model.ConvergenceResult{Converged: false, CrossingCounter: 300, RatioOfFinal: 1},
		Joint:               model.ConvergenceResult{Converged: true, CrossingCounter: 200, RatioOfFinal: 200.0 / 300.0},
		TotalSamples:        4,
		SkippedRows:         1,
	}
	var buf bytes.Buffer
	if err := RenderFileAnalysis(&buf, a, 1); err != nil {
		t.Fatalf("RenderFileAnalysis failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Position threshold: 1.010000") {
		t.Fatalf("expected position threshold, got:\n%s", out)
	}
	if !strings.Contains(out, "within 1% at communication 200 (66.7% of total)") {
		t.Fatalf("expected position crossing, got:\n%s", out)
	}
	if !strings.Contains(out, "never reaches within 1% of final value") {
		t.Fatalf("expected rotation fallback, got:\n%s", out)
	}
	if !strings.Contains(out, "Skipped 1 malformed rows") {
		t.Fatalf("expected skipped-row note, got:\n%s", out)
	}
}
