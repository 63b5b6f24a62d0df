package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikexyl/mesa/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return st
}

func storedResult(name string, alg model.AlgorithmID, robots int) model.ExperimentResult {
	iteration := uint64(3)
	elapsed := 2.0
	return model.ExperimentResult{
		Experiment:          name,
		Algorithm:           alg,
		Grid:                "4_4",
		RobotCount:          robots,
		TotalCommunications: 300,
		FinalPosition:       1,
		FinalRotation:       0.1,
		Position: model.JoinedConvergence{
			ConvergenceResult: model.ConvergenceResult{Converged: true, CrossingCounter: 200, RatioOfFinal: 200.0 / 300.0},
			Iteration:         &iteration,
			ElapsedSeconds:    &elapsed,
		},
		Rotation: model.JoinedConvergence{
			ConvergenceResult: model.ConvergenceResult{Converged: false, CrossingCounter: 300, RatioOfFinal: 1},
		},
		TotalSamples: 4,
	}
}

func TestUpsertAndListResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	results := []model.ExperimentResult{
		storedResult("grid_8_8_dgs_2025-08-03", model.AlgorithmDGS, 8),
		storedResult("grid_4_4_asapp_2025-08-03", model.AlgorithmASAPP, 4),
	}
	if err := st.UpsertResults(ctx, results); err != nil {
		t.Fatalf("UpsertResults failed: %v", err)
	}

	listed, err := st.ListResults(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 results, got %d", len(listed))
	}
	if listed[0].RobotCount != 4 || listed[1].RobotCount != 8 {
		t.Fatalf("results should be ordered by robot count, got %d then %d",
			listed[0].RobotCount, listed[1].RobotCount)
	}

	got := listed[0]
	if got.Algorithm != model.AlgorithmASAPP || got.Grid != "4_4" {
		t.Fatalf("unexpected identity columns: %+v", got)
	}
	if !got.Position.Converged || got.Position.CrossingCounter != 200 {
		t.Fatalf("unexpected position columns: %+v", got.Position)
	}
	if got.Position.Iteration == nil || *got.Position.Iteration != 3 {
		t.Fatalf("expected iteration 3, got %+v", got.Position.Iteration)
	}
	if got.Position.ElapsedSeconds == nil || *got.Position.ElapsedSeconds != 2.0 {
		t.Fatalf("expected 2.0s, got %+v", got.Position.ElapsedSeconds)
	}
	if got.Rotation.Converged || got.Rotation.Iteration != nil {
		t.Fatalf("unexpected rotation columns: %+v", got.Rotation)
	}
}

func TestUpsertReplacesByName(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	res := storedResult("grid_4_4_asapp_2025-08-03", model.AlgorithmASAPP, 4)
	if err := st.UpsertResults(ctx, []model.ExperimentResult{res}); err != nil {
		t.Fatalf("UpsertResults failed: %v", err)
	}
	res.TotalCommunications = 999
	res.Position.Iteration = nil
	res.Position.ElapsedSeconds = nil
	if err := st.UpsertResults(ctx, []model.ExperimentResult{res}); err != nil {
		t.Fatalf("second UpsertResults failed: %v", err)
	}

	listed, err := st.ListResults(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("upsert must replace, not duplicate: got %d rows", len(listed))
	}
	if listed[0].TotalCommunications != 999 {
		t.Fatalf("expected updated row, got %+v", listed[0])
	}
	if listed[0].Position.Iteration != nil {
		t.Fatalf("expected cleared iteration, got %+v", listed[0].Position.Iteration)
	}
}

func TestListResultsFilter(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	results := []model.ExperimentResult{
		storedResult("grid_8_8_dgs_2025-08-03", model.AlgorithmDGS, 8),
		storedResult("grid_4_4_asapp_2025-08-03", model.AlgorithmASAPP, 4),
	}
	if err := st.UpsertResults(ctx, results); err != nil {
		t.Fatalf("UpsertResults failed: %v", err)
	}

	listed, err := st.ListResults(ctx, Filter{Algorithm: "dgs"})
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Algorithm != model.AlgorithmDGS {
		t.Fatalf("unexpected filtered results: %+v", listed)
	}

	algorithms, err := st.Algorithms(ctx)
	if err != nil {
		t.Fatalf("Algorithms failed: %v", err)
	}
	if len(algorithms) != 2 || algorithms[0] != "asapp" || algorithms[1] != "dgs" {
		t.Fatalf("unexpected algorithms: %v", algorithms)
	}
}
