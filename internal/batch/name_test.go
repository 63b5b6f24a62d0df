package batch

import (
	"testing"

	"github.com/mikexyl/mesa/internal/model"
)

func TestParseName(t *testing.T) {
	parts := ParseName("grid_15_15_geodesic-mesa_2025-08-03_18-44-06")
	if parts.Algorithm != model.AlgorithmGeodesicMESA {
		t.Fatalf("expected geodesic-mesa, got %v", parts.Algorithm)
	}
	if parts.Label != "geodesic-mesa" {
		t.Fatalf("unexpected label: %q", parts.Label)
	}
	if parts.Grid != "15_15" {
		t.Fatalf("unexpected grid: %q", parts.Grid)
	}
	if parts.RobotCount != 15 {
		t.Fatalf("unexpected robot count: %d", parts.RobotCount)
	}
}

func TestParseNameCaseInsensitiveAlgorithm(t *testing.T) {
	parts := ParseName("grid_4_4_CBS_2025-07-01_10-00-00")
	if parts.Algorithm != model.AlgorithmCBS {
		t.Fatalf("expected cbs, got %v", parts.Algorithm)
	}
	if parts.RobotCount != 4 {
		t.Fatalf("unexpected robot count: %d", parts.RobotCount)
	}
}

func TestParseNameUnknownAlgorithm(t *testing.T) {
	parts := ParseName("grid_8_8_mystery_2025-07-01_10-00-00")
	if parts.Algorithm != model.AlgorithmUnknown {
		t.Fatalf("expected unknown algorithm, got %v", parts.Algorithm)
	}
	if parts.Label != "mystery" {
		t.Fatalf("the raw label should survive, got %q", parts.Label)
	}
}

func TestParseNameMissingParts(t *testing.T) {
	parts := ParseName("notes")
	if parts.Algorithm != model.AlgorithmUnknown || parts.Label != "" {
		t.Fatalf("unexpected algorithm parts: %+v", parts)
	}
	if parts.Grid != "" || parts.RobotCount != 0 {
		t.Fatalf("unexpected grid parts: %+v", parts)
	}
}
