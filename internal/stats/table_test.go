package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Algorithm", "Runs", "Comm Range"}
	rows := [][]string{
		{"asapp", "3", "100 - 900"},
		{"geodesic-mesa", "12", "80 - 1200"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Algorithm      Runs  Comm Range" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "asapp             3   100 - 900" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "geodesic-mesa    12   80 - 1200" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableTrimsTrailingPadding(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"long-cell", "x"}}, nil)
	if lines[0] != "A          B" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "long-cell  x" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
