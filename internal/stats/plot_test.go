package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderPlot(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPlot(&buf, Plot{
		Title:  "Test Plot",
		XLabel: "robots",
		Series: []Series{
			{Name: "asapp", Color: "red", Points: []Point{{X: 4, Y: 100}, {X: 8, Y: 300}, {X: 15, Y: 900}}},
			{Name: "dgs", Color: "blue", Points: []Point{{X: 4, Y: 80}, {X: 8, Y: 200}}},
		},
	}, 20, 5, false)
	if err != nil {
		t.Fatalf("RenderPlot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "robots: 4 - 15") {
		t.Fatalf("expected x-axis range in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	if !strings.Contains(out, "asapp (solid)") || !strings.Contains(out, "dgs (dashed)") {
		t.Fatalf("expected legend entries with line styles, got:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain writer must not get ANSI colors")
	}
	// Title + 5 chart rows + x axis + legend + blank.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines of output, got %d:\n%s", len(lines), out)
	}
}

func TestRenderPlotLogYDropsNonPositive(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPlot(&buf, Plot{
		Title: "Log Plot",
		LogY:  true,
		Series: []Series{
			{Name: "valid", Points: []Point{{X: 1, Y: 10}, {X: 2, Y: 100}}},
			{Name: "zeros", Points: []Point{{X: 1, Y: 0}, {X: 2, Y: -5}}},
		},
	}, 20, 4, false)
	if err != nil {
		t.Fatalf("RenderPlot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "valid") {
		t.Fatalf("expected surviving series, got:\n%s", out)
	}
	if strings.Contains(out, "zeros") {
		t.Fatalf("a series with only non-positive points must be dropped on a log plot")
	}
}

func TestRenderPlotEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPlot(&buf, Plot{Title: "Empty"}, 20, 4, false); err != nil {
		t.Fatalf("RenderPlot failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for an empty plot, got %q", buf.String())
	}
}

func TestRenderPlotForceColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	err := RenderPlot(&buf, Plot{
		Series: []Series{{Name: "a", Color: "red", Points: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}},
	}, 20, 4, true)
	if err != nil {
		t.Fatalf("RenderPlot failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[31m") {
		t.Fatalf("expected red ANSI code with forced color")
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 80-axisLabelWidth-len(axisSeparator) {
		t.Fatalf("unexpected width: %d", got)
	}
	if got := PlotWidthFor(5); got != minPlotWidth {
		t.Fatalf("narrow terminals should clamp to the minimum, got %d", got)
	}
}

func TestBrailleDotMaskCoversCell(t *testing.T) {
	var mask uint8
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			bit := brailleDotMask(x, y)
			if bit == 0 {
				t.Fatalf("no mask for dot (%d,%d)", x, y)
			}
			if mask&bit != 0 {
				t.Fatalf("duplicate mask for dot (%d,%d)", x, y)
			}
			mask |= bit
		}
	}
	if mask != 0xFF {
		t.Fatalf("masks should cover all 8 dots, got %08b", mask)
	}
	if brailleFromMask(0) != '\u2800' {
		t.Fatalf("empty mask should map to the blank braille cell")
	}
}
