package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Point is one sample of a plotted series.
type Point struct {
	X float64
	Y float64
}

// Series is a named, colored series of points for plotting.
type Series struct {
	Name   string
	Color  string
	Points []Point
}

// Plot describes one terminal chart. All series share the same axes so
// algorithms stay comparable.
type Plot struct {
	Title  string
	XLabel string
	YLabel string
	LogY   bool
	Series []Series
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisSeparator       = " | "
	axisLabelWidth      = 8
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var ansiColors = map[string]string{
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"purple":  "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
}

var fallbackPalette = []string{"cyan", "magenta", "yellow", "green", "blue"}

// RenderPlot renders a braille chart for the plot. Zero width or height
// picks defaults from the terminal size.
func RenderPlot(w io.Writer, p Plot, width, height int, forceColor bool) error {
	series := filterPlotSeries(p.Series, p.LogY)
	if len(series) == 0 {
		return nil
	}

	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = autoPlotWidth()
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	xMin, xMax, yMin, yMax := plotBounds(series)
	if math.Abs(xMax-xMin) < 1e-12 {
		xMin--
		xMax++
	}
	if math.Abs(yMax-yMin) < 1e-12 {
		yMin--
		yMax++
	}

	dotsX := width * 2
	dotsY := height * 4
	seriesCells := make([][][]uint8, len(series))
	for i := range series {
		seriesCells[i] = makeCells(height, width)
	}
	for si, s := range series {
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for _, pt := range s.Points {
			px := scaleToDot(pt.X, xMin, xMax, dotsX)
			py := dotsY - 1 - scaleToDot(pt.Y, yMin, yMax, dotsY)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					if style.shouldPlot(dx) {
						setBrailleDot(seriesCells[si], dx, dy)
					}
				})
			} else {
				setBrailleDot(seriesCells[si], px, py)
			}
			prevX, prevY = px, py
		}
	}

	useColor := shouldUseColor(w, forceColor)
	if p.Title != "" {
		if _, err := fmt.Fprintln(w, p.Title); err != nil {
			return err
		}
	}
	axisLabels := makeAxisLabels(height, yMin, yMax, p.LogY)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", axisLabelWidth, axisLabels[y], axisSeparator))
		for x := 0; x < width; x++ {
			mask, colorIdx := composeCell(seriesCells, x, y)
			ch := brailleFromMask(mask)
			if useColor && colorIdx >= 0 {
				row.WriteString(seriesColor(series[colorIdx], colorIdx))
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	xAxis := fmt.Sprintf("%*s%s%s: %.4g - %.4g", axisLabelWidth, "", axisSeparator, p.XLabel, xMin, xMax)
	if _, err := fmt.Fprintln(w, xAxis); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, renderLegend(series, useColor)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// filterPlotSeries drops empty series and, for log plots, non-positive
// points that have no log representation.
func filterPlotSeries(series []Series, logY bool) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		points := make([]Point, 0, len(s.Points))
		for _, pt := range s.Points {
			if logY {
				if pt.Y <= 0 {
					continue
				}
				pt.Y = math.Log10(pt.Y)
			}
			points = append(points, pt)
		}
		if len(points) == 0 {
			continue
		}
		out = append(out, Series{Name: s.Name, Color: s.Color, Points: points})
	}
	return out
}

func plotBounds(series []Series) (xMin, xMax, yMin, yMax float64) {
	xMin, yMin = math.Inf(1), math.Inf(1)
	xMax, yMax = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for _, pt := range s.Points {
			xMin = math.Min(xMin, pt.X)
			xMax = math.Max(xMax, pt.X)
			yMin = math.Min(yMin, pt.Y)
			yMax = math.Max(yMax, pt.Y)
		}
	}
	return xMin, xMax, yMin, yMax
}

func scaleToDot(v, minVal, maxVal float64, dots int) int {
	if dots <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	idx := int(math.Round(pos * float64(dots-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= dots {
		idx = dots - 1
	}
	return idx
}

func makeAxisLabels(height int, yMin, yMax float64, logY bool) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	format := func(v float64) string {
		if logY {
			v = math.Pow(10, v)
		}
		return fmt.Sprintf("%.3g", v)
	}
	labels[0] = format(yMax)
	if height > 2 {
		labels[height/2] = format((yMin + yMax) / 2)
	}
	if height > 1 {
		labels[height-1] = format(yMin)
	}
	for i, label := range labels {
		if utf8.RuneCountInString(label) > axisLabelWidth {
			labels[i] = label[:axisLabelWidth]
		}
	}
	return labels
}

func seriesColor(s Series, idx int) string {
	if code, ok := ansiColors[s.Color]; ok {
		return code
	}
	return ansiColors[fallbackPalette[idx%len(fallbackPalette)]]
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := brailleFromMask(0x01)
	for i, s := range series {
		styleName := lineStyles[i%len(lineStyles)].name
		label := fmt.Sprintf("%c %s (%s)", marker, s.Name, styleName)
		if useColor {
			label = seriesColor(s, i) + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	plotWidth := totalWidth - axisLabelWidth - utf8.RuneCountInString(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cellMask
	}
	return mask, colorIdx
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	switch {
	case x == 0 && y == 0:
		return 0x01
	case x == 0 && y == 1:
		return 0x02
	case x == 0 && y == 2:
		return 0x04
	case x == 0 && y == 3:
		return 0x40
	case x == 1 && y == 0:
		return 0x08
	case x == 1 && y == 1:
		return 0x10
	case x == 1 && y == 2:
		return 0x20
	case x == 1 && y == 3:
		return 0x80
	default:
		return 0
	}
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
