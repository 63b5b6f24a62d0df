package stats

import (
	"io"
	"sort"

	"github.com/mikexyl/mesa/internal/model"
)

// metricFn extracts the plotted value from a result; ok is false when
// the value is absent (for example a missing timing file).
type metricFn func(res model.ExperimentResult) (float64, bool)

// BuildConvergencePlots assembles the standard charts of convergence
// metrics against robot count, one series per algorithm.
func BuildConvergencePlots(results []model.ExperimentResult, display map[model.AlgorithmID]model.DisplayAttrs) []Plot {
	charts := []struct {
		title  string
		yLabel string
		logY   bool
		metric metricFn
	}{
		{
			title:  "Total Communications",
			yLabel: "communications",
			logY:   true,
			metric: func(res model.ExperimentResult) (float64, bool) {
				return float64(res.TotalCommunications), true
			},
		},
		{
			title:  "Position Convergence Communications",
			yLabel: "communications",
			logY:   true,
			metric: func(res model.ExperimentResult) (float64, bool) {
				return float64(res.Position.CrossingCounter), true
			},
		},
		{
			title:  "Position Convergence Iterations",
			yLabel: "iterations",
			metric: func(res model.ExperimentResult) (float64, bool) {
				if res.Position.Iteration == nil {
					return 0, false
				}
				return float64(*res.Position.Iteration), true
			},
		},
		{
			title:  "Position Convergence Time (s)",
			yLabel: "seconds",
			logY:   true,
			metric: func(res model.ExperimentResult) (float64, bool) {
				if res.Position.ElapsedSeconds == nil {
					return 0, false
				}
				return *res.Position.ElapsedSeconds, true
			},
		},
		{
			title:  "Position Convergence Efficiency (%)",
			yLabel: "percent",
			metric: func(res model.ExperimentResult) (float64, bool) {
				return res.Position.RatioOfFinal * 100, true
			},
		},
	}

	plots := make([]Plot, 0, len(charts))
	for _, chart := range charts {
		series := buildAlgorithmSeries(results, display, chart.metric)
		if len(series) == 0 {
			continue
		}
		plots = append(plots, Plot{
			Title:  chart.title,
			XLabel: "robots",
			YLabel: chart.yLabel,
			LogY:   chart.logY,
			Series: series,
		})
	}
	return plots
}

func buildAlgorithmSeries(results []model.ExperimentResult, display map[model.AlgorithmID]model.DisplayAttrs, metric metricFn) []Series {
	grouped := map[model.AlgorithmID][]Point{}
	for _, res := range results {
		if res.RobotCount <= 0 {
			continue
		}
		y, ok := metric(res)
		if !ok {
			continue
		}
		grouped[res.Algorithm] = append(grouped[res.Algorithm], Point{X: float64(res.RobotCount), Y: y})
	}

	algorithms := make([]model.AlgorithmID, 0, len(grouped))
	for alg := range grouped {
		algorithms = append(algorithms, alg)
	}
	sort.Slice(algorithms, func(i, j int) bool {
		return algorithms[i].String() < algorithms[j].String()
	})

	series := make([]Series, 0, len(algorithms))
	for _, alg := range algorithms {
		points := grouped[alg]
		sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })
		attrs := display[alg]
		label := attrs.Label
		if label == "" {
			label = alg.String()
		}
		series = append(series, Series{Name: label, Color: attrs.Color, Points: points})
	}
	return series
}

// RenderConvergencePlots renders the standard charts sized to a total
// terminal width.
func RenderConvergencePlots(w io.Writer, results []model.ExperimentResult, display map[model.AlgorithmID]model.DisplayAttrs, totalWidth, height int, forceColor bool) error {
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, plot := range BuildConvergencePlots(results, display) {
		if err := RenderPlot(w, plot, width, height, forceColor); err != nil {
			return err
		}
	}
	return nil
}
