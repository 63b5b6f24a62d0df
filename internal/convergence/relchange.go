package convergence

import "github.com/mikexyl/mesa/internal/model"

// RelativeChange is the step-to-step relative change of a metric.
type RelativeChange struct {
	Counter uint64
	Change  float64
}

// RelativeChanges computes |cur-prev|/prev for consecutive samples.
// A zero previous value yields +Inf (or NaN for 0/0), which never
// satisfies a below-tolerance test.
func RelativeChanges(series model.ErrorSeries) []RelativeChange {
	if len(series) < 2 {
		return nil
	}
	changes := make([]RelativeChange, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Metric
		cur := series[i].Metric
		diff := cur - prev
		if diff < 0 {
			diff = -diff
		}
		changes = append(changes, RelativeChange{
			Counter: series[i].Counter,
			Change:  diff / prev,
		})
	}
	return changes
}

// FirstBelow returns the counter of the first change below tolerance.
func FirstBelow(changes []RelativeChange, tolerance float64) (uint64, bool) {
	for _, c := range changes {
		if c.Change < tolerance {
			return c.Counter, true
		}
	}
	return 0, false
}
