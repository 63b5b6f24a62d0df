package convergence

import (
	"sort"

	"github.com/mikexyl/mesa/internal/model"
)

// Join locates the earliest timing checkpoint that has accumulated at
// least crossingCounter communications. The two series are sampled at
// different cadences, so the lookup goes through the counter value,
// never through array position. With useFinal, or when crossingCounter
// is zero, the run-final checkpoint is returned instead. ok is false
// only for an empty timing series.
func Join(timing model.TimingSeries, crossingCounter uint64, useFinal bool) (iteration uint64, elapsed float64, ok bool) {
	if len(timing) == 0 {
		return 0, 0, false
	}
	if useFinal || crossingCounter == 0 {
		last := timing[len(timing)-1]
		return last.Iteration, last.ElapsedSeconds, true
	}
	// Counters are non-decreasing, so a lower-bound search is valid.
	i := sort.Search(len(timing), func(i int) bool {
		return timing[i].Counter >= crossingCounter
	})
	if i == len(timing) {
		// The crossing exceeds every recorded checkpoint; degrade to
		// the run-final sample.
		i = len(timing) - 1
	}
	return timing[i].Iteration, timing[i].ElapsedSeconds, true
}

// JoinResult maps a detector result onto a timing series. A result that
// never converged is joined at the run-final checkpoint.
func JoinResult(res model.ConvergenceResult, timing model.TimingSeries) model.JoinedConvergence {
	joined := model.JoinedConvergence{ConvergenceResult: res}
	iteration, elapsed, ok := Join(timing, res.CrossingCounter, !res.Converged)
	if !ok {
		return joined
	}
	joined.Iteration = &iteration
	joined.ElapsedSeconds = &elapsed
	return joined
}
