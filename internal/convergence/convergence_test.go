package convergence

import (
	"errors"
	"math"
	"testing"

	"github.com/mikexyl/mesa/internal/model"
)

func TestDetectFirstCrossing(t *testing.T) {
	series := model.ErrorSeries{
		{Counter: 0, Metric: 10},
		{Counter: 100, Metric: 5},
		{Counter: 200, Metric: 1},
		{Counter: 300, Metric: 1},
	}
	res, err := Detect(series, 1, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence")
	}
	if res.CrossingCounter != 200 {
		t.Fatalf("expected crossing at counter 200, got %d", res.CrossingCounter)
	}
	if math.Abs(res.RatioOfFinal-200.0/300.0) > 1e-9 {
		t.Fatalf("unexpected ratio: %g", res.RatioOfFinal)
	}
}

func TestDetectConstantSeries(t *testing.T) {
	series := model.ErrorSeries{
		{Counter: 10, Metric: 3.5},
		{Counter: 20, Metric: 3.5},
		{Counter: 30, Metric: 3.5},
	}
	res, err := Detect(series, 0, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !res.Converged || res.CrossingCounter != 10 {
		t.Fatalf("constant series should cross at the first sample, got %+v", res)
	}
}

func TestDetectZeroThreshold(t *testing.T) {
	series := model.ErrorSeries{
		{Counter: 1, Metric: 2},
		{Counter: 2, Metric: 1.5},
		{Counter: 3, Metric: 1},
	}
	res, err := Detect(series, 0, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !res.Converged || res.CrossingCounter != 3 {
		t.Fatalf("zero threshold should cross only at the final value, got %+v", res)
	}
	if res.RatioOfFinal != 1 {
		t.Fatalf("expected ratio 1, got %g", res.RatioOfFinal)
	}
}

func TestDetectFallbackWithoutCrossing(t *testing.T) {
	// A negative final value pushes the threshold below every sample,
	// including the final one: -1 > -1.01. No crossing exists, so the
	// result degrades to the whole run.
	series := model.ErrorSeries{
		{Counter: 5, Metric: 100},
		{Counter: 10, Metric: 50},
		{Counter: 15, Metric: -1},
	}
	res, err := Detect(series, 1, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Converged {
		t.Fatalf("expected no convergence, got %+v", res)
	}
	if res.CrossingCounter != 15 {
		t.Fatalf("fallback should report the final counter, got %d", res.CrossingCounter)
	}
	if res.RatioOfFinal != 1 {
		t.Fatalf("fallback ratio should be 1, got %g", res.RatioOfFinal)
	}
}

func TestDetectMatchesBruteForce(t *testing.T) {
	series := model.ErrorSeries{}
	metric := 512.0
	for i := 0; i < 20; i++ {
		series = append(series, model.ErrorSample{Counter: uint64(i * 7), Metric: metric})
		metric *= 0.6
	}
	for _, pct := range []float64{0, 0.5, 1, 5, 25, 100} {
		res, err := Detect(series, pct, MonotonicUpperBound)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		final := series[len(series)-1].Metric
		threshold := final * (1 + pct/100)
		want := series[len(series)-1].Counter
		for _, sample := range series {
			if sample.Metric <= threshold {
				want = sample.Counter
				break
			}
		}
		if res.CrossingCounter != want {
			t.Fatalf("pct=%g: expected counter %d, got %d", pct, want, res.CrossingCounter)
		}
	}
}

func TestDetectEmptySeries(t *testing.T) {
	_, err := Detect(nil, 1, MonotonicUpperBound)
	if !errors.Is(err, model.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestDetectZeroFinalCounterRatio(t *testing.T) {
	series := model.ErrorSeries{{Counter: 0, Metric: 1}}
	res, err := Detect(series, 1, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.RatioOfFinal != 0 {
		t.Fatalf("expected ratio 0 when the final counter is 0, got %g", res.RatioOfFinal)
	}
}

func TestDetectSymmetricRelative(t *testing.T) {
	// Approaches the final value from below. The upper-bound strategy
	// would cross immediately; the symmetric one waits for the band.
	series := model.ErrorSeries{
		{Counter: 1, Metric: 0.1},
		{Counter: 2, Metric: 0.5},
		{Counter: 3, Metric: 0.999},
		{Counter: 4, Metric: 1.0},
	}
	upper, err := Detect(series, 1, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if upper.CrossingCounter != 1 {
		t.Fatalf("upper bound should cross at the first sample, got %d", upper.CrossingCounter)
	}
	symmetric, err := Detect(series, 1, SymmetricRelative)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if symmetric.CrossingCounter != 3 {
		t.Fatalf("symmetric strategy should cross at counter 3, got %d", symmetric.CrossingCounter)
	}
}

func TestDetectJoint(t *testing.T) {
	records := []model.Record{
		{Counter: 0, Position: 10, Rotation: 1},
		{Counter: 100, Position: 1, Rotation: 0.9},
		{Counter: 200, Position: 1, Rotation: 0.1},
		{Counter: 300, Position: 1, Rotation: 0.1},
	}
	res, err := DetectJoint(records, 1, MonotonicUpperBound)
	if err != nil {
		t.Fatalf("DetectJoint failed: %v", err)
	}
	if !res.Converged || res.CrossingCounter != 200 {
		t.Fatalf("joint crossing requires both channels, got %+v", res)
	}
}

func TestDetectJointEmpty(t *testing.T) {
	_, err := DetectJoint(nil, 1, MonotonicUpperBound)
	if !errors.Is(err, model.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":                      MonotonicUpperBound,
		"upper":                 MonotonicUpperBound,
		"monotonic-upper-bound": MonotonicUpperBound,
		"symmetric":             SymmetricRelative,
		"Symmetric-Relative":    SymmetricRelative,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		if err != nil {
			t.Fatalf("ParseStrategy(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseStrategy(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseStrategy("bogus"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
