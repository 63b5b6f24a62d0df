package model

import "strings"

// AlgorithmID is the closed set of estimation algorithms that appear in
// experiment names. Display attributes are resolved from this set at
// configuration time instead of ad hoc string lookups.
type AlgorithmID int

// Known algorithms.
const (
	AlgorithmUnknown AlgorithmID = iota
	AlgorithmASAPP
	AlgorithmDGS
	AlgorithmGeodesicMESA
	AlgorithmCBS
)

// AllAlgorithms lists every known algorithm, excluding unknown.
func AllAlgorithms() []AlgorithmID {
	return []AlgorithmID{AlgorithmASAPP, AlgorithmDGS, AlgorithmGeodesicMESA, AlgorithmCBS}
}

// ParseAlgorithmID maps an experiment-name label to an AlgorithmID.
// Unrecognized labels map to AlgorithmUnknown.
func ParseAlgorithmID(s string) AlgorithmID {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asapp":
		return AlgorithmASAPP
	case "dgs":
		return AlgorithmDGS
	case "geodesic-mesa", "mesa":
		return AlgorithmGeodesicMESA
	case "cbs":
		return AlgorithmCBS
	default:
		return AlgorithmUnknown
	}
}

// String returns the canonical label used in experiment names and output.
func (a AlgorithmID) String() string {
	switch a {
	case AlgorithmASAPP:
		return "asapp"
	case AlgorithmDGS:
		return "dgs"
	case AlgorithmGeodesicMESA:
		return "geodesic-mesa"
	case AlgorithmCBS:
		return "cbs"
	default:
		return "unknown"
	}
}

// DisplayAttrs holds the resolved display attributes for an algorithm.
type DisplayAttrs struct {
	Label string
	Color string
}
