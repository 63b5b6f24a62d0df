package batch

import (
	"regexp"
	"strconv"

	"github.com/mikexyl/mesa/internal/model"
)

// Experiment folders are named like grid_15_15_geodesic-mesa_2025-08-03_18-44-06.
var (
	algorithmPattern = regexp.MustCompile(`_([^_]+)_\d{4}-\d{2}-\d{2}`)
	gridPattern      = regexp.MustCompile(`grid_(\d+)_(\d+)_`)
)

// NameParts holds labels extracted from an experiment folder name.
type NameParts struct {
	Algorithm  model.AlgorithmID
	Label      string
	Grid       string
	RobotCount int
}

// ParseName extracts the algorithm label and grid dimensions from an
// experiment folder name. Missing parts are left zero-valued; the
// robot count is the first grid dimension.
func ParseName(name string) NameParts {
	parts := NameParts{Algorithm: model.AlgorithmUnknown}
	if m := algorithmPattern.FindStringSubmatch(name); m != nil {
		parts.Label = m[1]
		parts.Algorithm = model.ParseAlgorithmID(m[1])
	}
	if m := gridPattern.FindStringSubmatch(name); m != nil {
		parts.Grid = m[1] + "_" + m[2]
		if n, err := strconv.Atoi(m[1]); err == nil {
			parts.RobotCount = n
		}
	}
	return parts
}
