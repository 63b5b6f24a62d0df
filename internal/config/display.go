package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mikexyl/mesa/internal/model"
)

// Colors accepted in display overrides; the plot renderer knows how to
// draw each of them.
var knownColors = map[string]struct{}{
	"red":     {},
	"green":   {},
	"yellow":  {},
	"blue":    {},
	"magenta": {},
	"purple":  {},
	"cyan":    {},
	"white":   {},
}

var defaultDisplay = map[model.AlgorithmID]model.DisplayAttrs{
	model.AlgorithmASAPP:        {Label: "asapp", Color: "red"},
	model.AlgorithmDGS:          {Label: "dgs", Color: "blue"},
	model.AlgorithmGeodesicMESA: {Label: "geodesic-mesa", Color: "green"},
	model.AlgorithmCBS:          {Label: "cbs", Color: "purple"},
	model.AlgorithmUnknown:      {Label: "unknown", Color: "white"},
}

// ResolveDisplay builds the algorithm display map, applying config
// overrides. Overrides are validated against the closed algorithm set
// and the known color names; an unknown key is a configuration error,
// not a silent default.
func ResolveDisplay(cfg DisplayConfig) (map[model.AlgorithmID]model.DisplayAttrs, error) {
	display := make(map[model.AlgorithmID]model.DisplayAttrs, len(defaultDisplay))
	for alg, attrs := range defaultDisplay {
		display[alg] = attrs
	}
	for label, color := range cfg.Colors {
		alg := model.ParseAlgorithmID(label)
		if alg == model.AlgorithmUnknown {
			return nil, fmt.Errorf("unknown algorithm %q in display config (known: %s)", label, knownAlgorithmLabels())
		}
		color = strings.ToLower(strings.TrimSpace(color))
		if _, ok := knownColors[color]; !ok {
			return nil, fmt.Errorf("unknown color %q for algorithm %q (known: %s)", color, label, knownColorNames())
		}
		attrs := display[alg]
		attrs.Color = color
		display[alg] = attrs
	}
	return display, nil
}

func knownAlgorithmLabels() string {
	labels := make([]string, 0, len(defaultDisplay))
	for _, alg := range model.AllAlgorithms() {
		labels = append(labels, alg.String())
	}
	return strings.Join(labels, ", ")
}

func knownColorNames() string {
	names := make([]string, 0, len(knownColors))
	for name := range knownColors {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
