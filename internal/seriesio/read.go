// Package seriesio parses experiment output files into typed series.
package seriesio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mikexyl/mesa/internal/model"
)

// ReadRecords parses a residual-and-errors file: four whitespace
// separated numeric columns per line (counter residual position
// rotation). Malformed rows are skipped and counted, not fatal. A file
// with no valid rows yields ErrEmptySeries.
func ReadRecords(r io.Reader) ([]model.Record, int, error) {
	var records []model.Record
	skipped := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			skipped++
			continue
		}
		counter, ok := parseCounter(fields[0])
		if !ok {
			skipped++
			continue
		}
		values, ok := parseFloats(fields[1:])
		if !ok {
			skipped++
			continue
		}
		records = append(records, model.Record{
			Counter:  counter,
			Residual: values[0],
			Position: values[1],
			Rotation: values[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	if len(records) == 0 {
		return nil, skipped, model.ErrEmptySeries
	}
	return records, skipped, nil
}

// ReadTimings parses an iteration-timing file: three whitespace
// separated numeric columns per line (iteration elapsed_seconds
// counter). Lines starting with # are comments. An empty timing series
// is not an error; the joiner treats it as no timing data.
func ReadTimings(r io.Reader) (model.TimingSeries, int, error) {
	var timings model.TimingSeries
	skipped := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			skipped++
			continue
		}
		iteration, okIter := parseCounter(fields[0])
		elapsed, errElapsed := strconv.ParseFloat(fields[1], 64)
		counter, okCounter := parseCounter(fields[2])
		if !okIter || errElapsed != nil || !okCounter || elapsed < 0 {
			skipped++
			continue
		}
		timings = append(timings, model.TimingSample{
			Iteration:      iteration,
			ElapsedSeconds: elapsed,
			Counter:        counter,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return timings, skipped, nil
}

// LoadRecords reads a residual-and-errors file from disk. An absent
// file is reported as ErrMissingFile so batch callers can skip it.
func LoadRecords(path string) ([]model.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%s: %w", path, model.ErrMissingFile)
		}
		return nil, 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()
	return ReadRecords(f)
}

// LoadTimings reads an iteration-timing file from disk. An absent file
// is reported as ErrMissingFile; callers treat it as no timing data.
func LoadTimings(path string) (model.TimingSeries, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%s: %w", path, model.ErrMissingFile)
		}
		return nil, 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()
	return ReadTimings(f)
}

// parseCounter accepts integer counters, including ones written in
// float notation by the producing pipeline.
func parseCounter(s string) (uint64, bool) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

func parseFloats(fields []string) ([]float64, bool) {
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
