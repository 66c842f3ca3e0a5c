package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"aShareBacktest/internal/strategy/optimization"
)

// parseRanges parses "name=min:max:step,..." into parameter ranges. A range
// whose bounds and step are all whole numbers is treated as an integer range.
func parseRanges(s string) ([]optimization.ParameterRange, error) {
	var ranges []optimization.ParameterRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, bounds, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid range %q: want name=min:max:step", part)
		}
		fields := strings.Split(bounds, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid range %q: want name=min:max:step", part)
		}
		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			vals[i] = v
		}
		ranges = append(ranges, optimization.ParameterRange{
			Name:  strings.TrimSpace(name),
			Min:   vals[0],
			Max:   vals[1],
			Step:  vals[2],
			IsInt: isWhole(vals[0]) && isWhole(vals[1]) && isWhole(vals[2]),
		})
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no parameter ranges given")
	}
	return ranges, nil
}

func isWhole(v float64) bool { return v == math.Trunc(v) }

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
