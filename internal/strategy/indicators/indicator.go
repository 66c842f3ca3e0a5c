package indicators

import (
	"context"
	"math"

	"aShareBacktest/internal/domain"
)

// Indicator represents a technical indicator computed over a bar series.
type Indicator interface {
	// Calculate computes the indicator value at the last bar.
	Calculate(ctx context.Context, bars []domain.Bar) (float64, error)

	// Series computes the indicator at every bar. Values before the warm-up
	// period is complete are NaN.
	Series(bars []domain.Bar) ([]float64, error)

	// RequiredDataPoints returns the minimum number of bars needed for calculation
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of bars needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// Closes extracts closing prices.
func Closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts traded volumes.
func Volumes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// last returns the final value of a series, or an error if it is undefined.
func last(series []float64, name string) (float64, error) {
	if len(series) == 0 || math.IsNaN(series[len(series)-1]) {
		return 0, errNotEnoughData(name, len(series))
	}
	return series[len(series)-1], nil
}

// SMAOf returns the simple moving average of values over period.
func SMAOf(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMAOf returns the exponential moving average of values over period, seeded
// with the simple average of the first period defined values. Leading NaNs in
// values are skipped.
func EMAOf(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	multiplier := 2.0 / float64(period+1)
	var seed float64
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[start+period-1] = ema
	for i := start + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// CrossedAbove reports whether a moved from at-or-below b to above b at index i.
func CrossedAbove(a, b []float64, i int) bool {
	if i < 1 || anyNaN(a[i-1], b[i-1], a[i], b[i]) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

// CrossedBelow reports whether a moved from at-or-above b to below b at index i.
func CrossedBelow(a, b []float64, i int) bool {
	if i < 1 || anyNaN(a[i-1], b[i-1], a[i], b[i]) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
