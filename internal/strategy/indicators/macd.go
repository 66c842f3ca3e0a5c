package indicators

import (
	"fmt"

	"aShareBacktest/internal/domain"
)

// MACDConfig holds the three MACD periods.
type MACDConfig struct {
	FastPeriod   int // e.g., 12
	SlowPeriod   int // e.g., 26
	SignalPeriod int // e.g., 9
}

// MACDSeries holds the MACD line, its signal line and the histogram.
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD implements the moving average convergence/divergence indicator.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance.
func NewMACD(config MACDConfig) (*MACD, error) {
	if config.FastPeriod <= 0 || config.SlowPeriod <= 0 || config.SignalPeriod <= 0 {
		return nil, fmt.Errorf("MACD periods must be positive: %+v", config)
	}
	if config.FastPeriod >= config.SlowPeriod {
		return nil, fmt.Errorf("MACD fast period %d must be less than slow period %d", config.FastPeriod, config.SlowPeriod)
	}
	return &MACD{config: config}, nil
}

// Name returns the name of the indicator
func (m *MACD) Name() string { return "MACD" }

// RequiredDataPoints returns the bars needed before the signal line is defined.
func (m *MACD) RequiredDataPoints() int {
	return m.config.SlowPeriod + m.config.SignalPeriod - 1
}

// Compute returns all three MACD series for bars.
func (m *MACD) Compute(bars []domain.Bar) MACDSeries {
	closes := Closes(bars)
	fast := EMAOf(closes, m.config.FastPeriod)
	slow := EMAOf(closes, m.config.SlowPeriod)

	line := nanSeries(len(closes))
	for i := range closes {
		if !anyNaN(fast[i], slow[i]) {
			line[i] = fast[i] - slow[i]
		}
	}
	signal := EMAOf(line, m.config.SignalPeriod)
	hist := nanSeries(len(closes))
	for i := range closes {
		if !anyNaN(line[i], signal[i]) {
			hist[i] = line[i] - signal[i]
		}
	}
	return MACDSeries{MACD: line, Signal: signal, Histogram: hist}
}
