package domain

import (
	"fmt"
	"strings"
	"time"
)

// Signal is the per-bar label produced by a strategy before replay.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ParseSignal converts a case-insensitive label into a Signal.
func ParseSignal(s string) (Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SignalBuy, nil
	case "SELL":
		return SignalSell, nil
	case "HOLD", "":
		return SignalHold, nil
	default:
		return "", fmt.Errorf("unknown signal %q", s)
	}
}

// SignalSeries is a date-keyed, read-only view of pre-computed signals.
type SignalSeries struct {
	byDate map[string]Signal
}

// NewSignalSeries pairs bars with their signals. Both slices must have equal length.
func NewSignalSeries(bars []Bar, signals []Signal) (*SignalSeries, error) {
	if len(bars) != len(signals) {
		return nil, fmt.Errorf("signal count %d does not match bar count %d", len(signals), len(bars))
	}
	byDate := make(map[string]Signal, len(bars))
	for i, b := range bars {
		byDate[DateKey(b.Date)] = signals[i]
	}
	return &SignalSeries{byDate: byDate}, nil
}

// Lookup returns the signal for the given day, or HOLD when none was produced.
func (s *SignalSeries) Lookup(date time.Time) Signal {
	if s == nil {
		return SignalHold
	}
	if sig, ok := s.byDate[DateKey(date)]; ok {
		return sig
	}
	return SignalHold
}

// Counts returns the number of BUY, SELL and HOLD labels in the series.
func (s *SignalSeries) Counts() (buys, sells, holds int) {
	if s == nil {
		return 0, 0, 0
	}
	for _, sig := range s.byDate {
		switch sig {
		case SignalBuy:
			buys++
		case SignalSell:
			sells++
		default:
			holds++
		}
	}
	return buys, sells, holds
}
