package indicators

import (
	"context"
	"fmt"

	"aShareBacktest/internal/domain"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSI implements the Relative Strength Index indicator
type RSI struct {
	BaseIndicator
	config RSIConfig
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) (*RSI, error) {
	if config.Period <= 0 {
		return nil, fmt.Errorf("RSI period must be positive, got %d", config.Period)
	}
	if config.Oversold >= config.Overbought {
		return nil, fmt.Errorf("RSI oversold (%f) must be below overbought (%f)", config.Oversold, config.Overbought)
	}
	return &RSI{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}, nil
}

// Name returns the name of the indicator
func (r *RSI) Name() string {
	return "RSI"
}

// RequiredDataPoints returns period+1: RSI needs period price changes.
func (r *RSI) RequiredDataPoints() int {
	return r.Config.Period + 1
}

// Series computes RSI at every bar using Wilder's smoothing.
func (r *RSI) Series(bars []domain.Bar) ([]float64, error) {
	return RSIOf(Closes(bars), r.Config.Period), nil
}

// Calculate computes RSI at the last bar.
func (r *RSI) Calculate(ctx context.Context, bars []domain.Bar) (float64, error) {
	if len(bars) <= r.Config.Period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(bars), r.Config.Period)
	}
	return last(RSIOf(Closes(bars), r.Config.Period), r.Name())
}

// RSIOf computes Wilder's RSI over values. The first defined value is at index period.
func RSIOf(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // Neutral if no change
		}
		return 100
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	switch {
	case rsi > 100:
		return 100
	case rsi < 0:
		return 0
	}
	return rsi
}

// IsOverbought checks if the RSI value indicates an overbought condition
func (r *RSI) IsOverbought(value float64) bool {
	return value > r.config.Overbought
}

// IsOversold checks if the RSI value indicates an oversold condition
func (r *RSI) IsOversold(value float64) bool {
	return value < r.config.Oversold
}
