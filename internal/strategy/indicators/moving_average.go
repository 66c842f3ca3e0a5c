package indicators

import (
	"context"
	"fmt"

	"aShareBacktest/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

func errNotEnoughData(name string, n int) error {
	return fmt.Errorf("not enough data (%d) to calculate %s", n, name)
}

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA over closing prices
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) (*MovingAverage, error) {
	if config.Period <= 0 {
		return nil, fmt.Errorf("moving average period must be positive, got %d", config.Period)
	}
	switch config.Type {
	case SimpleMovingAverage, ExponentialMovingAverage:
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", config.Type)
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}, nil
}

// Name returns the name of the indicator, e.g. "SMA20".
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s%d", m.config.Type, m.Config.Period)
}

// Series computes the moving average at every bar.
func (m *MovingAverage) Series(bars []domain.Bar) ([]float64, error) {
	closes := Closes(bars)
	if m.config.Type == ExponentialMovingAverage {
		return EMAOf(closes, m.Config.Period), nil
	}
	return SMAOf(closes, m.Config.Period), nil
}

// Calculate computes the moving average at the last bar.
func (m *MovingAverage) Calculate(ctx context.Context, bars []domain.Bar) (float64, error) {
	if len(bars) < m.Config.Period {
		return 0, errNotEnoughData(m.Name(), len(bars))
	}
	series, err := m.Series(bars)
	if err != nil {
		return 0, err
	}
	return last(series, m.Name())
}
