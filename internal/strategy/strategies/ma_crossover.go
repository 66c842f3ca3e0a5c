package strategies

import (
	"context"
	"fmt"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/indicators"
)

// MACrossoverName is the registry name of the moving average crossover source.
const MACrossoverName = "ma_crossover"

// MACrossoverConfig holds configuration for the MA Crossover strategy
type MACrossoverConfig struct {
	FastMAPeriod int                          // Fast MA period (e.g., 5)
	SlowMAPeriod int                          // Slow MA period (e.g., 20)
	Type         indicators.MovingAverageType // SMA by default
}

// DefaultMACrossoverConfig returns a 5/20 SMA crossover.
func DefaultMACrossoverConfig() MACrossoverConfig {
	return MACrossoverConfig{FastMAPeriod: 5, SlowMAPeriod: 20, Type: indicators.SimpleMovingAverage}
}

// MACrossover emits BUY when the fast average crosses above the slow one and
// SELL when it crosses below.
type MACrossover struct {
	*BaseStrategy
	config MACrossoverConfig
	fastMA *indicators.MovingAverage
	slowMA *indicators.MovingAverage
}

// NewMACrossover creates a new MA Crossover strategy instance
func NewMACrossover(config MACrossoverConfig, logger ports.Logger) (*MACrossover, error) {
	base, err := NewBaseStrategy(logger)
	if err != nil {
		return nil, err
	}
	if config.FastMAPeriod <= 0 || config.SlowMAPeriod <= 0 {
		return nil, fmt.Errorf("strategy periods must be positive")
	}
	if config.FastMAPeriod >= config.SlowMAPeriod {
		return nil, fmt.Errorf("fast MA period must be less than slow MA period")
	}
	if config.Type == "" {
		config.Type = indicators.SimpleMovingAverage
	}

	fastMA, err := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: config.FastMAPeriod},
		Type:            config.Type,
	})
	if err != nil {
		return nil, err
	}
	slowMA, err := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: config.SlowMAPeriod},
		Type:            config.Type,
	})
	if err != nil {
		return nil, err
	}

	return &MACrossover{
		BaseStrategy: base,
		config:       config,
		fastMA:       fastMA,
		slowMA:       slowMA,
	}, nil
}

// NewMACrossoverFromParams reads fast_period, slow_period and ma_type.
func NewMACrossoverFromParams(params Params, logger ports.Logger) (ports.SignalSource, error) {
	cfg := DefaultMACrossoverConfig()
	var err error
	if cfg.FastMAPeriod, err = params.Int("fast_period", cfg.FastMAPeriod); err != nil {
		return nil, err
	}
	if cfg.SlowMAPeriod, err = params.Int("slow_period", cfg.SlowMAPeriod); err != nil {
		return nil, err
	}
	if t, ok := params["ma_type"].(string); ok {
		cfg.Type = indicators.MovingAverageType(t)
	}
	return NewMACrossover(cfg, logger)
}

// Name returns the name of the strategy
func (m *MACrossover) Name() string {
	return MACrossoverName
}

// RequiredDataPoints returns the bars needed before the first cross can be seen.
func (m *MACrossover) RequiredDataPoints() int {
	return m.slowMA.RequiredDataPoints() + 1
}

func (m *MACrossover) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fast, err := m.fastMA.Series(bars)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate %s: %w", m.fastMA.Name(), err)
	}
	slow, err := m.slowMA.Series(bars)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate %s: %w", m.slowMA.Name(), err)
	}

	signals := holdSignals(len(bars))
	for i := range bars {
		switch {
		case indicators.CrossedAbove(fast, slow, i):
			signals[i] = domain.SignalBuy
		case indicators.CrossedBelow(fast, slow, i):
			signals[i] = domain.SignalSell
		}
	}
	m.logCounts(ctx, MACrossoverName, signals)
	return signals, nil
}
