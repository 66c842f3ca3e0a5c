package strategies

import (
	"context"
	"fmt"
	"math"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/indicators"
)

// TrendName is the registry name of the trend filter source.
const TrendName = "trend"

// TrendConfig holds parameters for the trend filter.
type TrendConfig struct {
	ShortTermMAPeriod int     // e.g., 10
	LongTermMAPeriod  int     // e.g., 30
	EMAPeriod         int     // e.g., 20
	RSIPeriod         int     // e.g., 14
	RSIOverbought     float64 // e.g., 70.0
}

// DefaultTrendConfig returns the standard trend filter parameters.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		ShortTermMAPeriod: 10,
		LongTermMAPeriod:  30,
		EMAPeriod:         20,
		RSIPeriod:         14,
		RSIOverbought:     70,
	}
}

// Trend buys on the first bar where the close is above both averages, the
// averages are stacked upward, the close is above the EMA and RSI is below the
// overbought line. It sells on the first close below the EMA.
type Trend struct {
	*BaseStrategy
	cfg TrendConfig
}

// NewTrend creates a new trend filter.
func NewTrend(cfg TrendConfig, logger ports.Logger) (*Trend, error) {
	base, err := NewBaseStrategy(logger)
	if err != nil {
		return nil, err
	}
	if cfg.ShortTermMAPeriod <= 0 || cfg.LongTermMAPeriod <= 0 || cfg.EMAPeriod <= 0 || cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("strategy periods must be positive")
	}
	if cfg.ShortTermMAPeriod >= cfg.LongTermMAPeriod {
		return nil, fmt.Errorf("short term MA period must be less than long term MA period")
	}
	if cfg.RSIOverbought <= 0 || cfg.RSIOverbought > 100 {
		return nil, fmt.Errorf("RSI overbought level must be in (0, 100]")
	}
	return &Trend{BaseStrategy: base, cfg: cfg}, nil
}

// NewTrendFromParams reads short_period, long_period, ema_period, rsi_period
// and rsi_overbought.
func NewTrendFromParams(params Params, logger ports.Logger) (ports.SignalSource, error) {
	cfg := DefaultTrendConfig()
	var err error
	if cfg.ShortTermMAPeriod, err = params.Int("short_period", cfg.ShortTermMAPeriod); err != nil {
		return nil, err
	}
	if cfg.LongTermMAPeriod, err = params.Int("long_period", cfg.LongTermMAPeriod); err != nil {
		return nil, err
	}
	if cfg.EMAPeriod, err = params.Int("ema_period", cfg.EMAPeriod); err != nil {
		return nil, err
	}
	if cfg.RSIPeriod, err = params.Int("rsi_period", cfg.RSIPeriod); err != nil {
		return nil, err
	}
	if cfg.RSIOverbought, err = params.Float("rsi_overbought", cfg.RSIOverbought); err != nil {
		return nil, err
	}
	return NewTrend(cfg, logger)
}

func (s *Trend) Name() string { return TrendName }

// RequiredDataPoints is the longest lookback plus one bar to detect the edge.
func (s *Trend) RequiredDataPoints() int {
	maxPeriod := s.cfg.LongTermMAPeriod
	if s.cfg.EMAPeriod > maxPeriod {
		maxPeriod = s.cfg.EMAPeriod
	}
	// RSI needs one extra bar for its first change
	if s.cfg.RSIPeriod+1 > maxPeriod {
		maxPeriod = s.cfg.RSIPeriod + 1
	}
	return maxPeriod + 1
}

func (s *Trend) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	closes := indicators.Closes(bars)
	shortMA := indicators.SMAOf(closes, s.cfg.ShortTermMAPeriod)
	longMA := indicators.SMAOf(closes, s.cfg.LongTermMAPeriod)
	ema := indicators.EMAOf(closes, s.cfg.EMAPeriod)
	rsi := indicators.RSIOf(closes, s.cfg.RSIPeriod)

	entry := func(i int) bool {
		if math.IsNaN(shortMA[i]) || math.IsNaN(longMA[i]) || math.IsNaN(ema[i]) || math.IsNaN(rsi[i]) {
			return false
		}
		c := closes[i]
		isTrendingUp := c > shortMA[i] && c > longMA[i] && shortMA[i] > longMA[i]
		return isTrendingUp && c > ema[i] && rsi[i] < s.cfg.RSIOverbought
	}
	belowEMA := func(i int) bool {
		return !math.IsNaN(ema[i]) && closes[i] < ema[i]
	}

	signals := holdSignals(len(bars))
	for i := 1; i < len(bars); i++ {
		switch {
		case belowEMA(i) && !belowEMA(i-1) && !math.IsNaN(ema[i-1]):
			signals[i] = domain.SignalSell
		case entry(i) && !entry(i-1):
			signals[i] = domain.SignalBuy
		}
	}
	s.logCounts(ctx, TrendName, signals)
	return signals, nil
}
