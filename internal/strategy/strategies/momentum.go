package strategies

import (
	"context"
	"fmt"
	"math"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/indicators"
)

// MomentumName is the registry name of the momentum source.
const MomentumName = "momentum"

// MomentumConfig holds the momentum strategy thresholds.
type MomentumConfig struct {
	RSIPeriod        int     // e.g., 14
	RSIOversold      float64 // e.g., 30
	RSIOverbought    float64 // e.g., 70
	RSIRecovery      float64 // RSI level that counts as recovered from oversold, e.g. 40
	MACD             indicators.MACDConfig
	VolumeMAPeriod   int     // e.g., 5
	VolumeSurge      float64 // volume must exceed its average by this factor, e.g. 2.0
	TrendMAPeriod    int     // e.g., 20
	MinBuyConditions int     // buy conditions that must hold at once, e.g. 3
}

// DefaultMomentumConfig returns the standard short-term momentum setup.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		RSIPeriod:        14,
		RSIOversold:      30,
		RSIOverbought:    70,
		RSIRecovery:      40,
		MACD:             indicators.MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		VolumeMAPeriod:   5,
		VolumeSurge:      2.0,
		TrendMAPeriod:    20,
		MinBuyConditions: 3,
	}
}

// Momentum scores four buy conditions per bar: RSI recovering from oversold,
// a MACD golden cross, a volume surge and a close above the trend average.
// It buys when enough of them hold. RSI overbought or a MACD death cross
// sells, and a sell overrides a buy on the same bar.
type Momentum struct {
	*BaseStrategy
	config MomentumConfig
	rsi    *indicators.RSI
	macd   *indicators.MACD
}

// NewMomentum creates a momentum strategy instance.
func NewMomentum(config MomentumConfig, logger ports.Logger) (*Momentum, error) {
	base, err := NewBaseStrategy(logger)
	if err != nil {
		return nil, err
	}
	if config.VolumeMAPeriod <= 0 || config.TrendMAPeriod <= 0 {
		return nil, fmt.Errorf("volume and trend MA periods must be positive")
	}
	if config.VolumeSurge <= 0 {
		return nil, fmt.Errorf("volume surge ratio must be positive, got %f", config.VolumeSurge)
	}
	if config.MinBuyConditions < 1 || config.MinBuyConditions > 4 {
		return nil, fmt.Errorf("min buy conditions must be between 1 and 4, got %d", config.MinBuyConditions)
	}
	rsi, err := indicators.NewRSI(indicators.RSIConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: config.RSIPeriod},
		Overbought:      config.RSIOverbought,
		Oversold:        config.RSIOversold,
	})
	if err != nil {
		return nil, err
	}
	macd, err := indicators.NewMACD(config.MACD)
	if err != nil {
		return nil, err
	}
	return &Momentum{BaseStrategy: base, config: config, rsi: rsi, macd: macd}, nil
}

// NewMomentumFromParams overlays params on the default configuration.
func NewMomentumFromParams(params Params, logger ports.Logger) (ports.SignalSource, error) {
	cfg := DefaultMomentumConfig()
	ints := []struct {
		key string
		dst *int
	}{
		{"rsi_period", &cfg.RSIPeriod},
		{"macd_fast", &cfg.MACD.FastPeriod},
		{"macd_slow", &cfg.MACD.SlowPeriod},
		{"macd_signal", &cfg.MACD.SignalPeriod},
		{"volume_ma_period", &cfg.VolumeMAPeriod},
		{"trend_ma_period", &cfg.TrendMAPeriod},
		{"min_buy_conditions", &cfg.MinBuyConditions},
	}
	for _, p := range ints {
		v, err := params.Int(p.key, *p.dst)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"rsi_oversold", &cfg.RSIOversold},
		{"rsi_overbought", &cfg.RSIOverbought},
		{"rsi_recovery", &cfg.RSIRecovery},
		{"volume_surge_ratio", &cfg.VolumeSurge},
	}
	for _, p := range floats {
		v, err := params.Float(p.key, *p.dst)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}
	return NewMomentum(cfg, logger)
}

func (m *Momentum) Name() string { return MomentumName }

// RequiredDataPoints returns the longest warm-up among the indicators, plus
// one bar for the cross checks.
func (m *Momentum) RequiredDataPoints() int {
	n := m.macd.RequiredDataPoints()
	for _, p := range []int{m.rsi.RequiredDataPoints(), m.config.TrendMAPeriod, m.config.VolumeMAPeriod} {
		if p > n {
			n = p
		}
	}
	return n + 1
}

func (m *Momentum) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	closes := indicators.Closes(bars)
	volumes := indicators.Volumes(bars)
	rsi, err := m.rsi.Series(bars)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate RSI: %w", err)
	}
	macd := m.macd.Compute(bars)
	trend := indicators.SMAOf(closes, m.config.TrendMAPeriod)
	volMA := indicators.SMAOf(volumes, m.config.VolumeMAPeriod)

	signals := holdSignals(len(bars))
	var rsiRecoveries, goldenCrosses, surges, breakouts int
	for i := range bars {
		met := 0
		if i > 0 && rsi[i-1] < m.config.RSIOversold && rsi[i] > m.config.RSIRecovery {
			met++
			rsiRecoveries++
		}
		if strictCross(macd.MACD, macd.Signal, i, true) {
			met++
			goldenCrosses++
		}
		if !math.IsNaN(volMA[i]) && volumes[i] > volMA[i]*m.config.VolumeSurge {
			met++
			surges++
		}
		if !math.IsNaN(trend[i]) && closes[i] > trend[i] {
			met++
			breakouts++
		}
		if met >= m.config.MinBuyConditions {
			signals[i] = domain.SignalBuy
		}

		if rsi[i] > m.config.RSIOverbought || strictCross(macd.MACD, macd.Signal, i, false) {
			signals[i] = domain.SignalSell
		}
	}

	m.logger.Debug(ctx, "Momentum buy conditions", map[string]interface{}{
		"rsiRecoveries": rsiRecoveries,
		"goldenCrosses": goldenCrosses,
		"volumeSurges":  surges,
		"trendBreaks":   breakouts,
	})
	m.logCounts(ctx, MomentumName, signals)
	return signals, nil
}

// strictCross reports a cross at i where the lines were strictly on the other
// side at i-1. NaN values never cross.
func strictCross(line, signal []float64, i int, up bool) bool {
	if i < 1 {
		return false
	}
	prevLine, prevSig, curLine, curSig := line[i-1], signal[i-1], line[i], signal[i]
	if math.IsNaN(prevLine) || math.IsNaN(prevSig) || math.IsNaN(curLine) || math.IsNaN(curSig) {
		return false
	}
	if up {
		return prevLine < prevSig && curLine > curSig
	}
	return prevLine > prevSig && curLine < curSig
}
