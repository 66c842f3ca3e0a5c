package risk

import (
	"fmt"
	"math"

	"aShareBacktest/internal/domain"
)

// RiskConfig holds the exit thresholds and position sizing of a run.
type RiskConfig struct {
	StopLossPercent     float64 // Loss ratio that triggers a stop-loss exit
	TakeProfitPercent   float64 // Profit ratio that triggers a take-profit exit
	MaxHoldingDays      int     // Exit once calendar days held exceed this
	PositionSizePercent float64 // Fraction of cash committed on entry
}

// DefaultRiskConfig returns the standard thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		StopLossPercent:     0.08,
		TakeProfitPercent:   0.15,
		MaxHoldingDays:      10,
		PositionSizePercent: 0.95,
	}
}

// Validate checks that thresholds are in range.
func (c RiskConfig) Validate() error {
	if c.StopLossPercent <= 0 || c.StopLossPercent >= 1 {
		return fmt.Errorf("stop loss must be in (0, 1), got %f", c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("take profit must be positive, got %f", c.TakeProfitPercent)
	}
	if c.MaxHoldingDays <= 0 {
		return fmt.Errorf("max holding days must be positive, got %d", c.MaxHoldingDays)
	}
	if c.PositionSizePercent <= 0 || c.PositionSizePercent > 1 {
		return fmt.Errorf("position size percent must be in (0, 1], got %f", c.PositionSizePercent)
	}
	return nil
}

// RiskManager evaluates entry sizing and exit rules. It holds no mutable state
// and may be shared by concurrent runs.
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance.
func NewRiskManager(config RiskConfig) (*RiskManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RiskManager{config: config}, nil
}

// Config returns a copy of the manager's configuration.
func (r *RiskManager) Config() RiskConfig {
	return r.config
}

// GetPositionSize returns the whole-lot share count affordable with the
// configured fraction of cash at price.
func (r *RiskManager) GetPositionSize(cash, price float64) int64 {
	if cash <= 0 || price <= 0 {
		return 0
	}
	raw := math.Floor(cash * r.config.PositionSizePercent / price)
	return domain.RoundDownToLot(int64(raw))
}

// GetStopLoss returns the price at which the stop-loss fires for a long entry.
func (r *RiskManager) GetStopLoss(entryPrice float64) float64 {
	return entryPrice * (1 - r.config.StopLossPercent)
}

// GetTakeProfit returns the price at which the take-profit fires for a long entry.
func (r *RiskManager) GetTakeProfit(entryPrice float64) float64 {
	return entryPrice * (1 + r.config.TakeProfitPercent)
}

// StopLossHit reports whether the loss ratio at price has reached the threshold.
// A non-positive price is treated as a hit.
func (r *RiskManager) StopLossHit(entryPrice, price float64) bool {
	if price <= 0 {
		return true
	}
	if entryPrice <= 0 {
		return false
	}
	return (entryPrice-price)/entryPrice >= r.config.StopLossPercent
}

// TakeProfitHit reports whether the profit ratio at price has reached the threshold.
func (r *RiskManager) TakeProfitHit(entryPrice, price float64) bool {
	if entryPrice <= 0 {
		return false
	}
	return (price-entryPrice)/entryPrice >= r.config.TakeProfitPercent
}

// HoldingExpired reports whether the position has been held longer than allowed.
func (r *RiskManager) HoldingExpired(pos *domain.Position, bar domain.Bar) bool {
	return domain.DaysBetween(pos.EntryDate, bar.Date) > r.config.MaxHoldingDays
}

// CheckExit evaluates the exit rules for an open position in fixed precedence:
// SELL signal, stop-loss, take-profit, holding period. The first match wins.
// The caller is responsible for the T+1 gate.
func (r *RiskManager) CheckExit(pos *domain.Position, bar domain.Bar, signal domain.Signal) (bool, domain.CloseReason) {
	if pos == nil {
		return false, ""
	}
	switch {
	case signal == domain.SignalSell:
		return true, domain.CloseReasonSignal
	case r.StopLossHit(pos.EntryPrice, bar.Close):
		return true, domain.CloseReasonStopLoss
	case r.TakeProfitHit(pos.EntryPrice, bar.Close):
		return true, domain.CloseReasonTakeProfit
	case r.HoldingExpired(pos, bar):
		return true, domain.CloseReasonTimeLimit
	default:
		return false, ""
	}
}
