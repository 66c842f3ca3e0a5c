package domain

import "time"

// Position represents the single open holding of a backtest run.
type Position struct {
	Code            string    // Instrument code (e.g., "600519")
	Shares          int64     // Always a multiple of the lot size
	EntryPrice      float64   // Fill price of the opening buy
	EntryDate       time.Time // Bar date of the opening buy
	EntryCommission float64   // Commission paid on the opening buy
}

// MarketValue returns the position's value at the given price.
func (p *Position) MarketValue(price float64) float64 {
	if p == nil {
		return 0
	}
	return float64(p.Shares) * price
}

// ReturnAt returns the unrealized price return relative to the entry price.
func (p *Position) ReturnAt(price float64) float64 {
	if p == nil || p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice
}
