package domain

import "time"

// BacktestRun is the persisted summary of one completed backtest.
type BacktestRun struct {
	ID           string    // UUID assigned when the run is saved
	Code         string    // Instrument code
	Strategy     string    // Signal source name
	StartDate    time.Time // First replayed bar
	EndDate      time.Time // Last replayed bar
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64
	AnnualReturn float64
	SharpeRatio  float64
	MaxDrawdown  float64 // Fraction of the running peak, in [0, 1]
	TotalTrades  int
	WinRate      float64
	TotalFees    float64
	Rejections   int
	CreatedAt    time.Time
}
