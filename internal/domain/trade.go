package domain

import "time"

// Trade represents a closed round trip. It is immutable once recorded.
type Trade struct {
	ID          int64          // Identifier assigned by a repository (0 in memory)
	RunID       string         // Backtest run the trade belongs to (optional)
	Code        string         // Instrument code
	EntryPrice  float64        // Price at which the position was entered
	ExitPrice   float64        // Price at which the position was exited
	Shares      int64          // Size of the position traded
	PNL         float64        // Net profit and loss after all fees
	Commission  float64        // Buy-side plus sell-side fees
	EntryDate   time.Time      // Bar date of the opening buy
	ExitDate    time.Time      // Bar date of the closing sell
	CloseReason CloseReason    // Why the position was closed
	Status      PositionStatus // Always StatusClosed for recorded trades
}

// HoldingDays returns the calendar days between entry and exit.
func (t Trade) HoldingDays() int {
	return DaysBetween(t.EntryDate, t.ExitDate)
}

// IsWin reports whether the trade made money after fees.
func (t Trade) IsWin() bool { return t.PNL > 0 }

// IsLoss reports whether the trade lost money after fees.
func (t Trade) IsLoss() bool { return t.PNL < 0 }
