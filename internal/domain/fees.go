package domain

import "fmt"

// LotSize is the minimum tradable unit on A-share exchanges.
const LotSize int64 = 100

// RoundDownToLot rounds a share count down to a whole number of lots.
// Negative input yields zero.
func RoundDownToLot(shares int64) int64 {
	if shares <= 0 {
		return 0
	}
	return shares / LotSize * LotSize
}

// CommissionSchedule holds the fee parameters of a run. It is an immutable
// configuration value.
type CommissionSchedule struct {
	Rate          float64 // Brokerage commission, charged both ways
	MinimumFee    float64 // Floor on the brokerage commission per order
	StampDutyRate float64 // Charged on sells only
}

// DefaultCommissionSchedule returns the standard A-share retail fee schedule.
func DefaultCommissionSchedule() CommissionSchedule {
	return CommissionSchedule{
		Rate:          0.0003,
		MinimumFee:    5.0,
		StampDutyRate: 0.001,
	}
}

// Validate checks the schedule for negative values.
func (c CommissionSchedule) Validate() error {
	if c.Rate < 0 || c.MinimumFee < 0 || c.StampDutyRate < 0 {
		return fmt.Errorf("commission schedule values must be non-negative: %+v", c)
	}
	return nil
}
