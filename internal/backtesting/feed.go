package backtesting

import (
	"fmt"
	"math"
	"time"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

// Feed replays an ordered bar table forward, one bar at a time.
type Feed struct {
	bars      []domain.Bar
	seedClose float64
	hasSeed   bool
	pos       int
}

// NewFeed validates bars and applies the inclusive [start, end] filter. A zero
// start or end leaves that side open. When start drops earlier rows, the close
// of the last dropped row becomes the previous close of the first bar.
func NewFeed(bars []domain.Bar, start, end time.Time) (*Feed, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}

	f := &Feed{pos: -1}
	for _, b := range bars {
		day := domain.CalendarDay(b.Date)
		if !start.IsZero() && day.Before(domain.CalendarDay(start)) {
			f.seedClose = b.Close
			f.hasSeed = true
			continue
		}
		if !end.IsZero() && day.After(domain.CalendarDay(end)) {
			break
		}
		f.bars = append(f.bars, b)
	}

	if len(f.bars) == 0 {
		return nil, fmt.Errorf("%w: %w between %s and %s", ports.ErrConfigurationError, ports.ErrEmptyRange,
			formatBound(start), formatBound(end))
	}
	return f, nil
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return domain.DateKey(t)
}

// ValidateBars checks that the table is non-empty, strictly ascending by
// calendar day, and carries finite positive closes.
func ValidateBars(bars []domain.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: %w: table is empty", ports.ErrConfigurationError, ports.ErrInvalidBars)
	}
	for i, b := range bars {
		if !(b.Close > 0) || math.IsInf(b.Close, 0) {
			return fmt.Errorf("%w: %w: close %f on %s is not a finite positive price",
				ports.ErrConfigurationError, ports.ErrInvalidBars, b.Close, domain.DateKey(b.Date))
		}
		if i > 0 && !domain.CalendarDay(b.Date).After(domain.CalendarDay(bars[i-1].Date)) {
			return fmt.Errorf("%w: %w: date %s does not follow %s",
				ports.ErrConfigurationError, ports.ErrInvalidBars, domain.DateKey(b.Date), domain.DateKey(bars[i-1].Date))
		}
	}
	return nil
}

// Next advances to the next bar. It returns false once the table is exhausted.
func (f *Feed) Next() bool {
	if f.pos+1 >= len(f.bars) {
		f.pos = len(f.bars)
		return false
	}
	f.pos++
	return true
}

// Bar returns the current bar. It must only be called after Next returned true.
func (f *Feed) Bar() domain.Bar {
	return f.bars[f.pos]
}

// PrevClose returns the close of the bar before the current one.
func (f *Feed) PrevClose() (float64, bool) {
	switch {
	case f.pos > 0 && f.pos <= len(f.bars):
		return f.bars[f.pos-1].Close, true
	case f.pos == 0 && f.hasSeed:
		return f.seedClose, true
	default:
		return 0, false
	}
}

// Len returns the number of bars that will be replayed.
func (f *Feed) Len() int { return len(f.bars) }

// Bars returns a copy of the filtered table.
func (f *Feed) Bars() []domain.Bar {
	out := make([]domain.Bar, len(f.bars))
	copy(out, f.bars)
	return out
}
