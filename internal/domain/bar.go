package domain

import "time"

// Bar represents a single daily OHLCV row.
type Bar struct {
	Date   time.Time // Trading day
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume float64   // Traded volume (shares)
}

// DateKey returns the calendar-day key used to index per-day data.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// CalendarDay truncates t to its calendar day in UTC so day arithmetic is
// unaffected by wall-clock time or zone offsets.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return CalendarDay(a).Equal(CalendarDay(b))
}

// DaysBetween returns the whole calendar days from 'from' to 'to'.
func DaysBetween(from, to time.Time) int {
	return int(CalendarDay(to).Sub(CalendarDay(from)).Hours() / 24)
}

// EquityPoint is one sample of portfolio value, taken at a bar's close.
type EquityPoint struct {
	Date  time.Time
	Value float64
}
