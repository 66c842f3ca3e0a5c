package backtesting

import (
	"context"
	"time"

	"aShareBacktest/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds one bar per calendar day starting at day0.
func barsFromCloses(closes ...float64) []domain.Bar {
	out := make([]domain.Bar, len(closes))
	for i, c := range closes {
		out[i] = domain.Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return out
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func holdSignals(n int) []domain.Signal {
	out := make([]domain.Signal, n)
	for i := range out {
		out[i] = domain.SignalHold
	}
	return out
}

// staticSource returns fixed signals, or fails or panics on demand.
type staticSource struct {
	name    string
	signals []domain.Signal
	err     error
	panics  bool
}

func (s *staticSource) Name() string            { return s.name }
func (s *staticSource) RequiredDataPoints() int { return 0 }

func (s *staticSource) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	if s.panics {
		panic("signal source exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.signals == nil {
		return holdSignals(len(bars)), nil
	}
	out := make([]domain.Signal, len(s.signals))
	copy(out, s.signals)
	return out, nil
}
