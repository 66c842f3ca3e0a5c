package ports

import (
	"context"

	"aShareBacktest/internal/domain"
)

// SignalSource produces one BUY/SELL/HOLD label per bar. It runs once, before
// replay, and must not look ahead of the bar it labels.
type SignalSource interface {
	// Name returns the registry name of the source.
	Name() string
	// RequiredDataPoints returns the warm-up length before the first non-HOLD signal is possible.
	RequiredDataPoints() int
	// GenerateSignals returns a slice the same length as bars.
	GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error)
}
