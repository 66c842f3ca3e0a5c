package strategies

import (
	"context"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

// HoldName is the registry name of the constant-HOLD source.
const HoldName = "hold"

// Hold never trades. A run driven by it keeps its initial value.
type Hold struct {
	*BaseStrategy
}

// NewHold creates a constant-HOLD source.
func NewHold(logger ports.Logger) (*Hold, error) {
	base, err := NewBaseStrategy(logger)
	if err != nil {
		return nil, err
	}
	return &Hold{BaseStrategy: base}, nil
}

// NewHoldFromParams ignores params.
func NewHoldFromParams(_ Params, logger ports.Logger) (ports.SignalSource, error) {
	return NewHold(logger)
}

func (h *Hold) Name() string            { return HoldName }
func (h *Hold) RequiredDataPoints() int { return 0 }

func (h *Hold) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signals := holdSignals(len(bars))
	h.logCounts(ctx, HoldName, signals)
	return signals, nil
}
