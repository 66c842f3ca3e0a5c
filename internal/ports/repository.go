package ports

import (
	"context"
	"time"

	"aShareBacktest/internal/domain"
)

// BarRepository defines the interface for storing and retrieving daily bars.
type BarRepository interface {
	// WriteBars stores bars for a code, replacing any rows with the same date.
	WriteBars(ctx context.Context, code string, bars []domain.Bar) error
	// ReadBars returns bars for a code with start <= date <= end, ascending by date.
	// A zero start or end leaves that side of the range open.
	ReadBars(ctx context.Context, code string, start, end time.Time) ([]domain.Bar, error)
	// ListCodes returns every code that has stored bars.
	ListCodes(ctx context.Context) ([]string, error)
}

// RunRepository defines the interface for persisting completed backtest runs.
type RunRepository interface {
	// SaveRun stores a run summary together with its closed trades and returns the run ID.
	SaveRun(ctx context.Context, run *domain.BacktestRun, trades []domain.Trade) (string, error)
	// FindRunByID retrieves a run summary. Returns nil, nil if not found.
	FindRunByID(ctx context.Context, id string) (*domain.BacktestRun, error)
	// ListRuns retrieves the most recent runs, newest first, up to limit (0 = no limit).
	ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error)
	// FindTradesByRun retrieves the closed trades of a run in close order.
	FindTradesByRun(ctx context.Context, runID string) ([]*domain.Trade, error)
}
