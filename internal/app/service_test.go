package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aShareBacktest/config"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/strategies"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockBarRepo struct {
	bars    map[string][]domain.Bar
	readErr error
}

func (m *mockBarRepo) WriteBars(ctx context.Context, code string, bars []domain.Bar) error {
	if m.bars == nil {
		m.bars = make(map[string][]domain.Bar)
	}
	m.bars[code] = bars
	return nil
}

func (m *mockBarRepo) ReadBars(ctx context.Context, code string, start, end time.Time) ([]domain.Bar, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []domain.Bar
	for _, b := range m.bars[code] {
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBarRepo) ListCodes(ctx context.Context) ([]string, error) {
	codes := make([]string, 0, len(m.bars))
	for code := range m.bars {
		codes = append(codes, code)
	}
	return codes, nil
}

type mockRunRepo struct {
	mu      sync.Mutex
	runs    []*domain.BacktestRun
	trades  map[string][]domain.Trade
	saveErr error
}

func (m *mockRunRepo) SaveRun(ctx context.Context, run *domain.BacktestRun, trades []domain.Trade) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	run.ID = fmt.Sprintf("run-%d", len(m.runs)+1)
	m.runs = append(m.runs, run)
	if m.trades == nil {
		m.trades = make(map[string][]domain.Trade)
	}
	m.trades[run.ID] = trades
	return run.ID, nil
}

func (m *mockRunRepo) FindRunByID(ctx context.Context, id string) (*domain.BacktestRun, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRunRepo) ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	return m.runs, nil
}

func (m *mockRunRepo) FindTradesByRun(ctx context.Context, runID string) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for i := range m.trades[runID] {
		out = append(out, &m.trades[runID][i])
	}
	return out, nil
}

// scriptedSource buys on the second bar and sells on the fifth.
type scriptedSource struct{}

func (scriptedSource) Name() string            { return "scripted" }
func (scriptedSource) RequiredDataPoints() int { return 1 }

func (scriptedSource) GenerateSignals(ctx context.Context, bars []domain.Bar) ([]domain.Signal, error) {
	signals := make([]domain.Signal, len(bars))
	for i := range signals {
		signals[i] = domain.SignalHold
	}
	if len(bars) > 5 {
		signals[1] = domain.SignalBuy
		signals[4] = domain.SignalSell
	}
	return signals, nil
}

// Helper functions
func makeBars(n int, start float64) []domain.Bar {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	price := start
	for i := range bars {
		bars[i] = domain.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 100000,
		}
		price *= 1.01
	}
	return bars
}

func testRegistry() *strategies.Registry {
	registry := strategies.DefaultRegistry()
	registry.Register("scripted", func(strategies.Params, ports.Logger) (ports.SignalSource, error) {
		return scriptedSource{}, nil
	})
	return registry
}

func testConfig() *config.Config {
	return &config.Config{
		StockCode:      "600519",
		Strategy:       "scripted",
		InitialCapital: 100000,
		CommissionRate: 0.0003,
		MinCommission:  5,
		StampDutyRate:  0.001,
		StopLoss:       0.08,
		TakeProfit:     0.15,
		MaxHoldingDays: 10,
		SweepWorkers:   2,
	}
}

func setupTestService(t *testing.T, cfg *config.Config, bars *mockBarRepo, runs ports.RunRepository) (*BacktestService, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	var repo ports.BarRepository
	if bars != nil {
		repo = bars
	}
	svc, err := NewBacktestService(cfg, logger, repo, runs, testRegistry())
	require.NoError(t, err)
	return svc, logger
}

func TestNewBacktestService(t *testing.T) {
	logger := &mockLogger{}
	registry := testRegistry()

	tests := []struct {
		name    string
		cfg     *config.Config
		logger  ports.Logger
		bars    ports.BarRepository
		wantErr bool
	}{
		{"valid", testConfig(), logger, &mockBarRepo{}, false},
		{"nil config", nil, logger, &mockBarRepo{}, true},
		{"nil logger", testConfig(), nil, &mockBarRepo{}, true},
		{"no bar source", testConfig(), logger, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewBacktestService(tt.cfg, tt.logger, tt.bars, nil, registry)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestBacktestService_Run(t *testing.T) {
	ctx := context.Background()
	bars := &mockBarRepo{bars: map[string][]domain.Bar{"600519": makeBars(20, 100)}}
	runs := &mockRunRepo{}
	svc, logger := setupTestService(t, testConfig(), bars, runs)

	report, err := svc.Run(ctx, "600519.SH")
	require.NoError(t, err)

	assert.Equal(t, "600519", report.Code)
	assert.Equal(t, "scripted", report.Strategy)
	assert.Equal(t, "run-1", report.RunID)
	require.NotNil(t, report.Result)
	assert.Equal(t, 1, report.Result.TotalTrades)

	require.Len(t, runs.runs, 1)
	saved := runs.runs[0]
	assert.Equal(t, "scripted", saved.Strategy)
	assert.Equal(t, report.Result.FinalValue, saved.FinalValue)
	assert.Len(t, runs.trades["run-1"], 1)
	assert.Empty(t, logger.errorMsgs)
}

func TestBacktestService_RunErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid code", func(t *testing.T) {
		svc, _ := setupTestService(t, testConfig(), &mockBarRepo{}, nil)
		_, err := svc.Run(ctx, "12345")
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
		assert.ErrorIs(t, err, ports.ErrInvalidStockCode)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		cfg := testConfig()
		cfg.Strategy = "nope"
		svc, _ := setupTestService(t, cfg, &mockBarRepo{}, nil)
		_, err := svc.Run(ctx, "600519")
		assert.ErrorIs(t, err, ports.ErrUnknownStrategy)
	})

	t.Run("no stored bars", func(t *testing.T) {
		svc, _ := setupTestService(t, testConfig(), &mockBarRepo{}, nil)
		_, err := svc.Run(ctx, "600519")
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
		assert.ErrorIs(t, err, ports.ErrInvalidBars)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := &mockBarRepo{readErr: ports.ErrStorageRead}
		svc, _ := setupTestService(t, testConfig(), repo, nil)
		_, err := svc.Run(ctx, "600519")
		assert.ErrorIs(t, err, ports.ErrStorageRead)
	})
}

func TestBacktestService_RunPersistFailureIsLogged(t *testing.T) {
	bars := &mockBarRepo{bars: map[string][]domain.Bar{"600519": makeBars(20, 100)}}
	runs := &mockRunRepo{saveErr: ports.ErrQueryFailed}
	svc, logger := setupTestService(t, testConfig(), bars, runs)

	report, err := svc.Run(context.Background(), "600519")
	require.NoError(t, err)
	assert.Empty(t, report.RunID)
	assert.Contains(t, logger.errorMsgs, "Failed to persist backtest run")
}

func TestBacktestService_LoadBarsFromCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")
	content := "date,open,high,low,close,volume\n" +
		"2024-01-02,10,10.5,9.8,10.2,1000\n" +
		"2024-01-03,10.2,10.6,10.1,10.4,1200\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := testConfig()
	cfg.BarsCSV = path
	svc, _ := setupTestService(t, cfg, nil, nil)

	bars, err := svc.LoadBars(context.Background(), "600519")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 10.4, bars[1].Close, 1e-9)
}

func TestBacktestService_NewSourceUsesStrategyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategies.yaml")
	content := "strategies:\n  ma_crossover:\n    parameters:\n      fast_period: 3\n      slow_period: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := testConfig()
	cfg.StrategyConfigPath = path
	svc, _ := setupTestService(t, cfg, &mockBarRepo{}, nil)

	source, params, err := svc.NewSource(strategies.MACrossoverName)
	require.NoError(t, err)
	assert.Equal(t, 9, source.RequiredDataPoints())
	fast, err := params.Int("fast_period", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, fast)
}

func TestBacktestService_RunSweep(t *testing.T) {
	bars := &mockBarRepo{bars: map[string][]domain.Bar{
		"600519": makeBars(20, 100),
		"000001": makeBars(20, 12),
	}}
	runs := &mockRunRepo{}
	svc, logger := setupTestService(t, testConfig(), bars, runs)

	reports, outcomes, err := svc.RunSweep(context.Background(), []string{"600519", "000001", "300750"})
	require.NoError(t, err)

	// 300750 has no bars and is left out with a warning.
	assert.Len(t, outcomes, 2)
	require.Len(t, reports, 2)
	assert.Equal(t, "000001", reports[0].Code)
	assert.Equal(t, "600519", reports[1].Code)
	assert.Len(t, runs.runs, 2)
	assert.Contains(t, logger.warnMsgs, "Some codes could not be loaded")
}

func TestBacktestService_RunSweepCanceled(t *testing.T) {
	bars := &mockBarRepo{bars: map[string][]domain.Bar{"600519": makeBars(20, 100)}}
	svc, _ := setupTestService(t, testConfig(), bars, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := svc.RunSweep(ctx, []string{"600519"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBarCache(t *testing.T) {
	repo := &mockBarRepo{bars: map[string][]domain.Bar{
		"600519": makeBars(10, 100),
		"000001": makeBars(10, 12),
	}}
	end := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	cache := NewBarCache(repo, end)

	err := cache.Preload(context.Background(), []string{"600519.SH", "000001", "688001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidBars)

	assert.Equal(t, []string{"000001", "600519"}, cache.Codes())
	bars, ok := cache.Get("600519")
	require.True(t, ok)
	assert.Len(t, bars, 5)

	_, ok = cache.Get("688001")
	assert.False(t, ok)
}
