package app

import (
	"context"
	"fmt"
	"time"

	"aShareBacktest/config"
	"aShareBacktest/internal/backtesting"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/strategies"
	"aShareBacktest/internal/utils"
)

// BacktestService orchestrates loading bars, generating signals, replaying
// them and persisting the outcome.
type BacktestService struct {
	cfg      *config.Config
	logger   ports.Logger
	bars     ports.BarRepository
	runs     ports.RunRepository // optional; nil disables persistence
	registry *strategies.Registry
}

// NewBacktestService creates a new application service instance.
func NewBacktestService(
	cfg *config.Config,
	logger ports.Logger,
	bars ports.BarRepository,
	runs ports.RunRepository,
	registry *strategies.Registry,
) (*BacktestService, error) {
	if cfg == nil || logger == nil || registry == nil {
		return nil, fmt.Errorf("missing required dependencies for BacktestService")
	}
	if bars == nil && cfg.BarsCSV == "" {
		return nil, fmt.Errorf("%w: a bar repository or BARS_CSV is required", ports.ErrConfigurationError)
	}
	return &BacktestService{
		cfg:      cfg,
		logger:   logger,
		bars:     bars,
		runs:     runs,
		registry: registry,
	}, nil
}

// RunReport is the outcome of one service-level run.
type RunReport struct {
	RunID    string // Empty when persistence is disabled
	Code     string
	Strategy string
	Result   *backtesting.Result
}

// LoadBars returns the bar table for code: the CSV file when BARS_CSV is set,
// otherwise the repository. Bars before START_DATE are kept so indicators can
// warm up and the first bar has a previous close.
func (s *BacktestService) LoadBars(ctx context.Context, code string) ([]domain.Bar, error) {
	if s.cfg.BarsCSV != "" {
		return utils.ReadBarsFromCSV(s.cfg.BarsCSV)
	}
	bars, err := s.bars.ReadBars(ctx, market.StripSuffix(code), time.Time{}, s.cfg.EndDate)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %w: no bars stored for %s", ports.ErrConfigurationError, ports.ErrInvalidBars, code)
	}
	return bars, nil
}

// NewSource builds the named strategy with parameters from the strategy file.
func (s *BacktestService) NewSource(name string) (ports.SignalSource, strategies.Params, error) {
	params, err := config.LoadStrategyParams(s.cfg.StrategyConfigPath, name)
	if err != nil {
		return nil, nil, err
	}
	source, err := s.registry.Create(name, params, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return source, params, nil
}

// Run backtests one code with the configured strategy.
func (s *BacktestService) Run(ctx context.Context, code string) (*RunReport, error) {
	if err := market.ValidateCode(code); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	source, params, err := s.NewSource(s.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	bc, err := s.cfg.BacktestConfig(code, params)
	if err != nil {
		return nil, err
	}
	bars, err := s.LoadBars(ctx, code)
	if err != nil {
		return nil, err
	}

	result, err := backtesting.RunOnce(ctx, bc, source, bars, s.logger)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Code: bc.Code, Strategy: source.Name(), Result: result}
	if report.RunID, err = s.persist(ctx, source.Name(), result); err != nil {
		s.logger.Error(ctx, err, "Failed to persist backtest run")
	}
	return report, nil
}

// RunSweep backtests every code with the configured strategy on a worker pool.
// Codes whose bars cannot be loaded are logged and left out.
func (s *BacktestService) RunSweep(ctx context.Context, codes []string) ([]RunReport, []backtesting.SweepOutcome, error) {
	if s.bars == nil {
		return nil, nil, fmt.Errorf("%w: sweeps need a bar repository", ports.ErrConfigurationError)
	}
	cache := NewBarCache(s.bars, s.cfg.EndDate)
	if err := cache.Preload(ctx, codes); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		s.logger.Warn(ctx, "Some codes could not be loaded", map[string]interface{}{"error": err.Error()})
	}

	_, params, err := s.NewSource(s.cfg.Strategy)
	if err != nil {
		return nil, nil, err
	}

	var jobs []backtesting.SweepJob
	for _, code := range cache.Codes() {
		// Each job gets its own source instance.
		source, err := s.registry.Create(s.cfg.Strategy, params, s.logger)
		if err != nil {
			return nil, nil, err
		}
		bc, err := s.cfg.BacktestConfig(code, params)
		if err != nil {
			return nil, nil, err
		}
		bars, _ := cache.Get(code)
		jobs = append(jobs, backtesting.SweepJob{Label: code, Config: bc, Source: source, Bars: bars})
	}

	s.logger.Info(ctx, "Starting sweep", map[string]interface{}{
		"strategy": s.cfg.Strategy,
		"codes":    len(jobs),
		"workers":  s.cfg.SweepWorkers,
	})
	outcomes := backtesting.Sweep(ctx, jobs, s.cfg.SweepWorkers, s.logger)
	if err := ctx.Err(); err != nil {
		return nil, outcomes, err
	}

	reports := make([]RunReport, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Err != nil {
			continue
		}
		report := RunReport{Code: out.Code, Strategy: out.Strategy, Result: out.Result}
		if report.RunID, err = s.persist(ctx, out.Strategy, out.Result); err != nil {
			s.logger.Error(ctx, err, "Failed to persist backtest run", map[string]interface{}{"code": out.Code})
		}
		reports = append(reports, report)
	}
	return reports, outcomes, nil
}

func (s *BacktestService) persist(ctx context.Context, strategy string, result *backtesting.Result) (string, error) {
	if s.runs == nil {
		return "", nil
	}
	trades := make([]domain.Trade, len(result.Trades))
	copy(trades, result.Trades)
	return s.runs.SaveRun(ctx, NewRunRecord(strategy, result), trades)
}

// NewRunRecord converts a result into its persisted summary.
func NewRunRecord(strategy string, result *backtesting.Result) *domain.BacktestRun {
	run := &domain.BacktestRun{
		Code:         result.Code,
		Strategy:     strategy,
		StartDate:    result.StartDate,
		EndDate:      result.EndDate,
		InitialValue: result.InitialValue,
		FinalValue:   result.FinalValue,
		TotalReturn:  result.TotalReturn,
		SharpeRatio:  result.SharpeRatio,
		MaxDrawdown:  result.MaxDrawdown,
		TotalTrades:  result.TotalTrades,
		WinRate:      result.WinRate,
		Rejections:   len(result.Rejections),
	}
	if result.Metrics != nil {
		run.AnnualReturn = result.Metrics.AnnualReturn
		run.TotalFees = result.Metrics.TotalFees
	}
	return run
}
