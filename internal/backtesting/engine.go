package backtesting

import (
	"context"
	"fmt"
	"time"

	"aShareBacktest/internal/analytics"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/risk"
)

// Initial capital bounds accepted by the engine.
const (
	MinInitialCash = 10_000.0
	MaxInitialCash = 100_000_000.0
)

// Config holds the immutable parameters of one backtest run.
type Config struct {
	Code        string
	InitialCash float64
	StartDate   time.Time // Inclusive; zero means from the first bar
	EndDate     time.Time // Inclusive; zero means through the last bar
	Commission  domain.CommissionSchedule
	Risk        risk.RiskConfig
	Metrics     analytics.Options
}

// DefaultConfig returns a config with standard fees and exit thresholds.
func DefaultConfig(code string, initialCash float64) Config {
	return Config{
		Code:        code,
		InitialCash: initialCash,
		Commission:  domain.DefaultCommissionSchedule(),
		Risk:        risk.DefaultRiskConfig(),
		Metrics:     analytics.DefaultOptions(),
	}
}

// Result is the output of one run.
type Result struct {
	Code         string
	StartDate    time.Time
	EndDate      time.Time
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64 // Fraction of the running peak
	TotalTrades  int
	WinRate      float64
	Metrics      *analytics.Report
	Trades       []domain.Trade
	Equity       []domain.EquityPoint
	Rejections   []domain.Rejection
	OpenPosition *domain.Position // Position still held after the last bar, if any
}

// Engine replays pre-computed signals over a bar table.
type Engine struct {
	cfg        Config
	broker     *Broker
	controller *Controller
	logger     ports.Logger
}

// NewEngine validates cfg and builds the broker and controller for it.
func NewEngine(cfg Config, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if cfg.InitialCash < MinInitialCash || cfg.InitialCash > MaxInitialCash {
		return nil, fmt.Errorf("%w: initial cash %.2f outside [%.0f, %.0f]",
			ports.ErrConfigurationError, cfg.InitialCash, MinInitialCash, MaxInitialCash)
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		return nil, fmt.Errorf("%w: end date %s before start date %s", ports.ErrConfigurationError,
			domain.DateKey(cfg.EndDate), domain.DateKey(cfg.StartDate))
	}

	broker, err := NewBroker(BrokerConfig{Code: cfg.Code, Commission: cfg.Commission})
	if err != nil {
		return nil, err
	}
	riskManager, err := risk.NewRiskManager(cfg.Risk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	controller, err := NewController(broker, riskManager)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, broker: broker, controller: controller, logger: logger}, nil
}

// Broker returns the engine's broker.
func (e *Engine) Broker() *Broker { return e.broker }

// GenerateSignals runs source over bars once and checks the output length.
func GenerateSignals(ctx context.Context, source ports.SignalSource, bars []domain.Bar) ([]domain.Signal, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: %w: nil signal source", ports.ErrConfigurationError, ports.ErrUnknownStrategy)
	}
	signals, err := source.GenerateSignals(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("signal source %s failed: %w", source.Name(), err)
	}
	if len(signals) != len(bars) {
		return nil, fmt.Errorf("%w: %w: %s produced %d signals for %d bars", ports.ErrConfigurationError,
			ports.ErrSignalMismatch, source.Name(), len(signals), len(bars))
	}
	return signals, nil
}

// Run replays bars with their signals. signals must be index-aligned with bars;
// the date filter from the config is applied after alignment. The run stops
// with ctx.Err() if the context is canceled between bars.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar, signals []domain.Signal) (*Result, error) {
	feed, err := NewFeed(bars, e.cfg.StartDate, e.cfg.EndDate)
	if err != nil {
		return nil, err
	}
	series, err := domain.NewSignalSeries(bars, signals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ports.ErrConfigurationError, ports.ErrSignalMismatch, err)
	}

	e.logger.Info(ctx, "Backtest started", map[string]interface{}{
		"code":         e.cfg.Code,
		"bars":         feed.Len(),
		"initial_cash": e.cfg.InitialCash,
		"limit_ratio":  e.broker.LimitRatio(),
	})

	account := Account{Cash: e.cfg.InitialCash}
	recorder := NewTradeRecorder()
	equity := make([]domain.EquityPoint, 0, feed.Len())
	var rejections []domain.Rejection
	var first, last domain.Bar

	for feed.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := feed.Bar()
		if len(equity) == 0 {
			first = bar
		}
		last = bar

		prevClose, _ := feed.PrevClose()
		res := e.controller.Advance(account, bar, series.Lookup(bar.Date), prevClose)
		account = res.Account

		switch {
		case res.Fill != nil:
			e.logFill(ctx, res)
			if res.Trade != nil {
				recorder.Append(*res.Trade)
			}
		case res.Rejection != nil:
			rejections = append(rejections, *res.Rejection)
			e.logger.Debug(ctx, "Order rejected", map[string]interface{}{
				"date":   domain.DateKey(bar.Date),
				"side":   res.Rejection.Order.Side,
				"size":   res.Rejection.Order.RequestedSize,
				"price":  res.Rejection.Order.ReferencePrice,
				"reason": res.Rejection.Reason.Error(),
			})
		}

		equity = append(equity, domain.EquityPoint{Date: bar.Date, Value: account.Value(bar.Close)})
	}

	trades := recorder.Trades()
	report := analytics.Calculate(equity, trades, e.cfg.InitialCash, e.cfg.Metrics)
	result := &Result{
		Code:         e.cfg.Code,
		StartDate:    first.Date,
		EndDate:      last.Date,
		InitialValue: e.cfg.InitialCash,
		FinalValue:   report.FinalCapital,
		TotalReturn:  report.TotalReturn,
		SharpeRatio:  report.SharpeRatio,
		MaxDrawdown:  report.MaxDrawdown.Pct,
		TotalTrades:  report.TotalTrades,
		WinRate:      report.WinRate,
		Metrics:      &report,
		Trades:       trades,
		Equity:       equity,
		Rejections:   rejections,
		OpenPosition: account.Position,
	}

	e.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"code":         e.cfg.Code,
		"final_value":  fmt.Sprintf("%.2f", result.FinalValue),
		"total_return": fmt.Sprintf("%.4f", result.TotalReturn),
		"trades":       result.TotalTrades,
		"rejections":   len(rejections),
		"holding":      account.Holding(),
	})
	return result, nil
}

func (e *Engine) logFill(ctx context.Context, res StepResult) {
	fields := map[string]interface{}{
		"date":       domain.DateKey(res.Fill.Date),
		"side":       res.Fill.Side,
		"size":       res.Fill.Size,
		"price":      res.Fill.Price,
		"commission": fmt.Sprintf("%.2f", res.Fill.Commission),
		"cash":       fmt.Sprintf("%.2f", res.Account.Cash),
	}
	if res.Trade != nil {
		fields["reason"] = res.Trade.CloseReason
		fields["pnl"] = fmt.Sprintf("%.2f", res.Trade.PNL)
		e.logger.Info(ctx, "Position closed", fields)
		return
	}
	e.logger.Info(ctx, "Position opened", fields)
}
