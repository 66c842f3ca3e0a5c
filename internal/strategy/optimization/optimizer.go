package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"aShareBacktest/internal/analytics"
	"aShareBacktest/internal/backtesting"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/strategy/strategies"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the outcome of one parameter combination.
type OptimizationResult struct {
	Parameters map[string]float64
	Result     *backtesting.Result
	Score      float64
	Err        error
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	Strategy        string            // Registry name of the strategy to tune
	BaseParams      strategies.Params // Fixed parameters applied under every combination
	ParameterRanges []ParameterRange
	Backtest        backtesting.Config
	// BacktestFor builds the run config for one merged parameter set, so risk
	// parameters can be tuned too. Nil uses Backtest for every combination.
	BacktestFor   func(strategies.Params) (backtesting.Config, error)
	Workers       int
	ScoreFunction func(*analytics.Report) float64
}

// Optimizer runs a strategy over a parameter grid on one bar table.
type Optimizer struct {
	config   OptimizerConfig
	registry *strategies.Registry
	logger   ports.Logger
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, registry *strategies.Registry, logger ports.Logger) (*Optimizer, error) {
	if registry == nil || logger == nil {
		return nil, fmt.Errorf("%w: registry and logger are required", ports.ErrConfigurationError)
	}
	if len(config.ParameterRanges) == 0 {
		return nil, fmt.Errorf("%w: no parameter ranges", ports.ErrConfigurationError)
	}
	for _, r := range config.ParameterRanges {
		if r.Name == "" || r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("%w: invalid parameter range %+v", ports.ErrConfigurationError, r)
		}
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config, registry: registry, logger: logger}, nil
}

// Optimize runs every combination and returns results sorted by score,
// best first. Combinations whose strategy could not be built or whose run
// failed are kept at the end with Err set.
func (o *Optimizer) Optimize(ctx context.Context, bars []domain.Bar) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()
	results := make([]OptimizationResult, 0, len(combinations))
	jobs := make([]backtesting.SweepJob, 0, len(combinations))
	jobParams := make([]map[string]float64, 0, len(combinations))

	for _, params := range combinations {
		merged := o.mergeParams(params)
		source, err := o.registry.Create(o.config.Strategy, merged, o.logger)
		if err != nil {
			results = append(results, OptimizationResult{Parameters: params, Err: err, Score: math.Inf(-1)})
			continue
		}
		cfg := o.config.Backtest
		if o.config.BacktestFor != nil {
			if cfg, err = o.config.BacktestFor(merged); err != nil {
				results = append(results, OptimizationResult{Parameters: params, Err: err, Score: math.Inf(-1)})
				continue
			}
		}
		jobs = append(jobs, backtesting.SweepJob{
			Label:  label(params),
			Config: cfg,
			Source: source,
			Bars:   bars,
		})
		jobParams = append(jobParams, params)
	}

	o.logger.Info(ctx, "Starting parameter optimization", map[string]interface{}{
		"strategy":     o.config.Strategy,
		"combinations": len(combinations),
		"runnable":     len(jobs),
	})

	for i, out := range backtesting.Sweep(ctx, jobs, o.config.Workers, o.logger) {
		res := OptimizationResult{Parameters: jobParams[i], Result: out.Result, Err: out.Err, Score: math.Inf(-1)}
		if out.Err == nil && out.Result != nil && out.Result.Metrics != nil {
			res.Score = o.config.ScoreFunction(out.Result.Metrics)
		}
		results = append(results, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) mergeParams(combo map[string]float64) strategies.Params {
	merged := make(strategies.Params, len(o.config.BaseParams)+len(combo))
	for k, v := range o.config.BaseParams {
		merged[k] = v
	}
	for k, v := range combo {
		merged[k] = v
	}
	return merged
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	current := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(current))
			for k, v := range current {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for k := 0; k <= steps; k++ {
			value := param.Min + float64(k)*param.Step
			if param.IsInt {
				value = math.Round(value)
			}
			current[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

func label(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// sortResultsByScore sorts optimization results by score in descending order
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// DefaultScoreFunction blends risk-adjusted return, raw return and drawdown.
func DefaultScoreFunction(report *analytics.Report) float64 {
	score := 0.0
	score += report.SharpeRatio * 0.4
	score += report.TotalReturn * 0.4
	score += (1 - report.MaxDrawdown.Pct) * 0.2
	return score
}
