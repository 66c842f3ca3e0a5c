package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"aShareBacktest/config"
	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/adapters/parquetstore"
	"aShareBacktest/internal/app"
	"aShareBacktest/internal/backtesting"
	"aShareBacktest/internal/strategy/optimization"
	"aShareBacktest/internal/strategy/strategies"
)

func main() {
	strategyFlag := flag.String("strategy", "", "strategy name (default STRATEGY)")
	codeFlag := flag.String("code", "", "code to optimize on (default STOCK_CODE)")
	rangesFlag := flag.String("ranges", "fast_period=3:10:1,slow_period=15:40:5",
		"comma-separated name=min:max:step ranges")
	top := flag.Int("top", 10, "number of results to print")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *strategyFlag != "" {
		cfg.Strategy = *strategyFlag
	}
	code := cfg.StockCode
	if *codeFlag != "" {
		code = *codeFlag
	}

	ranges, err := parseRanges(*rangesFlag)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := strategies.DefaultRegistry()
	service, err := app.NewBacktestService(cfg, appLogger, parquetstore.NewStore(cfg.DataDir), nil, registry)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize backtest service: %v", err)
	}
	bars, err := service.LoadBars(ctx, code)
	if err != nil {
		log.Fatalf("FATAL: Failed to load bars: %v", err)
	}
	baseParams, err := config.LoadStrategyParams(cfg.StrategyConfigPath, cfg.Strategy)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	backtest, err := cfg.BacktestConfig(code, baseParams)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	optimizer, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		Strategy:        cfg.Strategy,
		BaseParams:      baseParams,
		ParameterRanges: ranges,
		Backtest:        backtest,
		BacktestFor: func(p strategies.Params) (backtesting.Config, error) {
			return cfg.BacktestConfig(code, p)
		},
		Workers: cfg.SweepWorkers,
	}, registry, appLogger)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	results, err := optimizer.Optimize(ctx, bars)
	if err != nil {
		log.Fatalf("FATAL: Optimization aborted: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Rank\tParameters\tScore\tReturn%\tSharpe\tMaxDD%\tTrades\t")
	for i, r := range results {
		if i >= *top {
			break
		}
		if r.Err != nil {
			fmt.Fprintf(w, "%d\t%s\t-\t%v\t\t\t\t\n", i+1, formatParams(r.Parameters), r.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			i+1,
			formatParams(r.Parameters),
			r.Score,
			r.Result.TotalReturn*100,
			r.Result.SharpeRatio,
			r.Result.MaxDrawdown*100,
			r.Result.TotalTrades,
		)
	}
	w.Flush()
}
