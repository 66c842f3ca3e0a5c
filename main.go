package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"aShareBacktest/config"
	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/adapters/parquetstore"
	"aShareBacktest/internal/adapters/sqlite"
	"aShareBacktest/internal/app"
	"aShareBacktest/internal/strategy/strategies"
	"aShareBacktest/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunContext(ctx, map[string]interface{}{"code": cfg.StockCode, "strategy": cfg.Strategy})
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repositories
	bars := parquetstore.NewStore(cfg.DataDir)
	runs, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := runs.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Application Service
	service, err := app.NewBacktestService(cfg, appLogger, bars, runs, strategies.DefaultRegistry())
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize backtest service")
		log.Fatalf("FATAL: Failed to initialize backtest service: %v", err)
	}

	// 5. Run
	report, err := service.Run(ctx, cfg.StockCode)
	if err != nil {
		appLogger.Error(ctx, err, "Backtest failed")
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	if report.Result.Metrics != nil {
		fmt.Println(report.Result.Metrics.Summary())
	}
	if report.RunID != "" {
		fmt.Printf("Run saved as %s\n", report.RunID)
	}

	// 6. Export trades and equity curve
	prefix := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s", report.Code, report.Strategy))
	if err := utils.WriteTradesToCSV(report.Result.Trades, prefix+"_trades.csv"); err != nil {
		appLogger.Error(ctx, err, "Failed to write trades")
	}
	if report.Result.Metrics != nil {
		if err := utils.WriteEquityToCSV(report.Result.Metrics.EquityCurve, prefix+"_equity.csv"); err != nil {
			appLogger.Error(ctx, err, "Failed to write equity curve")
		}
	}
	appLogger.Info(ctx, "Application finished gracefully.", map[string]interface{}{"output": prefix})
}
