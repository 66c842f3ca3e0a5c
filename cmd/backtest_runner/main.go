package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"aShareBacktest/config"
	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/adapters/parquetstore"
	"aShareBacktest/internal/adapters/sqlite"
	"aShareBacktest/internal/app"
	"aShareBacktest/internal/strategy/strategies"
	"aShareBacktest/internal/utils"
)

func main() {
	codesFlag := flag.String("codes", "", "comma-separated codes to sweep (default STOCK_CODES)")
	allFlag := flag.Bool("all", false, "sweep every code in the bar store")
	strategyFlag := flag.String("strategy", "", "strategy name (default STRATEGY)")
	exportFlag := flag.Bool("export", false, "write per-code trade CSVs to OUTPUT_DIR")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *strategyFlag != "" {
		cfg.Strategy = *strategyFlag
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Repositories
	store := parquetstore.NewStore(cfg.DataDir)
	runs, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer runs.Close()

	// 3. Pick the codes
	codes := cfg.StockCodes
	switch {
	case *allFlag:
		if codes, err = store.ListCodes(ctx); err != nil {
			log.Fatalf("FATAL: Failed to list stored codes: %v", err)
		}
	case *codesFlag != "":
		codes = strings.Split(*codesFlag, ",")
	}
	if len(codes) == 0 {
		log.Fatalf("FATAL: No codes to sweep")
	}

	// Sweeps always read from the bar store.
	cfg.BarsCSV = ""
	service, err := app.NewBacktestService(cfg, appLogger, store, runs, strategies.DefaultRegistry())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize backtest service: %v", err)
	}

	// 4. Run the sweep
	reports, outcomes, err := service.RunSweep(ctx, codes)
	if err != nil {
		appLogger.Error(ctx, err, "Sweep aborted")
		log.Fatalf("FATAL: Sweep aborted: %v", err)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Result.TotalReturn > reports[j].Result.TotalReturn
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Code\tStrategy\tFinal\tReturn%\tSharpe\tMaxDD%\tTrades\tWinRate%\tRun\t")
	for _, r := range reports {
		res := r.Result
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%d\t%.1f\t%s\t\n",
			r.Code,
			r.Strategy,
			humanize.CommafWithDigits(res.FinalValue, 2),
			res.TotalReturn*100,
			res.SharpeRatio,
			res.MaxDrawdown*100,
			res.TotalTrades,
			res.WinRate*100,
			r.RunID,
		)
	}
	w.Flush()

	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Printf("%s failed: %v\n", out.Code, out.Err)
		}
	}

	if *exportFlag {
		for _, r := range reports {
			file := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s_trades.csv", r.Code, r.Strategy))
			if err := utils.WriteTradesToCSV(r.Result.Trades, file); err != nil {
				appLogger.Error(ctx, err, "Error writing trades CSV", map[string]interface{}{"code": r.Code})
			}
		}
	}
}
