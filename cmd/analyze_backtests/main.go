package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"aShareBacktest/config"
	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/adapters/sqlite"
	"aShareBacktest/internal/domain"
)

func main() {
	limit := flag.Int("limit", 20, "number of recent runs to list (0 = all)")
	runID := flag.String("run", "", "show the trades of one run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: logger.NewStdLogger(cfg.LogLevel)})
	if err != nil {
		log.Fatalf("Error opening run database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if *runID != "" {
		if err := showRun(ctx, repo, *runID); err != nil {
			log.Fatalf("Error reading run %s: %v", *runID, err)
		}
		return
	}

	runs, err := repo.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatalf("Error listing runs: %v", err)
	}
	if len(runs) == 0 {
		log.Println("No backtest runs found. Run the backtester first.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "ID\tCode\tStrategy\tPeriod\tFinal\tReturn%\tAnnual%\tSharpe\tMaxDD%\tTrades\tWinRate%\tFees\tCreated\t")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%.1f\t%s\t%s\t\n",
			r.ID,
			r.Code,
			r.Strategy,
			domain.DateKey(r.StartDate),
			domain.DateKey(r.EndDate),
			humanize.CommafWithDigits(r.FinalValue, 2),
			r.TotalReturn*100,
			r.AnnualReturn*100,
			r.SharpeRatio,
			r.MaxDrawdown*100,
			r.TotalTrades,
			r.WinRate*100,
			humanize.CommafWithDigits(r.TotalFees, 2),
			humanize.Time(r.CreatedAt),
		)
	}
	w.Flush()
}

func showRun(ctx context.Context, repo *sqlite.Repository, id string) error {
	run, err := repo.FindRunByID(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found")
	}
	trades, err := repo.FindTradesByRun(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s %s, %s to %s, return %.2f%%\n\n", run.ID, run.Code, run.Strategy,
		domain.DateKey(run.StartDate), domain.DateKey(run.EndDate), run.TotalReturn*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Entry\tExit\tShares\tEntryPx\tExitPx\tPnL\tFees\tReason\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			domain.DateKey(t.EntryDate), domain.DateKey(t.ExitDate), t.Shares,
			t.EntryPrice, t.ExitPrice, t.PNL, t.Commission, t.CloseReason)
	}
	w.Flush()

	// Breakdown by close reason
	counts := make(map[domain.CloseReason]int)
	pnl := make(map[domain.CloseReason]float64)
	for _, t := range trades {
		counts[t.CloseReason]++
		pnl[t.CloseReason] += t.PNL
	}
	reasons := make([]domain.CloseReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	fmt.Println("\nClose Reason\tCount\tTotal PnL\tAvg PnL")
	for _, reason := range reasons {
		fmt.Printf("%s\t%d\t%.2f\t%.2f\n", reason, counts[reason], pnl[reason], pnl[reason]/float64(counts[reason]))
	}
	return nil
}
