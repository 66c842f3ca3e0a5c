package backtesting

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// SweepJob is one independent run of a sweep. Bars are shared read-only
// between jobs and must not be modified.
type SweepJob struct {
	Label  string // Free-form identifier, e.g. a parameter set
	Config Config
	Source ports.SignalSource
	Bars   []domain.Bar
}

// SweepOutcome is the result of one job. Exactly one of Result and Err is set.
type SweepOutcome struct {
	Label    string
	Code     string
	Strategy string
	Result   *Result
	Err      error
	Duration time.Duration
}

// Sweep runs jobs on at most workers goroutines and returns outcomes in job
// order. A job that fails or panics records its error and never affects the
// others. workers <= 0 uses GOMAXPROCS.
func Sweep(ctx context.Context, jobs []SweepJob, workers int, logger ports.Logger) []SweepOutcome {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	outcomes := make([]SweepOutcome, len(jobs))

	p := pool.New().WithMaxGoroutines(workers)
	for i := range jobs {
		p.Go(func() {
			outcomes[i] = runJob(ctx, jobs[i], logger)
		})
	}
	p.Wait()
	return outcomes
}

func runJob(ctx context.Context, job SweepJob, logger ports.Logger) (out SweepOutcome) {
	started := time.Now()
	out = SweepOutcome{Label: job.Label, Code: job.Config.Code}
	if job.Source != nil {
		out.Strategy = job.Source.Name()
	}
	defer func() { out.Duration = time.Since(started) }()

	var catcher panics.Catcher
	catcher.Try(func() {
		out.Result, out.Err = RunOnce(ctx, job.Config, job.Source, job.Bars, logger)
	})
	if r := catcher.Recovered(); r != nil {
		out.Result = nil
		out.Err = fmt.Errorf("%w: run panicked: %w", ports.ErrUnknown, r.AsError())
	}
	if out.Err != nil {
		logger.Warn(ctx, "Sweep job failed", map[string]interface{}{
			"code":  out.Code,
			"label": out.Label,
			"error": out.Err.Error(),
		})
	}
	return out
}

// RunOnce builds an engine, generates signals and replays them.
func RunOnce(ctx context.Context, cfg Config, source ports.SignalSource, bars []domain.Bar, logger ports.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	signals, err := GenerateSignals(ctx, source, bars)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, bars, signals)
}
