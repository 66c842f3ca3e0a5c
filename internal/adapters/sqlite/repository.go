package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.RunRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.RunRepository = (*Repository)(nil)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/backtests.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Sweeps save from many goroutines; one connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		strategy TEXT NOT NULL,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		initial_value REAL NOT NULL,
		final_value REAL NOT NULL,
		total_return REAL NOT NULL,
		annual_return REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_fees REAL NOT NULL,
		rejections INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
		code TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		shares INTEGER NOT NULL,
		pnl REAL NOT NULL,
		commission REAL NOT NULL,
		entry_date TIMESTAMP NOT NULL,
		exit_date TIMESTAMP NOT NULL,
		close_reason TEXT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_backtest_runs_code_created ON backtest_runs (code, created_at);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, exit_date);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun inserts the run and its trades in one transaction. An empty run ID
// is replaced with a new UUID; CreatedAt defaults to now. Trade IDs and RunIDs
// are written back into trades.
func (r *Repository) SaveRun(ctx context.Context, run *domain.BacktestRun, trades []domain.Trade) (string, error) {
	if run == nil {
		return "", fmt.Errorf("%w: nil run", ports.ErrInvalidRequest)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin transaction: %v", ports.ErrStorageWrite, err)
	}
	defer tx.Rollback() // no-op after commit

	const runQuery = `
	INSERT INTO backtest_runs (id, code, strategy, start_date, end_date, initial_value, final_value,
	                           total_return, annual_return, sharpe_ratio, max_drawdown, total_trades,
	                           win_rate, total_fees, rejections, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, runQuery,
		run.ID, run.Code, run.Strategy, run.StartDate, run.EndDate, run.InitialValue, run.FinalValue,
		run.TotalReturn, run.AnnualReturn, run.SharpeRatio, run.MaxDrawdown, run.TotalTrades,
		run.WinRate, run.TotalFees, run.Rejections, run.CreatedAt)
	if err != nil {
		if isConstraintError(err) {
			return "", fmt.Errorf("run %s: %w", run.ID, ports.ErrDuplicateEntry)
		}
		return "", fmt.Errorf("%w: failed to insert run %s: %v", ports.ErrStorageWrite, run.ID, err)
	}

	const tradeQuery = `
	INSERT INTO backtest_trades (run_id, code, entry_price, exit_price, shares, pnl, commission,
	                             entry_date, exit_date, close_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, tradeQuery)
	if err != nil {
		return "", fmt.Errorf("%w: prepare trade insert: %v", ports.ErrStorageWrite, err)
	}
	defer stmt.Close()

	ids := make([]int64, len(trades))
	for i := range trades {
		t := &trades[i]
		result, err := stmt.ExecContext(ctx,
			run.ID, t.Code, t.EntryPrice, t.ExitPrice, t.Shares, t.PNL, t.Commission,
			t.EntryDate, t.ExitDate, string(t.CloseReason))
		if err != nil {
			return "", fmt.Errorf("%w: failed to insert trade %d of run %s: %v", ports.ErrStorageWrite, i, run.ID, err)
		}
		if ids[i], err = result.LastInsertId(); err != nil {
			return "", fmt.Errorf("%w: failed to get last insert ID for trade: %v", ports.ErrStorageWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit run %s: %v", ports.ErrStorageWrite, run.ID, err)
	}
	for i := range trades {
		trades[i].ID = ids[i]
		trades[i].RunID = run.ID
	}

	r.logger.Debug(ctx, "Backtest run saved", map[string]interface{}{
		"runID":  run.ID,
		"code":   run.Code,
		"trades": len(trades),
	})
	return run.ID, nil
}

const runColumns = `id, code, strategy, start_date, end_date, initial_value, final_value, total_return,
	       annual_return, sharpe_ratio, max_drawdown, total_trades, win_rate, total_fees, rejections, created_at`

// FindRunByID retrieves a run summary by its ID.
func (r *Repository) FindRunByID(ctx context.Context, id string) (*domain.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Run not found by ID", map[string]interface{}{"runID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("%w: failed to query run %s: %v", ports.ErrQueryFailed, id, err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list runs: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	runs := make([]*domain.BacktestRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan run during ListRuns: %v", ports.ErrQueryFailed, err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating run rows: %v", ports.ErrQueryFailed, err)
	}
	return runs, nil
}

// FindTradesByRun retrieves the trades of a run in close order.
func (r *Repository) FindTradesByRun(ctx context.Context, runID string) ([]*domain.Trade, error) {
	const query = `
	SELECT id, run_id, code, entry_price, exit_price, shares, pnl, commission,
	       entry_date, exit_date, close_reason
	FROM backtest_trades
	WHERE run_id = ? ORDER BY exit_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trades for run %s: %v", ports.ErrQueryFailed, runID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan trade during FindTradesByRun: %v", ports.ErrQueryFailed, err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating trade rows: %v", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// DeleteRun removes a run and, by cascade, its trades.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM backtest_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete run %s: %v", ports.ErrDeleteFailed, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected for run %s: %v", ports.ErrDeleteFailed, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("run %s not found for delete: %w", id, ports.ErrNotFound)
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*domain.BacktestRun, error) {
	run := &domain.BacktestRun{}
	err := s.Scan(
		&run.ID, &run.Code, &run.Strategy, &run.StartDate, &run.EndDate, &run.InitialValue, &run.FinalValue,
		&run.TotalReturn, &run.AnnualReturn, &run.SharpeRatio, &run.MaxDrawdown, &run.TotalTrades,
		&run.WinRate, &run.TotalFees, &run.Rejections, &run.CreatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	return run, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	th := &domain.Trade{Status: domain.StatusClosed}
	var closeReason sql.NullString
	err := s.Scan(
		&th.ID, &th.RunID, &th.Code, &th.EntryPrice, &th.ExitPrice, &th.Shares, &th.PNL, &th.Commission,
		&th.EntryDate, &th.ExitDate, &closeReason)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if closeReason.Valid && closeReason.String != "" {
		th.CloseReason = domain.CloseReason(closeReason.String)
	} else {
		th.CloseReason = domain.CloseReasonUnknown // Default if NULL
	}
	return th, nil
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
