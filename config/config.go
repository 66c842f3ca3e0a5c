package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aShareBacktest/internal/adapters/logger"
	"aShareBacktest/internal/backtesting"
	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/risk"
	"aShareBacktest/internal/strategy/strategies"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	// Instrument and strategy
	StockCode  string   // Six-digit code, suffix optional (e.g., "600519" or "600519.SH")
	StockCodes []string // Codes swept by the batch runner; defaults to StockCode
	Strategy   string   // Registry name (hold, ma_crossover, momentum)
	StartDate  time.Time
	EndDate    time.Time

	// Account and fees
	InitialCapital float64
	CommissionRate float64 // e.g., 0.0003
	MinCommission  float64 // e.g., 5
	StampDutyRate  float64 // e.g., 0.001, sell side only

	// Exit rules
	StopLoss       float64 // e.g., 0.08
	TakeProfit     float64 // e.g., 0.15
	MaxHoldingDays int     // e.g., 10

	// Metrics
	RiskFreeRate float64

	// Storage
	DataDir            string // Parquet bar cache
	BarsCSV            string // Optional CSV bar table used instead of the cache
	DBPath             string
	StrategyConfigPath string
	OutputDir          string

	SweepWorkers int

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.StockCode = getEnv("STOCK_CODE", "600000")
	if err := market.ValidateCode(cfg.StockCode); err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOCK_CODE: %v", err))
	}
	cfg.StockCodes = getEnvAsList("STOCK_CODES", []string{cfg.StockCode})
	for _, code := range cfg.StockCodes {
		if err := market.ValidateCode(code); err != nil {
			errs = append(errs, fmt.Sprintf("invalid STOCK_CODES entry: %v", err))
		}
	}

	cfg.Strategy = getEnv("STRATEGY", strategies.MomentumName)

	cfg.StartDate, err = getEnvAsDate("START_DATE")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid START_DATE: %v", err))
	}
	cfg.EndDate, err = getEnvAsDate("END_DATE")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid END_DATE: %v", err))
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		errs = append(errs, "END_DATE must not be before START_DATE")
	}

	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 100_000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if cfg.InitialCapital < backtesting.MinInitialCash || cfg.InitialCapital > backtesting.MaxInitialCash {
		errs = append(errs, fmt.Sprintf("INITIAL_CAPITAL must be between %.0f and %.0f",
			backtesting.MinInitialCash, backtesting.MaxInitialCash))
	}

	defaults := domain.DefaultCommissionSchedule()
	cfg.CommissionRate, err = getEnvAsFloatRequired("COMMISSION_RATE", defaults.Rate)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION_RATE: %v", err))
	}
	cfg.MinCommission, err = getEnvAsFloatRequired("MIN_COMMISSION", defaults.MinimumFee)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_COMMISSION: %v", err))
	}
	cfg.StampDutyRate, err = getEnvAsFloatRequired("STAMP_DUTY_RATE", defaults.StampDutyRate)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STAMP_DUTY_RATE: %v", err))
	}
	if err := cfg.commissionSchedule().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	riskDefaults := risk.DefaultRiskConfig()
	cfg.StopLoss, err = getEnvAsFloatRequired("STOP_LOSS", riskDefaults.StopLossPercent)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	} else if cfg.StopLoss <= 0 || cfg.StopLoss >= 1.0 {
		errs = append(errs, "STOP_LOSS must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.TakeProfit, err = getEnvAsFloatRequired("TAKE_PROFIT", riskDefaults.TakeProfitPercent)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT: %v", err))
	} else if cfg.TakeProfit <= 0 {
		errs = append(errs, "TAKE_PROFIT must be positive")
	}

	cfg.MaxHoldingDays, err = getEnvAsIntRequired("MAX_HOLDING_DAYS", riskDefaults.MaxHoldingDays)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_HOLDING_DAYS: %v", err))
	} else if cfg.MaxHoldingDays <= 0 {
		errs = append(errs, "MAX_HOLDING_DAYS must be positive")
	}

	cfg.RiskFreeRate = getEnvAsFloat("RISK_FREE_RATE", 0.03)

	cfg.DataDir = getEnv("DATA_DIR", "./data/bars")
	cfg.BarsCSV = getEnv("BARS_CSV", "")
	cfg.DBPath = getEnv("DB_PATH", "./data/backtests.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.StrategyConfigPath = getEnv("STRATEGY_CONFIG_PATH", "./config/strategies.yaml")
	cfg.OutputDir = getEnv("OUTPUT_DIR", "./output")

	cfg.SweepWorkers = getEnvAsInt("SWEEP_WORKERS", 4)
	if cfg.SweepWorkers < 0 {
		errs = append(errs, "SWEEP_WORKERS cannot be negative")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: configuration validation failed: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}

	return cfg, nil
}

func (c *Config) commissionSchedule() domain.CommissionSchedule {
	return domain.CommissionSchedule{
		Rate:          c.CommissionRate,
		MinimumFee:    c.MinCommission,
		StampDutyRate: c.StampDutyRate,
	}
}

// BacktestConfig builds the engine configuration for code. Strategy params
// may override stop_loss, take_profit, max_holding_days and position_size.
func (c *Config) BacktestConfig(code string, params strategies.Params) (backtesting.Config, error) {
	bc := backtesting.DefaultConfig(market.StripSuffix(code), c.InitialCapital)
	bc.StartDate = c.StartDate
	bc.EndDate = c.EndDate
	bc.Commission = c.commissionSchedule()
	bc.Metrics.RiskFreeRate = c.RiskFreeRate

	var err error
	if bc.Risk.StopLossPercent, err = params.Float("stop_loss", c.StopLoss); err != nil {
		return bc, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	if bc.Risk.TakeProfitPercent, err = params.Float("take_profit", c.TakeProfit); err != nil {
		return bc, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	if bc.Risk.MaxHoldingDays, err = params.Int("max_holding_days", c.MaxHoldingDays); err != nil {
		return bc, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	if bc.Risk.PositionSizePercent, err = params.Float("position_size", bc.Risk.PositionSizePercent); err != nil {
		return bc, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	return bc, nil
}

// StrategyFile is the layout of the strategy parameter file.
type StrategyFile struct {
	Strategies map[string]StrategyEntry `yaml:"strategies"`
}

// StrategyEntry holds one strategy's parameters.
type StrategyEntry struct {
	Description string                 `yaml:"description"`
	Parameters  map[string]interface{} `yaml:"parameters"`
}

// LoadStrategyParams reads the parameters for name from the YAML file at path.
// A missing file or a strategy absent from the file yields empty params, so
// built-in defaults apply.
func LoadStrategyParams(path, name string) (strategies.Params, error) {
	if path == "" {
		return strategies.Params{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return strategies.Params{}, nil
		}
		return nil, fmt.Errorf("reading strategy config %s: %w", path, err)
	}

	var file StrategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing strategy config %s: %v", ports.ErrConfigurationError, path, err)
	}
	entry, ok := file.Strategies[name]
	if !ok || entry.Parameters == nil {
		return strategies.Params{}, nil
	}
	return strategies.Params(entry.Parameters), nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsDate parses YYYY-MM-DD; unset means the zero time (open range).
func getEnvAsDate(key string) (time.Time, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date value '%s' for key %s: %w", valueStr, key, err)
	}
	return t, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
