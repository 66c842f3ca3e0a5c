// Package analytics computes performance metrics over an equity curve and a
// closed-trade log. Every function is pure.
package analytics

import (
	"math"
	"time"

	"aShareBacktest/internal/domain"

	"github.com/montanaflynn/stats"
)

// Options tunes metric calculation.
type Options struct {
	RiskFreeRate  float64 // Annual risk-free rate used by Sharpe and Sortino
	TradingDays   int     // Annualization factor for volatility
	CalendarDays  float64 // Days per year used to annualize total return
	IncludeCurves bool    // Populate EquityCurve, DrawdownCurve and MonthlyReturns
}

// DefaultOptions returns the A-share defaults.
func DefaultOptions() Options {
	return Options{
		RiskFreeRate:  0.03,
		TradingDays:   252,
		CalendarDays:  365,
		IncludeCurves: true,
	}
}

// Drawdown describes the largest peak-to-trough decline of the equity curve.
// PeakDate and TroughDate are zero when there is no decline.
type Drawdown struct {
	Pct        float64
	Amount     float64
	PeakDate   time.Time
	TroughDate time.Time
}

// MonthlyReturn is the change in month-end value relative to the prior month-end.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

// EquityRow is one row of the equity curve table.
type EquityRow struct {
	Date             time.Time
	Value            float64
	Return           float64 // Daily change; zero on the first row
	CumulativeReturn float64 // Relative to initial capital
}

// DrawdownPoint is the drawdown off the running peak at one date, as a non-positive fraction.
type DrawdownPoint struct {
	Date     time.Time
	Drawdown float64
}

// Report holds the complete metric set of one run.
type Report struct {
	InitialCapital float64
	FinalCapital   float64

	// Returns
	TotalReturn  float64
	AnnualReturn float64

	// Risk
	Volatility   float64
	SharpeRatio  float64
	SortinoRatio float64
	MaxDrawdown  Drawdown
	CalmarRatio  float64

	// Trades
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	ProfitLossRatio      float64 // +Inf when there are wins and no losses
	AvgHoldingDays       float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	// Fees
	TotalFees     float64
	FeePercentage float64

	MonthlyReturns []MonthlyReturn
	EquityCurve    []EquityRow
	DrawdownCurve  []DrawdownPoint
}

// Calculate computes the full report. Degenerate inputs yield zero-valued
// metrics rather than NaN or a panic, except ProfitLossRatio which is +Inf
// when every closed trade is a win.
func Calculate(equity []domain.EquityPoint, trades []domain.Trade, initialCapital float64, opts Options) Report {
	if opts.TradingDays <= 0 {
		opts.TradingDays = 252
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = 365
	}

	r := Report{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
	}
	if len(equity) > 0 {
		r.FinalCapital = equity[len(equity)-1].Value
	}

	r.TotalReturn = TotalReturn(initialCapital, r.FinalCapital)
	r.AnnualReturn = AnnualReturn(equity, r.TotalReturn, opts.CalendarDays)

	returns := DailyReturns(equity)
	r.Volatility = Volatility(returns, opts.TradingDays)
	r.SharpeRatio = SharpeRatio(r.AnnualReturn, r.Volatility, opts.RiskFreeRate)
	r.SortinoRatio = SortinoRatio(r.AnnualReturn, returns, opts.RiskFreeRate, opts.TradingDays)
	r.MaxDrawdown = MaxDrawdown(equity)
	if r.MaxDrawdown.Pct > 0 {
		r.CalmarRatio = r.AnnualReturn / r.MaxDrawdown.Pct
	}

	analyzeTrades(&r, trades)

	if initialCapital != 0 {
		r.FeePercentage = r.TotalFees / initialCapital
	}

	if opts.IncludeCurves {
		r.MonthlyReturns = MonthlyReturns(equity)
		r.EquityCurve = EquityCurve(equity, initialCapital)
		r.DrawdownCurve = DrawdownCurve(equity)
	}
	return r
}

// TotalReturn returns (final-initial)/initial, or 0 when initial is 0.
func TotalReturn(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}
	return (final - initial) / initial
}

// AnnualReturn compounds totalReturn over the calendar span of the curve.
func AnnualReturn(equity []domain.EquityPoint, totalReturn, daysPerYear float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	days := domain.DaysBetween(equity[0].Date, equity[len(equity)-1].Date)
	if days <= 0 {
		return 0
	}
	years := float64(days) / daysPerYear
	return math.Pow(1+totalReturn, 1/years) - 1
}

// DailyReturns returns the percentage change between consecutive samples.
// A change from a zero value is undefined and skipped.
func DailyReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			continue
		}
		out = append(out, equity[i].Value/prev-1)
	}
	return out
}

// sampleStdDev returns the n-1 standard deviation, or 0 for fewer than two values.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil || math.IsNaN(sd) {
		return 0
	}
	return sd
}

// Volatility annualizes the sample standard deviation of daily returns.
func Volatility(returns []float64, tradingDays int) float64 {
	return sampleStdDev(returns) * math.Sqrt(float64(tradingDays))
}

// SharpeRatio returns (annualReturn-rf)/volatility, or 0 when volatility is 0.
func SharpeRatio(annualReturn, volatility, riskFree float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (annualReturn - riskFree) / volatility
}

// SortinoRatio is the Sharpe ratio with only negative daily returns in the
// denominator. It is 0 when there is no measurable downside.
func SortinoRatio(annualReturn float64, returns []float64, riskFree float64, tradingDays int) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	downsideVol := sampleStdDev(downside) * math.Sqrt(float64(tradingDays))
	if downsideVol == 0 {
		return 0
	}
	return (annualReturn - riskFree) / downsideVol
}

// MaxDrawdown finds the deepest decline off the running maximum. Ties resolve
// to the earliest trough; the peak is the first date the running maximum was set.
func MaxDrawdown(equity []domain.EquityPoint) Drawdown {
	if len(equity) < 2 {
		return Drawdown{}
	}

	var dd Drawdown
	peak, peakDate := equity[0].Value, equity[0].Date
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
			peakDate = p.Date
		}
		if peak <= 0 {
			continue
		}
		frac := (peak - p.Value) / peak
		if frac > dd.Pct {
			dd = Drawdown{
				Pct:        frac,
				Amount:     peak - p.Value,
				PeakDate:   peakDate,
				TroughDate: p.Date,
			}
		}
	}
	return dd
}

// DrawdownCurve returns the drawdown at each sample.
func DrawdownCurve(equity []domain.EquityPoint) []DrawdownPoint {
	out := make([]DrawdownPoint, 0, len(equity))
	var peak float64
	for i, p := range equity {
		if i == 0 || p.Value > peak {
			peak = p.Value
		}
		var dd float64
		if peak > 0 {
			dd = (p.Value - peak) / peak
		}
		out = append(out, DrawdownPoint{Date: p.Date, Drawdown: dd})
	}
	return out
}

// EquityCurve tabulates value, daily return and cumulative return.
func EquityCurve(equity []domain.EquityPoint, initialCapital float64) []EquityRow {
	out := make([]EquityRow, 0, len(equity))
	for i, p := range equity {
		row := EquityRow{Date: p.Date, Value: p.Value}
		if i > 0 && equity[i-1].Value != 0 {
			row.Return = p.Value/equity[i-1].Value - 1
		}
		if initialCapital != 0 {
			row.CumulativeReturn = p.Value/initialCapital - 1
		}
		out = append(out, row)
	}
	return out
}

// MonthlyReturns compares each month's last value with the previous month's last value.
func MonthlyReturns(equity []domain.EquityPoint) []MonthlyReturn {
	if len(equity) < 2 {
		return nil
	}

	type monthEnd struct {
		month time.Time
		value float64
	}
	var ends []monthEnd
	for _, p := range equity {
		y, m, _ := p.Date.Date()
		month := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		if n := len(ends); n > 0 && ends[n-1].month.Equal(month) {
			ends[n-1].value = p.Value
			continue
		}
		ends = append(ends, monthEnd{month: month, value: p.Value})
	}

	var out []MonthlyReturn
	for i := 1; i < len(ends); i++ {
		if ends[i-1].value == 0 {
			continue
		}
		out = append(out, MonthlyReturn{Month: ends[i].month, Return: ends[i].value/ends[i-1].value - 1})
	}
	return out
}

func analyzeTrades(r *Report, trades []domain.Trade) {
	var (
		winSum, lossSum  float64
		holdingDays      int
		curWins, curLoss int
	)
	for _, t := range trades {
		r.TotalTrades++
		r.TotalFees += t.Commission
		holdingDays += t.HoldingDays()

		switch {
		case t.IsWin():
			r.WinningTrades++
			winSum += t.PNL
			curWins++
			curLoss = 0
		case t.IsLoss():
			r.LosingTrades++
			lossSum += t.PNL
			curLoss++
			curWins = 0
		default:
			curWins, curLoss = 0, 0
		}
		if curWins > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = curWins
		}
		if curLoss > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = curLoss
		}
	}

	if r.TotalTrades == 0 {
		return
	}
	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	r.AvgHoldingDays = float64(holdingDays) / float64(r.TotalTrades)

	switch {
	case r.WinningTrades == 0:
		r.ProfitLossRatio = 0
	case r.LosingTrades == 0:
		r.ProfitLossRatio = math.Inf(1)
	default:
		avgWin := winSum / float64(r.WinningTrades)
		avgLoss := math.Abs(lossSum / float64(r.LosingTrades))
		if avgLoss != 0 {
			r.ProfitLossRatio = avgWin / avgLoss
		}
	}
}
