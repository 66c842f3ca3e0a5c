package analytics

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

const summaryRule = "============================================================"

func money(v float64) string {
	return "¥" + humanize.CommafWithDigits(math.Round(v*100)/100, 2)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// Summary renders the report as a fixed-layout text block.
func (r Report) Summary() string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s %s\n", label, value))
	}

	sb.WriteString(summaryRule + "\n")
	sb.WriteString("  BACKTEST SUMMARY\n")
	sb.WriteString(summaryRule + "\n")
	line("Initial capital:", money(r.InitialCapital))
	line("Final capital:", money(r.FinalCapital))
	line("Total return:", pct(r.TotalReturn))
	line("Annual return:", pct(r.AnnualReturn))
	sb.WriteString(summaryRule + "\n")
	line("Max drawdown:", pct(r.MaxDrawdown.Pct))
	line("Volatility:", pct(r.Volatility))
	line("Sharpe ratio:", fmt.Sprintf("%.4f", r.SharpeRatio))
	line("Sortino ratio:", fmt.Sprintf("%.4f", r.SortinoRatio))
	line("Calmar ratio:", fmt.Sprintf("%.4f", r.CalmarRatio))
	sb.WriteString(summaryRule + "\n")
	line("Total trades:", fmt.Sprintf("%d", r.TotalTrades))
	line("Win rate:", pct(r.WinRate))
	line("Profit/loss ratio:", ratio(r.ProfitLossRatio))
	line("Avg holding days:", fmt.Sprintf("%.1f", r.AvgHoldingDays))
	line("Max consecutive wins:", fmt.Sprintf("%d", r.MaxConsecutiveWins))
	line("Max consecutive losses:", fmt.Sprintf("%d", r.MaxConsecutiveLosses))
	sb.WriteString(summaryRule + "\n")
	line("Total fees:", money(r.TotalFees))
	line("Fee percentage:", pct(r.FeePercentage))
	sb.WriteString(summaryRule + "\n")
	return sb.String()
}

// ToMap flattens the scalar metrics, keyed by snake_case name.
func (r Report) ToMap() map[string]float64 {
	return map[string]float64{
		"initial_capital":        r.InitialCapital,
		"final_capital":          r.FinalCapital,
		"total_return":           r.TotalReturn,
		"annual_return":          r.AnnualReturn,
		"volatility":             r.Volatility,
		"sharpe_ratio":           r.SharpeRatio,
		"sortino_ratio":          r.SortinoRatio,
		"max_drawdown":           r.MaxDrawdown.Pct,
		"max_drawdown_amount":    r.MaxDrawdown.Amount,
		"calmar_ratio":           r.CalmarRatio,
		"total_trades":           float64(r.TotalTrades),
		"win_rate":               r.WinRate,
		"profit_loss_ratio":      r.ProfitLossRatio,
		"avg_holding_days":       r.AvgHoldingDays,
		"max_consecutive_wins":   float64(r.MaxConsecutiveWins),
		"max_consecutive_losses": float64(r.MaxConsecutiveLosses),
		"total_fees":             r.TotalFees,
		"fee_percentage":         r.FeePercentage,
	}
}
