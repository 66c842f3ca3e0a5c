package backtesting

import "aShareBacktest/internal/domain"

// CloseTrade builds the closed-trade record for pos exited by fill.
func CloseTrade(pos *domain.Position, fill domain.Fill, reason domain.CloseReason) domain.Trade {
	gross := (fill.Price - pos.EntryPrice) * float64(pos.Shares)
	commission := pos.EntryCommission + fill.Commission
	if reason == "" {
		reason = domain.CloseReasonUnknown
	}
	return domain.Trade{
		Code:        pos.Code,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   fill.Price,
		Shares:      pos.Shares,
		PNL:         gross - commission,
		Commission:  commission,
		EntryDate:   pos.EntryDate,
		ExitDate:    fill.Date,
		CloseReason: reason,
		Status:      domain.StatusClosed,
	}
}

// TradeRecorder is an append-only log of closed trades in close order.
type TradeRecorder struct {
	trades []domain.Trade
}

// NewTradeRecorder creates an empty recorder.
func NewTradeRecorder() *TradeRecorder {
	return &TradeRecorder{}
}

// Append records a closed trade.
func (r *TradeRecorder) Append(t domain.Trade) {
	r.trades = append(r.trades, t)
}

// Trades returns a copy of the recorded trades.
func (r *TradeRecorder) Trades() []domain.Trade {
	out := make([]domain.Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// Len returns the number of recorded trades.
func (r *TradeRecorder) Len() int { return len(r.trades) }
