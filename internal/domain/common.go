package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the status of a trade record.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonSignal     CloseReason = "SIGNAL"      // Strategy emitted SELL
	CloseReasonStopLoss   CloseReason = "STOP_LOSS"   // Loss ratio reached the stop-loss threshold
	CloseReasonTakeProfit CloseReason = "TAKE_PROFIT" // Profit ratio reached the take-profit threshold
	CloseReasonTimeLimit  CloseReason = "MAX_HOLDING" // Held longer than the maximum holding days
	CloseReasonUnknown    CloseReason = "Unknown"
)

// Board is the exchange board an A-share instrument trades on.
type Board string

const (
	BoardMain    Board = "MAIN"    // Shanghai/Shenzhen main board, ±10%
	BoardSTAR    Board = "STAR"    // Shanghai STAR market (688), ±20%
	BoardChiNext Board = "CHINEXT" // Shenzhen ChiNext/GEM (300), ±20%
)
