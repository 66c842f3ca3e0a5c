package domain

import (
	"fmt"
	"time"
)

// Order is a transient full-position market order priced at a bar's close.
type Order struct {
	Side           OrderSide
	RequestedSize  int64
	ReferencePrice float64
	Date           time.Time
}

// Fill is the outcome of an accepted order.
type Fill struct {
	Side       OrderSide
	Size       int64
	Price      float64
	Commission float64
	Date       time.Time
}

// Notional returns size times price.
func (f Fill) Notional() float64 {
	return float64(f.Size) * f.Price
}

// Rejection is the outcome of an order the broker refused. It is a no-op for
// the bar it occurred on.
type Rejection struct {
	Order  Order
	Reason error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s %d @ %.2f on %s rejected: %v",
		r.Order.Side, r.Order.RequestedSize, r.Order.ReferencePrice, DateKey(r.Order.Date), r.Reason)
}

// Unwrap exposes the underlying reason for errors.Is checks.
func (r Rejection) Unwrap() error { return r.Reason }
