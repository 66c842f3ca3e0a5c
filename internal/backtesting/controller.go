package backtesting

import (
	"fmt"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/risk"
)

// State is the controller's position state.
type State string

const (
	StateFlat    State = "FLAT"
	StateHolding State = "HOLDING"
)

// StateOf derives the controller state from an account.
func StateOf(a Account) State {
	if a.Holding() {
		return StateHolding
	}
	return StateFlat
}

// Decision is the outcome of evaluating one bar. At most one order is produced.
type Decision struct {
	Order  *domain.Order
	Reason domain.CloseReason // Set for exit orders
	Gated  bool               // True when T+1 blocked exit evaluation
}

// StepResult is a Decision together with the broker's response.
type StepResult struct {
	Decision
	Account   Account
	Fill      *domain.Fill
	Rejection *domain.Rejection
	Trade     *domain.Trade // Closed trade produced by an accepted sell
}

// Controller is the bar-by-bar state machine of a run. It holds only
// immutable collaborators, so one Controller may serve many runs.
type Controller struct {
	broker *Broker
	risk   *risk.RiskManager
}

// NewController creates a controller.
func NewController(broker *Broker, riskManager *risk.RiskManager) (*Controller, error) {
	if broker == nil {
		return nil, fmt.Errorf("%w: broker is required", ports.ErrConfigurationError)
	}
	if riskManager == nil {
		return nil, fmt.Errorf("%w: risk manager is required", ports.ErrConfigurationError)
	}
	return &Controller{broker: broker, risk: riskManager}, nil
}

// Step decides what to do on bar given the account and the bar's signal.
func (c *Controller) Step(account Account, bar domain.Bar, signal domain.Signal) Decision {
	if !account.Holding() {
		if signal != domain.SignalBuy {
			return Decision{}
		}
		size := c.risk.GetPositionSize(account.Cash, bar.Close)
		if size < domain.LotSize {
			return Decision{}
		}
		return Decision{Order: &domain.Order{
			Side:           domain.Buy,
			RequestedSize:  size,
			ReferencePrice: bar.Close,
			Date:           bar.Date,
		}}
	}

	pos := account.Position
	if domain.SameDay(bar.Date, pos.EntryDate) {
		return Decision{Gated: true}
	}

	exit, reason := c.risk.CheckExit(pos, bar, signal)
	if !exit {
		return Decision{}
	}
	return Decision{
		Order: &domain.Order{
			Side:           domain.Sell,
			RequestedSize:  pos.Shares,
			ReferencePrice: bar.Close,
			Date:           bar.Date,
		},
		Reason: reason,
	}
}

// Advance runs Step and submits the resulting order, if any, to the broker.
// A prevClose of zero means the bar has no previous close.
func (c *Controller) Advance(account Account, bar domain.Bar, signal domain.Signal, prevClose float64) StepResult {
	d := c.Step(account, bar, signal)
	res := StepResult{Decision: d, Account: account}
	if d.Order == nil {
		return res
	}

	next, fill, rej := c.broker.Apply(account, *d.Order, prevClose)
	res.Account = next
	res.Fill = fill
	res.Rejection = rej
	if fill != nil && fill.Side == domain.Sell {
		trade := CloseTrade(account.Position, *fill, d.Reason)
		res.Trade = &trade
	}
	return res
}
