package backtesting

import (
	"errors"
	"testing"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
	"aShareBacktest/internal/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, code string) *Controller {
	t.Helper()
	rm, err := risk.NewRiskManager(risk.DefaultRiskConfig())
	require.NoError(t, err)
	c, err := NewController(newTestBroker(t, code), rm)
	require.NoError(t, err)
	return c
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	_, err := NewController(nil, nil)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestController_StepFlat(t *testing.T) {
	c := newTestController(t, "600519")
	bar := domain.Bar{Date: day0, Close: 10}

	tests := []struct {
		name     string
		cash     float64
		signal   domain.Signal
		wantSize int64
	}{
		{"buy sizes at 95 percent of cash", 100000, domain.SignalBuy, 9500},
		{"buy below one lot produces nothing", 1000, domain.SignalBuy, 0},
		{"sell while flat is ignored", 100000, domain.SignalSell, 0},
		{"hold does nothing", 100000, domain.SignalHold, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Step(Account{Cash: tt.cash}, bar, tt.signal)
			if tt.wantSize == 0 {
				assert.Nil(t, d.Order)
				return
			}
			require.NotNil(t, d.Order)
			assert.Equal(t, domain.Buy, d.Order.Side)
			assert.Equal(t, tt.wantSize, d.Order.RequestedSize)
			assert.Equal(t, 10.0, d.Order.ReferencePrice)
			assert.Equal(t, day0, d.Order.Date)
		})
	}
}

func TestController_StepHolding(t *testing.T) {
	c := newTestController(t, "600519")
	pos := &domain.Position{Shares: 900, EntryPrice: 100, EntryDate: day0}
	account := Account{Cash: 1000, Position: pos}

	tests := []struct {
		name       string
		daysLater  int
		close      float64
		signal     domain.Signal
		wantGated  bool
		wantReason domain.CloseReason
	}{
		{"entry day is gated even on sell", 0, 50, domain.SignalSell, true, ""},
		{"sell signal next day", 1, 100, domain.SignalSell, false, domain.CloseReasonSignal},
		{"stop loss at 9 percent loss", 1, 91, domain.SignalHold, false, domain.CloseReasonStopLoss},
		{"take profit", 2, 116, domain.SignalHold, false, domain.CloseReasonTakeProfit},
		{"holding period expired", 11, 100, domain.SignalHold, false, domain.CloseReasonTimeLimit},
		{"buy while holding does nothing", 3, 100, domain.SignalBuy, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := domain.Bar{Date: day0.AddDate(0, 0, tt.daysLater), Close: tt.close}
			d := c.Step(account, bar, tt.signal)
			assert.Equal(t, tt.wantGated, d.Gated)
			assert.Equal(t, tt.wantReason, d.Reason)
			if tt.wantReason == "" {
				assert.Nil(t, d.Order)
				return
			}
			require.NotNil(t, d.Order)
			assert.Equal(t, domain.Sell, d.Order.Side)
			assert.Equal(t, int64(900), d.Order.RequestedSize)
			assert.Equal(t, tt.close, d.Order.ReferencePrice)
		})
	}
}

func TestController_AdvanceClosesTrade(t *testing.T) {
	c := newTestController(t, "600519")
	bars := barsFromCloses(10, 10.5)

	res := c.Advance(Account{Cash: 100000}, bars[0], domain.SignalBuy, 0)
	require.NotNil(t, res.Fill)
	assert.Nil(t, res.Trade)
	assert.Equal(t, StateHolding, StateOf(res.Account))

	res = c.Advance(res.Account, bars[1], domain.SignalSell, 10)
	require.NotNil(t, res.Fill)
	require.NotNil(t, res.Trade)
	assert.Equal(t, StateFlat, StateOf(res.Account))

	tr := res.Trade
	assert.Equal(t, domain.CloseReasonSignal, tr.CloseReason)
	assert.Equal(t, domain.StatusClosed, tr.Status)
	assert.Equal(t, int64(9500), tr.Shares)
	buyFee := 9500 * 10 * 0.0003
	sellFee := 9500*10.5*0.0003 + 9500*10.5*0.001
	assert.InDelta(t, buyFee+sellFee, tr.Commission, 1e-9)
	assert.InDelta(t, 9500*0.5-buyFee-sellFee, tr.PNL, 1e-9)
	assert.InDelta(t, 100000+tr.PNL, res.Account.Cash, 1e-9)
}

func TestController_AdvanceRejectedExitStaysHolding(t *testing.T) {
	c := newTestController(t, "600519")
	account := Account{Cash: 0, Position: &domain.Position{Shares: 1000, EntryPrice: 10, EntryDate: day0}}
	bar := domain.Bar{Date: day0.AddDate(0, 0, 1), Close: 9}

	res := c.Advance(account, bar, domain.SignalHold, 10)
	assert.Equal(t, domain.CloseReasonStopLoss, res.Reason)
	require.NotNil(t, res.Rejection)
	assert.True(t, errors.Is(res.Rejection, ports.ErrPriceLimit))
	assert.Nil(t, res.Trade)
	assert.Equal(t, StateHolding, StateOf(res.Account))
}
