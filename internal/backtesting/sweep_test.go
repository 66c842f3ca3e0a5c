package backtesting

import (
	"context"
	"errors"
	"testing"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_IsolatesFailures(t *testing.T) {
	bars := barsFromCloses(10, 10.2, 10.4, 10.1, 10.3)
	buyFirst := holdSignals(len(bars))
	buyFirst[0] = domain.SignalBuy
	buyFirst[2] = domain.SignalSell

	jobs := []SweepJob{
		{Label: "ok", Config: DefaultConfig("600519", 100000), Source: &staticSource{name: "static", signals: buyFirst}, Bars: bars},
		{Label: "panics", Config: DefaultConfig("600519", 100000), Source: &staticSource{name: "panicky", panics: true}, Bars: bars},
		{Label: "errors", Config: DefaultConfig("000001", 100000), Source: &staticSource{name: "broken", err: errors.New("no data")}, Bars: bars},
		{Label: "bad config", Config: DefaultConfig("300750", 1), Source: &staticSource{name: "hold"}, Bars: bars},
		{Label: "hold", Config: DefaultConfig("688981", 100000), Source: &staticSource{name: "hold"}, Bars: bars},
	}

	outcomes := Sweep(context.Background(), jobs, 2, &mockLogger{})
	require.Len(t, outcomes, len(jobs))

	for i, o := range outcomes {
		assert.Equal(t, jobs[i].Label, o.Label, "outcomes keep job order")
		assert.Equal(t, jobs[i].Config.Code, o.Code)
	}

	require.NoError(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, 1, outcomes[0].Result.TotalTrades)
	assert.Equal(t, "static", outcomes[0].Strategy)

	assert.Nil(t, outcomes[1].Result)
	assert.True(t, errors.Is(outcomes[1].Err, ports.ErrUnknown))
	assert.Contains(t, outcomes[1].Err.Error(), "signal source exploded")

	assert.Nil(t, outcomes[2].Result)
	assert.Contains(t, outcomes[2].Err.Error(), "no data")

	assert.True(t, errors.Is(outcomes[3].Err, ports.ErrConfigurationError))

	require.NoError(t, outcomes[4].Err)
	assert.Equal(t, 100000.0, outcomes[4].Result.FinalValue)
}

func TestSweep_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bars := barsFromCloses(10, 11)
	jobs := []SweepJob{
		{Label: "a", Config: DefaultConfig("600519", 100000), Source: &staticSource{name: "hold"}, Bars: bars},
		{Label: "b", Config: DefaultConfig("600519", 100000), Source: &staticSource{name: "hold"}, Bars: bars},
	}
	for _, o := range Sweep(ctx, jobs, 0, &mockLogger{}) {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestSweep_NoJobs(t *testing.T) {
	assert.Empty(t, Sweep(context.Background(), nil, 4, &mockLogger{}))
}

func TestTradeRecorder(t *testing.T) {
	r := NewTradeRecorder()
	assert.Equal(t, 0, r.Len())

	r.Append(domain.Trade{PNL: 1})
	r.Append(domain.Trade{PNL: -2})
	assert.Equal(t, 2, r.Len())

	trades := r.Trades()
	trades[0].PNL = 100
	assert.Equal(t, 1.0, r.Trades()[0].PNL, "accessor returns a copy")
	assert.Equal(t, -2.0, r.Trades()[1].PNL)
}

func TestCloseTrade(t *testing.T) {
	pos := &domain.Position{Code: "600519", Shares: 1000, EntryPrice: 10, EntryDate: day0, EntryCommission: 5}
	fill := domain.Fill{Side: domain.Sell, Size: 1000, Price: 12, Commission: 17, Date: day0.AddDate(0, 0, 3)}

	tr := CloseTrade(pos, fill, "")
	assert.Equal(t, domain.CloseReasonUnknown, tr.CloseReason)
	assert.Equal(t, 22.0, tr.Commission)
	assert.Equal(t, 2000.0-22.0, tr.PNL)
	assert.Equal(t, 3, tr.HoldingDays())
	assert.Equal(t, "600519", tr.Code)
}
