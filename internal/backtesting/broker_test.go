package backtesting

import (
	"errors"
	"math/rand"
	"testing"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T, code string) *Broker {
	t.Helper()
	b, err := NewBroker(BrokerConfig{Code: code, Commission: domain.DefaultCommissionSchedule()})
	require.NoError(t, err)
	return b
}

func ptr(f float64) *float64 { return &f }

func TestNewBroker_RejectsNegativeFees(t *testing.T) {
	_, err := NewBroker(BrokerConfig{Code: "600519", Commission: domain.CommissionSchedule{Rate: -0.1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestBroker_LimitRatioFixedByCode(t *testing.T) {
	assert.Equal(t, 0.10, newTestBroker(t, "600519").LimitRatio())
	assert.Equal(t, 0.10, newTestBroker(t, "").LimitRatio())
	assert.Equal(t, 0.20, newTestBroker(t, "688981").LimitRatio())
	assert.Equal(t, 0.20, newTestBroker(t, "300750").LimitRatio())
}

func TestBroker_Commission(t *testing.T) {
	b := newTestBroker(t, "600519")
	tests := []struct {
		name  string
		size  int64
		price float64
		want  float64
	}{
		{"sell 1000 at 10 pays minimum plus stamp duty", -1000, 10, 15.0},
		{"buy 1000 at 10 pays minimum", 1000, 10, 5.0},
		{"buy above minimum", 100000, 10, 300.0},
		{"sell above minimum", -100000, 10, 1300.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Commission(tt.size, tt.price))
		})
	}
}

func TestBroker_CommissionProperties(t *testing.T) {
	b := newTestBroker(t, "600519")
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		size := int64(1+rng.Intn(2000)) * domain.LotSize
		price := float64(1+rng.Intn(50000)) / 100

		buy := b.Commission(size, price)
		sell := b.Commission(-size, price)

		assert.GreaterOrEqual(t, buy, 5.0)
		assert.GreaterOrEqual(t, sell, 5.0)
		assert.GreaterOrEqual(t, sell, buy)
		assert.GreaterOrEqual(t, b.Commission(size+domain.LotSize, price), buy)
		assert.GreaterOrEqual(t, b.Commission(size, price+0.01), buy)
		assert.GreaterOrEqual(t, b.Commission(-(size+domain.LotSize), price), sell)
	}
}

func TestBroker_TryBuy(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		requested int64
		limit     *float64
		prevClose float64
		wantSize  int64
		wantErr   error
	}{
		{"rounds down to lot", "600519", 150, nil, 10, 100, nil},
		{"exact lots", "600519", 9500, nil, 10, 9500, nil},
		{"below one lot", "600519", 99, nil, 10, 0, ports.ErrLotSize},
		{"well inside band", "600519", 100, ptr(10.5), 10, 100, nil},
		{"near limit up", "600519", 100, ptr(10.95), 10, 0, ports.ErrPriceLimit},
		{"at limit up", "600519", 100, ptr(11.0), 10, 0, ports.ErrPriceLimit},
		{"star board wider band", "688981", 100, ptr(11.5), 10, 100, nil},
		{"star board near limit", "688981", 100, ptr(11.95), 10, 0, ports.ErrPriceLimit},
		{"no previous close skips band", "600519", 100, ptr(50), 0, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := newTestBroker(t, tt.code).TryBuy(tt.requested, tt.limit, tt.prevClose)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, size)
			assert.Zero(t, size%domain.LotSize)
			assert.LessOrEqual(t, size, tt.requested)
		})
	}
}

func TestBroker_TrySell(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		requested int64
		limit     *float64
		prevClose float64
		wantErr   error
	}{
		{"inside band", "600519", 1000, ptr(9.5), 10, nil},
		{"at limit down", "600519", 1000, ptr(9.0), 10, ports.ErrPriceLimit},
		{"near limit down", "600519", 1000, ptr(9.05), 10, ports.ErrPriceLimit},
		{"chinext wider band", "300750", 1000, ptr(9.0), 10, nil},
		{"no previous close skips band", "600519", 1000, ptr(1.0), 0, nil},
		{"zero lots", "600519", 50, nil, 10, ports.ErrLotSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestBroker(t, tt.code).TrySell(tt.requested, tt.limit, tt.prevClose)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBroker_ApplyBuy(t *testing.T) {
	b := newTestBroker(t, "600519")
	account := Account{Cash: 100000}
	order := domain.Order{Side: domain.Buy, RequestedSize: 9500, ReferencePrice: 10, Date: day0}

	next, fill, rej := b.Apply(account, order, 0)
	require.Nil(t, rej)
	require.NotNil(t, fill)

	assert.Equal(t, int64(9500), fill.Size)
	assert.InDelta(t, 28.5, fill.Commission, 1e-9)
	assert.InDelta(t, 4971.5, next.Cash, 1e-9)
	require.NotNil(t, next.Position)
	assert.Equal(t, int64(9500), next.Position.Shares)
	assert.Equal(t, 10.0, next.Position.EntryPrice)
	assert.Equal(t, day0, next.Position.EntryDate)
	assert.Equal(t, "600519", next.Position.Code)

	assert.Nil(t, account.Position, "input account is not mutated")
	assert.Equal(t, 100000.0, account.Cash)
}

func TestBroker_ApplyRejections(t *testing.T) {
	b := newTestBroker(t, "600519")
	holding := Account{Cash: 1000, Position: &domain.Position{Shares: 1000, EntryPrice: 10, EntryDate: day0}}

	tests := []struct {
		name    string
		account Account
		order   domain.Order
		prev    float64
		wantErr error
	}{
		{"buy without funds", Account{Cash: 10000}, domain.Order{Side: domain.Buy, RequestedSize: 1000, ReferencePrice: 10}, 0, ports.ErrInsufficientFunds},
		{"buy while holding", holding, domain.Order{Side: domain.Buy, RequestedSize: 100, ReferencePrice: 10}, 0, ports.ErrPositionExists},
		{"sell while flat", Account{Cash: 10000}, domain.Order{Side: domain.Sell, RequestedSize: 100, ReferencePrice: 10}, 0, ports.ErrPositionNotFound},
		{"partial sell", holding, domain.Order{Side: domain.Sell, RequestedSize: 500, ReferencePrice: 10}, 0, ports.ErrInvalidRequest},
		{"sell at limit down", holding, domain.Order{Side: domain.Sell, RequestedSize: 1000, ReferencePrice: 9}, 10, ports.ErrPriceLimit},
		{"unknown side", holding, domain.Order{Side: "SHORT", RequestedSize: 100, ReferencePrice: 10}, 0, ports.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, fill, rej := b.Apply(tt.account, tt.order, tt.prev)
			assert.Nil(t, fill)
			require.NotNil(t, rej)
			assert.True(t, errors.Is(rej, tt.wantErr), "got %v", rej.Reason)
			assert.Equal(t, tt.account, next, "rejection leaves the account unchanged")
		})
	}
}

func TestBroker_ApplySell(t *testing.T) {
	b := newTestBroker(t, "600519")
	account := Account{Cash: 500, Position: &domain.Position{Shares: 1000, EntryPrice: 10, EntryDate: day0, EntryCommission: 5}}
	order := domain.Order{Side: domain.Sell, RequestedSize: 1000, ReferencePrice: 11, Date: day0.AddDate(0, 0, 1)}

	next, fill, rej := b.Apply(account, order, 10.5)
	require.Nil(t, rej)
	require.NotNil(t, fill)
	assert.Nil(t, next.Position)
	assert.InDelta(t, 16.0, fill.Commission, 1e-9)
	assert.InDelta(t, 500+11000-16, next.Cash, 1e-9)
	assert.NotNil(t, account.Position)
}
