package backtesting

import (
	"fmt"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/ports"

	"github.com/shopspring/decimal"
)

// Tolerances applied to the limit band before an order is refused.
const (
	limitUpTolerance   = 0.99
	limitDownTolerance = 1.01
)

// BrokerConfig is the immutable configuration of a Broker.
type BrokerConfig struct {
	Code       string
	Commission domain.CommissionSchedule
}

// Account is the cash and position state owned by a run. Broker.Apply never
// mutates an Account in place; it returns a new one.
type Account struct {
	Cash     float64
	Position *domain.Position
}

// Holding reports whether a position is open.
func (a Account) Holding() bool { return a.Position != nil }

// Value returns cash plus the position marked at price.
func (a Account) Value(price float64) float64 {
	return a.Cash + a.Position.MarketValue(price)
}

// Broker validates and prices orders under A-share rules.
type Broker struct {
	code          string
	limitRatio    float64
	rate          decimal.Decimal
	minimumFee    decimal.Decimal
	stampDutyRate decimal.Decimal
}

// NewBroker creates a broker. The limit ratio is fixed from the code prefix.
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	if err := cfg.Commission.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	return &Broker{
		code:          cfg.Code,
		limitRatio:    market.LimitRatio(cfg.Code),
		rate:          decimal.NewFromFloat(cfg.Commission.Rate),
		minimumFee:    decimal.NewFromFloat(cfg.Commission.MinimumFee),
		stampDutyRate: decimal.NewFromFloat(cfg.Commission.StampDutyRate),
	}, nil
}

// Code returns the instrument code the broker was built for.
func (b *Broker) Code() string { return b.code }

// LimitRatio returns the daily limit ratio for the broker's instrument.
func (b *Broker) LimitRatio() float64 { return b.limitRatio }

// Commission returns the fee for an order of signedSize shares at price.
// Positive sizes are buys, negative sizes are sells. Sells add stamp duty on
// top of the brokerage commission.
func (b *Broker) Commission(signedSize int64, price float64) float64 {
	abs := signedSize
	if abs < 0 {
		abs = -abs
	}
	notional := decimal.NewFromInt(abs).Mul(decimal.NewFromFloat(price))
	fee := decimal.Max(notional.Mul(b.rate), b.minimumFee)
	if signedSize < 0 {
		fee = fee.Add(notional.Mul(b.stampDutyRate))
	}
	f, _ := fee.Float64()
	return f
}

// TryBuy rounds requestedSize down to whole lots and checks limitPrice against
// the limit-up band. A prevClose of zero means no previous close is known and
// the band check is skipped.
func (b *Broker) TryBuy(requestedSize int64, limitPrice *float64, prevClose float64) (int64, error) {
	size := domain.RoundDownToLot(requestedSize)
	if size == 0 {
		return 0, fmt.Errorf("%w: buy %d", ports.ErrLotSize, requestedSize)
	}
	if limitPrice != nil && prevClose > 0 {
		_, up := market.LimitBand(prevClose, b.limitRatio)
		if *limitPrice >= up*limitUpTolerance {
			return 0, fmt.Errorf("%w: buy at %.2f near limit up %.2f", ports.ErrPriceLimit, *limitPrice, up)
		}
	}
	return size, nil
}

// TrySell is the sell-side counterpart of TryBuy, checked against the limit-down band.
func (b *Broker) TrySell(requestedSize int64, limitPrice *float64, prevClose float64) (int64, error) {
	size := domain.RoundDownToLot(requestedSize)
	if size == 0 {
		return 0, fmt.Errorf("%w: sell %d", ports.ErrLotSize, requestedSize)
	}
	if limitPrice != nil && prevClose > 0 {
		down, _ := market.LimitBand(prevClose, b.limitRatio)
		if *limitPrice <= down*limitDownTolerance {
			return 0, fmt.Errorf("%w: sell at %.2f near limit down %.2f", ports.ErrPriceLimit, *limitPrice, down)
		}
	}
	return size, nil
}

// Apply executes order against account at the order's reference price and
// returns the resulting account with either a fill or a rejection. The input
// account is left untouched. A prevClose of zero skips the limit-band check.
func (b *Broker) Apply(account Account, order domain.Order, prevClose float64) (Account, *domain.Fill, *domain.Rejection) {
	reject := func(err error) (Account, *domain.Fill, *domain.Rejection) {
		return account, nil, &domain.Rejection{Order: order, Reason: err}
	}
	price := order.ReferencePrice

	switch order.Side {
	case domain.Buy:
		if account.Position != nil {
			return reject(ports.ErrPositionExists)
		}
		size, err := b.TryBuy(order.RequestedSize, &price, prevClose)
		if err != nil {
			return reject(err)
		}
		commission := b.Commission(size, price)
		cost := float64(size)*price + commission
		if cost > account.Cash {
			return reject(fmt.Errorf("%w: need %.2f, have %.2f", ports.ErrInsufficientFunds, cost, account.Cash))
		}
		next := Account{
			Cash: account.Cash - cost,
			Position: &domain.Position{
				Code:            b.code,
				Shares:          size,
				EntryPrice:      price,
				EntryDate:       order.Date,
				EntryCommission: commission,
			},
		}
		return next, &domain.Fill{Side: domain.Buy, Size: size, Price: price, Commission: commission, Date: order.Date}, nil

	case domain.Sell:
		if account.Position == nil {
			return reject(ports.ErrPositionNotFound)
		}
		size, err := b.TrySell(order.RequestedSize, &price, prevClose)
		if err != nil {
			return reject(err)
		}
		if size != account.Position.Shares {
			return reject(fmt.Errorf("%w: sell %d of %d held, only full-position sells are supported",
				ports.ErrInvalidRequest, size, account.Position.Shares))
		}
		commission := b.Commission(-size, price)
		next := Account{Cash: account.Cash + float64(size)*price - commission}
		return next, &domain.Fill{Side: domain.Sell, Size: size, Price: price, Commission: commission, Date: order.Date}, nil

	default:
		return reject(fmt.Errorf("%w: unknown order side %q", ports.ErrInvalidRequest, order.Side))
	}
}
