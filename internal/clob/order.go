package clob

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

type roundConfig struct {
	price  int32
	size   int32
	amount int32
}

var roundConfigs = map[string]roundConfig{
	"0.1":    {price: 1, size: 2, amount: 3},
	"0.01":   {price: 2, size: 2, amount: 4},
	"0.001":  {price: 3, size: 2, amount: 5},
	"0.0001": {price: 4, size: 2, amount: 6},
}

func roundConfigFor(tick decimal.Decimal) (roundConfig, error) {
	cfg, ok := roundConfigs[tick.String()]
	if !ok {
		return roundConfig{}, fmt.Errorf("unsupported tick size %s", tick.String())
	}
	return cfg, nil
}

// LimitOrderArgs describes a resting order of Size shares at Price.
type LimitOrderArgs struct {
	TokenID *uint256.Int
	Size    decimal.Decimal
	Price   decimal.Decimal
	Side    Side
}

// MarketOrderArgs describes an order that spends (buy) or raises (sell)
// Amount USDC against the current book.
type MarketOrderArgs struct {
	TokenID   *uint256.Int
	Amount    decimal.Decimal
	Side      Side
	OrderType OrderType
}

// OrderDescriptor is an unsigned order ready for EIP-712 signing.
type OrderDescriptor struct {
	Salt          int64
	Maker         string
	Signer        string
	Taker         string
	TokenID       *uint256.Int
	MakerAmount   *uint256.Int
	TakerAmount   *uint256.Int
	Expiration    uint64
	Nonce         uint64
	FeeRateBps    uint64
	Side          Side
	SignatureType SignatureType
	OrderType     OrderType
	Exchange      string
	Price         decimal.Decimal
}

func validPrice(price, tick decimal.Decimal) error {
	upper := decimal.NewFromInt(1).Sub(tick)
	if price.LessThan(tick) || price.GreaterThan(upper) {
		return fmt.Errorf("price %s outside range [%s, %s] for tick size %s", price, tick, upper, tick)
	}
	return nil
}

// limitAmounts returns maker and taker amounts in USDC/share units before scaling.
func limitAmounts(side Side, size, price decimal.Decimal, cfg roundConfig) (decimal.Decimal, decimal.Decimal) {
	rawPrice := price.Round(cfg.price)
	rawSize := size.RoundDown(cfg.size)
	notional := roundAmount(rawSize.Mul(rawPrice), cfg.amount)
	if side == SideBuy {
		return notional, rawSize
	}
	return rawSize, notional
}

// marketAmounts converts a USDC amount at the fill price into maker and taker amounts.
func marketAmounts(side Side, amount, price decimal.Decimal, cfg roundConfig) (decimal.Decimal, decimal.Decimal) {
	rawPrice := price.Round(cfg.price)
	if side == SideBuy {
		maker := amount.RoundDown(cfg.size)
		taker := roundAmount(maker.DivRound(rawPrice, cfg.amount+4), cfg.amount)
		return maker, taker
	}
	shares := amount.DivRound(rawPrice, cfg.amount+4).RoundDown(cfg.size)
	taker := roundAmount(shares.Mul(rawPrice), cfg.amount)
	return shares, taker
}

func roundAmount(v decimal.Decimal, places int32) decimal.Decimal {
	if v.Equal(v.Truncate(places)) {
		return v
	}
	v = v.RoundUp(places + 4)
	if !v.Equal(v.Truncate(places)) {
		v = v.RoundDown(places)
	}
	return v
}

func toUnits(v decimal.Decimal) (*uint256.Int, error) {
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("order amount %s must be positive", v)
	}
	out, overflow := uint256.FromBig(v.Shift(collateralDecimals).BigInt())
	if overflow {
		return nil, fmt.Errorf("order amount %s overflows uint256", v)
	}
	return out, nil
}

// fillPrice walks the opposite side of the book, best level first, until the
// USDC amount is covered and returns the worst price touched. With FOK an
// uncovered amount is an error; otherwise the deepest price is used.
func fillPrice(book *OrderBook, side Side, amount decimal.Decimal, orderType OrderType) (decimal.Decimal, error) {
	var levels []BookLevel
	if side == SideBuy {
		levels = append(levels, book.Asks...)
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price.LessThan(levels[j].Price) })
	} else {
		levels = append(levels, book.Bids...)
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price.GreaterThan(levels[j].Price) })
	}
	if len(levels) == 0 {
		return decimal.Zero, fmt.Errorf("no liquidity on %s side of book", side)
	}
	total := decimal.Zero
	for _, level := range levels {
		total = total.Add(level.Size.Mul(level.Price))
		if total.GreaterThanOrEqual(amount) {
			return level.Price, nil
		}
	}
	if orderType == OrderTypeFOK {
		return decimal.Zero, fmt.Errorf("insufficient liquidity to fill %s USDC", amount)
	}
	return levels[len(levels)-1].Price, nil
}
