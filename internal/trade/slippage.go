package trade

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

var (
	hundred    = decimal.NewFromInt(100)
	maxAutoPct = decimal.NewFromInt(15)
)

// SlippageBps converts a percent (0.5 = 0.5%) into truncated basis points.
// Valid percents are in [0, 100).
func SlippageBps(percent decimal.Decimal) (int64, error) {
	if percent.IsNegative() {
		return 0, errors.New("slippage must be non-negative")
	}
	if percent.GreaterThanOrEqual(hundred) {
		return 0, errors.New("slippage must be below 100%")
	}
	return percent.Mul(hundred).IntPart(), nil
}

// MinAmountOut is floor(amount * (10000 - bps) / 10000).
func MinAmountOut(amount *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(bpsDenominator-bps))
	return out.Div(out, big.NewInt(bpsDenominator))
}

// MaxAmountIn is floor(amount * (10000 + bps) / 10000).
func MaxAmountIn(amount *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(bpsDenominator+bps))
	return out.Div(out, big.NewInt(bpsDenominator))
}

// AutoSlippage suggests a tolerance for a human-unit trade size: tiny trades
// get tight bounds, large ones up to 15%.
func AutoSlippage(amount decimal.Decimal) decimal.Decimal {
	switch {
	case amount.LessThan(decimal.NewFromInt(100)):
		return decimal.RequireFromString("0.01")
	case amount.LessThan(decimal.NewFromInt(1000)):
		return decimal.RequireFromString("0.1")
	case amount.LessThan(decimal.NewFromInt(10000)):
		return decimal.RequireFromString("0.5")
	}
	f, _ := amount.Float64()
	pct := decimal.NewFromFloat(math.Log10(f) * 2).Round(2)
	if pct.GreaterThan(maxAutoPct) {
		return maxAutoPct
	}
	return pct
}
