package amm

import (
	"fmt"
	"math"
)

// ConcentratedLiquidityPosition models a single passive LP position active
// only inside the price band [lower, upper]. Outside the band the position
// sits entirely in one asset. The position never rebalances; swaps only mark
// it to the new price and accrue fees on the implied trade volume.
type ConcentratedLiquidityPosition struct {
	lower float64
	upper float64

	sqrtLower float64
	sqrtUpper float64

	price     float64
	liquidity float64

	providedBase  float64
	providedQuote float64

	feeRate       float64
	feesCollected float64
}

// NewConcentratedLiquidityPosition provisions a position across
// [lower, upper] from the given asset amounts. The current price starts at
// the band midpoint and the liquidity parameter is derived once from the
// limiting asset.
func NewConcentratedLiquidityPosition(lower, upper, providedBase, providedQuote, feeBps float64) (*ConcentratedLiquidityPosition, error) {
	if lower <= 0 {
		return nil, fmt.Errorf("%w: lower bound must be positive (%v)", ErrInvalidParameter, lower)
	}
	if upper <= lower {
		return nil, fmt.Errorf("%w: upper bound %v must exceed lower bound %v", ErrInvalidParameter, upper, lower)
	}
	if providedBase < 0 || providedQuote < 0 {
		return nil, fmt.Errorf("%w: provided amounts must not be negative", ErrInvalidParameter)
	}
	if feeBps < 0 {
		return nil, fmt.Errorf("%w: fee must not be negative (%v bps)", ErrInvalidParameter, feeBps)
	}

	pos := &ConcentratedLiquidityPosition{
		lower:         lower,
		upper:         upper,
		sqrtLower:     math.Sqrt(lower),
		sqrtUpper:     math.Sqrt(upper),
		price:         (lower + upper) / 2,
		providedBase:  providedBase,
		providedQuote: providedQuote,
		feeRate:       feeBps / bpsDivisor,
	}
	pos.liquidity = pos.estimateLiquidity(pos.price)
	return pos, nil
}

// estimateLiquidity maps the provided assets to a liquidity parameter at
// price p, taking whichever asset is limiting.
func (p *ConcentratedLiquidityPosition) estimateLiquidity(price float64) float64 {
	denom := math.Sqrt(price) * (1/p.sqrtLower - 1/p.sqrtUpper)
	if denom < denomFloor {
		denom = denomFloor
	}

	fromQuote := p.providedQuote / denom
	fromBase := (p.providedBase / price) / denom

	liquidity := math.Min(fromQuote, fromBase)
	if liquidity < 0 {
		return 0
	}
	return liquidity
}

// InRange reports whether the band is active at price pr.
func (p *ConcentratedLiquidityPosition) InRange(pr float64) bool {
	return pr >= p.lower && pr <= p.upper
}

// Value returns the position's (base, quote) amounts at the given price.
// Below the band the position is entirely base, above it entirely quote, and
// the three branches agree at the boundaries. A non-positive price yields a
// degenerate zero valuation rather than an error.
func (p *ConcentratedLiquidityPosition) Value(price float64) (base, quote float64) {
	if price <= 0 {
		return 0, 0
	}

	// Out-of-range prices value the position at the band edge it crossed,
	// which keeps the valuation continuous at both boundaries.
	sqrtP := math.Sqrt(price)
	switch {
	case sqrtP < p.sqrtLower:
		sqrtP = p.sqrtLower
	case sqrtP > p.sqrtUpper:
		sqrtP = p.sqrtUpper
	}

	quote = p.liquidity * (sqrtP - p.sqrtLower) / (sqrtP * p.sqrtLower)
	base = p.liquidity * (p.sqrtUpper - sqrtP)
	return base, quote
}

// SwapToPrice marks the position to the target price, deriving the arbitrage
// trade volume from the change in quote holdings.
func (p *ConcentratedLiquidityPosition) SwapToPrice(target float64) (SwapResult, error) {
	return p.applySwap(target, 0, false)
}

// SwapToPriceWithVolume marks the position to the target price using an
// explicit quote-denominated trade volume for fee accrual.
func (p *ConcentratedLiquidityPosition) SwapToPriceWithVolume(target, volumeQuote float64) (SwapResult, error) {
	return p.applySwap(target, volumeQuote, true)
}

func (p *ConcentratedLiquidityPosition) applySwap(target, volumeQuote float64, haveVolume bool) (SwapResult, error) {
	if target <= 0 {
		return SwapResult{}, fmt.Errorf("%w: target price must be positive (%v)", ErrInvalidParameter, target)
	}

	prevBase, prevQuote := p.Value(p.price)
	p.price = target
	newBase, newQuote := p.Value(target)

	volume := volumeQuote
	if !haveVolume {
		volume = math.Abs(newQuote - prevQuote)
	}

	fee := volume * p.feeRate * target
	p.feesCollected += fee

	return SwapResult{
		BaseDelta:  newBase - prevBase,
		QuoteDelta: newQuote - prevQuote,
		Fee:        fee,
	}, nil
}

// Price returns the price the position is currently marked at.
func (p *ConcentratedLiquidityPosition) Price() (float64, error) {
	return p.price, nil
}

// Holdings values the position at the given price.
func (p *ConcentratedLiquidityPosition) Holdings(price float64) (base, quote float64) {
	return p.Value(price)
}

// FeesCollected returns cumulative fee income in base units.
func (p *ConcentratedLiquidityPosition) FeesCollected() float64 {
	return p.feesCollected
}

// Liquidity returns the liquidity parameter derived at construction.
func (p *ConcentratedLiquidityPosition) Liquidity() float64 {
	return p.liquidity
}

var _ Pool = (*ConcentratedLiquidityPosition)(nil)
