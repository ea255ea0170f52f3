// Package amm implements the pool math for three automated market maker
// designs: constant product (Uniswap V2 style), a single concentrated
// liquidity position (Uniswap V3 style), and a two-asset stableswap pool
// (Curve style). Prices are quoted as base-asset units per quote-asset unit.
package amm

import "errors"

// Pool is the capability set shared by all pool variants. The simulation
// driver is written once against this interface.
type Pool interface {
	// Price returns the current pool price.
	Price() (float64, error)
	// SwapToPrice models an external arbitrageur trading the pool to the
	// target price, paying the pool fee on the closing trade.
	SwapToPrice(target float64) (SwapResult, error)
	// Holdings reports the base and quote amounts attributable to the
	// position when valued at the given price.
	Holdings(price float64) (base, quote float64)
	// FeesCollected returns cumulative fee income in base-asset units.
	FeesCollected() float64
}

// SwapResult describes a single arbitrage trade against a pool. A zero value
// means the pool price already matched the target and no trade happened.
type SwapResult struct {
	BaseDelta  float64 // gross base amount into the pool, signed
	QuoteDelta float64 // quote amount out of the pool, signed
	Fee        float64 // fee collected on this trade, base-asset units
}

var (
	// ErrInvalidParameter covers non-positive reserves or prices, inverted
	// price bands, negative fees, non-positive amplification, and share
	// ratios outside [0,1]. Raised eagerly, never retried.
	ErrInvalidParameter = errors.New("amm: invalid parameter")

	// ErrNumericDegenerate covers division-by-zero risk in valuation and
	// liquidity formulas.
	ErrNumericDegenerate = errors.New("amm: numeric degeneracy")
)

const (
	// priceEpsilon is the no-trade band: targets closer than this to the
	// current price produce a zero-effect swap.
	priceEpsilon = 1e-12

	// denomFloor guards liquidity-estimation denominators.
	denomFloor = 1e-12

	bpsDivisor = 10000.0
)
