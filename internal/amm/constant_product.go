package amm

import (
	"fmt"
	"math"
)

// ConstantProductPool is a two-asset pool holding reserves that satisfy
// reserveBase * reserveQuote = k. The pool price is reserveBase/reserveQuote.
type ConstantProductPool struct {
	reserveBase   float64
	reserveQuote  float64
	k             float64
	feeRate       float64
	feesCollected float64
}

// NewConstantProductPool seeds a pool with positive reserves and a fee
// expressed in basis points.
func NewConstantProductPool(reserveBase, reserveQuote, feeBps float64) (*ConstantProductPool, error) {
	if reserveBase <= 0 || reserveQuote <= 0 {
		return nil, fmt.Errorf("%w: reserves must be positive (base=%v quote=%v)", ErrInvalidParameter, reserveBase, reserveQuote)
	}
	if feeBps < 0 {
		return nil, fmt.Errorf("%w: fee must not be negative (%v bps)", ErrInvalidParameter, feeBps)
	}

	return &ConstantProductPool{
		reserveBase:  reserveBase,
		reserveQuote: reserveQuote,
		k:            reserveBase * reserveQuote,
		feeRate:      feeBps / bpsDivisor,
	}, nil
}

// Price returns the pool price in base units per quote unit.
func (p *ConstantProductPool) Price() (float64, error) {
	if p.reserveQuote == 0 {
		return 0, fmt.Errorf("%w: quote reserve is zero", ErrNumericDegenerate)
	}
	return p.reserveBase / p.reserveQuote, nil
}

// SwapToPrice trades the pool to the target price. The post-trade base
// reserve satisfies reserveBase' = sqrt(k*target); the fee is charged on the
// gross input amount and accrues to the fee counter, so the invariant k is
// never inflated by fee income.
func (p *ConstantProductPool) SwapToPrice(target float64) (SwapResult, error) {
	if target <= 0 {
		return SwapResult{}, fmt.Errorf("%w: target price must be positive (%v)", ErrInvalidParameter, target)
	}

	price, err := p.Price()
	if err != nil {
		return SwapResult{}, err
	}
	if math.Abs(price-target) < priceEpsilon {
		return SwapResult{}, nil
	}

	// reserveBase'/reserveQuote' = target together with the invariant
	// reserveBase'*reserveQuote' = k gives reserveBase' = sqrt(k*target).
	newBase := math.Sqrt(p.k * target)
	effective := newBase - p.reserveBase
	if effective == 0 {
		return SwapResult{}, nil
	}

	gross := effective / (1 - p.feeRate)
	newQuote := p.k / newBase
	quoteOut := p.reserveQuote - newQuote
	fee := math.Abs(gross) * p.feeRate

	p.reserveBase = newBase
	p.reserveQuote = newQuote
	p.k = p.reserveBase * p.reserveQuote
	p.feesCollected += fee

	return SwapResult{BaseDelta: gross, QuoteDelta: quoteOut, Fee: fee}, nil
}

// LPValue returns the reserves attributable to an LP owning the given share
// of the pool. The ratio must lie in [0,1].
func (p *ConstantProductPool) LPValue(shareRatio float64) (base, quote float64, err error) {
	if shareRatio < 0 || shareRatio > 1 {
		return 0, 0, fmt.Errorf("%w: share ratio %v outside [0,1]", ErrInvalidParameter, shareRatio)
	}
	return p.reserveBase * shareRatio, p.reserveQuote * shareRatio, nil
}

// AddLiquidity deposits both assets. Deposits into a live pool must match the
// current reserve ratio within 1e-6 relative tolerance; a first deposit into
// an empty pool has no ratio constraint.
func (p *ConstantProductPool) AddLiquidity(amountBase, amountQuote float64) error {
	if amountBase <= 0 || amountQuote <= 0 {
		return fmt.Errorf("%w: deposit amounts must be positive", ErrInvalidParameter)
	}

	if p.reserveBase > 0 && p.reserveQuote > 0 {
		poolRatio := p.reserveBase / p.reserveQuote
		depositRatio := amountBase / amountQuote
		if math.Abs(depositRatio-poolRatio) > 1e-6*poolRatio {
			return fmt.Errorf("%w: deposit ratio %v does not match pool ratio %v", ErrInvalidParameter, depositRatio, poolRatio)
		}
	}

	p.reserveBase += amountBase
	p.reserveQuote += amountQuote
	p.k = p.reserveBase * p.reserveQuote
	return nil
}

// Holdings reports current reserves; the valuation price is irrelevant for a
// full-range pool.
func (p *ConstantProductPool) Holdings(float64) (base, quote float64) {
	return p.reserveBase, p.reserveQuote
}

// FeesCollected returns cumulative fee income in base units.
func (p *ConstantProductPool) FeesCollected() float64 {
	return p.feesCollected
}

// Invariant returns the current constant product k.
func (p *ConstantProductPool) Invariant() float64 {
	return p.k
}

var _ Pool = (*ConstantProductPool)(nil)
