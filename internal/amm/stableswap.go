package amm

import (
	"fmt"
	"math"
)

const (
	invariantTolerance = 1e-10
	invariantMaxIters  = 32
)

// InvariantResult reports a solved stableswap invariant together with the
// solver's effort, so callers can decide how to treat non-convergence.
type InvariantResult struct {
	D          float64
	Iterations int
	Converged  bool
}

// StableswapPool is a two-asset pool using the amplified Curve invariant. The
// amplification factor blends constant-sum behaviour (high A) with constant
// product (low A).
type StableswapPool struct {
	reserveBase   float64
	reserveQuote  float64
	amplification float64
	feeRate       float64
	feesCollected float64
}

// NewStableswapPool seeds a pool with positive reserves, an amplification
// factor, and a fee in basis points.
func NewStableswapPool(reserveBase, reserveQuote, amplification, feeBps float64) (*StableswapPool, error) {
	if reserveBase <= 0 || reserveQuote <= 0 {
		return nil, fmt.Errorf("%w: reserves must be positive (base=%v quote=%v)", ErrInvalidParameter, reserveBase, reserveQuote)
	}
	if amplification <= 0 {
		return nil, fmt.Errorf("%w: amplification must be positive (%v)", ErrInvalidParameter, amplification)
	}
	if feeBps < 0 {
		return nil, fmt.Errorf("%w: fee must not be negative (%v bps)", ErrInvalidParameter, feeBps)
	}

	return &StableswapPool{
		reserveBase:   reserveBase,
		reserveQuote:  reserveQuote,
		amplification: amplification,
		feeRate:       feeBps / bpsDivisor,
	}, nil
}

// Invariant solves the two-asset amplified invariant D for the given
// reserves by Newton-Raphson iteration, starting from D = x + y. Iteration
// stops once successive iterates differ by less than 1e-10, with a hard cap
// of 32 rounds; the result reports whether the tolerance was reached so the
// caller can surface non-convergence if it cares.
func (p *StableswapPool) Invariant(x, y float64) InvariantResult {
	if x <= 0 || y <= 0 {
		return InvariantResult{Converged: true}
	}

	s := x + y
	ann := 4 * p.amplification

	d := s
	for i := 1; i <= invariantMaxIters; i++ {
		prev := d
		dp := d * d * d / (4 * x * y)
		d = (ann*s + 2*dp) * d / ((ann-1)*d + 3*dp)
		if math.Abs(d-prev) < invariantTolerance {
			return InvariantResult{D: d, Iterations: i, Converged: true}
		}
	}
	return InvariantResult{D: d, Iterations: invariantMaxIters}
}

// D solves the invariant for the current reserves.
func (p *StableswapPool) D() float64 {
	return p.Invariant(p.reserveBase, p.reserveQuote).D
}

// Price returns the reserve-ratio price approximation.
func (p *StableswapPool) Price() (float64, error) {
	if p.reserveQuote == 0 {
		return 0, fmt.Errorf("%w: quote reserve is zero", ErrNumericDegenerate)
	}
	return p.reserveBase / p.reserveQuote, nil
}

// SwapToPrice trades the pool so the reserve ratio meets the target price.
// The invariant D is solved from the pre-trade reserves and sizes the swap;
// it is not re-solved after the update within the same call. The fee is
// charged on the gross input amount and accrues to the fee counter.
func (p *StableswapPool) SwapToPrice(target float64) (SwapResult, error) {
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

	d := p.Invariant(p.reserveBase, p.reserveQuote).D

	// Split D so the post-trade ratio is the target: x'/y' = target with
	// x' + y' = D.
	newBase := d * target / (1 + target)
	newQuote := d - newBase

	effective := newBase - p.reserveBase
	if math.Abs(effective) < priceEpsilon {
		return SwapResult{}, nil
	}

	gross := effective / (1 - p.feeRate)
	quoteOut := p.reserveQuote - newQuote
	fee := math.Abs(gross) * p.feeRate

	p.reserveBase = newBase
	p.reserveQuote = newQuote
	p.feesCollected += fee

	return SwapResult{BaseDelta: gross, QuoteDelta: quoteOut, Fee: fee}, nil
}

// LPValue returns the reserves attributable to an LP owning the given share
// of the pool. The ratio must lie in [0,1].
func (p *StableswapPool) LPValue(shareRatio float64) (base, quote float64, err error) {
	if shareRatio < 0 || shareRatio > 1 {
		return 0, 0, fmt.Errorf("%w: share ratio %v outside [0,1]", ErrInvalidParameter, shareRatio)
	}
	return p.reserveBase * shareRatio, p.reserveQuote * shareRatio, nil
}

// Holdings reports current reserves.
func (p *StableswapPool) Holdings(float64) (base, quote float64) {
	return p.reserveBase, p.reserveQuote
}

// FeesCollected returns cumulative fee income in base units.
func (p *StableswapPool) FeesCollected() float64 {
	return p.feesCollected
}

var _ Pool = (*StableswapPool)(nil)
