package amm

import (
	"errors"
	"math"
	"testing"
)

func TestNewStableswapPoolValidation(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		quote  float64
		amp    float64
		feeBps float64
	}{
		{name: "zero base reserve", base: 0, quote: 1000, amp: 200, feeBps: 4},
		{name: "zero quote reserve", base: 1000, quote: 0, amp: 200, feeBps: 4},
		{name: "zero amplification", base: 1000, quote: 1000, amp: 0, feeBps: 4},
		{name: "negative amplification", base: 1000, quote: 1000, amp: -5, feeBps: 4},
		{name: "negative fee", base: 1000, quote: 1000, amp: 200, feeBps: -4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStableswapPool(tc.base, tc.quote, tc.amp, tc.feeBps)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestStableswapInvariantConverges(t *testing.T) {
	pool, err := NewStableswapPool(1000, 1000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	for _, amp := range []float64{1, 50, 200, 1000} {
		pool.amplification = amp
		for _, ratio := range []float64{1, 2, 10, 100} {
			x, y := 1000.0, 1000.0*ratio
			res := pool.Invariant(x, y)
			if !res.Converged {
				t.Fatalf("A=%v ratio=1:%v did not converge in %d iterations (D=%v)", amp, ratio, res.Iterations, res.D)
			}
			// D sits between the constant-product and constant-sum extremes.
			if res.D <= 2*math.Sqrt(x*y)-1e-9 || res.D > x+y+1e-9 {
				t.Fatalf("A=%v ratio=1:%v D=%v outside (2*sqrt(xy), x+y]", amp, ratio, res.D)
			}
		}
	}
}

func TestStableswapInvariantBalancedReserves(t *testing.T) {
	pool, err := NewStableswapPool(1000, 1000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	res := pool.Invariant(1000, 1000)
	if math.Abs(res.D-2000) > 1e-6 {
		t.Fatalf("balanced D = %v, want 2000", res.D)
	}
}

func TestStableswapInvariantDegenerateReserves(t *testing.T) {
	pool, err := NewStableswapPool(1000, 1000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	for _, reserves := range [][2]float64{{0, 1000}, {1000, 0}, {-1, 1000}} {
		if res := pool.Invariant(reserves[0], reserves[1]); res.D != 0 {
			t.Fatalf("Invariant(%v,%v).D = %v, want 0", reserves[0], reserves[1], res.D)
		}
	}
}

func TestStableswapInvariantIterationCapSurfaced(t *testing.T) {
	// At large absolute reserve scale the 1e-10 absolute tolerance cannot be
	// met; the solver reports the cap instead of failing.
	pool, err := NewStableswapPool(1_000_000, 60_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	res := pool.Invariant(1_000_000, 60_000)
	if res.Converged {
		t.Skip("solver converged at this scale; cap path not exercised")
	}
	if res.Iterations != invariantMaxIters {
		t.Fatalf("iterations = %d, want %d", res.Iterations, invariantMaxIters)
	}
	if res.D <= 0 {
		t.Fatalf("capped D = %v, want positive", res.D)
	}
}

func TestStableswapSwapToPriceHitsTarget(t *testing.T) {
	pool, err := NewStableswapPool(1_000_000, 60_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	res, err := pool.SwapToPrice(18.0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fee <= 0 {
		t.Fatalf("fee = %v, want > 0", res.Fee)
	}

	price, err := pool.Price()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(price-18.0) > 1e-9 {
		t.Fatalf("post-swap price = %v, want within 1e-9 of 18", price)
	}
}

func TestStableswapSwapToCurrentPriceIsNoop(t *testing.T) {
	pool, err := NewStableswapPool(1_000_000, 60_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}
	baseBefore, quoteBefore := pool.Holdings(0)

	price, err := pool.Price()
	if err != nil {
		t.Fatal(err)
	}

	res, err := pool.SwapToPrice(price)
	if err != nil {
		t.Fatal(err)
	}
	if res != (SwapResult{}) {
		t.Fatalf("expected zero-effect swap, got %+v", res)
	}

	base, quote := pool.Holdings(0)
	if base != baseBefore || quote != quoteBefore {
		t.Fatalf("reserves changed on no-op swap: (%v,%v) -> (%v,%v)", baseBefore, quoteBefore, base, quote)
	}
}

func TestStableswapInvariantStableAcrossSwapNearParity(t *testing.T) {
	// In the stableswap's natural regime the D used to size a swap matches
	// the D recomputed from the updated reserves.
	pool, err := NewStableswapPool(1_000_000, 1_000_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	dBefore := pool.D()
	if _, err := pool.SwapToPrice(1.01); err != nil {
		t.Fatal(err)
	}
	dAfter := pool.D()

	if math.Abs(dAfter-dBefore) > 1e-6*dBefore {
		t.Fatalf("D drifted from %v to %v across swap", dBefore, dAfter)
	}
}

func TestStableswapSwapRejectsNonPositiveTarget(t *testing.T) {
	pool, err := NewStableswapPool(1000, 1000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, target := range []float64{0, -1} {
		if _, err := pool.SwapToPrice(target); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("target %v: expected ErrInvalidParameter, got %v", target, err)
		}
	}
}

func TestStableswapLPValue(t *testing.T) {
	pool, err := NewStableswapPool(1_000_000, 60_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	base, quote, err := pool.LPValue(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if base != 500_000 || quote != 30_000 {
		t.Fatalf("LPValue(0.5) = (%v,%v), want (500000,30000)", base, quote)
	}

	if _, _, err := pool.LPValue(1.5); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
