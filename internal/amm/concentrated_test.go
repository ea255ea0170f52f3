package amm

import (
	"errors"
	"math"
	"testing"
)

func newTestPosition(t *testing.T) *ConcentratedLiquidityPosition {
	t.Helper()
	p0 := 1_000_000.0 / 60_000.0
	pos, err := NewConcentratedLiquidityPosition(0.9*p0, 1.1*p0, 1_000_000, 60_000/p0, 30)
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func TestNewConcentratedLiquidityPositionValidation(t *testing.T) {
	tests := []struct {
		name   string
		lower  float64
		upper  float64
		base   float64
		quote  float64
		feeBps float64
	}{
		{name: "zero lower bound", lower: 0, upper: 18, base: 1, quote: 1, feeBps: 30},
		{name: "negative lower bound", lower: -1, upper: 18, base: 1, quote: 1, feeBps: 30},
		{name: "inverted band", lower: 18, upper: 15, base: 1, quote: 1, feeBps: 30},
		{name: "degenerate band", lower: 18, upper: 18, base: 1, quote: 1, feeBps: 30},
		{name: "negative base", lower: 15, upper: 18, base: -1, quote: 1, feeBps: 30},
		{name: "negative quote", lower: 15, upper: 18, base: 1, quote: -1, feeBps: 30},
		{name: "negative fee", lower: 15, upper: 18, base: 1, quote: 1, feeBps: -30},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConcentratedLiquidityPosition(tc.lower, tc.upper, tc.base, tc.quote, tc.feeBps)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestConcentratedLiquidityDerivation(t *testing.T) {
	// The limiting asset caps the liquidity parameter.
	lower, upper := 15.0, 18.0
	mid := (lower + upper) / 2
	denom := math.Sqrt(mid) * (1/math.Sqrt(lower) - 1/math.Sqrt(upper))

	pos, err := NewConcentratedLiquidityPosition(lower, upper, 1e12, 100, 30)
	if err != nil {
		t.Fatal(err)
	}
	if want := 100 / denom; math.Abs(pos.Liquidity()-want) > 1e-9*want {
		t.Fatalf("quote-limited L = %v, want %v", pos.Liquidity(), want)
	}

	pos, err = NewConcentratedLiquidityPosition(lower, upper, 165, 1e12, 30)
	if err != nil {
		t.Fatal(err)
	}
	if want := (165 / mid) / denom; math.Abs(pos.Liquidity()-want) > 1e-9*want {
		t.Fatalf("base-limited L = %v, want %v", pos.Liquidity(), want)
	}

	pos, err = NewConcentratedLiquidityPosition(lower, upper, 0, 0, 30)
	if err != nil {
		t.Fatal(err)
	}
	if pos.Liquidity() != 0 {
		t.Fatalf("empty position L = %v, want 0", pos.Liquidity())
	}
}

func TestConcentratedInRange(t *testing.T) {
	pos := newTestPosition(t)

	tests := []struct {
		price float64
		want  bool
	}{
		{price: pos.lower, want: true},
		{price: pos.upper, want: true},
		{price: (pos.lower + pos.upper) / 2, want: true},
		{price: pos.lower * 0.99, want: false},
		{price: pos.upper * 1.01, want: false},
	}
	for _, tc := range tests {
		if got := pos.InRange(tc.price); got != tc.want {
			t.Fatalf("InRange(%v) = %v, want %v", tc.price, got, tc.want)
		}
	}
}

func TestConcentratedValueInRange(t *testing.T) {
	pos := newTestPosition(t)
	price := (pos.lower + pos.upper) / 2

	base, quote := pos.Value(price)

	sqrtP := math.Sqrt(price)
	wantQuote := pos.Liquidity() * (sqrtP - pos.sqrtLower) / (sqrtP * pos.sqrtLower)
	wantBase := pos.Liquidity() * (pos.sqrtUpper - sqrtP)

	if math.Abs(base-wantBase) > 1e-9 || math.Abs(quote-wantQuote) > 1e-9 {
		t.Fatalf("Value(%v) = (%v,%v), want (%v,%v)", price, base, quote, wantBase, wantQuote)
	}
}

func TestConcentratedValueOutOfRangeIsSingleAsset(t *testing.T) {
	pos := newTestPosition(t)

	base, quote := pos.Value(pos.lower * 0.5)
	if quote != 0 {
		t.Fatalf("below band: quote = %v, want 0", quote)
	}
	if base <= 0 {
		t.Fatalf("below band: base = %v, want > 0", base)
	}

	base, quote = pos.Value(pos.upper * 2)
	if base != 0 {
		t.Fatalf("above band: base = %v, want 0", base)
	}
	if quote <= 0 {
		t.Fatalf("above band: quote = %v, want > 0", quote)
	}
}

func TestConcentratedValueContinuousAtBoundaries(t *testing.T) {
	pos := newTestPosition(t)

	for _, bound := range []float64{pos.lower, pos.upper} {
		belowBase, belowQuote := pos.Value(bound * (1 - 1e-9))
		aboveBase, aboveQuote := pos.Value(bound * (1 + 1e-9))

		if math.Abs(belowBase-aboveBase) > 1e-3 {
			t.Fatalf("base discontinuity at %v: %v vs %v", bound, belowBase, aboveBase)
		}
		if math.Abs(belowQuote-aboveQuote) > 1e-3 {
			t.Fatalf("quote discontinuity at %v: %v vs %v", bound, belowQuote, aboveQuote)
		}
	}
}

func TestConcentratedValueDegeneratePrice(t *testing.T) {
	pos := newTestPosition(t)
	if base, quote := pos.Value(0); base != 0 || quote != 0 {
		t.Fatalf("Value(0) = (%v,%v), want zero valuation", base, quote)
	}
	if base, quote := pos.Value(-1); base != 0 || quote != 0 {
		t.Fatalf("Value(-1) = (%v,%v), want zero valuation", base, quote)
	}
}

func TestConcentratedSwapToPrice(t *testing.T) {
	pos := newTestPosition(t)

	start, err := pos.Price()
	if err != nil {
		t.Fatal(err)
	}
	_, prevQuote := pos.Value(start)

	target := pos.upper * 0.99
	res, err := pos.SwapToPrice(target)
	if err != nil {
		t.Fatal(err)
	}

	price, err := pos.Price()
	if err != nil {
		t.Fatal(err)
	}
	if price != target {
		t.Fatalf("marked price = %v, want %v", price, target)
	}

	_, newQuote := pos.Value(target)
	wantFee := math.Abs(newQuote-prevQuote) * pos.feeRate * target
	if math.Abs(res.Fee-wantFee) > 1e-9 {
		t.Fatalf("fee = %v, want %v", res.Fee, wantFee)
	}
	if pos.FeesCollected() != res.Fee {
		t.Fatalf("cumulative fees = %v, want %v", pos.FeesCollected(), res.Fee)
	}
}

func TestConcentratedSwapToPriceWithVolume(t *testing.T) {
	pos := newTestPosition(t)

	res, err := pos.SwapToPriceWithVolume(pos.upper*0.99, 500)
	if err != nil {
		t.Fatal(err)
	}
	want := 500 * pos.feeRate * pos.upper * 0.99
	if math.Abs(res.Fee-want) > 1e-9 {
		t.Fatalf("fee = %v, want %v", res.Fee, want)
	}
}

func TestConcentratedSwapRejectsNonPositiveTarget(t *testing.T) {
	pos := newTestPosition(t)
	for _, target := range []float64{0, -5} {
		if _, err := pos.SwapToPrice(target); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("target %v: expected ErrInvalidParameter, got %v", target, err)
		}
	}
}
