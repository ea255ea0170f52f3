package fetcher

import (
	"context"
	"testing"
)

func TestOnChainMissingConfig(t *testing.T) {
	spot := NewOnChain(OnChainOptions{}, noopLogger())
	if _, _, err := spot.FetchSpot(context.Background()); err == nil {
		t.Fatal("expected error when rpc url is not configured")
	}

	spot = NewOnChain(OnChainOptions{RPCURL: "http://localhost"}, noopLogger())
	if _, _, err := spot.FetchSpot(context.Background()); err == nil {
		t.Fatal("expected error when pair address is not configured")
	}
}
