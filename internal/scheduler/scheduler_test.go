package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunImmediatelyFiresStartupTick(t *testing.T) {
	s := New(Options{
		Interval:       time.Hour,
		AlignToStart:   true,
		RunImmediately: true,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got time.Time
	err := s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		got = bucket
		cancel()
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	if got.IsZero() {
		t.Fatal("startup tick did not fire")
	}
	if !got.Equal(got.Truncate(time.Hour)) {
		t.Fatalf("startup bucket %v is not aligned to the interval", got)
	}
}

func TestRunWithoutImmediateWaitsForInterval(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fired := false
	err := s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		fired = true
		return nil
	})
	if err == nil {
		t.Fatal("Run should return once the context expires")
	}
	if fired {
		t.Fatal("tick fired before the first aligned interval")
	}
}
