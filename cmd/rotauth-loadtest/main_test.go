package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLoadEngine(t *testing.T, atomicRotation bool) (*familyState, []*familyState, func(int, int) raceStats) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := buildEngine(client, 3, "loadtest-secret-0123456789abcdef0123", atomicRotation)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	t.Cleanup(engine.Close)

	states, err := seed(context.Background(), engine, 6, 3)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	race := func(races, racers int) raceStats {
		return runRacePhase(context.Background(), engine, states, races, racers)
	}
	return states[0], states, race
}

func TestRacePhaseAtomicSingleWinner(t *testing.T) {
	first, _, race := newLoadEngine(t, true)
	before := first.refresh

	out := race(6, 8)
	if out.families != 6 || out.single != 6 || out.multi != 0 || out.none != 0 {
		t.Fatalf("expected a single winner per family, got %+v", out)
	}
	if out.reuse != 6*7 {
		t.Fatalf("expected every loser to be reported as reuse, got %d", out.reuse)
	}
	if first.refresh == before {
		t.Fatal("state must advance to the winning refresh token")
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	_, states, _ := newLoadEngine(t, true)

	calls := 0
	stats := runPhase(states, 10, 1, func(*familyState) error {
		calls++
		if calls%2 == 0 {
			return context.Canceled
		}
		return nil
	})
	if stats.ops != 10 || stats.failures != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}
