// Command rotauth-loadtest drives login, validate, refresh and logout against an engine
// and reports latency percentiles plus the outcome of concurrent refreshes of one token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/rotauth"
	"github.com/MrEthical07/rotauth/credstore"
	"github.com/MrEthical07/rotauth/password"
)

const loadPassword = "load-test-password"

type familyState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		families    = flag.Int("families", 2000, "number of token families to seed")
		users       = flag.Int("users", 50, "number of distinct users")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (validate + refresh)")
		racers      = flag.Int("racers", 8, "concurrent refreshes of the same token in the race phase")
		races       = flag.Int("races", 200, "families used in the race phase")
		atomicRot   = flag.Bool("atomic", true, "use compare-and-swap rotation")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		secret      = flag.String("secret", "loadtest-secret-0123456789abcdef0123", "JWT signing secret")
	)
	flag.Parse()

	if *families <= 0 || *users <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 1 || *races <= 0 {
		fmt.Fprintln(os.Stderr, "families, users, concurrency, ops and races must be > 0; racers must be > 1")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}, ContextTimeoutEnabled: true})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}, ContextTimeoutEnabled: true})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *users, *secret, *atomicRot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d families over %d users...\n", *families, *users)
	startSeed := time.Now()
	states, err := seed(ctx, engine, *families, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(states, *ops, *concurrency, func(state *familyState) error {
		state.mu.Lock()
		token := state.access
		state.mu.Unlock()
		_, err := engine.Validate(ctx, token)
		return err
	})
	refreshStats := runPhase(states, *ops, *concurrency, func(state *familyState) error {
		state.mu.Lock()
		defer state.mu.Unlock()
		pair, err := engine.Refresh(ctx, state.refresh)
		if err == nil {
			state.access, state.refresh = pair.AccessToken, pair.RefreshToken
		}
		return err
	})
	race := runRacePhase(ctx, engine, states, *races, *racers)
	logoutStats := runPhase(states, len(states), *concurrency, func(state *familyState) error {
		state.mu.Lock()
		defer state.mu.Unlock()
		return engine.Logout(ctx, "Bearer "+state.access)
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	printStats("logout", logoutStats)
	fmt.Printf("race (atomic=%t, racers=%d): families=%d single-winner=%d multi-winner=%d no-winner=%d reuse-rejections=%d\n",
		*atomicRot, *racers, race.families, race.single, race.multi, race.none, race.reuse)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: refresh_success=%d refresh_failure=%d reuse_detected=%d registry_unavailable=%d\n",
		snap.Counters[rotauth.MetricRefreshSuccess],
		snap.Counters[rotauth.MetricRefreshFailure],
		snap.Counters[rotauth.MetricRefreshReuseDetected],
		snap.Counters[rotauth.MetricRegistryUnavailable],
	)
}

func buildEngine(client redis.UniversalClient, users int, secret string, atomicRotation bool) (*rotauth.Engine, error) {
	hasher, err := password.NewBcrypt(4)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, err
	}
	creds := credstore.NewMemory()
	for u := 0; u < users; u++ {
		creds.Put(userID(u), hash)
	}

	cfg := rotauth.DefaultConfig()
	cfg.JWT.Secret = secret
	cfg.Password.BcryptCost = 4
	cfg.Registry.AtomicRotation = atomicRotation

	return rotauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(creds).
		WithPasswordVerifier(hasher).
		Build()
}

func userID(i int) string {
	return fmt.Sprintf("user-%d", i)
}

func seed(ctx context.Context, engine *rotauth.Engine, families, users int) ([]*familyState, error) {
	states := make([]*familyState, families)
	for i := range states {
		pair, err := engine.Login(ctx, userID(i%users), loadPassword)
		if err != nil {
			return nil, err
		}
		states[i] = &familyState{access: pair.AccessToken, refresh: pair.RefreshToken}
	}
	return states, nil
}

func runPhase(states []*familyState, ops, concurrency int, op func(*familyState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := i
				if ops != len(states) {
					idx = r.Intn(len(states))
				}
				t0 := time.Now()
				err := op(states[idx])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type raceStats struct {
	families int
	single   int
	multi    int
	none     int
	reuse    int64
}

// runRacePhase refreshes the same refresh token from several goroutines at once. With
// atomic rotation every family must have exactly one winner.
func runRacePhase(ctx context.Context, engine *rotauth.Engine, states []*familyState, races, racers int) raceStats {
	if races > len(states) {
		races = len(states)
	}

	var out raceStats
	for i := 0; i < races; i++ {
		state := states[i]
		state.mu.Lock()
		token := state.refresh

		var (
			wg      sync.WaitGroup
			winners int64
			gate    = make(chan struct{})
			results = make([]rotauth.TokenPair, racers)
		)
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				<-gate
				pair, err := engine.Refresh(ctx, token)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
					results[slot] = pair
				case errors.Is(err, rotauth.ErrRefreshReuse):
					atomic.AddInt64(&out.reuse, 1)
				}
			}(r)
		}
		close(gate)
		wg.Wait()

		for _, pair := range results {
			if pair.RefreshToken != "" {
				state.access, state.refresh = pair.AccessToken, pair.RefreshToken
			}
		}
		state.mu.Unlock()

		out.families++
		switch winners {
		case 0:
			out.none++
		case 1:
			out.single++
		default:
			out.multi++
		}
	}
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
