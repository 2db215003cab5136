package rotauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/rotauth/credstore"
	"github.com/MrEthical07/rotauth/jwt"
	"github.com/MrEthical07/rotauth/password"
	"github.com/MrEthical07/rotauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef-engine"
	testUser     = "alice"
	testPassword = "correct-password-123"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.BcryptCost = 4
	cfg.Password.Argon2 = password.Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:                  mr.Addr(),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
	creds  *credstore.Memory
	store  *session.Store
}

func newTestEnv(t testing.TB, cfg Config, configure ...func(*Builder)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newTestClock()

	hasher, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	creds := credstore.NewMemory()
	creds.Put(testUser, hash)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(creds).
		WithClock(clock.Now)
	for _, fn := range configure {
		fn(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine: engine,
		mr:     mr,
		rdb:    rdb,
		clock:  clock,
		creds:  creds,
		store:  session.NewStore(rdb, cfg.Registry.KeyPrefix),
	}
}

func (env *testEnv) login(t testing.TB) TokenPair {
	t.Helper()
	pair, err := env.engine.Login(context.Background(), testUser, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair
}

func (env *testEnv) claims(t testing.TB, token string) *jwt.Claims {
	t.Helper()
	res := env.engine.codec.Parse(token)
	if res.Claims == nil {
		t.Fatalf("parse failed: status=%s err=%v", res.Status, res.Err)
	}
	return res.Claims
}
