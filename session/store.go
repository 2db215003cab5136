package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every backend failure reported by [Store].
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidKey is returned when a user or family id cannot be encoded into a registry key.
var ErrInvalidKey = errors.New("invalid registry key")

// DefaultKeyPrefix is the namespace for refresh-token registry entries.
const DefaultKeyPrefix = "RT"

const (
	casStatusNotFound int64 = 0
	casStatusSwapped  int64 = 1
	casStatusMismatch int64 = 2
)

const compareAndSwapScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 2
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// Store is the Redis-backed refresh-token registry. Each entry maps one
// (user, family) pair to the jti of the only refresh token currently allowed to
// rotate that family. Entries expire with the refresh token lifetime.
//
// Store never caches reads and is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a registry [Store] backed by the given Redis client. An empty
// prefix selects [DefaultKeyPrefix].
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

// Key returns the registry key for the pair. The family id never contains ':' so the
// key decodes unambiguously: everything after the last ':' is the family id.
func (s *Store) Key(userID, familyID string) (string, error) {
	if userID == "" || familyID == "" || strings.Contains(familyID, ":") {
		return "", ErrInvalidKey
	}
	return s.prefix + ":" + userID + ":" + familyID, nil
}

// Put stores jti as the current token of the family, replacing any previous value.
//
//	Performance: 1 Redis SET with PX.
func (s *Store) Put(ctx context.Context, userID, familyID, jti string, ttl time.Duration) error {
	key, err := s.Key(userID, familyID)
	if err != nil {
		return err
	}
	if jti == "" || ttl <= 0 {
		return fmt.Errorf("%w: empty jti or non-positive ttl", ErrInvalidKey)
	}

	if err := s.redis.Set(ctx, key, jti, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the current jti of the family. found is false when the entry was never
// written, was deleted, or has expired.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, userID, familyID string) (jti string, found bool, err error) {
	key, err := s.Key(userID, familyID)
	if err != nil {
		return "", false, err
	}

	jti, err = s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return jti, true, nil
}

// Delete removes the family entry. Deleting an absent entry is not an error.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, userID, familyID string) error {
	key, err := s.Key(userID, familyID)
	if err != nil {
		return err
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SwapResult is the outcome of [Store.CompareAndSwap].
type SwapResult uint8

const (
	// SwapNotFound: the family has no entry (revoked or expired).
	SwapNotFound SwapResult = iota
	// SwapApplied: the entry held the expected jti and now holds the next one.
	SwapApplied
	// SwapMismatch: the entry holds a different jti.
	SwapMismatch
)

func (r SwapResult) String() string {
	switch r {
	case SwapNotFound:
		return "not_found"
	case SwapApplied:
		return "applied"
	case SwapMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// CompareAndSwap replaces the family's jti with next only if the stored value equals
// expected, and resets the entry TTL. Concurrent callers presenting the same expected
// jti see exactly one [SwapApplied].
//
//	Performance: 1 Lua EVALSHA (GET + SET).
func (s *Store) CompareAndSwap(ctx context.Context, userID, familyID, expected, next string, ttl time.Duration) (SwapResult, error) {
	key, err := s.Key(userID, familyID)
	if err != nil {
		return SwapNotFound, err
	}
	if expected == "" || next == "" || ttl <= 0 {
		return SwapNotFound, fmt.Errorf("%w: empty jti or non-positive ttl", ErrInvalidKey)
	}

	status, err := compareAndSwapLua.Run(
		ctx,
		s.redis,
		[]string{key},
		expected,
		next,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return SwapNotFound, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case casStatusSwapped:
		return SwapApplied, nil
	case casStatusNotFound:
		return SwapNotFound, nil
	case casStatusMismatch:
		return SwapMismatch, nil
	default:
		return SwapNotFound, fmt.Errorf("%w: unexpected cas status %d", ErrRedisUnavailable, status)
	}
}

// TTL returns the remaining lifetime of the family entry, or 0 when the entry is absent.
func (s *Store) TTL(ctx context.Context, userID, familyID string) (time.Duration, error) {
	key, err := s.Key(userID, familyID)
	if err != nil {
		return 0, err
	}

	ttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
