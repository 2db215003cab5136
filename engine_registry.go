package rotauth

import (
	"context"
	"time"

	"github.com/MrEthical07/rotauth/session"
)

// timedRegistry bounds every registry call by the configured operation timeout.
type timedRegistry struct {
	store   *session.Store
	timeout time.Duration
}

func (r *timedRegistry) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *timedRegistry) Get(ctx context.Context, userID, familyID string) (string, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.store.Get(ctx, userID, familyID)
}

func (r *timedRegistry) Put(ctx context.Context, userID, familyID, jti string, ttl time.Duration) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.store.Put(ctx, userID, familyID, jti, ttl)
}

func (r *timedRegistry) CompareAndSwap(ctx context.Context, userID, familyID, expected, next string, ttl time.Duration) (session.SwapResult, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.store.CompareAndSwap(ctx, userID, familyID, expected, next, ttl)
}

func (r *timedRegistry) Delete(ctx context.Context, userID, familyID string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.store.Delete(ctx, userID, familyID)
}

func (r *timedRegistry) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	_, err := r.store.Ping(ctx)
	return err
}
