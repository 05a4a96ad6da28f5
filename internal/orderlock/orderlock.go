// Package orderlock serializes mutations of a single order aggregate.
// A process-local keyed mutex always applies; when redis is configured the
// lock is also taken cluster-wide so several replicas can serve one outlet.
package orderlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("order_lock_timeout")

// Locker acquires the per-order lock. The returned release func must be
// called exactly once. Snowflake ids are unique across tables, so tickets
// without an order are locked by their own id.
type Locker interface {
	Lock(ctx context.Context, orderID snowflake.ID) (release func(), err error)
}

// KeyedMutex is a set of mutexes created on demand and dropped when unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[snowflake.ID]*entry)}
}

// Lock blocks until the key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, orderID snowflake.ID) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[orderID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[orderID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(orderID, e)
		return nil, fmt.Errorf("lock order %d: %w", orderID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.unref(orderID, e)
		})
	}, nil
}

func (k *KeyedMutex) unref(orderID snowflake.ID, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, orderID)
	}
	k.mu.Unlock()
}

// Guard layers the distributed lock on top of the local one.
type Guard struct {
	local *KeyedMutex
	dist  *RedisLocker
	ttl   time.Duration
	retry time.Duration
	log   *zap.Logger
}

func NewGuard(local *KeyedMutex, dist *RedisLocker, ttl time.Duration, log *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{local: local, dist: dist, ttl: ttl, retry: 25 * time.Millisecond, log: log}
}

func (g *Guard) Lock(ctx context.Context, orderID snowflake.ID) (func(), error) {
	releaseLocal, err := g.local.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if g.dist == nil {
		return releaseLocal, nil
	}

	key := lockKey(orderID)
	token, err := g.acquire(ctx, key)
	if err != nil {
		releaseLocal()
		return nil, err
	}

	return func() {
		// The request context may already be cancelled by now.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := g.dist.Release(releaseCtx, key, token); err != nil {
			g.log.Warn("release order lock", zap.Int64("order_id", orderID.Int64()), zap.Error(err))
		}
		releaseLocal()
	}, nil
}

func (g *Guard) acquire(ctx context.Context, key string) (string, error) {
	ticker := time.NewTicker(g.retry)
	defer ticker.Stop()
	for {
		token, ok, err := g.dist.TryLock(ctx, key, g.ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

func lockKey(orderID snowflake.ID) string {
	return "dinein:order-lock:" + orderID.String()
}
