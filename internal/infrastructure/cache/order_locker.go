package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InMemoryOrderLocker serializes work per key inside one process.
// Each key maps to a one-slot channel; entries are dropped once unused.
type InMemoryOrderLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewInMemoryOrderLocker creates a new InMemoryOrderLocker
func NewInMemoryOrderLocker() *InMemoryOrderLocker {
	return &InMemoryOrderLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until the key is free or ctx is done
func (l *InMemoryOrderLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, shared.ErrLockNotAcquired
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.unref(key, slot)
		})
	}, nil
}

func (l *InMemoryOrderLocker) unref(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker is a lease lock shared by all server instances.
// The lease expires after ttl so a crashed holder cannot block an order forever.
type RedisOrderLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// NewRedisOrderLocker creates a locker. wait bounds how long Lock retries
// a busy key before giving up.
func NewRedisOrderLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisOrderLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisOrderLocker{
		client:    client,
		keyPrefix: "procurement:lock:",
		ttl:       ttl,
		wait:      wait,
		retry:     25 * time.Millisecond,
		logger:    logger,
	}
}

// Lock acquires the lease with SET NX PX, retrying until wait elapses
func (l *RedisOrderLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}
	redisKey := l.keyPrefix + key

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire order lock: %w", err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, shared.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

func (l *RedisOrderLocker) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release order lock",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			}
		})
	}
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var (
	_ shared.OrderLocker = (*InMemoryOrderLocker)(nil)
	_ shared.OrderLocker = (*RedisOrderLocker)(nil)
)
