package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJoinThrottle stores join fingerprints as expiring Redis keys so that
// duplicate submissions are caught across processes.
type RedisJoinThrottle struct {
	client *redis.Client
}

func NewRedisJoinThrottle(client *redis.Client) *RedisJoinThrottle {
	return &RedisJoinThrottle{client: client}
}

func (t *RedisJoinThrottle) key(k string) string {
	return "join:" + k
}

func (t *RedisJoinThrottle) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	return t.client.SetNX(ctx, t.key(key), 1, window).Result()
}

func (t *RedisJoinThrottle) Release(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.key(key)).Err()
}

// MemoryJoinThrottle is the single-process fallback used when Redis is not reachable.
type MemoryJoinThrottle struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryJoinThrottle() *MemoryJoinThrottle {
	return &MemoryJoinThrottle{entries: make(map[string]time.Time), now: time.Now}
}

func (t *MemoryJoinThrottle) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, expires := range t.entries {
		if !now.Before(expires) {
			delete(t.entries, k)
		}
	}
	if _, held := t.entries[key]; held {
		return false, nil
	}
	t.entries[key] = now.Add(window)
	return true, nil
}

func (t *MemoryJoinThrottle) Release(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
	return nil
}
