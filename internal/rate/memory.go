package rate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: mismo fixed window que RedisLimiter pero en proceso.
// Para despliegues de una sola réplica o entornos sin redis.
type MemoryLimiter struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	Max    int64
	Window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  gocache.New(window, 2*window),
		Max:    int64(max),
		Window: window,
	}
}

var _ Limiter = (*MemoryLimiter)(nil)

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	cacheKey := fmt.Sprintf("%s:%d", strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	// go-cache no tiene INCR atómico con TTL por clave nueva: el mutex
	// serializa el read-modify-write.
	l.mu.Lock()
	var hits int64 = 1
	if v, ok := l.cache.Get(cacheKey); ok {
		hits = v.(int64) + 1
	}
	l.cache.Set(cacheKey, hits, l.Window)
	l.mu.Unlock()

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   winStart.Add(l.Window).Sub(now),
	}
	if !allowed {
		res.RetryAfter = res.WindowTTL
	}
	return res, nil
}
