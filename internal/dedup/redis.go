package dedup

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout and defaults.
const (
	redisKeyPrefix  = "whalecopy:dedup:"
	DefaultRedisTTL = 10 * time.Minute
	redisOpTimeout  = 500 * time.Millisecond
)

// Redis is the cross-process Deduper. Several supervised pipeline
// instances can share one fingerprint space through SET NX with a TTL
// matching the signal window. When Redis is unreachable the reservation
// falls back to the local in-memory set, so a Redis outage degrades to
// per-process dedup instead of dropping signals.
type Redis struct {
	client   redis.Cmdable
	fallback *Memory
	ttl      time.Duration

	outageMu     sync.Mutex
	outageLogged bool
}

// NewRedis creates a Redis deduper with a local fallback set.
func NewRedis(client redis.Cmdable, signatureCapacity int, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{
		client:   client,
		fallback: NewMemory(signatureCapacity),
		ttl:      ttl,
	}
}

// TryReserve atomically reserves the fingerprint across processes.
func (r *Redis) TryReserve(signature, tokenMint string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := redisKeyPrefix + signature + ":" + tokenMint
	ok, err := r.client.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		r.logOutageOnce(err)
		return r.fallback.TryReserve(signature, tokenMint)
	}
	r.clearOutage()

	if !ok {
		return false
	}
	// Mirror into the local set so a later Redis outage still knows
	// about fingerprints this process reserved.
	r.fallback.TryReserve(signature, tokenMint)
	return true
}

// ProcessedCount returns reservations granted by this process.
func (r *Redis) ProcessedCount() int {
	return r.fallback.ProcessedCount()
}

// Stats returns the local counters.
func (r *Redis) Stats() Stats {
	return r.fallback.Stats()
}

func (r *Redis) logOutageOnce(err error) {
	r.outageMu.Lock()
	defer r.outageMu.Unlock()
	if !r.outageLogged {
		log.Printf("[dedup] redis unavailable, falling back to local set: %v", err)
		r.outageLogged = true
	}
}

func (r *Redis) clearOutage() {
	r.outageMu.Lock()
	defer r.outageMu.Unlock()
	if r.outageLogged {
		log.Printf("[dedup] redis recovered")
		r.outageLogged = false
	}
}
