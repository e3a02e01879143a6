package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Keyed hands out one token-bucket limiter per API key. This is a purely
// in-memory burst guard in front of the durable daily quota; state does not
// survive restarts and does not need to.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

// NewKeyed allows perMinute requests per key, with a burst of the same size.
func NewKeyed(perMinute int) *Keyed {
	return &Keyed{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMinute,
	}
}

// Allow reports whether one more request for key fits in its bucket.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	lim, ok := k.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(k.perMin)/60.0), k.perMin)
		k.limiters[key] = lim
	}
	k.mu.Unlock()
	return lim.Allow()
}
