// Package pacing rate-limits batch write pressure per key (a source name, a
// record type) so one chatty producer cannot starve the rest of the pass.
package pacing

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyLimiter rate-limits per key, creating limiters lazily.
type KeyLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewKeyLimiter(opsPerSec float64, burst int) *KeyLimiter {
	return &KeyLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(opsPerSec),
		b: burst,
	}
}

func (kl *KeyLimiter) limiterFor(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if lim, ok := kl.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(kl.r, kl.b)
	kl.m[key] = lim
	return lim
}

// Wait blocks until the key's limiter grants a slot or ctx is done.
func (kl *KeyLimiter) Wait(ctx context.Context, key string) error {
	if key == "" {
		key = "_"
	}
	return kl.limiterFor(key).Wait(ctx)
}
