package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter manages one rate limiter per target host so that
// enrichment page fetches stay polite toward each origin independently.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewHostLimiter creates a limiter pool allowing requestsPerSecond with
// the given burst against each distinct host.
func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.perHost, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until the host's limiter allows an event or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.limiter(host).Wait(ctx)
}
