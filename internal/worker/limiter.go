package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound requests per host. Knowledge sources share
// one limiter per endpoint so concurrent retrieval attempts cannot
// stampede a public API.
type Limiter struct {
	mu     sync.Mutex
	byHost map[string]*rate.Limiter

	rps   rate.Limit
	burst int
}

// NewLimiter creates a per-host limiter. Non-positive burst falls back
// to a small default.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 3
	}
	return &Limiter{
		byHost: make(map[string]*rate.Limiter),
		rps:    rate.Limit(requestsPerSecond),
		burst:  burst,
	}
}

// Wait blocks until the host of rawURL has capacity or the context is
// done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// WaitWithDelay waits for rate capacity and then an extra fixed delay,
// used for robots.txt crawl-delay directives.
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, extra time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if extra <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(extra):
		return nil
	}
}

// Allow reports whether a request to the host may proceed right now,
// consuming a token when it may.
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.forHost(host).Allow()
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.byHost[host]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rps, l.burst)
	l.byHost[host] = limiter
	return limiter
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
