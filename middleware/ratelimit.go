package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/mcpsh/protocol"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(*protocol.Request) string
	logger  Logger
	maxWait time.Duration
}

// WithRateLimitKeyFunc sets a function to extract a rate limit key from requests.
func WithRateLimitKeyFunc(fn func(*protocol.Request) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// WithRateLimitWait makes a request over the limit wait up to d for a token
// before it is refused. Zero refuses at once.
func WithRateLimitWait(d time.Duration) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.maxWait = d
	}
}

// RateLimit returns middleware that caps outbound requests per second using
// a token bucket. A request that gets no token is not sent; the caller gets
// a rate limited error instead.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(_ *protocol.Request) string { return "global" },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			key := cfg.keyFunc(req)

			if !cfg.acquire(ctx, limiter, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("outbound rate limit exceeded",
						F("method", req.Method),
						F("key", key),
					)
				}
				return nil, protocol.NewRateLimited("client rate limit exceeded for " + req.Method)
			}

			return next(ctx, req)
		}
	}
}

// acquire takes a token for key, waiting up to maxWait when one is set.
func (c *rateLimitConfig) acquire(ctx context.Context, limiter ratelimit.RateLimiter, key string) bool {
	if c.maxWait <= 0 {
		return limiter.Allow(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()
	return limiter.Wait(ctx, key) == nil
}

// RateLimitByMethod applies a separate bucket per MCP method.
func RateLimitByMethod(rate int, burst int, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(req *protocol.Request) string {
			return req.Method
		}),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}
