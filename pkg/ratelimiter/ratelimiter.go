package ratelimiter

import (
	"fmt"
	"time"

	"ChattyWidget/internal/config"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// FromConfig builds the limiter selected by the configuration.
// Returns nil when rate limiting is disabled.
func FromConfig(cfg config.RateLimiterConfig) (RateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Algorithm {
	case "tokenBucket":
		return NewTokenBucket(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity), nil
	case "leakyBucket":
		return NewLeakyBucket(cfg.LeakyBucket.Rate, cfg.LeakyBucket.Capacity), nil
	case "fixedWindow":
		window, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixed window duration %q: %w", cfg.FixedWindow.Window, err)
		}
		return NewFixedWindowCounter(cfg.FixedWindow.Limit, window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter algorithm: %s", cfg.Algorithm)
	}
}
