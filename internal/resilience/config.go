package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/dealmachine/internal/config"
)

// RetryFromConfig builds a RetryConfig from configuration, keeping defaults
// for unset values.
func RetryFromConfig(c config.RetryConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	return cfg
}

// BreakerFromConfig builds a BreakerConfig from configuration. Unset values
// are left zero for NewBreaker to default.
func BreakerFromConfig(c config.BreakerConfig) BreakerConfig {
	return BreakerConfig{
		Threshold: c.FailureThreshold,
		Cooldown:  time.Duration(c.ResetTimeoutSecs) * time.Second,
	}
}

// Guard combines a retry policy with a circuit breaker. Each attempt passes
// through the breaker; an open circuit ends the retries at once.
type Guard struct {
	Retry   RetryConfig
	Breaker *Breaker
}

// NewGuard builds a Guard for the named service from configuration.
func NewGuard(service string, retry config.RetryConfig, breaker config.BreakerConfig) *Guard {
	rc := RetryFromConfig(retry)
	rc.OnRetry = RetryLogger(service, "call")
	return &Guard{Retry: rc, Breaker: NewBreaker(service, BreakerFromConfig(breaker))}
}

// Run calls fn under g. A nil Guard calls fn once.
func Run[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	rc := g.Retry
	inner := rc.ShouldRetry
	if inner == nil {
		inner = IsTransient
	}
	rc.ShouldRetry = func(err error) bool {
		return !errors.Is(err, ErrCircuitOpen) && inner(err)
	}
	return DoVal(ctx, rc, func(ctx context.Context) (T, error) {
		if g.Breaker == nil {
			return fn(ctx)
		}
		return Call(ctx, g.Breaker, fn)
	})
}
