// Package resilience guards calls to remote services, such as the OCR API,
// with retries and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the position of a Breaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling the service while its breaker
// is open.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig tunes a Breaker. Zero values take the defaults.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long an open breaker rejects calls before letting one
	// trial call through.
	Cooldown time.Duration
	// Trips reports whether err counts as a service failure. Nil means every
	// error except cancellation.
	Trips func(err error) bool
}

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Second
)

// Breaker stops calling a failing service for a cooldown period. While half
// open exactly one trial call is in flight; its outcome closes or reopens
// the breaker. State changes are logged and published as metrics under the
// service name.
type Breaker struct {
	service string
	cfg     BreakerConfig
	now     func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker returns a closed breaker for service.
func NewBreaker(service string, cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.Trips == nil {
		cfg.Trips = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	b := &Breaker{service: service, cfg: cfg, now: time.Now}
	BreakerStates.WithLabelValues(service).Set(float64(StateClosed))
	return b
}

// Call runs fn unless the breaker rejects it, then records the outcome.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := b.acquire(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn(ctx)
	b.release(err)
	return v, err
}

// current returns the state, moving an open breaker whose cooldown has
// passed to half open. Callers hold mu.
func (b *Breaker) current() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateOpen:
		BreakerRejections.WithLabelValues(b.service).Inc()
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trial {
			BreakerRejections.WithLabelValues(b.service).Inc()
			return ErrCircuitOpen
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.cfg.Trips(err)
	if b.state == StateHalfOpen {
		b.trial = false
		if failed {
			b.open()
		} else {
			b.failures = 0
			b.setState(StateClosed)
		}
		return
	}

	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.Threshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(StateOpen)
}

func (b *Breaker) setState(to BreakerState) {
	if b.state == to {
		return
	}
	zap.L().Warn("circuit breaker state change",
		zap.String("service", b.service),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
	BreakerStates.WithLabelValues(b.service).Set(float64(to))
}
