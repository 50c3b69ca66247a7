// Package resilience guards calls to a flaky remote with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storefront/catalog/pkg/fn"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned without calling the remote while the breaker
// rejects traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures a Breaker. Zero fields take the value from
// DefaultBreakerOpts.
type BreakerOpts struct {
	FailThreshold int           // consecutive failures that open the breaker
	Timeout       time.Duration // time spent open before probing
	HalfOpenMax   int           // concurrent probes while half-open

	// OnStateChange runs after each transition, outside the breaker's lock.
	OnStateChange func(from, to State)
}

var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker counts consecutive failures. After FailThreshold of them it opens
// and rejects calls for Timeout, then lets HalfOpenMax probes through: one
// success closes it again, one failure reopens it.
type Breaker struct {
	opts BreakerOpts
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	reopenAt time.Time
}

func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerOpts.Timeout
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	return &Breaker{opts: opts, now: time.Now}
}

// transition is a state change to report once the lock is released.
type transition struct{ from, to State }

func (b *Breaker) fire(ts []transition) {
	if b.opts.OnStateChange == nil {
		return
	}
	for _, t := range ts {
		b.opts.OnStateChange(t.from, t.to)
	}
}

// moveTo changes state and appends the change to ts. Caller holds mu.
func (b *Breaker) moveTo(to State, ts []transition) []transition {
	if b.state == to {
		return ts
	}
	ts = append(ts, transition{b.state, to})
	b.state = to
	b.failures, b.probes = 0, 0
	if to == StateOpen {
		b.reopenAt = b.now().Add(b.opts.Timeout)
	}
	return ts
}

// tick half-opens an open breaker whose timeout has passed. Caller holds mu.
func (b *Breaker) tick(ts []transition) []transition {
	if b.state == StateOpen && !b.now().Before(b.reopenAt) {
		return b.moveTo(StateHalfOpen, ts)
	}
	return ts
}

// State reports the current position, half-opening first if due.
func (b *Breaker) State() State {
	b.mu.Lock()
	ts := b.tick(nil)
	st := b.state
	b.mu.Unlock()
	b.fire(ts)
	return st
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	ts := b.tick(nil)
	var err error
	switch {
	case b.state == StateOpen:
		err = ErrCircuitOpen
	case b.state == StateHalfOpen && b.probes >= b.opts.HalfOpenMax:
		err = ErrCircuitOpen
	case b.state == StateHalfOpen:
		b.probes++
	}
	b.mu.Unlock()
	b.fire(ts)
	return err
}

func (b *Breaker) done(failed bool) {
	b.mu.Lock()
	var ts []transition
	switch {
	case !failed:
		if b.state == StateHalfOpen {
			ts = b.moveTo(StateClosed, ts)
		}
		b.failures = 0
	case b.state == StateHalfOpen:
		ts = b.moveTo(StateOpen, ts)
	default:
		b.failures++
		if b.failures >= b.opts.FailThreshold {
			ts = b.moveTo(StateOpen, ts)
		}
	}
	b.mu.Unlock()
	b.fire(ts)
}

// Call runs f unless the breaker rejects it. Any non-nil error from f counts
// as a failure.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := f(ctx)
	b.done(err != nil)
	return err
}

// CallResult is Call for functions producing an fn.Result.
func CallResult[T any](b *Breaker, ctx context.Context, f func(context.Context) fn.Result[T]) fn.Result[T] {
	if err := b.admit(); err != nil {
		return fn.Err[T](err)
	}
	r := f(ctx)
	b.done(r.IsErr())
	return r
}
