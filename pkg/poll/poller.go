// Package poll provides the polling controller behind live dashboard views:
// it re-runs a producer on an interval, backs off while the backend is
// struggling, and suppresses transient errors so the UI doesn't flap.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/propwatch/propwatch-go/pkg/api"
	"github.com/propwatch/propwatch-go/pkg/fetch"
)

// Prometheus metrics for polling controllers.
var (
	pollAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propwatch_poll_attempts_total",
		Help: "Total poll attempts by result",
	}, []string{"result"})

	pollBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propwatch_poll_backoff_seconds",
		Help:    "Delay scheduled before the next poll attempt",
		Buckets: []float64{1, 5, 10, 20, 30, 60},
	})

	pollSuppressedErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_poll_suppressed_errors_total",
		Help: "Total poll failures hidden from observers as transient",
	})
)

const (
	// DefaultInterval between poll attempts.
	DefaultInterval = 5 * time.Second

	// DefaultFailureThreshold is how many consecutive failures are treated
	// as transient before the error surfaces to observers. The last good
	// data stays on screen throughout.
	DefaultFailureThreshold = 3

	// DefaultMaxBackoffFactor caps the backoff multiplier so a struggling
	// backend is probed at most every interval*factor.
	DefaultMaxBackoffFactor = 4
)

// Options configures a Poller.
type Options[T any] struct {
	// Interval is the base delay between attempts. Defaults to
	// DefaultInterval.
	Interval time.Duration

	// FailureThreshold: errors surface once consecutive failures exceed
	// it. Defaults to DefaultFailureThreshold.
	FailureThreshold int

	// MaxBackoffFactor caps the exponential backoff multiplier. Defaults
	// to DefaultMaxBackoffFactor.
	MaxBackoffFactor int

	// Enabled starts the poller in the polling state. Defaults to true
	// via DefaultOptions.
	Enabled bool

	// OnChange is invoked with a state snapshot after every transition.
	OnChange func(fetch.State[T])

	// OnError sees every non-cancellation failure, including suppressed
	// ones.
	OnError func(error)

	Logger zerolog.Logger
}

// DefaultOptions returns the standard poller configuration.
func DefaultOptions[T any]() Options[T] {
	return Options[T]{
		Interval:         DefaultInterval,
		FailureThreshold: DefaultFailureThreshold,
		MaxBackoffFactor: DefaultMaxBackoffFactor,
		Enabled:          true,
		Logger:           log.With().Str("component", "poll-controller").Logger(),
	}
}

// Poller repeatedly executes a producer. At most one attempt is in flight
// per instance: the next delay is scheduled only after the current attempt
// settles, so a slow backend never accumulates concurrent requests.
type Poller[T any] struct {
	producer fetch.Producer[T]
	opts     Options[T]

	mu       sync.Mutex
	state    fetch.State[T]
	failures int
	enabled  bool
	closed   bool
	started  bool
	wake     chan struct{}
}

// New creates a polling controller for the given producer.
func New[T any](producer fetch.Producer[T], opts Options[T]) *Poller[T] {
	if producer == nil {
		panic("poll: producer cannot be nil")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.MaxBackoffFactor <= 0 {
		opts.MaxBackoffFactor = DefaultMaxBackoffFactor
	}
	return &Poller[T]{
		producer: producer,
		opts:     opts,
		enabled:  opts.Enabled,
		wake:     make(chan struct{}),
	}
}

// Start launches the polling loop. When enabled, the first attempt fires
// immediately rather than waiting out the first interval. Start is a no-op
// after the first call.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// SetEnabled toggles polling. Enabling triggers an immediate attempt;
// disabling prevents any further scheduled tick from firing.
func (p *Poller[T]) SetEnabled(enabled bool) {
	p.mu.Lock()
	if p.closed || p.enabled == enabled {
		p.mu.Unlock()
		return
	}
	p.enabled = enabled
	p.signalLocked()
	p.mu.Unlock()
}

// Stop tears the poller down. No state mutation happens afterwards, even if
// an attempt is still in flight.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.signalLocked()
	p.mu.Unlock()
}

// State returns the current state snapshot.
func (p *Poller[T]) State() fetch.State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ConsecutiveFailures returns the current failure streak.
func (p *Poller[T]) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// signalLocked wakes the loop out of its current wait. Callers hold p.mu.
func (p *Poller[T]) signalLocked() {
	close(p.wake)
	p.wake = make(chan struct{})
}

func (p *Poller[T]) run(ctx context.Context) {
	for {
		if !p.awaitEnabled(ctx) {
			return
		}

		p.attempt(ctx)

		delay := p.nextDelay()
		pollBackoffSeconds.Observe(delay.Seconds())
		if !p.sleep(ctx, delay) {
			return
		}
	}
}

// awaitEnabled blocks until the poller is enabled. Returns false when the
// poller is stopped or the context ends.
func (p *Poller[T]) awaitEnabled(ctx context.Context) bool {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return false
		}
		if p.enabled {
			p.mu.Unlock()
			return true
		}
		wake := p.wake
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return false
		case <-wake:
		}
	}
}

// sleep waits out the scheduled delay. An enable-toggle interrupts the wait
// so the loop can re-evaluate; a stop or context end aborts it.
func (p *Poller[T]) sleep(ctx context.Context, delay time.Duration) bool {
	p.mu.Lock()
	wake := p.wake
	p.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-wake:
		return true
	case <-timer.C:
		return true
	}
}

// nextDelay applies exponential backoff to the base interval:
// interval * min(2^(failures-1), maxFactor). A healthy poller polls at 1x.
func (p *Poller[T]) nextDelay() time.Duration {
	p.mu.Lock()
	failures := p.failures
	p.mu.Unlock()

	if failures == 0 {
		return p.opts.Interval
	}

	factor := 1
	for i := 1; i < failures && factor < p.opts.MaxBackoffFactor; i++ {
		factor *= 2
	}
	if factor > p.opts.MaxBackoffFactor {
		factor = p.opts.MaxBackoffFactor
	}
	return p.opts.Interval * time.Duration(factor)
}

// attempt runs one poll cycle: mark loading, invoke the producer, settle.
func (p *Poller[T]) attempt(ctx context.Context) {
	p.mu.Lock()
	if p.closed || !p.enabled {
		p.mu.Unlock()
		return
	}
	p.state.Loading = true
	p.state.Err = ""
	st := p.state
	p.mu.Unlock()
	p.notify(st)

	data, err := p.producer(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	if err != nil {
		if isCancellation(err) {
			p.state.Loading = false
			st := p.state
			p.mu.Unlock()
			pollAttemptsTotal.WithLabelValues("cancelled").Inc()
			p.notify(st)
			return
		}

		p.failures++
		p.state.Loading = false
		suppressed := p.failures <= p.opts.FailureThreshold
		if !suppressed {
			p.state.Err = errorMessage(err)
		}
		failures := p.failures
		st := p.state
		p.mu.Unlock()

		pollAttemptsTotal.WithLabelValues("failure").Inc()
		if suppressed {
			pollSuppressedErrorsTotal.Inc()
			p.opts.Logger.Warn().
				Err(err).
				Int("consecutive_failures", failures).
				Msg("Poll failed, error suppressed as transient")
		} else {
			p.opts.Logger.Error().
				Err(err).
				Int("consecutive_failures", failures).
				Msg("Poll failing persistently")
		}
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
		p.notify(st)
		return
	}

	recovered := p.failures > 0
	p.failures = 0
	p.state = fetch.State[T]{Data: data, Loading: false, Err: ""}
	st = p.state
	p.mu.Unlock()

	pollAttemptsTotal.WithLabelValues("success").Inc()
	if recovered {
		p.opts.Logger.Info().Msg("Poll recovered after failures")
	}
	p.notify(st)
}

func (p *Poller[T]) notify(st fetch.State[T]) {
	if p.opts.OnChange != nil {
		p.opts.OnChange(st)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || api.IsCancellation(err)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return fetch.GenericErrorMessage
	}
	return err.Error()
}
