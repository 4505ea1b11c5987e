// Package fetch provides the one-shot fetch controller used by dashboard
// views: it runs a producer once (or on demand), tracks loading/error state
// for observers, and guards against requests that never settle.
package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/propwatch/propwatch-go/pkg/api"
)

// Prometheus metrics for fetch controllers.
var (
	fetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propwatch_fetch_attempts_total",
		Help: "Total one-shot fetch attempts by result",
	}, []string{"result"})

	fetchGuardTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propwatch_fetch_guard_timeouts_total",
		Help: "Total fetches aborted by the controller's timeout guard",
	})
)

// DefaultGuardTimeout is how long a fetch may stay in flight before the
// controller reports it as stuck. Independent of the HTTP client's own
// timeout, it covers producers that aren't plain HTTP calls.
const DefaultGuardTimeout = 120 * time.Second

// TimeoutMessage is the user-facing error for a fetch aborted by the guard.
const TimeoutMessage = "Request is taking longer than expected. The backend may still be starting up."

// GenericErrorMessage replaces failures that carry no message of their own.
const GenericErrorMessage = "An error occurred"

// Producer is a zero-argument asynchronous operation. It must honor ctx
// cancellation.
type Producer[T any] func(ctx context.Context) (*T, error)

// State is the observable result of a controller. Data is retained across
// failed refreshes so views can keep the last good value on screen while an
// error is shown (stale-while-revalidate).
type State[T any] struct {
	Data    *T
	Loading bool
	Err     string
}

// Options configures a Fetcher.
type Options[T any] struct {
	// Timeout for the controller's guard timer. Defaults to
	// DefaultGuardTimeout.
	Timeout time.Duration

	// Immediate runs the first fetch when Start is called.
	Immediate bool

	// OnChange is invoked with a state snapshot after every transition.
	OnChange func(State[T])

	// OnError is invoked with the underlying error of a failed attempt,
	// before it is flattened into State.Err. Cancellations are filtered
	// out first.
	OnError func(error)

	Logger zerolog.Logger
}

// DefaultOptions returns the standard controller configuration.
func DefaultOptions[T any]() Options[T] {
	return Options[T]{
		Timeout:   DefaultGuardTimeout,
		Immediate: true,
		Logger:    log.With().Str("component", "fetch-controller").Logger(),
	}
}

// Fetcher owns one State and executes its producer on demand. All state
// writes go through the controller (single writer); observers only ever see
// consistent snapshots.
//
// Concurrent Execute calls are deliberately not deduplicated: manual
// refreshes race and the last settlement wins, matching how dashboard
// refresh buttons behave.
type Fetcher[T any] struct {
	producer Producer[T]
	opts     Options[T]

	mu     sync.Mutex
	state  State[T]
	closed bool
}

// attempt carries the settle flag shared between the guard timer and the
// producer path, so exactly one of them writes the terminal state.
type attempt struct {
	settled atomic.Bool
}

// New creates a fetch controller for the given producer.
func New[T any](producer Producer[T], opts Options[T]) *Fetcher[T] {
	if producer == nil {
		panic("fetch: producer cannot be nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGuardTimeout
	}
	return &Fetcher[T]{
		producer: producer,
		opts:     opts,
	}
}

// Start activates the controller, launching the first fetch in the
// background when Immediate is set.
func (f *Fetcher[T]) Start(ctx context.Context) {
	if f.opts.Immediate {
		go f.Execute(ctx)
	}
}

// Execute runs one fetch attempt and blocks until it settles, returning the
// resulting state snapshot. Safe for concurrent use; see the type comment
// for the race policy.
func (f *Fetcher[T]) Execute(ctx context.Context) State[T] {
	f.mu.Lock()
	if f.closed {
		st := f.state
		f.mu.Unlock()
		return st
	}
	f.state.Loading = true
	f.state.Err = ""
	st := f.state
	f.mu.Unlock()
	f.notify(st)

	att := &attempt{}
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	guard := time.AfterFunc(f.opts.Timeout, func() {
		if !att.settled.CompareAndSwap(false, true) {
			return
		}
		fetchGuardTimeoutsTotal.Inc()
		fetchAttemptsTotal.WithLabelValues("timeout").Inc()
		f.opts.Logger.Warn().
			Dur("timeout", f.opts.Timeout).
			Msg("Fetch aborted by timeout guard")
		f.fail(TimeoutMessage)
		// Signal the in-flight producer to give up. Its late settlement
		// is discarded below.
		cancel()
	})
	defer guard.Stop()

	data, err := f.producer(attemptCtx)

	if !att.settled.CompareAndSwap(false, true) {
		// The guard fired first and already wrote the terminal state.
		return f.State()
	}

	if err != nil {
		if isCancellation(err) {
			// Torn down or externally cancelled mid-flight. Not an error;
			// leave whatever state stands.
			fetchAttemptsTotal.WithLabelValues("cancelled").Inc()
			f.clearLoading()
			return f.State()
		}

		fetchAttemptsTotal.WithLabelValues("failure").Inc()
		f.opts.Logger.Error().Err(err).Msg("Fetch failed")
		if f.opts.OnError != nil {
			f.opts.OnError(err)
		}
		f.fail(errorMessage(err))
		return f.State()
	}

	fetchAttemptsTotal.WithLabelValues("success").Inc()
	f.succeed(data)
	return f.State()
}

// State returns the current state snapshot.
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close tears the controller down. In-flight attempts that settle later
// will not mutate state.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// succeed writes a successful settlement, unless the controller was closed.
func (f *Fetcher[T]) succeed(data *T) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.state = State[T]{Data: data, Loading: false, Err: ""}
	st := f.state
	f.mu.Unlock()
	f.notify(st)
}

// fail writes a failed settlement, retaining the last good Data.
func (f *Fetcher[T]) fail(message string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.state.Loading = false
	f.state.Err = message
	st := f.state
	f.mu.Unlock()
	f.notify(st)
}

// clearLoading resets the loading flag after a cancelled attempt without
// reporting an error.
func (f *Fetcher[T]) clearLoading() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.state.Loading = false
	st := f.state
	f.mu.Unlock()
	f.notify(st)
}

func (f *Fetcher[T]) notify(st State[T]) {
	if f.opts.OnChange != nil {
		f.opts.OnChange(st)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || api.IsCancellation(err)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return GenericErrorMessage
	}
	return err.Error()
}
