package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/propwatch/propwatch-go/pkg/fetch"
)

func testOptions[T any](interval time.Duration) Options[T] {
	opts := DefaultOptions[T]()
	opts.Interval = interval
	opts.Logger = zerolog.Nop()
	return opts
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestPoll_FirstAttemptImmediate(t *testing.T) {
	started := time.Now()
	var firstPoll atomic.Value

	producer := func(ctx context.Context) (*int, error) {
		firstPoll.CompareAndSwap(nil, time.Since(started))
		v := 1
		return &v, nil
	}

	p := New(producer, testOptions[int](time.Hour))
	defer p.Stop()
	p.Start(context.Background())

	waitFor(t, time.Second, func() bool { return firstPoll.Load() != nil })

	// The first attempt must not wait out the interval.
	if elapsed := firstPoll.Load().(time.Duration); elapsed > 500*time.Millisecond {
		t.Errorf("First poll after %v, expected immediately", elapsed)
	}
}

func TestPoll_SuccessUpdatesState(t *testing.T) {
	producer := func(ctx context.Context) (*string, error) {
		s := "fresh"
		return &s, nil
	}

	p := New(producer, testOptions[string](time.Hour))
	defer p.Stop()
	p.Start(context.Background())

	waitFor(t, time.Second, func() bool { return p.State().Data != nil })

	st := p.State()
	if *st.Data != "fresh" {
		t.Errorf("Data = %q", *st.Data)
	}
	if st.Loading || st.Err != "" {
		t.Errorf("State = %+v, want settled clean", st)
	}
}

func TestPoll_ErrorSuppressionBoundary(t *testing.T) {
	// The step channel gates each attempt so the test controls exactly how
	// many failures have settled.
	step := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		select {
		case <-step:
			return nil, errors.New("backend down")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Loading transitions clear Err, so the surfaced error is captured off
	// the settlement notification rather than polled from State.
	var surfaced atomic.Value
	opts := testOptions[int](time.Millisecond)
	opts.OnChange = func(st fetch.State[int]) {
		if st.Err != "" {
			surfaced.CompareAndSwap(nil, st.Err)
		}
	}

	p := New(producer, opts)
	defer p.Stop()
	p.Start(ctx)

	// After exactly 3 consecutive failures the error is still suppressed.
	for i := 0; i < 3; i++ {
		step <- struct{}{}
	}
	waitFor(t, time.Second, func() bool { return p.ConsecutiveFailures() == 3 })
	if got := surfaced.Load(); got != nil {
		t.Errorf("Err = %q after 3 failures, want suppressed", got)
	}

	// The 4th failure crosses the threshold.
	step <- struct{}{}
	waitFor(t, time.Second, func() bool { return p.ConsecutiveFailures() == 4 })
	waitFor(t, time.Second, func() bool { return surfaced.Load() != nil })
	if got, _ := surfaced.Load().(string); got != "backend down" {
		t.Errorf("Err = %q, want backend down", got)
	}
}

func TestPoll_RecoveryResetsFailures(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	producer := func(ctx context.Context) (*int, error) {
		if failing.Load() {
			return nil, errors.New("backend down")
		}
		v := 10
		return &v, nil
	}

	p := New(producer, testOptions[int](time.Millisecond))
	defer p.Stop()
	p.Start(context.Background())

	waitFor(t, time.Second, func() bool { return p.ConsecutiveFailures() >= 5 })

	failing.Store(false)
	waitFor(t, time.Second, func() bool { return p.State().Data != nil })

	if got := p.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures = %d after recovery, want 0", got)
	}
	if st := p.State(); st.Err != "" {
		t.Errorf("Err = %q after recovery, want cleared", st.Err)
	}
}

func TestPoll_DataRetainedAcrossFailures(t *testing.T) {
	var failing atomic.Bool
	var sawErrWithData atomic.Bool

	producer := func(ctx context.Context) (*int, error) {
		if failing.Load() {
			return nil, errors.New("backend down")
		}
		v := 77
		return &v, nil
	}

	opts := testOptions[int](time.Millisecond)
	opts.OnChange = func(st fetch.State[int]) {
		if st.Err != "" && st.Data != nil {
			sawErrWithData.Store(true)
		}
	}

	p := New(producer, opts)
	defer p.Stop()
	p.Start(context.Background())

	waitFor(t, time.Second, func() bool { return p.State().Data != nil })
	failing.Store(true)
	waitFor(t, time.Second, func() bool { return p.ConsecutiveFailures() >= 5 })

	if st := p.State(); st.Data == nil || *st.Data != 77 {
		t.Errorf("Data = %v, want retained 77", st.Data)
	}
	if !sawErrWithData.Load() {
		t.Error("Error never surfaced alongside retained data")
	}
}

func TestPoll_BackoffSchedule(t *testing.T) {
	producer := func(ctx context.Context) (*int, error) {
		return nil, errors.New("down")
	}

	opts := testOptions[int](5000 * time.Millisecond)
	p := New(producer, opts)

	// delay = interval * min(2^(failures-1), 4)
	expected := map[int]time.Duration{
		0: 5000 * time.Millisecond,
		1: 5000 * time.Millisecond,
		2: 10000 * time.Millisecond,
		3: 20000 * time.Millisecond,
		4: 20000 * time.Millisecond,
		9: 20000 * time.Millisecond,
	}

	for failures, want := range expected {
		p.mu.Lock()
		p.failures = failures
		p.mu.Unlock()

		if got := p.nextDelay(); got != want {
			t.Errorf("nextDelay with %d failures = %v, want %v", failures, got, want)
		}
	}
}

func TestPoll_SingleAttemptInFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64

	producer := func(ctx context.Context) (*int, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if current <= prev || maxInFlight.CompareAndSwap(prev, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		v := 1
		return &v, nil
	}

	p := New(producer, testOptions[int](time.Millisecond))
	defer p.Stop()
	p.Start(context.Background())

	time.Sleep(200 * time.Millisecond)

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("Max concurrent attempts = %d, want 1", got)
	}
}

func TestPoll_StopPreventsFurtherTicks(t *testing.T) {
	var calls atomic.Int64
	producer := func(ctx context.Context) (*int, error) {
		calls.Add(1)
		v := 1
		return &v, nil
	}

	p := New(producer, testOptions[int](5*time.Millisecond))
	p.Start(context.Background())

	waitFor(t, time.Second, func() bool { return calls.Load() >= 2 })
	p.Stop()

	at := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if calls.Load() > at+1 {
		t.Errorf("Producer kept running after Stop: %d -> %d", at, calls.Load())
	}
}

func TestPoll_TeardownSafety(t *testing.T) {
	release := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		<-release
		v := 123
		return &v, nil
	}

	var mu sync.Mutex
	notifications := 0
	opts := testOptions[int](time.Millisecond)
	opts.OnChange = func(fetch.State[int]) {
		mu.Lock()
		notifications++
		mu.Unlock()
	}

	p := New(producer, opts)
	p.Start(context.Background())

	// Wait until the attempt is in flight, then tear down.
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return notifications == 1
	})
	p.Stop()

	mu.Lock()
	before := notifications
	mu.Unlock()

	close(release)
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	after := notifications
	mu.Unlock()

	if after != before {
		t.Errorf("State mutated after Stop: %d notifications before, %d after", before, after)
	}
	if st := p.State(); st.Data != nil {
		t.Errorf("Late settlement visible after Stop: %v", *st.Data)
	}
}

func TestPoll_DisabledDoesNotPoll(t *testing.T) {
	var calls atomic.Int64
	producer := func(ctx context.Context) (*int, error) {
		calls.Add(1)
		v := 1
		return &v, nil
	}

	opts := testOptions[int](time.Millisecond)
	opts.Enabled = false
	p := New(producer, opts)
	defer p.Stop()
	p.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("Disabled poller ran %d attempts", calls.Load())
	}

	// Enabling triggers an immediate attempt.
	p.SetEnabled(true)
	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })
}

func TestPoll_CancellationNotCountedAsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	entered := make(chan struct{}, 1)
	producer := func(pctx context.Context) (*int, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-pctx.Done()
		return nil, pctx.Err()
	}

	p := New(producer, testOptions[int](time.Millisecond))
	defer p.Stop()
	p.Start(ctx)

	<-entered
	cancel()
	time.Sleep(30 * time.Millisecond)

	if got := p.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures = %d after cancellation, want 0", got)
	}
	if st := p.State(); st.Err != "" {
		t.Errorf("Err = %q after cancellation, want empty", st.Err)
	}
}
