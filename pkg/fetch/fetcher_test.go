package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recorder captures every state snapshot a controller publishes.
type recorder[T any] struct {
	mu     sync.Mutex
	states []State[T]
}

func (r *recorder[T]) record(st State[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recorder[T]) snapshot() []State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State[T](nil), r.states...)
}

func testOptions[T any](rec *recorder[T]) Options[T] {
	opts := DefaultOptions[T]()
	opts.Logger = zerolog.Nop()
	if rec != nil {
		opts.OnChange = rec.record
	}
	return opts
}

func TestExecute_Success(t *testing.T) {
	producer := func(ctx context.Context) (*int, error) {
		v := 42
		return &v, nil
	}

	rec := &recorder[int]{}
	f := New(producer, testOptions(rec))

	st := f.Execute(context.Background())

	if st.Loading {
		t.Error("Loading should end false")
	}
	if st.Err != "" {
		t.Errorf("Err = %q, want empty", st.Err)
	}
	if st.Data == nil || *st.Data != 42 {
		t.Errorf("Data = %v, want 42", st.Data)
	}

	states := rec.snapshot()
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2 (loading, settled)", len(states))
	}
	if !states[0].Loading {
		t.Error("First transition should be loading")
	}
}

func TestExecute_FailureRetainsData(t *testing.T) {
	calls := 0
	producer := func(ctx context.Context) (*int, error) {
		calls++
		if calls == 1 {
			v := 7
			return &v, nil
		}
		return nil, errors.New("scrape worker crashed")
	}

	f := New(producer, testOptions[int](nil))

	f.Execute(context.Background())
	st := f.Execute(context.Background())

	if st.Err != "scrape worker crashed" {
		t.Errorf("Err = %q", st.Err)
	}
	if st.Loading {
		t.Error("Loading should end false")
	}
	// Stale-while-revalidate: the last good value stays visible.
	if st.Data == nil || *st.Data != 7 {
		t.Errorf("Data = %v, want retained 7", st.Data)
	}
}

func TestExecute_LoadingClearsError(t *testing.T) {
	fail := true
	producer := func(ctx context.Context) (*int, error) {
		if fail {
			return nil, errors.New("boom")
		}
		v := 1
		return &v, nil
	}

	rec := &recorder[int]{}
	f := New(producer, testOptions(rec))

	f.Execute(context.Background())
	fail = false
	f.Execute(context.Background())

	states := rec.snapshot()
	// Second attempt's loading snapshot must not still carry the old error.
	loading := states[2]
	if !loading.Loading {
		t.Fatalf("states[2] = %+v, expected loading snapshot", loading)
	}
	if loading.Err != "" {
		t.Errorf("Loading snapshot carries stale error %q", loading.Err)
	}
}

func TestExecute_RefetchIdempotent(t *testing.T) {
	producer := func(ctx context.Context) (*string, error) {
		s := "stable"
		return &s, nil
	}

	f := New(producer, testOptions[string](nil))

	first := f.Execute(context.Background())
	second := f.Execute(context.Background())

	if *first.Data != *second.Data || first.Err != second.Err || first.Loading != second.Loading {
		t.Errorf("Repeated execute diverged: %+v vs %+v", first, second)
	}
}

func TestExecute_GenericErrorMessage(t *testing.T) {
	producer := func(ctx context.Context) (*int, error) {
		return nil, errors.New("")
	}

	f := New(producer, testOptions[int](nil))

	st := f.Execute(context.Background())
	if st.Err != GenericErrorMessage {
		t.Errorf("Err = %q, want %q", st.Err, GenericErrorMessage)
	}
}

func TestExecute_TimeoutGuardWritesOnce(t *testing.T) {
	release := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		select {
		case <-release:
			v := 99
			return &v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	rec := &recorder[int]{}
	opts := testOptions(rec)
	opts.Timeout = 30 * time.Millisecond
	f := New(producer, opts)

	st := f.Execute(context.Background())

	if st.Err != TimeoutMessage {
		t.Errorf("Err = %q, want timeout message", st.Err)
	}

	// Let the producer settle late; its result must be discarded.
	close(release)
	time.Sleep(20 * time.Millisecond)

	final := f.State()
	if final.Err != TimeoutMessage {
		t.Errorf("Late settlement clobbered guard state: %+v", final)
	}
	if final.Data != nil {
		t.Errorf("Late data surfaced: %v", *final.Data)
	}

	timeoutWrites := 0
	for _, s := range rec.snapshot() {
		if s.Err == TimeoutMessage {
			timeoutWrites++
		}
	}
	if timeoutWrites != 1 {
		t.Errorf("Timeout state written %d times, want exactly once", timeoutWrites)
	}
}

func TestExecute_GuardCancelsProducer(t *testing.T) {
	cancelled := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}

	opts := testOptions[int](nil)
	opts.Timeout = 20 * time.Millisecond
	f := New(producer, opts)

	f.Execute(context.Background())

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Guard did not cancel the in-flight producer")
	}
}

func TestExecute_CancellationIsNotAnError(t *testing.T) {
	producer := func(ctx context.Context) (*int, error) {
		return nil, fmt.Errorf("wrapped: %w", context.Canceled)
	}

	var sawError error
	opts := testOptions[int](nil)
	opts.OnError = func(err error) { sawError = err }
	f := New(producer, opts)

	st := f.Execute(context.Background())

	if st.Err != "" {
		t.Errorf("Cancellation surfaced as error %q", st.Err)
	}
	if st.Loading {
		t.Error("Loading should end false after cancellation")
	}
	if sawError != nil {
		t.Errorf("OnError called for cancellation: %v", sawError)
	}
}

func TestClose_TeardownSafety(t *testing.T) {
	release := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		<-release
		v := 1
		return &v, nil
	}

	rec := &recorder[int]{}
	f := New(producer, testOptions(rec))

	done := make(chan struct{})
	go func() {
		f.Execute(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	f.Close()
	before := len(rec.snapshot())

	close(release)
	<-done

	if after := len(rec.snapshot()); after != before {
		t.Errorf("State mutated after Close: %d notifications before, %d after", before, after)
	}
}

func TestStart_Immediate(t *testing.T) {
	ran := make(chan struct{})
	producer := func(ctx context.Context) (*int, error) {
		close(ran)
		v := 1
		return &v, nil
	}

	f := New(producer, testOptions[int](nil))
	f.Start(context.Background())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Start with Immediate did not execute")
	}
}

func TestStart_NotImmediate(t *testing.T) {
	producer := func(ctx context.Context) (*int, error) {
		t.Error("Producer ran despite Immediate=false")
		return nil, nil
	}

	opts := testOptions[int](nil)
	opts.Immediate = false
	f := New(producer, opts)
	f.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
}
