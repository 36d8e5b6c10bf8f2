package resource

import (
	"context"
	"errors"
	"sync"
)

var ErrNoData = errors.New("no data")

// Fetcher resolves one logical resource.
type Fetcher[T any] func(ctx context.Context) (T, error)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of a Loader's state.
type Snapshot[T any] struct {
	State           State
	Data            T
	HasData         bool
	Err             error
	IsUsingFallback bool
}

func (s Snapshot[T]) IsLoading() bool { return s.State == StateLoading }

type Option[T any] func(*Loader[T])

func OnSuccess[T any](fn func(T)) Option[T] {
	return func(l *Loader[T]) { l.onSuccess = fn }
}

func OnError[T any](fn func(error)) Option[T] {
	return func(l *Loader[T]) { l.onError = fn }
}

// Loader tracks the idle → loading → success|error lifecycle of a single
// resource. Overlapping loads are not coalesced; the last one to finish
// wins.
type Loader[T any] struct {
	fetch     Fetcher[T]
	onSuccess func(T)
	onError   func(error)

	mu   sync.Mutex
	snap Snapshot[T]
}

func New[T any](fetch Fetcher[T], opts ...Option[T]) *Loader[T] {
	l := &Loader[T]{fetch: fetch}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Load runs the fetcher and blocks until it settles.
func (l *Loader[T]) Load(ctx context.Context) Snapshot[T] {
	l.begin()
	l.finish(l.fetch(ctx))
	return l.Snapshot()
}

// Start marks the loader loading and runs the fetcher in the background.
// The returned channel closes once the result is stored.
func (l *Loader[T]) Start(ctx context.Context) <-chan struct{} {
	l.begin()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.finish(l.fetch(ctx))
	}()

	return done
}

// Refetch re-runs the same resolution in the background.
func (l *Loader[T]) Refetch(ctx context.Context) <-chan struct{} {
	return l.Start(ctx)
}

// Set overwrites the data locally without a round trip.
func (l *Loader[T]) Set(value T) {
	l.Update(func(T) T { return value })
}

// Update applies fn to the current data locally without a round trip.
func (l *Loader[T]) Update(fn func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.Data = fn(l.snap.Data)
	l.snap.HasData = true
}

func (l *Loader[T]) begin() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.State = StateLoading
	l.snap.Err = nil
}

// finish stores the outcome. Any error flags the snapshot as using
// fallback, whatever its cause.
func (l *Loader[T]) finish(data T, err error) {
	l.mu.Lock()
	if err != nil {
		l.snap.State = StateError
		l.snap.Err = err
		l.snap.IsUsingFallback = true
	} else {
		l.snap.State = StateSuccess
		l.snap.Data = data
		l.snap.HasData = true
	}
	l.mu.Unlock()

	if err != nil {
		if l.onError != nil {
			l.onError(err)
		}
		return
	}

	if l.onSuccess != nil {
		l.onSuccess(data)
	}
}
