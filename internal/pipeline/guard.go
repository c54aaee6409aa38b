package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Action families guarded against concurrent runs.
const (
	FamilyExtract    = "extract"
	FamilyMutate     = "mutate"
	FamilyIntent     = "intent"
	FamilyRecommend  = "recommend"
	FamilyRegenerate = "regenerate"
	FamilyAnchors    = "anchors"
	FamilyImages     = "images"
)

// ErrInFlight is returned when the same action family is already running.
var ErrInFlight = errors.New("operation already in progress")

// TimeoutError is returned when a guarded call outlives its deadline.
type TimeoutError struct {
	Family string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Family, e.After)
}

// Flight allows one call per action family at a time.
type Flight struct {
	mu   sync.Mutex
	busy map[string]bool
}

func NewFlight() *Flight {
	return &Flight{busy: make(map[string]bool)}
}

// Busy reports whether family is running.
func (f *Flight) Busy(family string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[family]
}

// Families returns the families currently running.
func (f *Flight) Families() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.busy))
	for fam := range f.busy {
		out = append(out, fam)
	}
	return out
}

func (f *Flight) acquire(family string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[family] {
		return false
	}
	f.busy[family] = true
	return true
}

func (f *Flight) release(family string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.busy, family)
}

// Do runs fn as family. See Guard.
func (f *Flight) Do(ctx context.Context, family string, timeout time.Duration, fn func(context.Context) error) error {
	_, err := Guard(ctx, f, family, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Guard runs fn as family on f. A second call for a running family fails
// with ErrInFlight. When timeout elapses first, Guard returns a
// *TimeoutError and releases the family; fn keeps running and its result is
// dropped. A panic in fn is returned as an error.
func Guard[T any](ctx context.Context, f *Flight, family string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !f.acquire(family) {
		return zero, fmt.Errorf("%s: %w", family, ErrInFlight)
	}
	defer f.release(family)

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%s: panic: %v", family, r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case r := <-done:
		return r.v, r.err
	case <-timer:
		return zero, &TimeoutError{Family: family, After: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
