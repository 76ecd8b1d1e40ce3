// Package reconcile keeps read-derived views consistent with the remote
// store after writes. Every successful mutation is followed by a full
// refetch of the affected collection; nothing is ever patched locally.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrActionInFlight rejects a duplicate submission of an action whose
// previous cycle has not returned to idle yet.
var ErrActionInFlight = errors.New("action already in flight")

// MutationError is a mutation that reached the store and failed. No refetch
// happened; the caller's last-known-good state stands.
type MutationError struct {
	Action string
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %q failed: %v", e.Action, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// RefetchError is a mutation that succeeded but whose follow-up refetch
// failed. The write stood; the caller's view is stale until the next read.
type RefetchError struct {
	Action string
	Err    error
}

func (e *RefetchError) Error() string {
	return fmt.Sprintf("refetch after %q failed: %v", e.Action, e.Err)
}

func (e *RefetchError) Unwrap() error { return e.Err }

// Action is one confirmed user intent. Key identifies the logical action
// for the duplicate-submission guard; Mutate performs the write; Refetch
// reloads the affected collection from the store.
type Action struct {
	Key     string
	Mutate  func(context.Context) error
	Refetch func(context.Context) error
}

type Reconciler struct {
	mu       sync.Mutex
	inflight map[string]struct{}

	// onFailure raises the user-visible notice for a failed mutation.
	onFailure func(action string, err error)
}

func New(onFailure func(action string, err error)) *Reconciler {
	if onFailure == nil {
		onFailure = func(action string, err error) {
			slog.Warn("mutation failed", "action", action, "error", err)
		}
	}
	return &Reconciler{
		inflight:  make(map[string]struct{}),
		onFailure: onFailure,
	}
}

// Do runs one mutation cycle: idle -> in flight -> success (refetch) or
// failure, then back to idle. While the key is held, further Do calls with
// the same key return ErrActionInFlight. On failure no refetch happens and
// the failure notifier fires with the action name.
func (r *Reconciler) Do(ctx context.Context, a Action) error {
	if a.Mutate == nil || a.Refetch == nil {
		return errors.New("reconcile: action needs both mutate and refetch")
	}
	if !r.acquire(a.Key) {
		return ErrActionInFlight
	}
	defer r.release(a.Key)

	if err := a.Mutate(ctx); err != nil {
		merr := &MutationError{Action: a.Key, Err: err}
		r.onFailure(a.Key, err)
		return merr
	}

	// Convergence through full refetch, not through patching.
	if err := a.Refetch(ctx); err != nil {
		return &RefetchError{Action: a.Key, Err: err}
	}
	return nil
}

// InFlight reports whether the key is currently held; views use it to keep
// the matching control disabled.
func (r *Reconciler) InFlight(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[key]
	return ok
}

func (r *Reconciler) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[key]; ok {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

func (r *Reconciler) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
}
