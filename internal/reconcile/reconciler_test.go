package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mibalance/internal/core"
)

// fakeStore is a minimal in-memory stand-in for the remote reminder
// collection: mutations apply remotely, reads replace the local copy.
type fakeStore struct {
	mu        sync.Mutex
	reminders map[string]core.Reminder
	failNext  bool
}

func newFakeStore(rs ...core.Reminder) *fakeStore {
	s := &fakeStore{reminders: make(map[string]core.Reminder)}
	for _, r := range rs {
		s.reminders[r.ID] = r
	}
	return s
}

var errBoom = errors.New("simulated transport error")

func (s *fakeStore) toggle(id string, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errBoom
	}
	r := s.reminders[id]
	r.Done = done
	s.reminders[id] = r
	return nil
}

func (s *fakeStore) delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errBoom
	}
	delete(s.reminders, id)
	return nil
}

func (s *fakeStore) list() []core.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, r)
	}
	return out
}

func TestSuccessfulMutationRefetches(t *testing.T) {
	store := newFakeStore(core.Reminder{ID: "1", Title: "luz", Done: false})
	var view []core.Reminder

	rec := New(nil)
	err := rec.Do(context.Background(), Action{
		Key:    "reminder-toggle:1",
		Mutate: func(context.Context) error { return store.toggle("1", true) },
		Refetch: func(context.Context) error {
			view = store.list()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(view) != 1 || !view[0].Done {
		t.Fatalf("view did not converge: %+v", view)
	}
}

func TestDoubleToggleRestoresOriginal(t *testing.T) {
	store := newFakeStore(core.Reminder{ID: "1", Title: "luz", Done: false})
	view := store.list()

	rec := New(nil)
	toggleOnce := func() {
		current := view[0].Done
		err := rec.Do(context.Background(), Action{
			Key:    "reminder-toggle:1",
			Mutate: func(context.Context) error { return store.toggle("1", !current) },
			Refetch: func(context.Context) error {
				view = store.list()
				return nil
			},
		})
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	toggleOnce()
	if !view[0].Done {
		t.Fatalf("first toggle: want done=true")
	}
	toggleOnce()
	if view[0].Done {
		t.Fatalf("second toggle: want done=false")
	}
}

func TestDeleteConverges(t *testing.T) {
	store := newFakeStore(
		core.Reminder{ID: "4", Title: "agua"},
		core.Reminder{ID: "5", Title: "gas"},
	)
	var view []core.Reminder

	rec := New(nil)
	err := rec.Do(context.Background(), Action{
		Key:    "reminder-delete:5",
		Mutate: func(context.Context) error { return store.delete("5") },
		Refetch: func(context.Context) error {
			view = store.list()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	for _, r := range view {
		if r.ID == "5" {
			t.Fatalf("deleted id still present after refetch")
		}
	}
	if len(view) != 1 {
		t.Fatalf("view length: %d", len(view))
	}
}

func TestFailedMutationLeavesViewUntouchedAndNotifies(t *testing.T) {
	store := newFakeStore(core.Reminder{ID: "1", Title: "luz", Done: false})
	view := store.list()
	before := append([]core.Reminder(nil), view...)

	var notified string
	rec := New(func(action string, err error) { notified = action })

	store.failNext = true
	refetched := false
	err := rec.Do(context.Background(), Action{
		Key:    "reminder-toggle:1",
		Mutate: func(context.Context) error { return store.toggle("1", true) },
		Refetch: func(context.Context) error {
			refetched = true
			view = store.list()
			return nil
		},
	})

	var merr *MutationError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MutationError, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if refetched {
		t.Fatalf("refetch ran after a failed mutation")
	}
	if notified != "reminder-toggle:1" {
		t.Fatalf("failure notice: %q", notified)
	}
	if len(view) != len(before) || view[0] != before[0] {
		t.Fatalf("view changed after failed mutation: %+v", view)
	}
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	rec := New(nil)

	started := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- rec.Do(context.Background(), Action{
			Key: "income-create",
			Mutate: func(context.Context) error {
				close(started)
				<-proceed
				return nil
			},
			Refetch: func(context.Context) error { return nil },
		})
	}()

	<-started
	if !rec.InFlight("income-create") {
		t.Fatalf("key should be in flight")
	}
	err := rec.Do(context.Background(), Action{
		Key:     "income-create",
		Mutate:  func(context.Context) error { return nil },
		Refetch: func(context.Context) error { return nil },
	})
	if !errors.Is(err, ErrActionInFlight) {
		t.Fatalf("expected ErrActionInFlight, got %v", err)
	}

	close(proceed)
	if err := <-done; err != nil {
		t.Fatalf("first action: %v", err)
	}
	if rec.InFlight("income-create") {
		t.Fatalf("key not released")
	}

	// A different key is unaffected.
	if err := rec.Do(context.Background(), Action{
		Key:     "expense-create",
		Mutate:  func(context.Context) error { return nil },
		Refetch: func(context.Context) error { return nil },
	}); err != nil {
		t.Fatalf("other key: %v", err)
	}
}

func TestRefetchFailureReported(t *testing.T) {
	rec := New(nil)
	err := rec.Do(context.Background(), Action{
		Key:     "reminder-delete:1",
		Mutate:  func(context.Context) error { return nil },
		Refetch: func(context.Context) error { return errBoom },
	})
	var rerr *RefetchError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RefetchError, got %v", err)
	}
}
