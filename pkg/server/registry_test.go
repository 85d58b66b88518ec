package server

import (
	"errors"
	"sync"
	"testing"

	"github.com/marcwhitt/confab/pkg/model"
)

func TestClientRegistryRegisterAndFind(t *testing.T) {
	r := NewClientRegistry()
	p := newFakePeer()

	if err := r.Register(1, "alice", p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}

	id, ok := r.Find("alice")
	if !ok || id != 1 {
		t.Errorf("Find(alice) = (%d, %v), want (1, true)", id, ok)
	}
	if _, ok := r.Find("bob"); ok {
		t.Errorf("Find(bob) matched a nonexistent user")
	}

	entry, ok := r.Get(1)
	if !ok || entry.Username != "alice" || entry.Peer != Peer(p) {
		t.Errorf("Get(1) = (%+v, %v)", entry, ok)
	}
}

func TestClientRegistryDuplicateUsername(t *testing.T) {
	r := NewClientRegistry()
	if err := r.Register(1, "alice", newFakePeer()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := r.Register(2, "alice", newFakePeer())
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Register = %v, want ErrAlreadyActive", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d after rejected register, want 1", r.Count())
	}

	// The same name is usable again once the first session is gone.
	if _, ok := r.Unregister(1); !ok {
		t.Fatalf("Unregister(1) reported not registered")
	}
	if err := r.Register(2, "alice", newFakePeer()); err != nil {
		t.Errorf("Register after unregister: %v", err)
	}
}

func TestClientRegistryUnregister(t *testing.T) {
	r := NewClientRegistry()
	if err := r.Register(7, "carol", newFakePeer()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	username, ok := r.Unregister(7)
	if !ok || username != "carol" {
		t.Errorf("Unregister = (%q, %v), want (carol, true)", username, ok)
	}

	// Redundant unregister is a no-op.
	if username, ok := r.Unregister(7); ok || username != "" {
		t.Errorf("second Unregister = (%q, %v), want no-op", username, ok)
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestClientRegistrySnapshotOrder(t *testing.T) {
	r := NewClientRegistry()
	for _, c := range []struct {
		id   model.SessionID
		name string
	}{{3, "carol"}, {1, "alice"}, {2, "bob"}} {
		if err := r.Register(c.id, c.name, newFakePeer()); err != nil {
			t.Fatalf("Register(%s): %v", c.name, err)
		}
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(snap))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if snap[i].Username != want {
			t.Errorf("Snapshot[%d] = %q, want %q", i, snap[i].Username, want)
		}
	}
}

// Concurrent registrations under the same username must admit exactly
// one winner.
func TestClientRegistryConcurrentSameUsername(t *testing.T) {
	r := NewClientRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Register(model.SessionID(i+1), "alice", newFakePeer())
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, ErrAlreadyActive) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}
