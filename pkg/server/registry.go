package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/marcwhitt/confab/pkg/model"
)

// ErrAlreadyActive is returned by Register when the username already has
// an active session.
var ErrAlreadyActive = errors.New("server: user already active")

// ClientEntry is one registered session: the single source of truth for
// "who is online" and where to deliver their messages.
type ClientEntry struct {
	ID       model.SessionID
	Username string
	Peer     Peer
}

// ClientRegistry maps session IDs to authenticated users. Every
// operation runs under one mutex, so no interleaving of reads and
// writes is observable; multi-step checks (uniqueness on register) are
// atomic with their mutation.
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[model.SessionID]ClientEntry
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[model.SessionID]ClientEntry),
	}
}

// Register inserts a session. It fails with ErrAlreadyActive if any
// existing entry carries the same username; the uniqueness check and
// the insert are one critical section, so concurrent logins for the
// same username admit exactly one winner.
func (r *ClientRegistry) Register(id model.SessionID, username string, peer Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.clients {
		if entry.Username == username {
			return ErrAlreadyActive
		}
	}
	r.clients[id] = ClientEntry{ID: id, Username: username, Peer: peer}
	return nil
}

// Unregister removes a session if present and returns the removed
// username. The second result is false when the id was not registered,
// making redundant disconnects a no-op.
func (r *ClientRegistry) Unregister(id model.SessionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[id]
	if !ok {
		return "", false
	}
	delete(r.clients, id)
	return entry.Username, true
}

// Find returns the session id for an exact username match.
func (r *ClientRegistry) Find(username string) (model.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.clients {
		if entry.Username == username {
			return id, true
		}
	}
	return 0, false
}

// Get returns the entry for a session id.
func (r *ClientRegistry) Get(id model.SessionID) (ClientEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[id]
	return entry, ok
}

// Snapshot returns a point-in-time copy of all entries ordered by
// session id (registration order). Broadcast iterates the copy, never
// the live map.
func (r *ClientRegistry) Snapshot() []ClientEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]ClientEntry, 0, len(r.clients))
	for _, entry := range r.clients {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Count returns the number of active sessions.
func (r *ClientRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
