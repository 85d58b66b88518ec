package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/marcwhitt/confab/pkg/model"
)

var (
	// ErrGroupExists is returned by Create for a name collision.
	ErrGroupExists = errors.New("server: group already exists")
	// ErrNoSuchGroup is returned for operations on an absent group.
	ErrNoSuchGroup = errors.New("server: no such group")
	// ErrNotMember is returned by Leave when the session is not in the
	// group.
	ErrNotMember = errors.New("server: not a group member")
)

// GroupRegistry maps group names to member session-id sets, guarded by
// its own mutex, independent of the client registry's. Groups are
// created explicitly and never removed, even once empty; membership is
// the only thing that changes.
type GroupRegistry struct {
	mu     sync.Mutex
	groups map[string]map[model.SessionID]bool
}

// NewGroupRegistry creates an empty group registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{
		groups: make(map[string]map[model.SessionID]bool),
	}
}

// Create creates a group with the founder as its sole member. Fails
// with ErrGroupExists if the name is taken; the existing group's
// membership is left untouched.
func (r *GroupRegistry) Create(name string, founder model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[name]; ok {
		return ErrGroupExists
	}
	r.groups[name] = map[model.SessionID]bool{founder: true}
	return nil
}

// Join adds a session to an existing group. Idempotent for current
// members; fails with ErrNoSuchGroup for absent groups and never
// creates one implicitly.
func (r *GroupRegistry) Join(name string, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[name]
	if !ok {
		return ErrNoSuchGroup
	}
	members[id] = true
	return nil
}

// Leave removes a session from a group. The existence and membership
// checks and the removal are one critical section.
func (r *GroupRegistry) Leave(name string, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[name]
	if !ok {
		return ErrNoSuchGroup
	}
	if !members[id] {
		return ErrNotMember
	}
	delete(members, id)
	return nil
}

// RemoveEverywhere removes a session from every group. Used only during
// disconnect cleanup; never fails.
func (r *GroupRegistry) RemoveEverywhere(id model.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, members := range r.groups {
		delete(members, id)
	}
}

// Members returns a snapshot of a group's member ids, or ok=false if
// the group does not exist.
func (r *GroupRegistry) Members(name string) ([]model.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[name]
	if !ok {
		return nil, false
	}
	ids := make([]model.SessionID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// MembersFor returns a member snapshot for delivery on behalf of
// sender. Existence check, membership check, and snapshot are one
// critical section, so a concurrent leave cannot slip between them.
func (r *GroupRegistry) MembersFor(name string, sender model.SessionID) ([]model.SessionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[name]
	if !ok {
		return nil, ErrNoSuchGroup
	}
	if !members[sender] {
		return nil, ErrNotMember
	}
	ids := make([]model.SessionID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// IsMember reports whether a session belongs to a group.
func (r *GroupRegistry) IsMember(name string, id model.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[name]
	return ok && members[id]
}

// ListAll returns every group with its member count, ordered by name.
func (r *GroupRegistry) ListAll() []model.GroupInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]model.GroupInfo, 0, len(r.groups))
	for name, members := range r.groups {
		infos = append(infos, model.GroupInfo{Name: name, MemberCount: len(members)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
