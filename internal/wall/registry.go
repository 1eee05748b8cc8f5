package wall

import "time"

// entry is the session currently playing in a slot.
type entry struct {
	session   Session
	address   StreamAddress
	startedAt time.Time
}

// registry tracks the active session of each slot, indexed by slot.
// It is not safe for concurrent use; the Wall serializes access.
type registry struct {
	slots []*entry
}

func newRegistry(n int) *registry {
	return &registry{slots: make([]*entry, n)}
}

// get returns the entry for slot i, or nil when the slot is empty or out of range.
func (r *registry) get(i int) *entry {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

func (r *registry) set(i int, e *entry) {
	r.slots[i] = e
}

// take removes and returns the entry for slot i.
func (r *registry) take(i int) *entry {
	e := r.get(i)
	if e != nil {
		r.slots[i] = nil
	}
	return e
}

// active returns the number of slots holding a session.
func (r *registry) active() int {
	n := 0
	for _, e := range r.slots {
		if e != nil {
			n++
		}
	}
	return n
}

// reset discards every entry and resizes the registry to n empty slots.
// Callers release the sessions first.
func (r *registry) reset(n int) {
	r.slots = make([]*entry, n)
}
