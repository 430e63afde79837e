package job

import "sync"

// Registry tracks the in-flight jobs of one client instance, keyed by
// job ID. It is safe for concurrent use.
//
// Handles are stored by value. The poller is the only writer and all
// writes go through Update, which runs read-modify-write inside a single
// critical section, so a concurrent Lookup never observes a half-updated
// handle. The lock is never held across a network call.
//
// A Registry lives for the process lifetime and is not persisted: a
// restart loses track of in-flight jobs.
type Registry struct {
	mu      sync.RWMutex
	handles map[ID]Handle
}

// NewRegistry creates an empty registry. Each client owns its own
// instance; tests construct isolated ones.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[ID]Handle),
	}
}

// Insert stores a newly submitted handle. Job IDs are server-assigned
// and unique, so an existing entry with the same ID is replaced.
func (r *Registry) Insert(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID] = h
}

// Lookup returns a snapshot of the handle for id.
// Returns false if the job is not tracked.
func (r *Registry) Lookup(id ID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Update applies fn to the stored handle and replaces it atomically.
// Returns the updated snapshot, or false if the job is not tracked.
// fn must not block; it runs under the registry lock.
func (r *Registry) Update(id ID, fn func(Handle) Handle) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return Handle{}, false
	}
	h = fn(h)
	r.handles[id] = h
	return h, true
}

// Remove drops the handle for id. Removing an untracked ID is a no-op.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// IDs returns the IDs of all tracked jobs.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}
