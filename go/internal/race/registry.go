package race

import "sync"

// Registry is the inverse index from connection id to the code of the room
// that connection occupies.
type Registry struct {
	mu      sync.RWMutex
	members map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{members: make(map[string]string)}
}

// Bind records that connID is in the room with the given code
func (r *Registry) Bind(connID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[connID] = code
}

// Lookup returns the room code for connID
func (r *Registry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.members[connID]
	return code, ok
}

// Unbind removes connID and returns the code it was bound to
func (r *Registry) Unbind(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.members[connID]
	if ok {
		delete(r.members, connID)
	}
	return code, ok
}

// Len returns the number of connections currently in a room
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
