package lsp

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Pending records where the reply to an in-flight request must be routed.
type Pending struct {
	// HostID is the correlation token the host attached to its command,
	// echoed back verbatim on the resulting event.
	HostID json.RawMessage
	// Method is the method the request was sent with. Replies carry no
	// method of their own, so it must be remembered here.
	Method string
}

// Registry correlates outbound request ids with their originating host
// commands. Ids are minted monotonically and never reused for the life of
// the process. Safe for concurrent use.
type Registry struct {
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]Pending
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[int64]Pending)}
}

// NextID returns a fresh request id, strictly greater than any id returned
// before.
func (r *Registry) NextID() int64 {
	return r.nextID.Add(1)
}

// Register records the pending entry for id. Callers must register before
// writing the request frame so a fast reply always finds its entry.
func (r *Registry) Register(id int64, hostID json.RawMessage, method string) {
	r.mu.Lock()
	r.pending[id] = Pending{HostID: hostID, Method: method}
	r.mu.Unlock()
}

// Resolve removes and returns the pending entry for id. The second return
// is false when the id is unknown or was already resolved; each entry
// resolves at most once.
func (r *Registry) Resolve(id int64) (Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return p, ok
}

// Len reports the number of unresolved requests. Entries still present at
// shutdown are simply discarded with the registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
