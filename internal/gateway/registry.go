package gateway

import "sync"

// Registry is the process-wide, mutex-protected gateway session map named
// in spec.md §3 and §5 ("Shared resources: Gateway registry"). Registering
// an already-present key replaces the incumbent session and returns it;
// Server.teardownEvicted then disconnects it and suppresses its MQTT
// reconnection — the duplicate-eviction rule
// original_source/HES/src/main.cpp implements ahead of accepting the new
// socket.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register inserts session under its gateway id, returning the evicted
// incumbent (nil if none was present). The caller is responsible for
// actually tearing the evicted session down (closing its socket,
// suppressing its MQTT re-subscription) — the registry only tracks
// membership.
func (r *Registry) Register(session *Session) (evicted *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted = r.sessions[session.GatewayID]
	r.sessions[session.GatewayID] = session
	return evicted
}

// Unregister removes gatewayID's entry if, and only if, it is still
// session — a stale session that already lost a race to a newer
// registration must not clobber the newer entry on its own exit.
func (r *Registry) Unregister(gatewayID string, session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[gatewayID] == session {
		delete(r.sessions, gatewayID)
	}
}

// Get returns the currently registered session for gatewayID, if any.
func (r *Registry) Get(gatewayID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gatewayID]
	return s, ok
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns a snapshot of every registered gateway id, used by the
// control-plane GatewayStatus surface.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
