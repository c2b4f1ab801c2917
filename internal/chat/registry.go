package chat

import (
	"log/slog"
	"sync"
)

// Registry is the process-wide map from username to live connection.
// Constructed once in main and injected everywhere that needs delivery.
//
// Invariants: at most one client per username; a new connection for the same
// username silently replaces the previous one (last-connect-wins). Every
// operation holds the lock only for a single map mutation.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Connect registers c as the live connection for its username. A replaced
// client's send channel is closed, which terminates its write pump.
func (r *Registry) Connect(c *Client) {
	r.mu.Lock()
	if old, ok := r.clients[c.Username]; ok {
		close(old.send)
	}
	r.clients[c.Username] = c
	r.mu.Unlock()
	slog.Info("client connected", "username", c.Username, "role", c.Role)
}

// Disconnect removes c if it is still the registered connection for its
// username. Idempotent; a client replaced by a newer connection is a no-op.
func (r *Registry) Disconnect(c *Client) {
	r.mu.Lock()
	if existing, ok := r.clients[c.Username]; ok && existing == c {
		delete(r.clients, c.Username)
		close(c.send)
	}
	r.mu.Unlock()
	slog.Info("client disconnected", "username", c.Username)
}

// Send delivers payload to username's connection if one exists. Delivery is
// best-effort: an offline recipient is a no-op, and a connection that cannot
// accept the payload is treated as implicitly disconnected.
func (r *Registry) Send(username string, payload []byte) {
	// The non-blocking send runs under the read lock: every close of a send
	// channel happens under the write lock, so the channel cannot be closed
	// out from under an in-flight delivery.
	r.mu.RLock()
	c, ok := r.clients[username]
	delivered := false
	if ok {
		select {
		case c.send <- payload:
			delivered = true
		default:
		}
	}
	r.mu.RUnlock()
	if !ok || delivered {
		return
	}

	// Stalled connection: drop it. Re-check under the write lock in case it
	// was already replaced or removed.
	r.mu.Lock()
	if existing, ok := r.clients[username]; ok && existing == c {
		delete(r.clients, username)
		close(c.send)
		slog.Warn("dropping stalled connection", "username", username)
	}
	r.mu.Unlock()
}

// Online returns the usernames with a live connection in this process.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Shutdown closes every connection's send channel. Called once at process
// stop, after the HTTP listener stops accepting upgrades.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		delete(r.clients, name)
		close(c.send)
	}
}
