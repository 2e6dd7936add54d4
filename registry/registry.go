// Package registry tracks the connections currently admitted to the game and
// the player slots they hold. Admission is capacity gated; vacated slots are
// handed to the next client that connects.
package registry

import (
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the player limit used when none is configured.
const DefaultCapacity = 2

// ErrServerFull is returned by Admit when every player slot is taken.
var ErrServerFull = errors.New("server full")

// Conn is the connection surface the registry tracks. Implementations come
// from the transport layer; Send must be safe for concurrent use.
type Conn interface {
	// ID returns the transient connection identifier, distinct from the
	// player slot.
	ID() uint32

	// RemoteAddr returns the peer address for logging.
	RemoteAddr() string

	// Send writes one encoded message to the peer.
	Send(payload []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Client is one admitted connection: its transport, its assigned player
// slot, and the liveness flag that decides whether it still receives
// broadcasts.
type Client struct {
	Conn Conn
	Slot int

	alive atomic.Bool
}

// Alive reports whether this record should still receive broadcasts. The
// flag flips exactly once, when the registry removes the record.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// Send forwards the payload to the connection if the record is still live.
// Sending to a removed record is a no-op, so a broadcaster holding a stale
// list never writes to a connection that is already being torn down.
//
// Parameters:
//   - payload: One encoded message
//
// Returns:
//   - The transport error, or nil when the write succeeded or was skipped
func (c *Client) Send(payload []byte) error {
	if !c.alive.Load() {
		return nil
	}

	return c.Conn.Send(payload)
}

// Registry is the live-connection set, guarded by one mutex. Safe for
// concurrent use.
type Registry struct {
	mu       sync.Mutex
	capacity int
	clients  map[uint32]*Client
}

// NewRegistry creates a registry admitting at most capacity connections.
// Non-positive capacities fall back to DefaultCapacity.
//
// Parameters:
//   - capacity: The maximum number of concurrently admitted players
//
// Returns:
//   - A pointer to the new Registry
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Registry{
		capacity: capacity,
		clients:  make(map[uint32]*Client),
	}
}

// Admit registers a connection and assigns it the lowest free player slot.
// It refuses once the live set has reached capacity, no matter how often it
// is retried.
//
// Parameters:
//   - conn: The connection to admit
//
// Returns:
//   - The live Client record on success, or ErrServerFull
func (r *Registry) Admit(conn Conn) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= r.capacity {
		return nil, ErrServerFull
	}

	client := &Client{
		Conn: conn,
		Slot: r.freeSlotLocked(),
	}
	client.alive.Store(true)
	r.clients[conn.ID()] = client

	return client, nil
}

// freeSlotLocked returns the lowest slot in [0, capacity) not held by a live
// client. Caller must hold r.mu; a free slot exists whenever the live set is
// below capacity.
func (r *Registry) freeSlotLocked() int {
	for slot := 0; slot < r.capacity; slot++ {
		taken := false
		for _, c := range r.clients {
			if c.Slot == slot {
				taken = true
				break
			}
		}

		if !taken {
			return slot
		}
	}

	return -1
}

// Remove marks the record for the given connection id dead and drops it from
// the live set, freeing its slot. Removing an unknown or already removed id
// is a no-op.
//
// Parameters:
//   - id: The connection id to remove
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return
	}

	client.alive.Store(false)
	delete(r.clients, id)
}

// Live returns a copy of the current live set for fan-out. The critical
// section only copies the list; callers iterate without holding the lock.
//
// Returns:
//   - A freshly allocated slice of the live Client records
func (r *Registry) Live() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		list = append(list, c)
	}

	return list
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Capacity returns the configured player limit.
func (r *Registry) Capacity() int {
	return r.capacity
}
