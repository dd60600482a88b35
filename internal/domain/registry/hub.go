// Package registry keeps the per-node session hub: which users are connected
// here, on which platforms, and how to reach their sockets. It is the only
// state a gateway node owns.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-chat-service/api/chatpb"
)

// Hubber is the gateway surface for session management and local delivery.
type Hubber interface {
	// Register installs the session in its (user, platform) slot and
	// returns the evicted incumbent, if any. The caller must Kick the
	// incumbent so its watcher task closes the socket with code 4001.
	Register(sess Sessioner) (evicted Sessioner)
	// Unregister removes the session only if it still owns its slot:
	// a knocked-off session must not tear down its successor.
	Unregister(userID string, platform chatpb.Platform, sessionID uuid.UUID) bool
	IsConnected(userID string) bool
	// DeliverToUser fans a message to every platform session of one user on
	// this node. Returns the number of sessions that accepted it.
	DeliverToUser(userID string, msg *chatpb.Msg, timeout time.Duration) int
	// DeliverToPlatform targets a single platform slot.
	DeliverToPlatform(userID string, platform chatpb.Platform, msg *chatpb.Msg, timeout time.Duration) bool
	Stats() Stats
	Shutdown()
}

type Stats struct {
	Users    int
	Sessions int
}

// Hub implements Hubber with a lock-free top-level lookup: a sync.Map of
// user cells, each cell guarding its own small platform map.
type Hub struct {
	// cells stores map[string]*cell keyed by user id.
	cells sync.Map
}

func NewHub() *Hub {
	return &Hub{}
}

// cell holds all sessions of a single user on this node. A cell whose last
// session leaves is tombstoned (dead=true) and removed from the map under its
// own lock, so a concurrent Register can never install a session into an
// entry that is about to disappear.
type cell struct {
	mu       sync.RWMutex
	dead     bool
	sessions map[chatpb.Platform]Sessioner
}

func (h *Hub) Register(sess Sessioner) Sessioner {
	for {
		val, _ := h.cells.LoadOrStore(sess.UserID(), &cell{
			sessions: make(map[chatpb.Platform]Sessioner),
		})
		c := val.(*cell)

		c.mu.Lock()
		if c.dead {
			// Lost the race with empty-cell reclamation; the map entry is
			// already gone, so the next LoadOrStore gets a fresh cell.
			c.mu.Unlock()
			continue
		}
		evicted := c.sessions[sess.Platform()]
		c.sessions[sess.Platform()] = sess
		c.mu.Unlock()
		return evicted
	}
}

func (h *Hub) Unregister(userID string, platform chatpb.Platform, sessionID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	c := val.(*cell)

	c.mu.Lock()
	current, ok := c.sessions[platform]
	if !ok || current.ID() != sessionID {
		// Slot already taken over; leave the newcomer alone.
		c.mu.Unlock()
		return false
	}
	delete(c.sessions, platform)
	if len(c.sessions) == 0 {
		// Reclaim while still holding the cell lock: a Register holding a
		// reference to this cell blocks until the tombstone is visible and
		// the map entry is gone, then retries on a fresh cell.
		c.dead = true
		h.cells.CompareAndDelete(userID, val)
	}
	c.mu.Unlock()
	return true
}

func (h *Hub) IsConnected(userID string) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	c := val.(*cell)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) > 0
}

func (h *Hub) DeliverToUser(userID string, msg *chatpb.Msg, timeout time.Duration) int {
	val, ok := h.cells.Load(userID)
	if !ok {
		return 0
	}
	c := val.(*cell)

	c.mu.RLock()
	targets := make([]Sessioner, 0, len(c.sessions))
	for _, s := range c.sessions {
		targets = append(targets, s)
	}
	c.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.Deliver(msg, timeout) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) DeliverToPlatform(userID string, platform chatpb.Platform, msg *chatpb.Msg, timeout time.Duration) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	c := val.(*cell)

	c.mu.RLock()
	sess, ok := c.sessions[platform]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return sess.Deliver(msg, timeout)
}

func (h *Hub) Stats() Stats {
	var st Stats
	h.cells.Range(func(_, val any) bool {
		c := val.(*cell)
		c.mu.RLock()
		n := len(c.sessions)
		c.mu.RUnlock()
		if n > 0 {
			st.Users++
			st.Sessions += n
		}
		return true
	})
	return st
}

// Shutdown closes every session; transports observe Done and exit.
func (h *Hub) Shutdown() {
	h.cells.Range(func(key, val any) bool {
		c := val.(*cell)
		c.mu.Lock()
		for _, s := range c.sessions {
			s.Close()
		}
		c.sessions = make(map[chatpb.Platform]Sessioner)
		c.dead = true
		h.cells.Delete(key)
		c.mu.Unlock()
		return true
	})
}
