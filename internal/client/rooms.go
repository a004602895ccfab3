// Package client is the Go client for the realtime surface: a
// reconnecting websocket, reference-counted room membership shared by
// any number of independent consumers, and the reconciliation layer
// merging push deltas with periodically re-fetched authoritative
// state. cmd/monitor is the reference consumer.
package client

import "sync"

// Transport is the room control surface the manager drives. The
// Socket implements it; tests substitute a recorder.
type Transport interface {
	JoinRoom(room string) error
	LeaveRoom(room string) error
}

// RoomManager owns a room -> reference count map shared across all
// consumers of one client session. A join is sent to the server only
// on the 0 -> 1 transition and a leave only on 1 -> 0, so the number
// of server-side join calls is independent of how many consumers want
// the same room. The server discards membership on disconnect, so
// Resubscribe must be invoked on every reconnect.
type RoomManager struct {
	mu   sync.Mutex
	tr   Transport
	refs map[string]int
}

// NewRoomManager constructs a RoomManager over the given transport.
func NewRoomManager(tr Transport) *RoomManager {
	return &RoomManager{tr: tr, refs: make(map[string]int)}
}

// Subscribe registers interest in the given rooms, joining each on its
// first reference.
func (m *RoomManager) Subscribe(rooms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range rooms {
		m.refs[room]++
		if m.refs[room] == 1 {
			_ = m.tr.JoinRoom(room)
		}
	}
}

// Unsubscribe drops interest in the given rooms, leaving each when its
// last consumer is gone. Extra unsubscribes are no-ops.
func (m *RoomManager) Unsubscribe(rooms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range rooms {
		n, ok := m.refs[room]
		if !ok {
			continue
		}
		if n > 1 {
			m.refs[room] = n - 1
			continue
		}
		delete(m.refs, room)
		_ = m.tr.LeaveRoom(room)
	}
}

// Resubscribe re-issues a join for every room still referenced. Wire
// it as the transport's connect callback.
func (m *RoomManager) Resubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for room := range m.refs {
		_ = m.tr.JoinRoom(room)
	}
}

// Rooms returns the rooms currently referenced.
func (m *RoomManager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.refs))
	for room := range m.refs {
		out = append(out, room)
	}
	return out
}
