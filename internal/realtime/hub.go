package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus is the publish side of the hub. The scheduler engine and the
// admin handlers depend on this interface, never on the hub itself, so
// tests substitute a recording fake and nothing holds a process-global.
type Bus interface {
	// Publish delivers an event to every session currently in the
	// room. Best effort: no persistence, no replay, and a session
	// whose outbound queue is full is skipped rather than awaited.
	Publish(room, event string, data any)
}

// sessionQueueSize bounds each session's outbound queue. A session
// that cannot drain this many frames is considered slow and starts
// dropping; it will resynchronize on its next full re-fetch.
const sessionQueueSize = 64

// Session is one connected client. Out carries marshaled envelopes to
// the transport; Done fires when the hub has discarded the session and
// the transport's writer must stop draining.
type Session struct {
	id   string
	out  chan Envelope
	done chan struct{}
}

// ID returns the session identifier (for logs only).
func (s *Session) ID() string { return s.id }

// Out is the frame stream the transport must drain.
func (s *Session) Out() <-chan Envelope { return s.out }

// Done is closed once the session has been disconnected.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stats counts hub activity since start.
type Stats struct {
	Sessions  int
	Rooms     int
	Published uint64
	Delivered uint64
	Dropped   uint64
}

// Hub tracks sessions and their joined rooms and fans events out to
// room members. All membership state lives here, server side; clients
// rejoin from scratch after a reconnect.
type Hub struct {
	log *zap.Logger

	mu       sync.RWMutex
	sessions map[*Session]map[string]struct{} // session -> joined rooms
	rooms    map[string]map[*Session]struct{} // room -> members

	published uint64
	delivered uint64
	dropped   uint64
}

// NewHub constructs an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		sessions: make(map[*Session]map[string]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
	}
}

// Connect registers a new session.
func (h *Hub) Connect() *Session {
	s := &Session{
		id:   uuid.NewString(),
		out:  make(chan Envelope, sessionQueueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.sessions[s] = make(map[string]struct{})
	h.mu.Unlock()
	h.log.Debug("session connected", zap.String("session", s.id))
	return s
}

// Disconnect removes a session and all of its room membership, then
// signals Done so the transport's writer stops. The outbound channel
// is never closed: a concurrent publish may have snapshotted the
// session just before removal, and its send must land in the buffer
// rather than panic.
func (h *Hub) Disconnect(s *Session) {
	h.mu.Lock()
	rooms, ok := h.sessions[s]
	if ok {
		for room := range rooms {
			h.dropMemberLocked(room, s)
		}
		delete(h.sessions, s)
	}
	h.mu.Unlock()
	if ok {
		close(s.done)
		h.log.Debug("session disconnected", zap.String("session", s.id))
	}
}

func (h *Hub) dropMemberLocked(room string, s *Session) {
	members := h.rooms[room]
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Join adds a session to a room. Invalid room names are ignored
// without surfacing an error, so the grammar cannot be probed.
func (h *Hub) Join(s *Session, room string) {
	if !ValidRoom(room) {
		h.log.Warn("blocked join of invalid room",
			zap.String("session", s.id), zap.String("room", room))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.sessions[s]
	if !ok {
		return // already disconnected
	}
	rooms[room] = struct{}{}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Session]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
}

// Leave removes a session from a room. Unknown rooms and rooms the
// session never joined are no-ops.
func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.sessions[s]
	if !ok {
		return
	}
	delete(rooms, room)
	h.dropMemberLocked(room, s)
}

// Publish implements Bus. The payload is marshaled once and fanned out
// to every member with a non-blocking send; members whose queue is
// full are skipped so one slow client never stalls the rest.
func (h *Hub) Publish(room, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return
	}
	env := Envelope{Event: event, Room: room, Data: raw}

	h.mu.Lock()
	h.published++
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.Unlock()

	var delivered, dropped uint64
	for _, s := range members {
		select {
		case s.out <- env:
			delivered++
		default:
			dropped++
		}
	}

	h.mu.Lock()
	h.delivered += delivered
	h.dropped += dropped
	h.mu.Unlock()

	if dropped > 0 {
		h.log.Warn("dropped frames for slow sessions",
			zap.String("event", event), zap.String("room", room), zap.Uint64("dropped", dropped))
	}
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Sessions:  len(h.sessions),
		Rooms:     len(h.rooms),
		Published: h.published,
		Delivered: h.delivered,
		Dropped:   h.dropped,
	}
}
