package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/realtime"
)

// ErrNotConnected is returned by JoinRoom and LeaveRoom while the
// socket is between connections. The RoomManager tolerates it: the
// connect callback resubscribes every referenced room anyway.
var ErrNotConnected = errors.New("client: socket not connected")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	maxBackoff   = 30 * time.Second
)

// Handler consumes one decoded envelope.
type Handler func(realtime.Envelope)

// Socket is a reconnecting websocket client for the /ws endpoint. It
// dials, dispatches incoming envelopes to per-event handlers, and on
// any read failure tears the connection down and redials with
// exponential backoff. OnConnect fires after every successful dial,
// which is where room resubscription belongs.
type Socket struct {
	url string
	log *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	handlers  map[string]Handler
	onConnect func()
}

// NewSocket builds a socket for the given ws:// or wss:// URL. Run
// must be called for anything to happen.
func NewSocket(url string, log *zap.Logger) *Socket {
	if log == nil {
		log = zap.NewNop()
	}
	return &Socket{
		url:      url,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// On registers the handler for an event name, replacing any previous
// one. Register handlers before calling Run.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = h
	s.mu.Unlock()
}

// OnConnect registers the callback invoked after each successful dial.
func (s *Socket) OnConnect(fn func()) {
	s.mu.Lock()
	s.onConnect = fn
	s.mu.Unlock()
}

// Run dials and reads until the context is cancelled, reconnecting on
// failure. It blocks; run it in its own goroutine.
func (s *Socket) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("socket: connection lost",
				zap.Error(err), zap.Duration("retry_in", backoff))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (s *Socket) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return err
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		_ = conn.Close()
		return errors.New("client: unexpected handshake status")
	}

	s.mu.Lock()
	s.conn = conn
	onConnect := s.onConnect
	s.mu.Unlock()

	if onConnect != nil {
		onConnect()
	}

	// Close the connection when the context ends so the blocking read
	// below unblocks.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	err = s.readLoop(conn)

	close(done)
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
	return err
}

func (s *Socket) readLoop(conn *websocket.Conn) error {
	conn.SetPongHandler(func(string) error { return nil })
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Debug("socket: dropping malformed frame", zap.Error(err))
			continue
		}
		s.mu.Lock()
		h := s.handlers[env.Event]
		s.mu.Unlock()
		if h != nil {
			h(env)
		}
	}
}

// JoinRoom implements Transport.
func (s *Socket) JoinRoom(room string) error {
	return s.send(realtime.ClientMessage{Action: realtime.ActionJoinRoom, Room: room})
}

// LeaveRoom implements Transport.
func (s *Socket) LeaveRoom(room string) error {
	return s.send(realtime.ClientMessage{Action: realtime.ActionLeaveRoom, Room: room})
}

func (s *Socket) send(msg realtime.ClientMessage) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
