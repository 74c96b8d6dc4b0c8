package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

// ServerEvent is one server push, decoded just enough to route on Type.
// Raw keeps the full frame for callers that want the typed payload.
type ServerEvent struct {
	Type string
	Raw  json.RawMessage
}

// Decode unmarshals the full frame into out.
func (e *ServerEvent) Decode(out any) error {
	return json.Unmarshal(e.Raw, out)
}

type SocketState int

const (
	SocketDisconnected SocketState = iota
	SocketConnecting
	SocketConnected
	SocketReconnecting
)

func (s SocketState) String() string {
	switch s {
	case SocketConnecting:
		return "connecting"
	case SocketConnected:
		return "connected"
	case SocketReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

type EventCallback func(ev *ServerEvent)

type SocketStateCallback func(state SocketState)

const (
	defaultPingInterval  = 20 * time.Second
	defaultMaxReconnects = 5
	socketWriteTimeout   = 5 * time.Second
)

// RoomSocket is a reconnecting client for one room's websocket. Callbacks
// run on the read goroutine, so they must not block.
type RoomSocket struct {
	url     string
	headers HeaderProvider
	log     *zap.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	state          SocketState
	closed         bool
	attempts       int
	nextID         int
	eventCallbacks map[int]EventCallback
	stateCallbacks map[int]SocketStateCallback

	pingInterval  time.Duration
	maxReconnects int
}

type SocketOption func(*RoomSocket)

func WithSocketLogger(l *zap.Logger) SocketOption {
	return func(s *RoomSocket) {
		if l != nil {
			s.log = l
		}
	}
}

func WithPingInterval(d time.Duration) SocketOption {
	return func(s *RoomSocket) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

func WithMaxReconnects(n int) SocketOption {
	return func(s *RoomSocket) { s.maxReconnects = n }
}

func WithSocketHeaders(h HeaderProvider) SocketOption {
	return func(s *RoomSocket) { s.headers = h }
}

// NewRoomSocket builds a socket for baseWSURL (ws://host or wss://host)
// joined with the room endpoint path.
func NewRoomSocket(baseWSURL, roomID, playerID string, opts ...SocketOption) *RoomSocket {
	s := &RoomSocket{
		url:            fmt.Sprintf("%s/api/ws/%s/%s", strings.TrimRight(baseWSURL, "/"), roomID, playerID),
		log:            zap.NewNop(),
		state:          SocketDisconnected,
		eventCallbacks: make(map[int]EventCallback),
		stateCallbacks: make(map[int]SocketStateCallback),
		pingInterval:   defaultPingInterval,
		maxReconnects:  defaultMaxReconnects,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the room endpoint and starts the read and ping loops.
func (s *RoomSocket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("socket closed")
	}
	if s.state == SocketConnected || s.state == SocketConnecting {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.setState(SocketConnecting)

	hdr := http.Header{}
	if s.headers != nil {
		for k, v := range s.headers() {
			hdr.Set(k, v)
		}
	}
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		HTTPHeader:      hdr,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.setState(SocketDisconnected)
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.attempts = 0
	s.mu.Unlock()
	s.setState(SocketConnected)
	s.log.Info("ws_connected", zap.String("url", s.url))

	go s.readLoop(conn)
	go s.pingLoop(conn)
	return nil
}

// OnEvent registers a callback for every server push and returns its id.
func (s *RoomSocket) OnEvent(cb EventCallback) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.eventCallbacks[s.nextID] = cb
	return s.nextID
}

func (s *RoomSocket) RemoveEventCallback(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventCallbacks, id)
}

// OnStateChange registers a connection state callback and returns its id.
func (s *RoomSocket) OnStateChange(cb SocketStateCallback) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.stateCallbacks[s.nextID] = cb
	return s.nextID
}

func (s *RoomSocket) RemoveStateCallback(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stateCallbacks, id)
}

// State reports the current connection state.
func (s *RoomSocket) State() SocketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendMove submits a move over the socket.
func (s *RoomSocket) SendMove(ctx context.Context, from, to, promotion string) error {
	return s.write(ctx, gamedto.ClientMessage{
		Type:       gamedto.ClientTypeMove,
		FromSquare: from,
		ToSquare:   to,
		Promotion:  promotion,
	})
}

// SendAction submits a resign, undo, or rematch request.
func (s *RoomSocket) SendAction(ctx context.Context, action string) error {
	return s.write(ctx, gamedto.ClientMessage{Type: gamedto.ClientTypeGameAction, Action: action})
}

// SendSignal relays a WebRTC signaling payload to the peer.
func (s *RoomSocket) SendSignal(ctx context.Context, signal json.RawMessage) error {
	return s.write(ctx, gamedto.ClientMessage{Type: gamedto.ClientTypeSignal, Signal: signal})
}

// Close shuts the socket down for good; no reconnect follows.
func (s *RoomSocket) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.setState(SocketDisconnected)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (s *RoomSocket) write(ctx context.Context, msg any) error {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	if conn == nil || state != SocketConnected {
		return errors.New("socket not connected")
	}
	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, socketWriteTimeout)
		defer cancel()
	}
	return wsjson.Write(wctx, conn, msg)
}

func (s *RoomSocket) readLoop(conn *websocket.Conn) {
	for {
		var raw json.RawMessage
		if err := wsjson.Read(context.Background(), conn, &raw); err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		ev := &ServerEvent{Raw: raw}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err == nil {
			ev.Type = probe.Type
		}
		for _, cb := range s.snapshotEventCallbacks() {
			cb(ev)
		}
	}
}

func (s *RoomSocket) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	failures := 0
	for range ticker.C {
		s.mu.Lock()
		current, state := s.conn, s.state
		s.mu.Unlock()
		if current != conn || state != SocketConnected {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), socketWriteTimeout)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		s.log.Warn("ws_ping_failed", zap.Int("failures", failures), zap.Error(err))
		if failures >= 2 {
			conn.Close(websocket.StatusAbnormalClosure, "ping timeout")
			return
		}
	}
}

func (s *RoomSocket) handleDisconnect(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.closed || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()
	s.log.Warn("ws_disconnected", zap.Error(err))
	s.scheduleReconnect()
}

func (s *RoomSocket) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || s.attempts >= s.maxReconnects {
		exhausted := !s.closed
		s.mu.Unlock()
		s.setState(SocketDisconnected)
		if exhausted {
			s.log.Error("ws_reconnect_exhausted", zap.Int("attempts", s.maxReconnects))
		}
		return
	}
	s.attempts++
	attempt := s.attempts
	s.state = SocketReconnecting
	s.mu.Unlock()
	s.notifyState(SocketReconnecting)

	go func() {
		time.Sleep(backoffDuration(attempt))
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.state = SocketDisconnected
		s.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Connect(ctx); err != nil {
			s.log.Warn("ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
			s.scheduleReconnect()
		}
	}()
}

func (s *RoomSocket) setState(state SocketState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()
	s.notifyState(state)
}

func (s *RoomSocket) notifyState(state SocketState) {
	for _, cb := range s.snapshotStateCallbacks() {
		cb(state)
	}
}

func (s *RoomSocket) snapshotEventCallbacks() []EventCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventCallback, 0, len(s.eventCallbacks))
	for _, cb := range s.eventCallbacks {
		out = append(out, cb)
	}
	return out
}

func (s *RoomSocket) snapshotStateCallbacks() []SocketStateCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SocketStateCallback, 0, len(s.stateCallbacks))
	for _, cb := range s.stateCallbacks {
		out = append(out, cb)
	}
	return out
}
