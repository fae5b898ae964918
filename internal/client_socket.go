package internal

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// ConnState describes where the relay link currently is in its lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ConnManager owns the relay websocket. Callers declare which rooms they
// want to be in; the manager holds that set and replays it on every
// (re)connect, so membership survives relay restarts without the caller
// doing anything. Incoming presence events are fanned out on Events().
type ConnManager struct {
	serverURL string
	creds     *CredentialStore

	mu    sync.Mutex
	state ConnState
	conn  *websocket.Conn
	rooms map[string]bool

	events    chan LiveStatusUpdate
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnManager(serverURL string, creds *CredentialStore) *ConnManager {
	return &ConnManager{
		serverURL: serverURL,
		creds:     creds,
		rooms:     make(map[string]bool),
		events:    make(chan LiveStatusUpdate, 64),
		done:      make(chan struct{}),
	}
}

// Events delivers relay presence updates. The channel is buffered; if the
// consumer falls far enough behind, newer events win and older ones drop.
// The channel is closed once the manager has shut down for good, so a
// consumer blocked on it always wakes up.
func (m *ConnManager) Events() <-chan LiveStatusUpdate { return m.events }

func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetRooms replaces the desired room set. Rooms no longer wanted are left,
// new ones are joined, and the whole set is what gets replayed after a
// reconnect.
func (m *ConnManager) SetRooms(roomIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		if id != "" {
			next[id] = true
		}
	}
	for id := range m.rooms {
		if !next[id] {
			m.sendCommandLocked(cmdLeaveRoom, id)
		}
	}
	for id := range next {
		if !m.rooms[id] {
			m.sendCommandLocked(cmdJoinRoom, id)
		}
	}
	m.rooms = next
}

func (m *ConnManager) JoinRoom(roomID string) {
	if roomID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rooms[roomID] {
		m.rooms[roomID] = true
		m.sendCommandLocked(cmdJoinRoom, roomID)
	}
}

func (m *ConnManager) LeaveRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[roomID] {
		delete(m.rooms, roomID)
		m.sendCommandLocked(cmdLeaveRoom, roomID)
	}
}

// sendCommandLocked writes a room command on the live connection, if any.
// Callers must hold m.mu. Write errors are ignored here; the read loop
// notices the broken connection and drives the reconnect, which replays the
// desired set anyway.
func (m *ConnManager) sendCommandLocked(cmdType, roomID string) {
	if m.conn == nil || m.state != StateConnected {
		return
	}
	data, err := json.Marshal(clientCommand{Type: cmdType, RoomID: roomID})
	if err != nil {
		return
	}
	_ = m.conn.WriteMessage(websocket.TextMessage, data)
}

// Start launches the connection loop in the background.
func (m *ConnManager) Start() {
	go m.run()
}

// run is the sole writer on m.events; closing the channel on exit tells the
// consumer there is nothing more to wait for.
func (m *ConnManager) run() {
	defer close(m.events)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	for {
		select {
		case <-m.done:
			return
		default:
		}

		token := m.creds.AccessToken()
		if token == "" {
			m.setState(StateDisconnected)
			return
		}

		m.setState(StateConnecting)
		conn, err := m.dial(token)
		if err != nil {
			m.setState(StateReconnecting)
			select {
			case <-time.After(policy.NextBackOff()):
				continue
			case <-m.done:
				return
			}
		}

		policy.Reset()
		m.attach(conn)
		m.readLoop(conn)
		m.detach(conn)

		select {
		case <-m.done:
			return
		default:
			m.setState(StateReconnecting)
		}
	}
}

func (m *ConnManager) dial(token string) (*websocket.Conn, error) {
	u, err := url.Parse(m.serverURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

// attach installs the fresh connection and replays the desired room set.
func (m *ConnManager) attach(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
	m.state = StateConnected
	for id := range m.rooms {
		m.sendCommandLocked(cmdJoinRoom, id)
	}
}

func (m *ConnManager) detach(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = conn.Close()
	if m.conn == conn {
		m.conn = nil
	}
}

func (m *ConnManager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event LiveStatusUpdate
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if event.UserID == "" {
			continue
		}
		select {
		case m.events <- event:
		default:
			// consumer stalled: drop the oldest to keep the newest
			select {
			case <-m.events:
			default:
			}
			select {
			case m.events <- event:
			default:
			}
		}
	}
}

func (m *ConnManager) setState(s ConnState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Close tears the link down for good. Safe to call more than once.
func (m *ConnManager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		m.state = StateDisconnected
		m.mu.Unlock()
	})
}
