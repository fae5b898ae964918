package internal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// Conn wraps a single authenticated websocket connection: its principal, a
// buffered send queue, and the set of channels it currently subscribes to.
// joined and closed are guarded by the hub's lock. closed is set when the
// hub retires the connection; its read pump may still be draining commands
// at that point, so the flag is what keeps a late join from re-entering the
// channel table after the send queue is gone.
type Conn struct {
	id       string
	userID   string
	ws       *websocket.Conn
	send     chan []byte
	joined   map[string]bool
	closed   bool
	sendOnce sync.Once
}

func newConn(id, userID string, ws *websocket.Conn) *Conn {
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, 256),
		joined: make(map[string]bool),
	}
}

// closeSend may be called by the hub (slow consumer) and by the read pump's
// cleanup; only the first call closes the queue.
func (conn *Conn) closeSend() {
	conn.sendOnce.Do(func() {
		close(conn.send)
	})
}

func (conn *Conn) readPump(hub *Hub, metrics *Metrics) {
	defer func() {
		hub.DropConn(conn)
		conn.closeSend()
		conn.ws.Close()
		metrics.DecConn()
		log.WithFields(log.Fields{"conn": conn.id, "user": conn.userID}).Info("connection closed")
	}()
	conn.ws.SetReadLimit(maxMsgSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			// normal close or read error; deferred cleanup runs.
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.WithFields(log.Fields{"conn": conn.id}).Warn("unparseable client message")
			continue
		}
		switch cmd.Type {
		case cmdJoinRoom:
			if cmd.RoomID != "" {
				hub.Subscribe(conn, roomChannel(cmd.RoomID))
			}
		case cmdLeaveRoom:
			if cmd.RoomID != "" {
				hub.Unsubscribe(conn, roomChannel(cmd.RoomID))
			}
		default:
			// commands are fire-and-forget; unknown types are ignored.
		}
	}
}

func (conn *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()
	for {
		select {
		case message, ok := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
