package internal

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Hub owns the channel table: every room scope ("room:{id}") and personal
// scope ("user:{id}") with its current subscriber set. A single hub instance
// serves the whole process; all mutations go through its lock.
type Hub struct {
	mutex    sync.RWMutex
	channels map[string]map[*Conn]bool
	metrics  *Metrics
}

func NewHub(metrics *Metrics) *Hub {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Hub{
		channels: make(map[string]map[*Conn]bool),
		metrics:  metrics,
	}
}

// Subscribe adds the connection to the named channel. Joining a channel the
// connection is already on is a no-op, so reconnect re-joins are idempotent.
// A retired connection is refused: its read pump may still deliver commands
// after the hub closed its send queue, and honoring those would put a dead
// queue back into the fan-out path.
func (hub *Hub) Subscribe(conn *Conn, channel string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if conn.closed {
		return
	}
	subscribers, exists := hub.channels[channel]
	if !exists {
		subscribers = make(map[*Conn]bool)
		hub.channels[channel] = subscribers
	}
	if subscribers[conn] {
		return
	}
	subscribers[conn] = true
	conn.joined[channel] = true
	hub.metrics.IncJoin()
	log.WithFields(log.Fields{"conn": conn.id, "user": conn.userID, "channel": channel}).Debug("subscribed")
}

// Unsubscribe removes the connection from the named channel. Leaving a
// channel the connection never joined is a no-op. Empty channels are
// deleted so the table does not grow with room churn.
func (hub *Hub) Unsubscribe(conn *Conn, channel string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.removeLocked(conn, channel)
}

// DropConn removes the connection from every channel it joined and retires
// it. Called from the read pump's cleanup when the connection terminates for
// any reason.
func (hub *Hub) DropConn(conn *Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	conn.closed = true
	for channel := range conn.joined {
		hub.removeLocked(conn, channel)
	}
}

func (hub *Hub) removeLocked(conn *Conn, channel string) {
	subscribers, exists := hub.channels[channel]
	if !exists {
		return
	}
	if !subscribers[conn] {
		return
	}
	delete(subscribers, conn)
	delete(conn.joined, channel)
	if len(subscribers) == 0 {
		delete(hub.channels, channel)
	}
}

// Publish fans the event out to every current subscriber of the channel.
// Delivery is fire-and-forget: the event is queued on each subscriber's send
// buffer and the publisher never learns of per-subscriber outcomes. A
// subscriber whose buffer is full is dropped, which triggers its connection
// cleanup. Publishing to a channel with no subscribers is a silent no-op.
//
// Events are queued in the order Publish is called; each connection's send
// queue is FIFO, so a stop received after its start is never observed first.
func (hub *Hub) Publish(channel string, event LiveStatusUpdate) int {
	event.Type = eventLiveStatus
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("hub: marshal event")
		return 0
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delivered := 0
	for conn := range hub.channels[channel] {
		select {
		case conn.send <- payload:
			delivered++
		default:
			// too slow to read; retire the connection to keep the channel healthy
			conn.closed = true
			for joined := range conn.joined {
				if subscribers, ok := hub.channels[joined]; ok {
					delete(subscribers, conn)
					if len(subscribers) == 0 {
						delete(hub.channels, joined)
					}
				}
			}
			conn.joined = make(map[string]bool)
			conn.closeSend()
		}
	}
	hub.metrics.IncBroadcast()
	return delivered
}

// ChannelCount reports the number of live channels, for the health endpoint.
func (hub *Hub) ChannelCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.channels)
}

// SubscriberCount reports the subscriber set size for one channel.
func (hub *Hub) SubscriberCount(channel string) int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.channels[channel])
}
