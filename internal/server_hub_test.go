package internal

import (
	"encoding/json"
	"testing"
)

func testConn(id, userID string) *Conn {
	return newConn(id, userID, nil)
}

func TestHubSubscribeIdempotent(t *testing.T) {
	hub := NewHub(nil)
	conn := testConn("c1", "u1")

	hub.Subscribe(conn, roomChannel("r1"))
	hub.Subscribe(conn, roomChannel("r1"))

	if got := hub.SubscriberCount(roomChannel("r1")); got != 1 {
		t.Errorf("expected 1 subscriber after double join, got %d", got)
	}
}

func TestHubUnsubscribeUnjoinedIsNoOp(t *testing.T) {
	hub := NewHub(nil)
	conn := testConn("c1", "u1")

	hub.Unsubscribe(conn, roomChannel("r1"))

	if got := hub.ChannelCount(); got != 0 {
		t.Errorf("expected no channels, got %d", got)
	}
}

func TestHubEmptyChannelsAreDeleted(t *testing.T) {
	hub := NewHub(nil)
	conn := testConn("c1", "u1")

	hub.Subscribe(conn, roomChannel("r1"))
	hub.Unsubscribe(conn, roomChannel("r1"))

	if got := hub.ChannelCount(); got != 0 {
		t.Errorf("empty channel survived: %d channels", got)
	}
}

func TestHubPublishFansOutToChannelOnly(t *testing.T) {
	hub := NewHub(nil)
	inRoom := testConn("c1", "u1")
	alsoInRoom := testConn("c2", "u2")
	elsewhere := testConn("c3", "u3")

	hub.Subscribe(inRoom, roomChannel("r1"))
	hub.Subscribe(alsoInRoom, roomChannel("r1"))
	hub.Subscribe(elsewhere, roomChannel("r2"))

	delivered := hub.Publish(roomChannel("r1"), LiveStatusUpdate{UserID: "u1", RoomID: "r1", ObjectiveID: "o1", Live: true})
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}

	for _, conn := range []*Conn{inRoom, alsoInRoom} {
		select {
		case payload := <-conn.send:
			var event LiveStatusUpdate
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			if event.Type != eventLiveStatus {
				t.Errorf("expected type %q, got %q", eventLiveStatus, event.Type)
			}
			if event.RoomID != "r1" || !event.Live {
				t.Errorf("unexpected event: %+v", event)
			}
		default:
			t.Fatalf("conn %s received nothing", conn.id)
		}
	}

	select {
	case <-elsewhere.send:
		t.Fatal("event leaked to another room")
	default:
	}
}

func TestHubPublishZeroSubscribers(t *testing.T) {
	hub := NewHub(nil)
	if got := hub.Publish(roomChannel("empty"), LiveStatusUpdate{UserID: "u1"}); got != 0 {
		t.Errorf("expected 0 deliveries, got %d", got)
	}
}

func TestHubDropConnRemovesAllMemberships(t *testing.T) {
	hub := NewHub(nil)
	conn := testConn("c1", "u1")
	stays := testConn("c2", "u2")

	hub.Subscribe(conn, userChannel("u1"))
	hub.Subscribe(conn, roomChannel("r1"))
	hub.Subscribe(stays, roomChannel("r1"))

	hub.DropConn(conn)

	if got := hub.SubscriberCount(userChannel("u1")); got != 0 {
		t.Errorf("personal channel kept %d subscribers", got)
	}
	if got := hub.SubscriberCount(roomChannel("r1")); got != 1 {
		t.Errorf("expected 1 remaining subscriber, got %d", got)
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub(nil)
	slow := testConn("c1", "u1")
	hub.Subscribe(slow, roomChannel("r1"))

	// saturate the send buffer
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("{}")
	}

	delivered := hub.Publish(roomChannel("r1"), LiveStatusUpdate{UserID: "u2", RoomID: "r1"})
	if delivered != 0 {
		t.Errorf("expected 0 deliveries to a saturated conn, got %d", delivered)
	}
	if got := hub.SubscriberCount(roomChannel("r1")); got != 0 {
		t.Errorf("slow consumer still subscribed: %d", got)
	}

	// the queue must be closed so the write pump exits; drain to the close
	for i := 0; i < cap(slow.send)+1; i++ {
		if _, ok := <-slow.send; !ok {
			return
		}
	}
	t.Fatal("send queue was not closed")
}

func TestHubRefusesRetiredConn(t *testing.T) {
	hub := NewHub(nil)
	slow := testConn("c1", "u1")
	hub.Subscribe(slow, roomChannel("r1"))

	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("{}")
	}
	// saturated consumer gets retired and its send queue closed
	hub.Publish(roomChannel("r1"), LiveStatusUpdate{UserID: "u2", RoomID: "r1"})

	// its read pump can still deliver a join before the socket dies; that
	// join must not put the dead queue back into the fan-out path
	hub.Subscribe(slow, roomChannel("r2"))
	if got := hub.SubscriberCount(roomChannel("r2")); got != 0 {
		t.Fatalf("retired conn resubscribed: %d subscribers", got)
	}
	if got := hub.Publish(roomChannel("r2"), LiveStatusUpdate{UserID: "u3", RoomID: "r2"}); got != 0 {
		t.Errorf("expected 0 deliveries, got %d", got)
	}
}

func TestHubRefusesDisconnectedConn(t *testing.T) {
	hub := NewHub(nil)
	conn := testConn("c1", "u1")
	hub.Subscribe(conn, roomChannel("r1"))

	hub.DropConn(conn)

	hub.Subscribe(conn, roomChannel("r1"))
	if got := hub.SubscriberCount(roomChannel("r1")); got != 0 {
		t.Errorf("dropped conn resubscribed: %d subscribers", got)
	}
}
