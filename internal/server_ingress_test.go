package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testNotifySecret = "topsecret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(nil, []byte("jwt-secret"), testNotifySecret)
}

func postNotify(t *testing.T, server *Server, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	server.HandleNotify(rec, req)
	return rec
}

func TestNotifyRejectsBadSecret(t *testing.T) {
	server := newTestServer(t)

	for _, secret := range []string{"", "wrong", testNotifySecret + "x"} {
		rec := postNotify(t, server, secret, `{"userId":"u1","roomId":"r1","live":true}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("secret %q: expected 401, got %d", secret, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] != "Unauthorized" {
			t.Errorf("secret %q: unexpected body %s", secret, rec.Body.String())
		}
	}
}

func TestNotifyRejectsWhenSecretUnset(t *testing.T) {
	server := NewServer(nil, []byte("jwt-secret"), "")
	rec := postNotify(t, server, "", `{"userId":"u1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty configured secret must reject everything, got %d", rec.Code)
	}
}

func TestNotifyUnavailableWithoutHub(t *testing.T) {
	server := &Server{
		metrics:        NewMetrics(),
		sharedSecret:   testNotifySecret,
		ingressLimiter: NewRateLimiter(60, time.Minute),
	}
	rec := postNotify(t, server, testNotifySecret, `{"userId":"u1"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestNotifySingleEventToRoomChannel(t *testing.T) {
	server := newTestServer(t)
	subscriber := testConn("c1", "watcher")
	server.Hub().Subscribe(subscriber, roomChannel("r1"))

	rec := postNotify(t, server, testNotifySecret,
		`{"userId":"u1","roomId":"r1","objectiveId":"o1","live":true,"startTime":"2025-06-01T10:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.BroadcastCount != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}

	select {
	case payload := <-subscriber.send:
		var event LiveStatusUpdate
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatal(err)
		}
		if event.UserID != "u1" || event.RoomID != "r1" || event.ObjectiveID != "o1" || !event.Live {
			t.Errorf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("subscriber received nothing")
	}
}

func TestNotifyPersonalEventStripsRoomContext(t *testing.T) {
	server := newTestServer(t)
	personal := testConn("c1", "u1")
	server.Hub().Subscribe(personal, userChannel("u1"))

	rec := postNotify(t, server, testNotifySecret, `{"userId":"u1","live":false,"objectiveId":"o1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case payload := <-personal.send:
		var event LiveStatusUpdate
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatal(err)
		}
		if event.RoomID != "" || event.ObjectiveID != "" {
			t.Errorf("personal event carried room context: %+v", event)
		}
	default:
		t.Fatal("personal channel received nothing")
	}
}

func TestNotifyBatchSkipsMalformedEvents(t *testing.T) {
	server := newTestServer(t)
	subscriber := testConn("c1", "watcher")
	server.Hub().Subscribe(subscriber, roomChannel("r1"))

	body := `[
		{"userId":"u1","roomId":"r1","objectiveId":"o1","live":true,"startTime":"2025-06-01T10:00:00Z"},
		{"roomId":"r1","objectiveId":"o2","live":true},
		{"userId":"u3","roomId":"r1","objectiveId":"o3","live":false}
	]`
	rec := postNotify(t, server, testNotifySecret, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.BroadcastCount != 2 {
		t.Errorf("expected 2 broadcast events, got %d", resp.BroadcastCount)
	}
	if got := len(subscriber.send); got != 2 {
		t.Errorf("expected 2 queued deliveries, got %d", got)
	}
}

func TestNotifyMalformedBody(t *testing.T) {
	server := newTestServer(t)
	rec := postNotify(t, server, testNotifySecret, `{not json`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestNotifyThrottlesUnauthorizedCallers(t *testing.T) {
	server := newTestServer(t)

	for i := 0; i < 60; i++ {
		rec := postNotify(t, server, "wrong", `{"userId":"u1"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}
	rec := postNotify(t, server, "wrong", `{"userId":"u1"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after hammering with a bad secret, got %d", rec.Code)
	}
}

func TestNotifyAuthorizedCallerIsNotThrottled(t *testing.T) {
	server := newTestServer(t)

	// a correct secret resets the window every time, so a busy but
	// legitimate producer never hits the limit
	for i := 0; i < 100; i++ {
		rec := postNotify(t, server, testNotifySecret, `{"userId":"u1","live":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestNotifyMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/notify", nil)
	rec := httptest.NewRecorder()
	server.HandleNotify(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
