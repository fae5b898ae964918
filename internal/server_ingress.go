package internal

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type notifyResponse struct {
	Success        bool `json:"success"`
	BroadcastCount int  `json:"broadcastCount"`
}

// HandleNotify is the trusted ingress: the sole authorized producer of
// presence events, called by the persistence service after it has written a
// start/stop durably. The caller authenticates with the pre-shared secret as
// a bearer credential. The body is a single event or an array; each event
// with both roomId and userId is published to that room channel, an event
// with only a userId goes to the user's personal channel, and a malformed
// event is logged and skipped without failing the batch. The response counts
// the events whose fan-out was initiated; nothing here blocks on delivery.
func (s *Server) HandleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ip := s.clientIP(r)
	if !s.ingressLimiter.Allow(ip) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	if !s.authorizedNotify(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	s.ingressLimiter.Forget(ip)
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrRelayUnavailable.Error()})
		return
	}

	events, err := decodeNotifyBody(r.Body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	count := 0
	for _, event := range events {
		switch {
		case event.UserID != "" && event.RoomID != "":
			s.hub.Publish(roomChannel(event.RoomID), event)
			count++
		case event.UserID != "":
			// personal-channel-only: never leaks room or objective context
			event.RoomID = ""
			event.ObjectiveID = ""
			s.hub.Publish(userChannel(event.UserID), event)
			count++
		default:
			log.WithFields(log.Fields{"objective": event.ObjectiveID, "room": event.RoomID}).
				Warn("ingress: skipping event without userId")
		}
	}
	s.metrics.IncNotifyBatch()

	writeJSON(w, http.StatusOK, notifyResponse{Success: true, BroadcastCount: count})
}

func (s *Server) authorizedNotify(r *http.Request) bool {
	if s.sharedSecret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	expected := "Bearer " + s.sharedSecret
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}

func decodeNotifyBody(body io.Reader) ([]LiveStatusUpdate, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	var batch []LiveStatusUpdate
	if err := json.Unmarshal(data, &batch); err == nil {
		return batch, nil
	}
	var single LiveStatusUpdate
	if err := json.Unmarshal(data, &single); err == nil {
		return []LiveStatusUpdate{single}, nil
	}
	return nil, errors.New("notify body is neither an event nor an array of events")
}
