package internal

import (
	"errors"
	"strings"
	"time"
)

// wire message types exchanged over the duplex channel.
const (
	cmdJoinRoom     = "join_room"
	cmdLeaveRoom    = "leave_room"
	eventLiveStatus = "live_status_update"
)

// clientCommand is the envelope a client sends over the socket. Commands are
// fire-and-forget; the server never acknowledges them.
type clientCommand struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

// LiveStatusUpdate is the presence event payload. Type is filled in when the
// event travels server→client; ingress callers omit it. A missing RoomID
// marks a personal-channel-only event.
type LiveStatusUpdate struct {
	Type        string `json:"type,omitempty"`
	UserID      string `json:"userId"`
	RoomID      string `json:"roomId,omitempty"`
	ObjectiveID string `json:"objectiveId,omitempty"`
	Live        bool   `json:"live"`
	StartTime   string `json:"startTime,omitempty"`
}

// LiveActivity is one in-progress session as the snapshot endpoint and the
// presence store see it.
type LiveActivity struct {
	ObjectiveID string `json:"objectiveId"`
	StartTime   string `json:"startTime"`
}

// LiveSnapshot is the full-state fetch shape: room → user → live activities.
type LiveSnapshot map[string]map[string][]LiveActivity

// LiveSession identifies an in-progress session by its (room, user,
// objective) triple. At most one live session exists per triple.
type LiveSession struct {
	RoomID      string
	UserID      string
	ObjectiveID string
	StartTime   time.Time
}

func roomChannel(roomID string) string { return "room:" + roomID }
func userChannel(userID string) string { return "user:" + userID }

var errBadStartTime = errors.New("unparseable start time")

// parseStartTime accepts RFC3339 timestamps and the zoneless ISO 8601 form
// the persistence service emits; zoneless values are taken as UTC.
func parseStartTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errBadStartTime
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	trimmed := strings.TrimSuffix(value, "Z")
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errBadStartTime
}
