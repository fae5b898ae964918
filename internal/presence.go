package internal

import (
	"sync"
	"time"
)

type liveEntry struct {
	objectiveID string
	startTime   time.Time
}

// PresenceStore mirrors who is live right now, keyed room -> user -> active
// sessions. A user has at most one session per objective: a repeated start
// for the same objective overwrites in place instead of stacking, so a
// refreshed or re-announced tracker never shows twice.
type PresenceStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string][]liveEntry
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{rooms: make(map[string]map[string][]liveEntry)}
}

// Apply folds one relay event into the store. Events without a room are
// personal notifications and carry no roster change; they are ignored here.
func (p *PresenceStore) Apply(ev LiveStatusUpdate) {
	if ev.RoomID == "" || ev.UserID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Live {
		start, err := parseStartTime(ev.StartTime)
		if err != nil {
			return
		}
		users := p.rooms[ev.RoomID]
		if users == nil {
			users = make(map[string][]liveEntry)
			p.rooms[ev.RoomID] = users
		}
		entries := users[ev.UserID]
		for i := range entries {
			if entries[i].objectiveID == ev.ObjectiveID {
				entries[i].startTime = start
				return
			}
		}
		users[ev.UserID] = append(entries, liveEntry{objectiveID: ev.ObjectiveID, startTime: start})
		return
	}

	users := p.rooms[ev.RoomID]
	if users == nil {
		return
	}
	entries := users[ev.UserID]
	kept := entries[:0]
	for _, e := range entries {
		if e.objectiveID != ev.ObjectiveID {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(users, ev.UserID)
		if len(users) == 0 {
			delete(p.rooms, ev.RoomID)
		}
	} else {
		users[ev.UserID] = kept
	}
}

// ReplaceAll swaps the entire store for a fresh snapshot, typically fetched
// right after (re)connecting so the roster catches up on anything missed.
func (p *PresenceStore) ReplaceAll(snapshot LiveSnapshot) {
	rooms := make(map[string]map[string][]liveEntry, len(snapshot))
	for roomID, users := range snapshot {
		if roomID == "" {
			continue
		}
		converted := make(map[string][]liveEntry, len(users))
		for userID, activities := range users {
			var entries []liveEntry
			for _, a := range activities {
				start, err := parseStartTime(a.StartTime)
				if err != nil {
					continue
				}
				entries = append(entries, liveEntry{objectiveID: a.ObjectiveID, startTime: start})
			}
			if len(entries) > 0 {
				converted[userID] = entries
			}
		}
		if len(converted) > 0 {
			rooms[roomID] = converted
		}
	}

	p.mu.Lock()
	p.rooms = rooms
	p.mu.Unlock()
}

// RoomSessions returns every live session in a room as a flat copy.
func (p *PresenceStore) RoomSessions(roomID string) []LiveSession {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var sessions []LiveSession
	for userID, entries := range p.rooms[roomID] {
		for _, e := range entries {
			sessions = append(sessions, LiveSession{
				RoomID:      roomID,
				UserID:      userID,
				ObjectiveID: e.objectiveID,
				StartTime:   e.startTime,
			})
		}
	}
	return sessions
}

// UserSessions returns one user's live sessions in a room.
func (p *PresenceStore) UserSessions(roomID, userID string) []LiveSession {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var sessions []LiveSession
	for _, e := range p.rooms[roomID][userID] {
		sessions = append(sessions, LiveSession{
			RoomID:      roomID,
			UserID:      userID,
			ObjectiveID: e.objectiveID,
			StartTime:   e.startTime,
		})
	}
	return sessions
}

// Find reports the session for an exact (room, user, objective) triple.
func (p *PresenceStore) Find(roomID, userID, objectiveID string) (LiveSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, e := range p.rooms[roomID][userID] {
		if e.objectiveID == objectiveID {
			return LiveSession{
				RoomID:      roomID,
				UserID:      userID,
				ObjectiveID: e.objectiveID,
				StartTime:   e.startTime,
			}, true
		}
	}
	return LiveSession{}, false
}

// LiveCount reports how many users in a room have at least one session.
func (p *PresenceStore) LiveCount(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID])
}
