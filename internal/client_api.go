package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var httpTimeout = 10 * time.Second

// Gateway is the resilient request layer every outbound call goes through.
// It attaches the current access token, treats a 401 as the sole trigger for
// the refresh protocol, and guarantees that however many concurrent requests
// hit 401 at once, exactly one refresh call reaches the token endpoint; the
// rest block on that refresh and retry with whatever token is current once
// it completes.
type Gateway struct {
	baseURL string
	creds   *CredentialStore
	client  *http.Client
	refresh singleflight.Group
}

func NewGateway(baseURL string, creds *CredentialStore) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Do issues one request and decodes the JSON response into out (which may be
// nil). A 204 is success with no body. Transport failures propagate to the
// caller untouched; only the 401 path is recovered locally.
func (g *Gateway) Do(method, endpoint string, payload, out interface{}) error {
	resp, err := g.send(method, endpoint, g.creds.AccessToken(), payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := g.refreshCredentials(); err != nil {
			return err
		}
		token := g.creds.AccessToken()
		if token == "" {
			return ErrSessionExpired
		}
		resp, err = g.send(method, endpoint, token, payload)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return errUnauthorized
		}
	}

	return decodeResponse(resp, out)
}

// refreshCredentials runs the single-flight refresh cycle. The winning
// caller exchanges the refresh token for a new pair and installs it in the
// shared store; on any failure the store is cleared, forcing logout, and
// every caller sharing the cycle fails uniformly with ErrSessionExpired.
// Callers arriving after the cycle completes start a fresh one.
func (g *Gateway) refreshCredentials() error {
	_, err, _ := g.refresh.Do("refresh", func() (interface{}, error) {
		refreshToken := g.creds.RefreshToken()
		if refreshToken == "" {
			g.creds.Clear()
			return nil, fmt.Errorf("%w: no refresh token", ErrSessionExpired)
		}

		body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
		if err != nil {
			g.creds.Clear()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		resp, err := g.client.Post(g.baseURL+"/auth/refresh", "application/json", bytes.NewReader(body))
		if err != nil {
			g.creds.Clear()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			g.creds.Clear()
			return nil, fmt.Errorf("%w: refresh returned %d", ErrSessionExpired, resp.StatusCode)
		}

		var pair CredentialPair
		if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
			g.creds.Clear()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		g.creds.Set(pair)
		return nil, nil
	})
	return err
}

func (g *Gateway) send(method, endpoint, token string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, g.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return g.client.Do(req)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

// --- consumed REST contracts ---

// ActiveActivity is the caller's own in-progress tracker, as the
// persistence service reports it.
type ActiveActivity struct {
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
	StartTime  string `json:"start_time"`
}

// Ranking is one leaderboard row for an objective.
type Ranking struct {
	UserID       string `json:"user_id"`
	UserFullName string `json:"user_full_name"`
	Minutes      int    `json:"minutes"`
	IsLive       bool   `json:"-"`
}

// LeaderboardEntry groups rankings per objective.
type LeaderboardEntry struct {
	ObjectiveID string    `json:"objective_id"`
	Rankings    []Ranking `json:"rankings"`
}

// RoomInfo is the subset of the room resource the client needs.
type RoomInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (g *Gateway) Login(username, password string) (CredentialPair, error) {
	var pair CredentialPair
	payload := map[string]string{"username": username, "password": password}
	if err := g.Do(http.MethodPost, "/auth/login", payload, &pair); err != nil {
		return CredentialPair{}, err
	}
	g.creds.Set(pair)
	return pair, nil
}

func (g *Gateway) Logout() error {
	err := g.Do(http.MethodPost, "/auth/logout", nil, nil)
	g.creds.Clear()
	return err
}

func (g *Gateway) Rooms() ([]RoomInfo, error) {
	var rooms []RoomInfo
	err := g.Do(http.MethodGet, "/rooms", nil, &rooms)
	return rooms, err
}

// LiveStatus fetches the full presence snapshot for every room the caller
// is a member of; it seeds the presence store before relay events take over.
func (g *Gateway) LiveStatus() (LiveSnapshot, error) {
	snapshot := make(LiveSnapshot)
	err := g.Do(http.MethodGet, "/live_status", nil, &snapshot)
	return snapshot, err
}

func (g *Gateway) ActiveTracker() (*ActiveActivity, error) {
	var active ActiveActivity
	if err := g.Do(http.MethodGet, "/activities/active", nil, &active); err != nil {
		return nil, err
	}
	if active.ActivityID == "" {
		return nil, nil
	}
	return &active, nil
}

func (g *Gateway) StartTracker(activityID string) (*ActiveActivity, error) {
	var active ActiveActivity
	payload := map[string]string{"activity_id": activityID}
	if err := g.Do(http.MethodPost, "/activities/active", payload, &active); err != nil {
		return nil, err
	}
	return &active, nil
}

func (g *Gateway) SwitchTracker(activityID string) (*ActiveActivity, error) {
	var active ActiveActivity
	payload := map[string]string{"activity_id": activityID}
	if err := g.Do(http.MethodPut, "/activities/active", payload, &active); err != nil {
		return nil, err
	}
	return &active, nil
}

func (g *Gateway) StopTracker() error {
	return g.Do(http.MethodDelete, "/activities/active", nil, nil)
}

func (g *Gateway) Leaderboard(roomID string) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := g.Do(http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/leaderboard", nil, &entries)
	return entries, err
}

func (g *Gateway) RoomStats(roomID string, out interface{}) error {
	return g.Do(http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/stats", nil, out)
}

func (g *Gateway) PersonalStats(out interface{}) error {
	return g.Do(http.MethodGet, "/users/me/stats", nil, out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
