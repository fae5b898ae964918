package internal

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server holds the relay's HTTP surface: the websocket endpoint, the trusted
// ingress, and the operational endpoints. The hub is injected at
// construction; nothing reaches for shared global state.
type Server struct {
	hub              *Hub
	metrics          *Metrics
	handshakeLimiter *RateLimiter
	ingressLimiter   *RateLimiter
	jwtSecret        []byte
	sharedSecret     string
}

func NewServer(hub *Hub, jwtSecret []byte, sharedSecret string) *Server {
	metrics := NewMetrics()
	if hub == nil {
		hub = NewHub(metrics)
	} else {
		metrics = hub.metrics
	}
	return &Server{
		hub:              hub,
		metrics:          metrics,
		handshakeLimiter: NewRateLimiter(30, time.Minute),
		ingressLimiter:   NewRateLimiter(60, time.Minute),
		jwtSecret:        jwtSecret,
		sharedSecret:     sharedSecret,
	}
}

// Hub exposes the injected hub, mainly so tests can inspect membership.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"channels": s.hub.ChannelCount(),
	})
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
