package internal

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS authenticates the handshake and upgrades it to a websocket. The
// token travels as a query parameter; a missing or invalid token rejects the
// handshake before any channel operation is possible, and the client decides
// whether to retry with a new token. An accepted connection is bound to the
// verified subject and auto-joined to that user's personal channel.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	ip := s.clientIP(request)
	if !s.handshakeLimiter.Allow(ip) {
		http.Error(writer, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}

	token := request.URL.Query().Get("token")
	if token == "" {
		s.metrics.IncRejectedHandshake()
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	userID, err := verifyToken(token, s.jwtSecret)
	if err != nil {
		s.metrics.IncRejectedHandshake()
		log.WithFields(log.Fields{"remote": ip}).Warn("rejected handshake: invalid token")
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	s.handshakeLimiter.Forget(ip)

	websocketConn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.WithError(err).Error("upgrade failed")
		return
	}

	conn := newConn(uuid.NewString(), userID, websocketConn)
	s.hub.Subscribe(conn, userChannel(userID))
	s.metrics.IncConn()
	log.WithFields(log.Fields{"conn": conn.id, "user": userID}).Info("connection established")

	go conn.writePump()
	go conn.readPump(s.hub, s.metrics)
}
