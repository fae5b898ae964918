package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	activeConns        atomic.Int64
	joins              atomic.Uint64
	broadcasts         atomic.Uint64
	notifyBatches      atomic.Uint64
	rejectedHandshakes atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) IncJoin() {
	m.joins.Add(1)
}

func (m *Metrics) IncBroadcast() {
	m.broadcasts.Add(1)
}

func (m *Metrics) IncNotifyBatch() {
	m.notifyBatches.Add(1)
}

func (m *Metrics) IncRejectedHandshake() {
	m.rejectedHandshakes.Add(1)
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"active_connections":   m.activeConns.Load(),
		"joins_total":          m.joins.Load(),
		"broadcasts_total":     m.broadcasts.Load(),
		"notify_batches_total": m.notifyBatches.Load(),
		"rejected_handshakes":  m.rejectedHandshakes.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
