// Package metrics provides lightweight, lock-free counters for
// tracking the runtime statistics of a wirelink session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics across the transfers of a session.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	connections        atomic.Int64
	handshakes         atomic.Int64
	tlsSessions        atomic.Int64
	plaintextFallbacks atomic.Int64
	requests           atomic.Int64
	responses          atomic.Int64
	bytesSent          atomic.Int64
	bytesReceived      atomic.Int64
	errorsTotal        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened records a successful TCP connect.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connections.Add(1)
}

// HandshakeCompleted records a finished probe/response negotiation.
// tls reports whether the session upgraded to TLS.
func (c *Collector) HandshakeCompleted(tls bool) {
	if c == nil {
		return
	}
	c.handshakes.Add(1)
	if tls {
		c.tlsSessions.Add(1)
	}
}

// PlaintextFallback records a retry in cleartext after a failed TLS
// negotiation.
func (c *Collector) PlaintextFallback() {
	if c == nil {
		return
	}
	c.plaintextFallbacks.Add(1)
}

// ── Transfer metrics ─────────────────────────────────────────────────

// RequestSent records a fully written request frame of n bytes.
func (c *Collector) RequestSent(n int64) {
	if c == nil {
		return
	}
	c.requests.Add(1)
	c.bytesSent.Add(n)
}

// ResponseReceived records a fully read response frame of n bytes.
func (c *Collector) ResponseReceived(n int64) {
	if c == nil {
		return
	}
	c.responses.Add(1)
	c.bytesReceived.Add(n)
}

// ErrorOccurred records a failed operation.
func (c *Collector) ErrorOccurred(err error) {
	if c == nil || err == nil {
		return
	}
	c.errorsTotal.Add(1)

	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = err.Error()
	c.mu.Unlock()
}

// ── Accessors ────────────────────────────────────────────────────────

// Connections returns the lifetime TCP connect count.
func (c *Collector) Connections() int64 {
	if c == nil {
		return 0
	}
	return c.connections.Load()
}

// Requests returns the number of request frames sent.
func (c *Collector) Requests() int64 {
	if c == nil {
		return 0
	}
	return c.requests.Load()
}

// BytesSent returns the total frame bytes written.
func (c *Collector) BytesSent() int64 {
	if c == nil {
		return 0
	}
	return c.bytesSent.Load()
}

// BytesReceived returns the total frame bytes read.
func (c *Collector) BytesReceived() int64 {
	if c == nil {
		return 0
	}
	return c.bytesReceived.Load()
}

// TLSSessions returns the number of sessions that upgraded to TLS.
func (c *Collector) TLSSessions() int64 {
	if c == nil {
		return 0
	}
	return c.tlsSessions.Load()
}

// PlaintextFallbacks returns the number of cleartext retries.
func (c *Collector) PlaintextFallbacks() int64 {
	if c == nil {
		return 0
	}
	return c.plaintextFallbacks.Load()
}

// Errors returns the lifetime error count.
func (c *Collector) Errors() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time copy of all counters, marshallable to
// JSON for diagnostics output.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	Connections        int64  `json:"connections"`
	Handshakes         int64  `json:"handshakes"`
	TLSSessions        int64  `json:"tls_sessions"`
	PlaintextFallbacks int64  `json:"plaintext_fallbacks"`
	Requests           int64  `json:"requests"`
	Responses          int64  `json:"responses"`
	BytesSent          int64  `json:"bytes_sent"`
	BytesReceived      int64  `json:"bytes_received"`
	Errors             int64  `json:"errors"`
	LastError          string `json:"last_error,omitempty"`
}

// Snapshot captures the current counter values.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	c.mu.RLock()
	uptime := time.Since(c.startTime).Round(time.Millisecond)
	lastErr := c.lastErrorMsg
	c.mu.RUnlock()

	return Snapshot{
		Uptime:             uptime.String(),
		Connections:        c.connections.Load(),
		Handshakes:         c.handshakes.Load(),
		TLSSessions:        c.tlsSessions.Load(),
		PlaintextFallbacks: c.plaintextFallbacks.Load(),
		Requests:           c.requests.Load(),
		Responses:          c.responses.Load(),
		BytesSent:          c.bytesSent.Load(),
		BytesReceived:      c.bytesReceived.Load(),
		Errors:             c.errorsTotal.Load(),
		LastError:          lastErr,
	}
}

// JSON renders the snapshot as indented JSON.
func (c *Collector) JSON() ([]byte, error) {
	return json.MarshalIndent(c.Snapshot(), "", "  ")
}
