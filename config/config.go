// Package config defines the runtime configuration for a wirelink
// session and provides helpers for parsing tunnel specifications and
// validating settings.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TLSMode selects how the handshake negotiates encryption.
type TLSMode string

const (
	// TLSAuto probes for TLS and accepts a plaintext answer, falling
	// back to cleartext when the server's TLS negotiation fails once.
	TLSAuto TLSMode = "auto"

	// TLSRequired probes for TLS and treats any refusal or TLS
	// failure as fatal.  No plaintext fallback.
	TLSRequired TLSMode = "required"

	// TLSDisabled never probes for TLS; the session stays cleartext.
	TLSDisabled TLSMode = "disabled"
)

// Config holds every tuneable for a single wirelink session.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Host    string
	Service string // numeric port or named service

	// ── Negotiation ──────────────────────────────────────────────────
	TLS                TLSMode
	InsecureSkipVerify bool // skip TLS certificate verification

	// ── Transfer ─────────────────────────────────────────────────────
	MaxPayload  uint32 // frame payload cap; 0 = wire.DefaultMaxPayload
	Gzip        bool   // gzip-compress payloads (the historical wire form)
	DialTimeout time.Duration
	LocalPort   int // optional source-port binding

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from --tunnel
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Caller retry policy ──────────────────────────────────────────
	RetryAttempts int // 0 = no retry

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// ParseTunnelSpec splits "[user@]host[:port]" into the tunnel fields.
func (c *Config) ParseTunnelSpec() error {
	spec := strings.TrimSpace(c.TunnelSpec)
	if spec == "" {
		return nil
	}

	c.TunnelEnabled = true
	c.TunnelPort = DefaultSSHPort

	if at := strings.LastIndex(spec, "@"); at >= 0 {
		c.TunnelUser = spec[:at]
		spec = spec[at+1:]
	}
	if c.TunnelUser == "" {
		return &Error{Field: "tunnel", Value: c.TunnelSpec,
			Message: "missing user", Hint: "use user@host[:port]"}
	}

	if colon := strings.LastIndex(spec, ":"); colon >= 0 {
		port, err := strconv.Atoi(spec[colon+1:])
		if err != nil || port <= 0 || port > 65535 {
			return &Error{Field: "tunnel", Value: c.TunnelSpec,
				Message: fmt.Sprintf("invalid port %q", spec[colon+1:])}
		}
		c.TunnelPort = port
		spec = spec[:colon]
	}

	if spec == "" {
		return &Error{Field: "tunnel", Value: c.TunnelSpec,
			Message: "missing host"}
	}
	c.TunnelHost = spec
	return nil
}

// Validate checks the configuration for contradictions before any
// network activity starts.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &Error{Field: "host", Message: "destination host is required"}
	}
	if c.Service == "" {
		return &Error{Field: "service", Message: "destination port or service is required"}
	}

	switch c.TLS {
	case TLSAuto, TLSRequired, TLSDisabled:
	case "":
		c.TLS = TLSAuto
	default:
		return &Error{Field: "tls", Value: string(c.TLS),
			Message: "unknown TLS mode",
			Hint:    "use auto, required, or disabled"}
	}

	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &Error{Field: "local-port", Value: strconv.Itoa(c.LocalPort),
			Message: "port out of range"}
	}

	if c.TunnelSpec != "" && !c.TunnelEnabled {
		if err := c.ParseTunnelSpec(); err != nil {
			return err
		}
	}

	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = DefaultMaxPayload
	}
	return nil
}

// Error represents an invalid configuration value.
type Error struct {
	Field   string // config field or flag name
	Value   string // the invalid value ("" if missing)
	Message string // human-readable explanation
	Hint    string // suggestion for the user (optional)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != "" {
		msg += "=" + e.Value
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}
