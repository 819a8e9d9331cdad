package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultService is the port probed when none is given.
	DefaultService = "15000"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultDialTimeout bounds each TCP connection attempt.
	DefaultDialTimeout = 30 * time.Second

	// DefaultMaxPayload caps the declared frame payload length
	// (16 MiB), matching wire.DefaultMaxPayload.
	DefaultMaxPayload = 16 * 1024 * 1024
)
