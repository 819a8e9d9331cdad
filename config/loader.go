package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WIRELINK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WIRELINK_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("WIRELINK_SERVICE"); v != "" {
		cfg.Service = v
	}
	if v := os.Getenv("WIRELINK_TLS"); v != "" {
		cfg.TLS = TLSMode(strings.ToLower(v))
	}
	if envBool("WIRELINK_INSECURE") {
		cfg.InsecureSkipVerify = true
	}
	if envBool("WIRELINK_GZIP") {
		cfg.Gzip = true
	}
	if v := envInt("WIRELINK_MAX_PAYLOAD"); v > 0 {
		cfg.MaxPayload = uint32(v)
	}
	if v := envInt("WIRELINK_TIMEOUT"); v > 0 {
		cfg.DialTimeout = secondsDuration(v)
	}
	if v := envInt("WIRELINK_LOCAL_PORT"); v > 0 {
		cfg.LocalPort = v
	}

	// SSH tunnel
	if v := os.Getenv("WIRELINK_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("WIRELINK_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("WIRELINK_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("WIRELINK_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("WIRELINK_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("WIRELINK_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Caller retry policy
	if v := envInt("WIRELINK_RETRY"); v > 0 {
		cfg.RetryAttempts = v
	}

	// Output
	if v := envInt("WIRELINK_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
