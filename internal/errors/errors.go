// Package errors provides domain-specific error types for wirelink.
//
// These types carry structured context (operation, address, handshake
// response) that lets callers distinguish "try again" failures from
// protocol violations and provides better diagnostics than plain
// string wrapping.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrAborted reports a caller-initiated cancellation.  It is the
	// benign outcome of Cancel, never a protocol failure.
	ErrAborted = errors.New("operation aborted")

	// ErrClosed means the connection is terminal (failed or cancelled)
	// and cannot carry further transfers.
	ErrClosed = errors.New("connection is closed")

	// ErrBusy means a transfer is already in flight.
	ErrBusy = errors.New("transfer already in progress")

	// ErrFrameTooLarge means a declared payload length exceeds the
	// configured maximum.
	ErrFrameTooLarge = errors.New("frame exceeds maximum payload size")
)

// ── Structured error types ───────────────────────────────────────────

// ResolveError represents a DNS or service lookup failure.
type ResolveError struct {
	Host    string
	Service string
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s/%s: %v", e.Host, e.Service, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ConnectError reports that every resolved endpoint refused the TCP
// connection.  Addr holds the last endpoint tried.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// HandshakeError represents a violation of the 4-byte probe/response
// exchange: an I/O failure mid-exchange or a response matching no
// known sentinel (Response is meaningful only when Err is nil).
type HandshakeError struct {
	Response uint32
	Err      error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake: %v", e.Err)
	}
	return fmt.Sprintf("handshake: unexpected response 0x%08x", e.Response)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// TLSError represents a failed TLS negotiation after the server
// accepted the upgrade.
type TLSError struct {
	Addr string
	Err  error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("tls %s: %v", e.Addr, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// NetworkError represents a read/write failure mid-frame.
type NetworkError struct {
	Op   string // "read", "write"
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError represents a malformed length prefix or payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// WrapNetwork creates a NetworkError for a mid-frame I/O failure.
func WrapNetwork(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// WrapDecode creates a DecodeError.
func WrapDecode(err error) *DecodeError {
	return &DecodeError{Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether a fresh connection attempt might
// succeed.  Resolution and connect failures are often transient
// (network down, server restarting); protocol violations are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var he *HandshakeError
	if errors.As(err, &he) {
		return false
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return false
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return classifyTemporary(re.Err)
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return true
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	return classifyTemporary(err)
}

// classifyTemporary inspects standard library error types.
func classifyTemporary(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use wirelink/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
