// Package wire defines the on-the-wire constants and framing helpers
// of the protocol: the 4-byte handshake probe/response values and the
// length-prefixed frame format carrying encoded documents.
//
// Frame format, repeated once per direction per transfer:
//
//	[4-byte big-endian payload length][payload]
//
// The payload is an encoded document; the framing layer never looks
// inside it.
package wire

import (
	"encoding/binary"
	"fmt"

	"wirelink/internal/errors"
)

// LengthPrefixSize is the size of the frame length prefix in bytes.
const LengthPrefixSize = 4

// DefaultMaxPayload bounds the declared payload length a peer may
// announce before we allocate a receive buffer (16 MiB).
const DefaultMaxPayload = 16 * 1024 * 1024

// ── Handshake values ─────────────────────────────────────────────────
//
// The client opens every connection with a 4-byte big-endian probe and
// the server answers with a 4-byte decision.  Any other response byte
// pattern is a protocol violation.

const (
	// ProbePlaintext announces a client that will only speak cleartext.
	ProbePlaintext uint32 = 0x00000000

	// ProbeTLS announces a client willing to upgrade to TLS.
	ProbeTLS uint32 = 0x00000001

	// ResponseTLSAccepted instructs the client to start a TLS client
	// handshake on the same socket.
	ResponseTLSAccepted uint32 = 0x00000000

	// ResponsePlaintext instructs the client to continue in cleartext.
	ResponsePlaintext uint32 = 0xFFFFFFFF
)

// PutHandshake encodes a 4-byte handshake value in network byte order.
func PutHandshake(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// Handshake decodes a 4-byte handshake value received from the peer.
func Handshake(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// ── Framing ──────────────────────────────────────────────────────────

// AppendFrame appends a complete frame (length prefix plus payload) to
// dst and returns the extended slice.  It fails with ErrFrameTooLarge
// if the payload exceeds maxPayload (0 means DefaultMaxPayload).
func AppendFrame(dst, payload []byte, maxPayload uint32) ([]byte, error) {
	max := maxPayload
	if max == 0 {
		max = DefaultMaxPayload
	}
	if uint64(len(payload)) > uint64(max) {
		return dst, fmt.Errorf("%w: %d > %d bytes",
			errors.ErrFrameTooLarge, len(payload), max)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// ParseLength decodes a frame length prefix and validates it against
// maxPayload (0 means DefaultMaxPayload).  A zero length is legal and
// denotes an empty payload.  The check runs before any payload buffer
// is allocated.
func ParseLength(prefix []byte, maxPayload uint32) (uint32, error) {
	if len(prefix) != LengthPrefixSize {
		return 0, errors.WrapDecode(
			fmt.Errorf("length prefix is %d bytes, want %d",
				len(prefix), LengthPrefixSize))
	}
	max := maxPayload
	if max == 0 {
		max = DefaultMaxPayload
	}
	n := binary.BigEndian.Uint32(prefix)
	if n > max {
		return 0, errors.WrapDecode(fmt.Errorf("%w: declared %d > %d bytes",
			errors.ErrFrameTooLarge, n, max))
	}
	return n, nil
}
