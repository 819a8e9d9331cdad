package link

import (
	"context"
	"crypto/tls"
	"io"
	"net"
)

// stream is the byte stream a connection talks over: either a raw TCP
// socket or a TLS-wrapped one.  Exactly one variant is live at a time
// and the connection replaces the value, never mutates it, when the
// handshake upgrades or falls back.
type stream interface {
	io.Reader
	io.Writer
	io.Closer

	// handshake completes any in-band session setup.  The raw
	// variant has nothing to do; the TLS variant runs the client
	// handshake.
	handshake(ctx context.Context) error

	// usingTLS reports which variant this is.
	usingTLS() bool

	// remoteAddr names the peer for error messages.
	remoteAddr() string
}

// rawStream is the cleartext variant.
type rawStream struct {
	conn net.Conn
}

func newRawStream(conn net.Conn) *rawStream {
	return &rawStream{conn: conn}
}

func (s *rawStream) Read(p []byte) (int, error)       { return s.conn.Read(p) }
func (s *rawStream) Write(p []byte) (int, error)      { return s.conn.Write(p) }
func (s *rawStream) Close() error                     { return s.conn.Close() }
func (s *rawStream) handshake(context.Context) error  { return nil }
func (s *rawStream) usingTLS() bool                   { return false }
func (s *rawStream) remoteAddr() string               { return s.conn.RemoteAddr().String() }

// tlsStream is the encrypted variant, layered over the same TCP
// socket the probe ran on.
type tlsStream struct {
	conn *tls.Conn
}

// upgradeTLS wraps a raw stream's socket in a TLS client.  The
// returned stream is not usable until handshake succeeds.
func upgradeTLS(raw *rawStream, cfg *tls.Config) *tlsStream {
	return &tlsStream{conn: tls.Client(raw.conn, cfg)}
}

func (s *tlsStream) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *tlsStream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *tlsStream) Close() error                { return s.conn.Close() }

func (s *tlsStream) handshake(ctx context.Context) error {
	return s.conn.HandshakeContext(ctx)
}

func (s *tlsStream) usingTLS() bool     { return true }
func (s *tlsStream) remoteAddr() string { return s.conn.RemoteAddr().String() }
