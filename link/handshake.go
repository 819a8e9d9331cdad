package link

import (
	"crypto/tls"
	"io"

	"wirelink/config"
	"wirelink/internal/errors"
	"wirelink/wire"
)

// The handshake opens every fresh connection: the client writes a
// 4-byte probe announcing whether it can upgrade to TLS, the server
// answers with a 4-byte decision, and the stream either stays raw or
// is wrapped in a TLS client handshake over the same socket.  When
// the server accepts TLS but the TLS negotiation then fails, the
// whole connect is retried exactly once with a plaintext-only probe;
// that single fallback is tracked by fellBack, never by recursion.

func (c *Connection) startHandshake() {
	c.probe = wire.ProbeTLS
	if c.plainOnly {
		c.probe = wire.ProbePlaintext
	}

	s := c.currentStream()
	buf := wire.PutHandshake(c.probe)
	c.logger.Debug("handshake: sending probe 0x%08x", c.probe)

	c.spawn(func() func() {
		_, err := s.Write(buf)
		return func() { c.handleProbeWritten(err) }
	})
}

func (c *Connection) handleProbeWritten(err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(&errors.HandshakeError{Err: err})
		return
	}

	s := c.currentStream()
	c.spawn(func() func() {
		buf := make([]byte, wire.LengthPrefixSize)
		_, err := io.ReadFull(s, buf)
		return func() { c.handleProbeResponse(wire.Handshake(buf), err) }
	})
}

func (c *Connection) handleProbeResponse(resp uint32, err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(&errors.HandshakeError{Err: err})
		return
	}

	c.logger.Debug("handshake: response 0x%08x", resp)

	switch {
	case c.probe == wire.ProbeTLS && resp == wire.ResponseTLSAccepted:
		c.startTLS()

	case resp == wire.ResponsePlaintext:
		if c.cfg.TLS == config.TLSRequired {
			c.fail(&errors.TLSError{
				Addr: c.currentStream().remoteAddr(),
				Err:  errors.New("server refused the TLS upgrade"),
			})
			return
		}
		c.finishHandshake()

	default:
		c.fail(&errors.HandshakeError{Response: resp})
	}
}

// startTLS wraps the probed socket in a TLS client and runs the TLS
// handshake as its own asynchronous step.
func (c *Connection) startTLS() {
	raw, ok := c.currentStream().(*rawStream)
	if !ok {
		// The probe only ever runs on a raw stream.
		c.fail(errors.New("tls upgrade requested on a non-raw stream"))
		return
	}

	c.logger.Verbose("upgrading to TLS")
	s := upgradeTLS(raw, c.tlsClientConfig())
	c.setStream(s)

	c.spawn(func() func() {
		err := s.handshake(c.ctx)
		return func() { c.handleTLSHandshake(err) }
	})
}

func (c *Connection) handleTLSHandshake(err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		addr := c.currentStream().remoteAddr()
		if c.cfg.TLS != config.TLSRequired && !c.fellBack {
			// One retry in cleartext on a fresh connection.
			c.logger.Warn("TLS negotiation with %s failed (%v), falling back to unencrypted", addr, err)
			c.Metrics.PlaintextFallback()
			c.fellBack = true
			c.plainOnly = true
			c.closeStream()
			c.nextEP = 0
			c.state = stateConnecting
			c.startConnect()
			return
		}
		c.fail(&errors.TLSError{Addr: addr, Err: err})
		return
	}

	c.finishHandshake()
}

// finishHandshake records the negotiated stream and moves straight
// into the transfer that initiated the connect.
func (c *Connection) finishHandshake() {
	encrypted := c.currentStream().usingTLS()
	c.Metrics.HandshakeCompleted(encrypted)
	if encrypted {
		c.logger.Verbose("handshake complete, session is encrypted")
	} else {
		c.logger.Verbose("handshake complete, session is cleartext")
	}

	c.state = stateReady
	c.startFrameWrite()
}

// tlsClientConfig derives the TLS settings for the upgrade.
func (c *Connection) tlsClientConfig() *tls.Config {
	if c.TLSConfig != nil {
		return c.TLSConfig.Clone()
	}
	return &tls.Config{
		ServerName:         c.cfg.Host,
		InsecureSkipVerify: c.cfg.InsecureSkipVerify, //nolint:gosec // explicit user opt-out
		MinVersion:         tls.VersionTLS12,
	}
}
