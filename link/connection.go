// Package link implements the client transport: it resolves the
// target, connects over TCP, negotiates plaintext or TLS with a
// 4-byte probe, and exchanges length-framed documents one transfer at
// a time.
//
// A Connection is asynchronous in the style of a proactor: Transfer
// starts a chain of steps (resolve → connect → handshake → write frame
// → read frame) and returns immediately; Poll advances completed steps
// without blocking, Run blocks until the chain parks.  Byte-progress
// counters are readable at any moment, which is what a progress bar
// polls.  One transfer is in flight at a time; a second Transfer
// before Done reports ErrBusy.
//
// All state is driven from the goroutine calling Poll or Run.  Cancel
// and the byte counters are the only members safe to touch from other
// goroutines.
package link

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"

	"wirelink/config"
	"wirelink/internal/errors"
	"wirelink/internal/metrics"
	"wirelink/internal/resolver"
	"wirelink/internal/transport"
	"wirelink/message"
	"wirelink/util"
)

// state tracks where the connection is in its lifecycle.
type state int

const (
	stateIdle state = iota // constructed, nothing attempted
	stateResolving
	stateConnecting
	stateHandshaking
	stateReady        // stream established, between transfers
	stateTransferring // one frame out, one frame in
	stateFailed       // unrecoverable; terminal
	stateCancelled    // caller aborted; terminal
)

// Connection is a single client connection to the server.  Construct
// with New, send with Transfer (or RoundTrip), drive with Poll or Run,
// and abandon with Cancel.  A Connection is not reusable after Cancel
// or a failure — construct a new one.
type Connection struct {
	cfg    *config.Config
	dialer transport.Dialer
	codec  message.Codec
	logger *util.Logger

	// Metrics is optional; a nil collector is a valid no-op.
	Metrics *metrics.Collector

	// TLSConfig overrides the config-derived TLS client settings.
	// Leave nil outside of tests and custom-CA setups.
	TLSConfig *tls.Config

	loop     *loop
	ctx      context.Context
	cancelFn context.CancelFunc

	// Owned by the Poll/Run goroutine.
	state     state
	err       error
	response  *message.Document
	request   []byte // framed request for the in-flight transfer
	probe     uint32 // handshake value sent on this attempt
	endpoints []resolver.Endpoint
	nextEP    int
	plainOnly bool // fallback attempt: probe cleartext only
	fellBack  bool // the single TLS fallback has been spent

	mu        sync.Mutex
	stream    stream
	cancelled bool

	done atomic.Bool

	bytesToWrite atomic.Int64
	bytesWritten atomic.Int64
	bytesToRead  atomic.Int64
	bytesRead    atomic.Int64
}

// New creates a Connection for the target in cfg.  Nothing touches
// the network until the first Transfer.  A nil dialer, codec, or
// logger selects the config-derived default.
func New(cfg *config.Config, dialer transport.Dialer, codec message.Codec, logger *util.Logger) *Connection {
	if dialer == nil {
		dialer = &transport.TCPDialer{
			Timeout:   cfg.DialTimeout,
			LocalPort: cfg.LocalPort,
		}
	}
	if codec == nil {
		if cfg.Gzip {
			codec = message.GzipCodec{}
		} else {
			codec = message.TextCodec{}
		}
	}
	if logger == nil {
		logger = util.NewLogger(cfg.Verbose)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		cfg:      cfg,
		dialer:   dialer,
		codec:    codec,
		logger:   logger,
		loop:     newLoop(),
		ctx:      ctx,
		cancelFn: cancel,
		state:    stateIdle,
	}
	c.done.Store(true) // nothing outstanding yet
	if cfg.TLS == config.TLSDisabled {
		c.plainOnly = true
	}
	return c
}

// Transfer starts one request/response cycle.  On an idle connection
// it first resolves, connects, and negotiates; on a ready one it
// reuses the established stream.  The call returns immediately; drive
// completion with Poll or Run and collect the result with Response
// and Err.
func (c *Connection) Transfer(req *message.Document) error {
	if !c.done.Load() {
		return errors.ErrBusy
	}
	if c.isCancelled() || c.state == stateFailed || c.state == stateCancelled {
		return errors.ErrClosed
	}

	payload, err := c.codec.Encode(req)
	if err != nil {
		return err
	}
	frame, err := wireFrame(payload, c.cfg.MaxPayload)
	if err != nil {
		// Oversized request: reported synchronously, the
		// connection itself stays usable.
		return err
	}

	c.request = frame
	c.response = nil
	c.err = nil
	c.bytesToWrite.Store(0)
	c.bytesWritten.Store(0)
	c.bytesToRead.Store(0)
	c.bytesRead.Store(0)
	c.done.Store(false)

	if c.state == stateIdle {
		c.startResolve()
	} else {
		c.startFrameWrite()
	}
	return nil
}

// RoundTrip is Transfer + Run + Response for callers that do not need
// to interleave UI work.
func (c *Connection) RoundTrip(req *message.Document) (*message.Document, error) {
	if err := c.Transfer(req); err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, err
	}
	return c.Response(), nil
}

// Poll executes every completion handler that is already pending and
// returns how many it handled, without blocking.  A cancellation
// abort is counted as a handled event, not reported as an error,
// because the caller asked for it; any other terminal failure is
// returned alongside the count.
func (c *Connection) Poll() (int, error) {
	n := c.loop.drain()
	if c.state == stateFailed {
		return n, c.err
	}
	return n, nil
}

// Run blocks, executing completion handlers until no asynchronous
// step is outstanding.  It returns the error that ended the chain:
// nil after a completed transfer, ErrAborted after Cancel, or the
// typed failure.
func (c *Connection) Run() error {
	for !c.done.Load() {
		c.loop.next()
	}
	c.loop.drain() // nothing should be queued once done; keep it that way
	return c.err
}

// Cancel requests that all outstanding work abort as soon as
// possible.  The next Poll or Run observes the abort, Done becomes
// true, and the connection is unusable afterwards: the stream is torn
// down even if the handshake had already succeeded, and further
// Transfer calls report ErrClosed.  Safe to call from any goroutine,
// and idempotent.
func (c *Connection) Cancel() {
	c.mu.Lock()
	already := c.cancelled
	c.cancelled = true
	s := c.stream
	c.mu.Unlock()

	if already {
		return
	}
	c.cancelFn()
	if s != nil {
		s.Close() // unblock any in-flight read or write
	}
	c.logger.Debug("connection cancelled")
}

// Close releases the connection, cancelling outstanding work and
// closing the dialer.  The owner must not use the connection after
// Close.
func (c *Connection) Close() error {
	c.Cancel()
	return c.dialer.Close()
}

// Done reports whether no asynchronous step is outstanding.  It is
// true for a connection that never started, and again once a transfer
// completes, fails, or is cancelled.
func (c *Connection) Done() bool {
	return c.done.Load()
}

// Err returns the error that ended the most recent chain, nil if it
// completed normally.
func (c *Connection) Err() error {
	return c.err
}

// Response returns the document decoded by the most recent completed
// transfer, or nil.
func (c *Connection) Response() *message.Document {
	return c.response
}

// UsingTLS reports whether the negotiated stream is encrypted, which
// gates whether cleartext credentials may be sent.  Calling it while
// an operation is outstanding is a programming error and panics; the
// answer is stable from one successful handshake to the next
// reconnect.
func (c *Connection) UsingTLS() bool {
	if !c.done.Load() {
		panic("link: UsingTLS called while an operation is outstanding")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil && c.stream.usingTLS()
}

// ── Byte-progress counters ───────────────────────────────────────────
//
// Reset by each Transfer, written by the transfer engine, readable
// from any goroutine at any moment.

// BytesToWrite returns the total size of the outgoing frame once the
// write phase has started.
func (c *Connection) BytesToWrite() int64 { return c.bytesToWrite.Load() }

// BytesWritten returns how much of the outgoing frame has been sent.
func (c *Connection) BytesWritten() int64 { return c.bytesWritten.Load() }

// BytesToRead returns the declared length of the incoming payload
// once its length prefix has been read.
func (c *Connection) BytesToRead() int64 { return c.bytesToRead.Load() }

// BytesRead returns how much of the incoming payload has arrived.
func (c *Connection) BytesRead() int64 { return c.bytesRead.Load() }

// ── Resolve and connect steps ────────────────────────────────────────

func (c *Connection) startResolve() {
	c.state = stateResolving
	c.logger.Verbose("resolving %s/%s", c.cfg.Host, c.cfg.Service)

	host, service := c.cfg.Host, c.cfg.Service
	c.spawn(func() func() {
		eps, err := resolver.Resolve(c.ctx, host, service)
		return func() { c.handleResolve(eps, err) }
	})
}

func (c *Connection) handleResolve(eps []resolver.Endpoint, err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(err)
		return
	}

	c.logger.Debug("resolved %d endpoint(s), first %s", len(eps), eps[0])
	c.endpoints = eps
	c.nextEP = 0
	c.state = stateConnecting
	c.startConnect()
}

func (c *Connection) startConnect() {
	ep := c.endpoints[c.nextEP]
	c.logger.Verbose("connecting to %s", ep)

	c.spawn(func() func() {
		conn, err := c.dialer.Dial(c.ctx, "tcp", ep.Addr())
		return func() { c.handleConnect(conn, err, ep) }
	})
}

func (c *Connection) handleConnect(conn net.Conn, err error, ep resolver.Endpoint) {
	if c.isCancelled() {
		if conn != nil {
			conn.Close()
		}
		c.finishCancel()
		return
	}
	if err != nil {
		// Try the next candidate; only give up once every
		// endpoint has refused.
		c.nextEP++
		if c.nextEP < len(c.endpoints) {
			c.logger.Debug("connect to %s failed (%v), trying next", ep, err)
			c.startConnect()
			return
		}
		c.fail(&errors.ConnectError{Addr: ep.Addr(), Err: err})
		return
	}

	c.logger.Verbose("connected to %s", ep)
	c.Metrics.ConnectionOpened()
	c.setStream(newRawStream(conn))
	c.state = stateHandshaking
	c.startHandshake()
}

// ── Internals ────────────────────────────────────────────────────────

// spawn runs the blocking half of one step on its own goroutine and
// posts the completion handler it returns.
func (c *Connection) spawn(op func() func()) {
	go func() {
		c.loop.post(op())
	}()
}

func (c *Connection) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *Connection) setStream(s stream) {
	c.mu.Lock()
	c.stream = s
	c.mu.Unlock()
}

func (c *Connection) currentStream() stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// closeStream tears down the active stream, if any.
func (c *Connection) closeStream() {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// fail parks the chain in the terminal failed state.
func (c *Connection) fail(err error) {
	c.logger.Debug("connection failed: %v", err)
	c.Metrics.ErrorOccurred(err)
	c.closeStream()
	c.state = stateFailed
	c.err = err
	c.request = nil
	c.done.Store(true)
}

// finishCancel parks the chain after a caller-initiated abort.
func (c *Connection) finishCancel() {
	c.closeStream()
	c.state = stateCancelled
	c.err = errors.ErrAborted
	c.request = nil
	c.done.Store(true)
}
