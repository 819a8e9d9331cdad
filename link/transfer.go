package link

import (
	"io"

	"wirelink/internal/errors"
	"wirelink/util"
	"wirelink/wire"
)

// The transfer engine moves exactly one frame out and one frame in
// over the established stream, chunk by chunk so the byte counters
// advance while I/O is still in flight.

// wireFrame encodes a payload into a complete frame, enforcing the
// payload cap on the way out as well as in.
func wireFrame(payload []byte, maxPayload uint32) ([]byte, error) {
	return wire.AppendFrame(
		make([]byte, 0, wire.LengthPrefixSize+len(payload)),
		payload, maxPayload)
}

func (c *Connection) startFrameWrite() {
	c.state = stateTransferring
	frame := c.request
	c.bytesToWrite.Store(int64(len(frame)))
	c.bytesWritten.Store(0)
	c.logger.Debug("transfer: writing %d-byte frame", len(frame))

	s := c.currentStream()
	c.spawn(func() func() {
		err := c.writeChunks(s, frame)
		return func() { c.handleFrameWritten(len(frame), err) }
	})
}

// writeChunks sends the frame in bounded slices, accumulating the
// written counter after every slice.
func (c *Connection) writeChunks(s stream, frame []byte) error {
	for off := 0; off < len(frame); {
		end := off + util.DefaultBufSize
		if end > len(frame) {
			end = len(frame)
		}
		n, err := s.Write(frame[off:end])
		c.bytesWritten.Add(int64(n))
		off += n
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) handleFrameWritten(frameLen int, err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(errors.WrapNetwork("write", c.remoteAddr(), err))
		return
	}

	c.Metrics.RequestSent(int64(frameLen))
	c.startLengthRead()
}

func (c *Connection) startLengthRead() {
	s := c.currentStream()
	c.spawn(func() func() {
		buf := make([]byte, wire.LengthPrefixSize)
		_, err := io.ReadFull(s, buf)
		return func() { c.handleLengthRead(buf, err) }
	})
}

func (c *Connection) handleLengthRead(prefix []byte, err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(errors.WrapNetwork("read", c.remoteAddr(), err))
		return
	}

	// Validate the declared length before any payload buffer exists.
	length, perr := wire.ParseLength(prefix, c.cfg.MaxPayload)
	if perr != nil {
		c.fail(perr)
		return
	}

	c.bytesToRead.Store(int64(length))
	c.bytesRead.Store(0)
	c.logger.Debug("transfer: reading %d-byte payload", length)

	s := c.currentStream()
	c.spawn(func() func() {
		payload, rerr := c.readChunks(s, int(length))
		return func() { c.handlePayloadRead(payload, rerr) }
	})
}

// readChunks fills the payload through a pooled buffer so the read
// counter advances with each arriving chunk rather than at completion.
func (c *Connection) readChunks(s stream, total int) ([]byte, error) {
	payload := make([]byte, 0, total)

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for len(payload) < total {
		want := total - len(payload)
		if want > len(buf) {
			want = len(buf)
		}
		n, err := s.Read(buf[:want])
		payload = append(payload, buf[:n]...)
		c.bytesRead.Add(int64(n))
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func (c *Connection) handlePayloadRead(payload []byte, err error) {
	if c.isCancelled() {
		c.finishCancel()
		return
	}
	if err != nil {
		c.fail(errors.WrapNetwork("read", c.remoteAddr(), err))
		return
	}

	doc, derr := c.codec.Decode(payload)
	if derr != nil {
		var de *errors.DecodeError
		if !errors.As(derr, &de) {
			derr = errors.WrapDecode(derr)
		}
		c.fail(derr)
		return
	}

	c.Metrics.ResponseReceived(int64(wire.LengthPrefixSize + len(payload)))
	c.logger.Verbose("transfer complete: %d bytes out, %d bytes in",
		c.bytesWritten.Load(), c.bytesRead.Load())

	c.response = doc
	c.request = nil
	c.state = stateReady
	c.done.Store(true)
}

// remoteAddr names the peer for error context, tolerating a stream
// that was already torn down.
func (c *Connection) remoteAddr() string {
	if s := c.currentStream(); s != nil {
		return s.remoteAddr()
	}
	return util.JoinHostService(c.cfg.Host, c.cfg.Service)
}
