package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// connState is the connection's lifecycle state (SPEC_FULL.md §4.5).
type connState int

const (
	stateUnopened connState = iota
	stateOpen
	stateClosed
	statePoisoned
)

func (s connState) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	case statePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// DefaultDialTimeout bounds how long Open waits for the TCP handshake to
// complete. DefaultKeepAlive mirrors the teacher's Dialer defaults.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// Connection owns a single TCP socket to a Terab server, a send buffer, a
// receive buffer, and the request-sequence counter. It is exclusively
// owned by one caller at a time: none of its methods are safe to call
// concurrently from multiple goroutines, matching SPEC_FULL.md §5.
type Connection struct {
	connString string
	ep         endpoint

	conn net.Conn

	sendBuf []byte
	sendPtr int
	recvBuf []byte

	seq     uint32
	batchOn bool

	state connState

	log      *logrus.Logger
	traceID  string
	metrics  *Collector

	dialTimeout time.Duration
	keepAlive   time.Duration
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithLogger overrides the logger used for this connection's diagnostic
// output. Defaults to logrus.StandardLogger() when not given or nil,
// matching the teacher's "accept an optional *logrus.Logger, default to the
// standard logger" convention (core/distributed_network_coordination.go).
func WithLogger(log *logrus.Logger) Option {
	return func(c *Connection) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches a Collector that records this connection's traffic.
func WithMetrics(m *Collector) Option {
	return func(c *Connection) { c.metrics = m }
}

// WithDialTimeout overrides the default TCP connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connection) { c.dialTimeout = d }
}

// NewConnection parses connString (see SPEC_FULL.md §4.3.1) and returns an
// unopened Connection. No network I/O happens here: the original client's
// connection_new is parse-only, and Open is the separate step that dials.
func NewConnection(connString string, opts ...Option) (*Connection, error) {
	ep, err := parseEndpoint(connString)
	if err != nil {
		return nil, newError("NewConnection", StatusConnectionFailed, DetailUser, err)
	}

	c := &Connection{
		connString:  connString,
		ep:          ep,
		sendBuf:     make([]byte, 2*MaxFrame),
		recvBuf:     make([]byte, MaxFrame),
		state:       stateUnopened,
		log:         logrus.StandardLogger(),
		traceID:     xid.New().String(),
		dialTimeout: DefaultDialTimeout,
		keepAlive:   DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Connection) logFields() logrus.Fields {
	return logrus.Fields{"trace_id": c.traceID, "peer": c.connString}
}

// Open dials the parsed endpoint, enables TCP_NODELAY, and transitions the
// connection to the Open state. On any failure the connection transitions
// to Closed and may not be reopened (SPEC_FULL.md §4.5).
func (c *Connection) Open(ctx context.Context) error {
	if c.state != stateUnopened {
		return newError("Open", StatusInternalError, DetailUser, fmt.Errorf("connection is %s, not unopened", c.state))
	}

	dialer := &net.Dialer{Timeout: c.dialTimeout, KeepAlive: c.keepAlive}
	addr := net.JoinHostPort(c.ep.ip.String(), fmt.Sprintf("%d", c.ep.port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.state = stateClosed
		return newError("Open", StatusConnectionFailed, DetailConnectivity, fmt.Errorf("dial %s: %w", addr, err))
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			c.state = stateClosed
			return newError("Open", StatusConnectionFailed, DetailConnectivity, fmt.Errorf("set TCP_NODELAY: %w", err))
		}
	}

	c.conn = conn
	c.state = stateOpen
	c.log.WithFields(c.logFields()).Debug("terab connection opened")
	if c.metrics != nil {
		c.metrics.observeOpen(c)
	}
	return nil
}

// Close closes the underlying socket exactly once. Repeated Close calls
// return an error, matching SPEC_FULL.md's resolution of the original's
// ambiguous "already closed or OS error" return.
func (c *Connection) Close() error {
	if c.state != stateOpen {
		return newError("Close", StatusInternalError, DetailUnspecified, fmt.Errorf("connection is %s, not open", c.state))
	}
	err := c.conn.Close()
	c.state = stateClosed
	if err != nil {
		return newError("Close", StatusInternalError, DetailRuntime, err)
	}
	c.log.WithFields(c.logFields()).Debug("terab connection closed")
	return nil
}

// poison transitions the connection to Poisoned: it may never be used
// again, matching SPEC_FULL.md §4.5 (socket error, short read, protocol
// violation).
func (c *Connection) poison(reason error) {
	if c.state == statePoisoned {
		return
	}
	c.log.WithFields(c.logFields()).WithError(reason).Warn("terab connection poisoned")
	c.state = statePoisoned
	if c.metrics != nil {
		c.metrics.observePoison(c)
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Connection) ensureOpen(op string) error {
	switch c.state {
	case stateOpen:
		return nil
	default:
		return newError(op, StatusConnectionFailed, DetailConnectivity, fmt.Errorf("connection is %s", c.state))
	}
}

// getSendBuffer returns a fresh Range whose begin is the current send
// cursor and whose length is exactly MaxFrame, for the caller to write a
// message into (SPEC_FULL.md §4.3.3).
func (c *Connection) getSendBuffer() Range {
	return sliceRange(c.sendBuf, c.sendPtr, c.sendPtr+MaxFrame)
}

// accept performs invariant 2/3 of SPEC_FULL.md §3: it patches the header
// at the send cursor with the message length and the next sequence
// number, advances the cursor, and increments the sequence counter.
func (c *Connection) accept(msgEnd int) (requestID uint32, err error) {
	toSend := msgEnd - c.sendPtr
	if toSend > MaxFrame {
		return 0, newError("accept", StatusInvalidRequest, DetailUser, fmt.Errorf("message of %d bytes exceeds MaxFrame %d", toSend, MaxFrame))
	}

	patch := sliceRange(c.sendBuf, c.sendPtr, msgEnd)
	if err := patch.WriteUint32(uint32(toSend)); err != nil {
		return 0, newError("accept", StatusInternalError, DetailRuntime, err)
	}
	requestID = c.seq
	if err := patch.WriteUint32(requestID); err != nil {
		return 0, newError("accept", StatusInternalError, DetailRuntime, err)
	}

	c.sendPtr = msgEnd
	c.seq++
	return requestID, nil
}

// SendRequest accepts the message ending at msgEnd (as returned by the
// caller's writes into getSendBuffer()), assigns it the next request id,
// and flushes immediately unless batching defers it (SPEC_FULL.md §4.3.3).
func (c *Connection) SendRequest(msgEnd int) (requestID uint32, err error) {
	if err := c.ensureOpen("SendRequest"); err != nil {
		return 0, err
	}

	requestID, err = c.accept(msgEnd)
	if err != nil {
		c.poison(err)
		return 0, err
	}

	pending := c.sendPtr
	if !c.batchOn || pending >= MaxFrame {
		if err := c.flushSendBuffer(); err != nil {
			return requestID, err
		}
	}
	return requestID, nil
}

// flushSendBuffer writes the pending bytes to the socket in a retry loop,
// resetting the send cursor on success and poisoning the connection on
// any short write or socket error (SPEC_FULL.md §4.3.3 invariant 1).
func (c *Connection) flushSendBuffer() error {
	pending := c.sendBuf[:c.sendPtr]
	if len(pending) == 0 {
		return nil
	}

	n, err := writeFull(c.conn, pending)
	if c.metrics != nil {
		c.metrics.observeBytesSent(c, n)
	}
	if err != nil {
		wrapped := newError("flushSendBuffer", StatusConnectionFailed, DetailConnectivity, err)
		c.poison(wrapped)
		return wrapped
	}

	c.log.WithFields(c.logFields()).WithField("bytes", n).Debug("terab flushed send buffer")
	c.sendPtr = 0
	return nil
}

// writeFull retries Write until all of buf is written or an error occurs,
// the Go equivalent of the original client's send-loop.
func writeFull(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("zero-byte write with %d bytes remaining", len(buf)-total)
		}
	}
	return total, nil
}

// BatchBegin defers subsequent SendRequest flushes until BatchEnd or the
// MaxFrame backpressure threshold is reached (SPEC_FULL.md §4.3.4).
func (c *Connection) BatchBegin() {
	c.batchOn = true
}

// BatchEnd clears the batch flag and flushes any residual bytes
// unconditionally.
func (c *Connection) BatchEnd() error {
	c.batchOn = false
	return c.flushSendBuffer()
}

// WaitResponse reads one length-prefixed frame into the receive buffer and
// returns a Range over it (SPEC_FULL.md §4.3.5). Callers must fully
// consume the returned Range before calling WaitResponse again.
func (c *Connection) WaitResponse() (Range, error) {
	if err := c.ensureOpen("WaitResponse"); err != nil {
		return Range{}, err
	}

	if _, err := io.ReadFull(c.conn, c.recvBuf[:4]); err != nil {
		wrapped := newError("WaitResponse", StatusConnectionFailed, DetailConnectivity, fmt.Errorf("read length prefix: %w", err))
		c.poison(wrapped)
		return Range{}, wrapped
	}

	sizeRange := sliceRange(c.recvBuf, 0, 4)
	size, err := sizeRange.ReadUint32()
	if err != nil {
		wrapped := newError("WaitResponse", StatusInternalError, DetailRuntime, err)
		c.poison(wrapped)
		return Range{}, wrapped
	}

	if size < headerLen || size > MaxFrame {
		wrapped := newError("WaitResponse", StatusInternalError, DetailConnectivity, fmt.Errorf("declared frame size %d out of range [%d, %d]", size, headerLen, MaxFrame))
		c.poison(wrapped)
		return Range{}, wrapped
	}

	if _, err := io.ReadFull(c.conn, c.recvBuf[4:size]); err != nil {
		wrapped := newError("WaitResponse", StatusConnectionFailed, DetailConnectivity, fmt.Errorf("read frame body: %w", err))
		c.poison(wrapped)
		return Range{}, wrapped
	}

	if c.metrics != nil {
		c.metrics.observeBytesReceived(c, int(size))
	}

	return sliceRange(c.recvBuf, 0, int(size)), nil
}
