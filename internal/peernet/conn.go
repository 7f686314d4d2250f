package peernet

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peerlab/playground/internal/peernet/wire"
	"github.com/peerlab/playground/pkg/tracer"
)

// conn wraps one established transport connection. Reads happen on the
// connection's own read goroutine; writes may come from the read goroutine
// (pong replies) and from loop tasks (pings), so they are serialized.
type conn struct {
	nc       net.Conn
	wmu      sync.Mutex
	lastSeen atomic.Int64 // unix nanos of the last successful read
	tr       *tracer.Tracer
	datagram bool
	rbuf     []byte // record buffer, datagram reads only
}

func newConn(nc net.Conn, datagram bool, tr *tracer.Tracer) *conn {
	c := &conn{nc: nc, datagram: datagram, tr: tr}
	if datagram {
		c.rbuf = make([]byte, 64<<10)
	}
	c.touch()
	return c
}

// readFrame reads the next frame. Stream transports carry a byte stream, so
// the frame is parsed incrementally; datagram transports deliver one record
// per Read, which must hold exactly one frame.
func (c *conn) readFrame() (wire.Frame, error) {
	if !c.datagram {
		return wire.Read(c.nc)
	}
	n, err := c.nc.Read(c.rbuf)
	if err != nil {
		return wire.Frame{}, err
	}
	return wire.Decode(c.rbuf[:n])
}

func (c *conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *conn) sinceLastSeen() time.Duration {
	return time.Since(time.Unix(0, c.lastSeen.Load()))
}

// RemoteAddr implements router.Responder.
func (c *conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

// WriteFrame implements router.Responder.
func (c *conn) WriteFrame(f wire.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := wire.Write(c.nc, f); err != nil {
		return err
	}
	c.tr.Trace(tracer.TraceOut, c.nc.LocalAddr(), c.nc.RemoteAddr(), byte(f.Op), len(f.Payload))
	return nil
}

// peer is the bookkeeping for one registered peer address. The address is
// the peer's identity; the connection comes and goes as dials succeed and
// fail. All fields are guarded by the owning Network's mutex.
type peer struct {
	addr       string
	c          *conn
	pingTimer  *time.Timer
	retryTimer *time.Timer
	removed    bool
}

func (p *peer) stopTimers() {
	if p.pingTimer != nil {
		p.pingTimer.Stop()
		p.pingTimer = nil
	}
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
}
