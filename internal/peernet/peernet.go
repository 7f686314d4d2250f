// Package peernet implements the peer network instance owned by one
// simulated node: a loopback listener, outbound connections to registered
// peers, periodic ping keep-alive, and connection-timeout eviction. All
// internal operations are driven by the node's event loop; the controller
// thread only enters through the synchronous AddPeer/DelPeer/Close calls,
// which the instance serializes against the loop itself.
package peernet

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/peerlab/playground/internal/eventloop"
	"github.com/peerlab/playground/internal/peernet/wire"
	"github.com/peerlab/playground/internal/router"
	"github.com/peerlab/playground/pkg/tracer"
	log "github.com/sirupsen/logrus"
)

// Sentinel errors returned by the synchronous calls.
var (
	ErrPeerExists  = errors.New("peer already exists")
	ErrPeerUnknown = errors.New("peer not found")
	ErrNotStarted  = errors.New("network not started")
	ErrStarted     = errors.New("network already started")
	ErrClosed      = errors.New("network closed")
)

// Config carries the per-node network parameters.
type Config struct {
	// ConnTimeout is both the dial timeout and how long a peer connection
	// may stay silent before it is dropped and redialed.
	ConnTimeout time.Duration
	// PingPeriod is the keep-alive interval.
	PingPeriod time.Duration
}

// ErrorHandler receives failures that happen asynchronously inside the
// node's own dispatch loop or its connection goroutines. fatal marks
// failures the instance cannot recover from (a dead listener); everything
// else is recoverable.
type ErrorHandler func(err error, fatal bool)

// Network is one peer network instance. It must only be started, listened
// and dispatched by the worker goroutine that owns its event loop.
type Network struct {
	loop   *eventloop.Loop
	cfg    Config
	trans  Transport
	router *router.Router
	tracer *tracer.Tracer

	mu         sync.Mutex
	started    bool
	closed     bool
	ln         net.Listener
	listenAddr string
	peers      map[string]*peer
	inbound    map[string]*conn
	onErr      ErrorHandler

	wg sync.WaitGroup
}

// New creates a Network bound to the given loop. traceCh may be nil; when
// set (debug builds) every frame in and out is mirrored onto it.
func New(loop *eventloop.Loop, cfg Config, trans Transport, traceCh chan tracer.TraceEvent) *Network {
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = 5 * time.Second
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 2 * time.Second
	}
	n := &Network{
		loop:    loop,
		cfg:     cfg,
		trans:   trans,
		router:  router.NewRouter(),
		tracer:  tracer.NewTracerWithChannel(traceCh),
		peers:   make(map[string]*peer),
		inbound: make(map[string]*conn),
	}
	n.router.OnFrame(wire.OpPing, n.handlePing)
	n.router.OnFrame(wire.OpPong, n.handlePong)
	n.router.OnFrame(wire.OpHello, n.handleHello)
	return n
}

// OnError registers the async error sink. Must be set before Start.
func (n *Network) OnError(fn ErrorHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onErr = fn
}

// Start readies the instance. It is called once, from the worker goroutine,
// before Listen.
func (n *Network) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	if n.started {
		return ErrStarted
	}
	n.started = true
	return nil
}

// Listen binds the listener on addr and begins accepting peer connections.
func (n *Network) Listen(addr string) error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return ErrNotStarted
	}
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	if n.ln != nil {
		n.mu.Unlock()
		return fmt.Errorf("listen %s: already listening on %s", addr, n.listenAddr)
	}
	n.mu.Unlock()

	ln, err := n.trans.Listen(addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	n.mu.Lock()
	n.ln = ln
	n.listenAddr = ln.Addr().String()
	n.mu.Unlock()

	n.wg.Add(1)
	go n.acceptLoop(ln)
	return nil
}

// ListenAddr returns the bound listen address, or "" before Listen.
func (n *Network) ListenAddr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listenAddr
}

// AddPeer registers addr as a peer and schedules a dial from inside the
// loop. The dial itself is asynchronous; dial failures arrive through the
// error sink and are retried.
func (n *Network) AddPeer(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	if !n.started {
		n.mu.Unlock()
		return ErrNotStarted
	}
	if _, ok := n.peers[addr]; ok {
		n.mu.Unlock()
		return fmt.Errorf("add peer %s: %w", addr, ErrPeerExists)
	}
	p := &peer{addr: addr}
	n.peers[addr] = p
	n.mu.Unlock()

	if err := n.loop.Submit(func() { n.dialPeer(p) }); err != nil {
		return fmt.Errorf("add peer %s: %w", addr, err)
	}
	return nil
}

// DelPeer forgets addr and tears down its connection if one is up.
func (n *Network) DelPeer(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	n.mu.Lock()
	p, ok := n.peers[addr]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("del peer %s: %w", addr, ErrPeerUnknown)
	}
	delete(n.peers, addr)
	p.removed = true
	p.stopTimers()
	c := p.c
	p.c = nil
	n.mu.Unlock()

	if c != nil {
		c.nc.Close()
	}
	return nil
}

// Peers returns the currently registered peer addresses.
func (n *Network) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.peers))
	for addr := range n.peers {
		out = append(out, addr)
	}
	return out
}

// Connected reports whether the peer registered under addr currently has an
// established connection.
func (n *Network) Connected(addr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.peers[addr]
	return ok && p.c != nil
}

// Close tears the instance down: listener, peer connections, inbound
// connections. It blocks until every connection goroutine has exited. The
// caller must have stopped and joined the event loop first.
func (n *Network) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	ln := n.ln
	for _, p := range n.peers {
		p.removed = true
		p.stopTimers()
		if p.c != nil {
			p.c.nc.Close()
			p.c = nil
		}
	}
	n.peers = make(map[string]*peer)
	for _, c := range n.inbound {
		c.nc.Close()
	}
	n.inbound = make(map[string]*conn)
	n.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	n.wg.Wait()
	return nil
}

func (n *Network) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// report delivers an async failure to the registered sink.
func (n *Network) report(err error, fatal bool) {
	n.mu.Lock()
	fn := n.onErr
	n.mu.Unlock()
	if fn != nil {
		fn(err, fatal)
	} else {
		log.WithField("caller", "peernet").WithError(err).Debug("async error with no sink registered")
	}
}

func (n *Network) acceptLoop(ln net.Listener) {
	defer n.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if n.isClosed() {
				return
			}
			n.report(fmt.Errorf("accept: %w", err), true)
			return
		}
		c := newConn(nc, n.trans.Datagram(), n.tracer)
		n.mu.Lock()
		if n.closed {
			n.mu.Unlock()
			nc.Close()
			return
		}
		n.inbound[c.RemoteAddr()] = c
		n.mu.Unlock()
		n.wg.Add(1)
		go n.readLoop(nil, c)
	}
}

// readLoop drains frames from one connection. p is nil for inbound
// connections; for outbound ones it is the owning peer, so that a broken
// connection can be redialed.
func (n *Network) readLoop(p *peer, c *conn) {
	defer n.wg.Done()
	for {
		f, err := c.readFrame()
		if err != nil {
			n.connBroken(p, c, err)
			return
		}
		c.touch()
		n.tracer.Trace(tracer.TraceIn, c.nc.LocalAddr(), c.nc.RemoteAddr(), byte(f.Op), len(f.Payload))
		if err := n.router.HandleFrame(f, c); err != nil {
			n.report(fmt.Errorf("frame from %s: %w", c.RemoteAddr(), err), false)
		}
	}
}

// connBroken detaches a dead connection and, for a still-registered peer,
// schedules a redial.
func (n *Network) connBroken(p *peer, c *conn, err error) {
	n.mu.Lock()
	closed := n.closed
	if p == nil {
		delete(n.inbound, c.RemoteAddr())
		n.mu.Unlock()
		c.nc.Close()
		if !closed && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			n.report(fmt.Errorf("connection from %s: %w", c.RemoteAddr(), err), false)
		}
		return
	}
	removed := p.removed
	// A stale conn was already detached by whoever broke it first; its read
	// loop only needs to exit quietly.
	stale := p.c != c
	if !stale {
		p.c = nil
	}
	n.mu.Unlock()
	c.nc.Close()
	if closed || removed || stale {
		return
	}
	n.report(fmt.Errorf("connection to %s: %w", p.addr, err), false)
	n.scheduleRedial(p)
}

func (n *Network) scheduleRedial(p *peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || p.removed {
		return
	}
	p.retryTimer = n.loop.SubmitAfter(n.cfg.ConnTimeout, func() { n.dialPeer(p) })
}

// dialPeer runs inside the event loop. It establishes the outbound
// connection for p, announces our listen address, and arms the keep-alive.
func (n *Network) dialPeer(p *peer) {
	n.mu.Lock()
	if n.closed || p.removed || p.c != nil {
		n.mu.Unlock()
		return
	}
	listenAddr := n.listenAddr
	n.mu.Unlock()

	nc, err := n.trans.Dial(p.addr)
	if err != nil {
		n.report(fmt.Errorf("dial %s: %w", p.addr, err), false)
		n.scheduleRedial(p)
		return
	}
	c := newConn(nc, n.trans.Datagram(), n.tracer)

	n.mu.Lock()
	if n.closed || p.removed {
		n.mu.Unlock()
		nc.Close()
		return
	}
	p.c = c
	n.mu.Unlock()

	log.WithField("caller", "peernet").Debugf("connected to peer %s", p.addr)
	if err := c.WriteFrame(wire.Frame{Op: wire.OpHello, Payload: []byte(listenAddr)}); err != nil {
		n.connBroken(p, c, err)
		return
	}
	n.wg.Add(1)
	go n.readLoop(p, c)
	n.schedulePing(p)
}

func (n *Network) schedulePing(p *peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || p.removed {
		return
	}
	p.pingTimer = n.loop.SubmitAfter(n.cfg.PingPeriod, func() { n.pingPeer(p) })
}

// pingPeer runs inside the event loop. It drops connections that have been
// silent past ConnTimeout, otherwise sends a ping and re-arms itself.
func (n *Network) pingPeer(p *peer) {
	n.mu.Lock()
	c := p.c
	dead := n.closed || p.removed
	n.mu.Unlock()
	if dead || c == nil {
		return
	}
	if c.sinceLastSeen() > n.cfg.ConnTimeout {
		n.connBroken(p, c, fmt.Errorf("peer %s: ping timeout", p.addr))
		return
	}
	if err := c.WriteFrame(wire.Frame{Op: wire.OpPing}); err != nil {
		n.connBroken(p, c, err)
		return
	}
	n.schedulePing(p)
}

func (n *Network) handlePing(f wire.Frame, from router.Responder) error {
	return from.WriteFrame(wire.Frame{Op: wire.OpPong})
}

func (n *Network) handlePong(f wire.Frame, from router.Responder) error {
	// Liveness is tracked by the read path; nothing else to do.
	return nil
}

func (n *Network) handleHello(f wire.Frame, from router.Responder) error {
	log.WithField("caller", "peernet").Debugf("peer at %s announced listen address %s", from.RemoteAddr(), f.Payload)
	return nil
}

// validateAddr checks that addr is a well-formed host:port with a port in
// the 16-bit range.
func validateAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("invalid address %q: empty host", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port >= 1<<16 {
		return fmt.Errorf("invalid address %q: bad port", addr)
	}
	return nil
}
