// Package node provides node lifecycle management: each simulated peer is
// one Node owning an event loop, a worker goroutine driving it, and a peer
// network instance bound to a loopback listen address.
package node

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/peerlab/playground/internal/eventloop"
	"github.com/peerlab/playground/internal/peernet"
	"github.com/peerlab/playground/pkg/tracer"
	log "github.com/sirupsen/logrus"
)

// ID is a unique identifier for a node, chosen by the operator.
type ID uint64

// Node represents a single simulated peer.
//
// The worker goroutine spawned by New is the only goroutine that ever runs
// the loop's dispatch; the controller interacts with the node through
// AddPeer/DelPeer (synchronous calls the network serializes internally) and
// StopJoin (a cross-thread stop request followed by a join).
type Node struct {
	id         ID
	loop       *eventloop.Loop
	net        *peernet.Network
	listenAddr string
	out        io.Writer
	ready      chan struct{}
	done       chan struct{}
}

// New creates a Node listening on host:port and starts its worker
// goroutine. It returns only after the worker has finished its start and
// listen attempt, so peer calls issued right after New are ordered behind
// startup. Failures during start or listen happen inside the worker and
// are reported to out; they never crash the harness, and the node can still
// be stopped with StopJoin.
func New(id ID, host string, port uint16, cfg peernet.Config, trans peernet.Transport, traceCh chan tracer.TraceEvent, out io.Writer) *Node {
	loop := eventloop.New()
	n := &Node{
		id:         id,
		loop:       loop,
		listenAddr: net.JoinHostPort(host, strconv.Itoa(int(port))),
		out:        out,
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	n.net = peernet.New(loop, cfg, trans, traceCh)
	n.net.OnError(func(err error, fatal bool) {
		kind := "recoverable"
		if fatal {
			kind = "fatal"
		}
		fmt.Fprintf(n.out, "net %d: captured %s error during an async call: %v\n", n.id, kind, err)
	})
	go n.run()
	<-n.ready
	return n
}

// run is the worker goroutine body: start the instance, bind the listener,
// then block in the dispatch loop until a stop request is processed. The
// loop is dispatched even when listen fails so that StopJoin always has a
// loop to stop.
func (n *Node) run() {
	if err := n.net.Start(); err != nil {
		n.reportSync(err)
	} else if err := n.net.Listen(n.listenAddr); err != nil {
		n.reportSync(err)
	} else {
		fmt.Fprintf(n.out, "net %d: listen to %s\n", n.id, n.listenAddr)
	}
	close(n.ready)
	n.loop.Dispatch()
	fmt.Fprintf(n.out, "net %d: main loop ended\n", n.id)
	close(n.done)
}

// ID returns the operator-assigned identifier.
func (n *Node) ID() ID { return n.id }

// ListenAddr returns the loopback address this node binds and advertises.
func (n *Node) ListenAddr() string { return n.listenAddr }

// AddPeer adds a peer by its listen address. Errors are reported to the
// console, tagged with this node's id, and never propagate to the caller.
func (n *Node) AddPeer(addr string) {
	if err := n.net.AddPeer(addr); err != nil {
		n.reportSync(err)
	}
}

// DelPeer removes a peer by its listen address. Errors are reported like
// AddPeer's.
func (n *Node) DelPeer(addr string) {
	if err := n.net.DelPeer(addr); err != nil {
		n.reportSync(err)
	}
}

// StopJoin asks the node's own loop to stop itself, blocks until the worker
// goroutine has terminated, and only then releases the network instance.
// Call it at most once.
func (n *Node) StopJoin() {
	if err := n.loop.Submit(n.loop.Stop); err != nil {
		log.WithField("caller", "node").WithError(err).Debugf("stop of net %d raced loop exit", n.id)
	}
	<-n.done
	if err := n.net.Close(); err != nil {
		log.WithField("caller", "node").WithError(err).Errorf("failed to close network of net %d", n.id)
	}
}

func (n *Node) reportSync(err error) {
	fmt.Fprintf(n.out, "net %d: got error during a sync call: %v\n", n.id, err)
}
