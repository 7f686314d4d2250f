// Package router provides frame routing for a peer network instance.
package router

import (
	"fmt"

	"github.com/peerlab/playground/internal/peernet/wire"
)

// Responder is the writable side of the connection a frame arrived on.
type Responder interface {
	RemoteAddr() string
	WriteFrame(f wire.Frame) error
}

// FrameHandler is a function type that handles incoming frames from peers.
type FrameHandler func(f wire.Frame, from Responder) error

// Router routes incoming frames to their registered handlers based on opcode.
type Router struct {
	handlers map[wire.Op]FrameHandler
}

// NewRouter creates a new Router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[wire.Op]FrameHandler),
	}
}

// OnFrame registers a new FrameHandler for a specific opcode.
// Handlers are registered before the network starts; the table is not safe
// for mutation while frames are being handled.
func (r *Router) OnFrame(op wire.Op, handler FrameHandler) {
	r.handlers[op] = handler
}

// HandleFrame handles a frame from a peer connection.
func (r *Router) HandleFrame(f wire.Frame, from Responder) error {
	if !wire.IsValidOp(f.Op) {
		return fmt.Errorf("invalid opcode 0x%02X", byte(f.Op))
	}
	handler, ok := r.handlers[f.Op]
	if !ok {
		return fmt.Errorf("no handler found for frame type: %s", wire.OpNames[f.Op])
	}
	return handler(f, from)
}

// Routes returns the opcodes that currently have a handler registered.
func (r *Router) Routes() []wire.Op {
	ops := make([]wire.Op, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	return ops
}
