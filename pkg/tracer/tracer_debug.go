//go:build debug
// +build debug

// Package tracer provides frame tracing functionality (debug build).
package tracer

import (
	"net"
	"time"
)

// TraceDirection indicates the direction of a trace event.
type TraceDirection string

const (
	// TraceIn indicates an incoming frame.
	TraceIn TraceDirection = "in"
	// TraceOut indicates an outgoing frame.
	TraceOut TraceDirection = "out"
)

// TraceEvent represents a trace event with timing and frame information.
type TraceEvent struct {
	TS     time.Time      `json:"ts"`
	Dir    TraceDirection `json:"dir"`
	Local  string         `json:"local"`
	Remote string         `json:"remote"`
	Op     byte           `json:"op"`
	Len    int            `json:"len"`
}

// Tracer traces frame events and sends them to a channel.
type Tracer struct {
	ch chan TraceEvent // if nil, emitTrace is a no-op
}

// NewTracer creates a new Tracer with its own event channel.
func NewTracer() *Tracer {
	return &Tracer{
		ch: make(chan TraceEvent, 2000),
	}
}

// NewTracerWithChannel creates a tracer that sends events to the given channel.
// Used to wire each node's tracer to the harness trace channel.
func NewTracerWithChannel(ch chan TraceEvent) *Tracer {
	return &Tracer{ch: ch}
}

func (t *Tracer) emitTrace(dir TraceDirection, local, remote string, op byte, payloadLen int) {
	if t.ch == nil {
		return
	}
	select {
	case t.ch <- TraceEvent{
		TS:     time.Now(),
		Dir:    dir,
		Local:  local,
		Remote: remote,
		Op:     op,
		Len:    payloadLen,
	}:
	default:
	}
}

// Trace records a trace event for the given direction, addresses, and frame.
func (t *Tracer) Trace(dir TraceDirection, local net.Addr, remote net.Addr, op byte, payloadLen int) {
	ls := "unknown"
	rs := "unknown"
	if local != nil {
		ls = local.String()
	}
	if remote != nil {
		rs = remote.String()
	}
	t.emitTrace(dir, ls, rs, op, payloadLen)
}
