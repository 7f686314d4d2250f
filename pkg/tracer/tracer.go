//go:build !debug
// +build !debug

// Package tracer provides frame tracing functionality (release build, no-op).
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

// TraceEvent represents a trace event. In release builds it has the same shape as in debug.
type TraceEvent struct {
	TS     time.Time
	Dir    TraceDirection
	Local  string
	Remote string
	Op     byte
	Len    int
}

// Tracer is a no-op tracer in release builds.
type Tracer struct{}

// NewTracer creates a new no-op tracer.
func NewTracer() *Tracer { return &Tracer{} }

// NewTracerWithChannel returns a no-op tracer in release builds.
func NewTracerWithChannel(ch chan TraceEvent) *Tracer { return &Tracer{} }

// Trace is a no-op in release builds.
func (t *Tracer) Trace(dir TraceDirection, local net.Addr, remote net.Addr, op byte, payloadLen int) {
}
