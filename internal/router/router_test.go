package router

import (
	"errors"
	"testing"

	"github.com/peerlab/playground/internal/peernet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResponder records frames written back to the remote side.
type fakeResponder struct {
	remote   string
	written  []wire.Frame
	writeErr error
}

func (f *fakeResponder) RemoteAddr() string { return f.remote }

func (f *fakeResponder) WriteFrame(fr wire.Frame) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, fr)
	return nil
}

func TestHandleFrame_Dispatch(t *testing.T) {
	r := NewRouter()

	var got wire.Frame
	r.OnFrame(wire.OpPing, func(f wire.Frame, from Responder) error {
		got = f
		return from.WriteFrame(wire.Frame{Op: wire.OpPong})
	})

	from := &fakeResponder{remote: "127.0.0.1:9001"}
	err := r.HandleFrame(wire.Frame{Op: wire.OpPing}, from)

	require.NoError(t, err)
	assert.Equal(t, wire.OpPing, got.Op)
	require.Len(t, from.written, 1)
	assert.Equal(t, wire.OpPong, from.written[0].Op)
}

func TestHandleFrame_NoHandler(t *testing.T) {
	r := NewRouter()
	err := r.HandleFrame(wire.Frame{Op: wire.OpHello}, &fakeResponder{})
	assert.ErrorContains(t, err, "no handler found")
}

func TestHandleFrame_InvalidOp(t *testing.T) {
	r := NewRouter()
	err := r.HandleFrame(wire.Frame{Op: wire.Op(0xEE)}, &fakeResponder{})
	assert.ErrorContains(t, err, "invalid opcode")
}

func TestHandleFrame_HandlerError(t *testing.T) {
	r := NewRouter()
	sentinel := errors.New("boom")
	r.OnFrame(wire.OpPong, func(f wire.Frame, from Responder) error { return sentinel })

	err := r.HandleFrame(wire.Frame{Op: wire.OpPong}, &fakeResponder{})
	assert.ErrorIs(t, err, sentinel)
}

func TestRoutes(t *testing.T) {
	r := NewRouter()
	assert.Empty(t, r.Routes())

	r.OnFrame(wire.OpPing, func(f wire.Frame, from Responder) error { return nil })
	r.OnFrame(wire.OpPong, func(f wire.Frame, from Responder) error { return nil })

	assert.ElementsMatch(t, []wire.Op{wire.OpPing, wire.OpPong}, r.Routes())
}
