package node

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peerlab/playground/internal/peernet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe to write from the worker goroutine
// while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testTransport() peernet.Transport {
	return peernet.TCPTransport{Timeout: time.Second}
}

func waitOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), want)
	}, 3*time.Second, 10*time.Millisecond, "output never contained %q; got:\n%s", want, out.String())
}

func TestNode_ListenAndStopJoin(t *testing.T) {
	out := &syncBuffer{}
	n := New(1, "127.0.0.1", 41900, peernet.Config{}, testTransport(), nil, out)

	waitOutput(t, out, "net 1: listen to 127.0.0.1:41900")
	assert.Equal(t, ID(1), n.ID())
	assert.Equal(t, "127.0.0.1:41900", n.ListenAddr())

	n.StopJoin()
	assert.Contains(t, out.String(), "net 1: main loop ended")
}

func TestNode_AddPeer_Succeeds(t *testing.T) {
	out := &syncBuffer{}
	n0 := New(0, "127.0.0.1", 41901, peernet.Config{}, testTransport(), nil, out)
	n1 := New(1, "127.0.0.1", 41902, peernet.Config{}, testTransport(), nil, out)
	defer n1.StopJoin()
	defer n0.StopJoin()

	waitOutput(t, out, "net 0: listen to")
	waitOutput(t, out, "net 1: listen to")

	n0.AddPeer(n1.ListenAddr())

	require.Eventually(t, func() bool {
		return n0.net.Connected(n1.ListenAddr())
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "got error during a sync call")
}

func TestNode_AddPeer_ImmediatelyAfterNew(t *testing.T) {
	out := &syncBuffer{}
	n0 := New(0, "127.0.0.1", 41909, peernet.Config{}, testTransport(), nil, out)
	n1 := New(1, "127.0.0.1", 41910, peernet.Config{}, testTransport(), nil, out)
	defer n1.StopJoin()
	defer n0.StopJoin()

	// New returns only after the worker's listen attempt; an immediate peer
	// call must never race the startup.
	n0.AddPeer(n1.ListenAddr())

	require.Eventually(t, func() bool {
		return n0.net.Connected(n1.ListenAddr())
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "network not started")
	assert.NotContains(t, out.String(), "got error during a sync call")
}

func TestNode_AddPeer_DuplicateReported(t *testing.T) {
	out := &syncBuffer{}
	n := New(3, "127.0.0.1", 41903, peernet.Config{ConnTimeout: 10 * time.Second}, testTransport(), nil, out)
	defer n.StopJoin()
	waitOutput(t, out, "net 3: listen to")

	n.AddPeer("127.0.0.1:41999")
	n.AddPeer("127.0.0.1:41999")

	waitOutput(t, out, "net 3: got error during a sync call")
	assert.Contains(t, out.String(), "peer already exists")
}

func TestNode_DelPeer_UnknownReported(t *testing.T) {
	out := &syncBuffer{}
	n := New(4, "127.0.0.1", 41904, peernet.Config{}, testTransport(), nil, out)
	defer n.StopJoin()
	waitOutput(t, out, "net 4: listen to")

	n.DelPeer("127.0.0.1:41999")

	waitOutput(t, out, "net 4: got error during a sync call")
	assert.Contains(t, out.String(), "peer not found")
}

func TestNode_ListenFailure_DoesNotCrash(t *testing.T) {
	out := &syncBuffer{}
	n1 := New(1, "127.0.0.1", 41905, peernet.Config{}, testTransport(), nil, out)
	waitOutput(t, out, "net 1: listen to")

	// Same port: the second node's listen fails inside its worker, the
	// failure is reported, and the node can still be stopped and joined.
	n2 := New(2, "127.0.0.1", 41905, peernet.Config{}, testTransport(), nil, out)
	waitOutput(t, out, "net 2: got error during a sync call")

	n2.StopJoin()
	waitOutput(t, out, "net 2: main loop ended")
	n1.StopJoin()
}

func TestNode_AsyncErrorTaggedWithID(t *testing.T) {
	out := &syncBuffer{}
	// Dialing the discard port fails asynchronously inside the loop.
	n := New(9, "127.0.0.1", 41906, peernet.Config{ConnTimeout: 10 * time.Second}, testTransport(), nil, out)
	defer n.StopJoin()
	waitOutput(t, out, "net 9: listen to")

	n.AddPeer("127.0.0.1:9")

	waitOutput(t, out, "net 9: captured recoverable error during an async call")
}

func TestNode_Independence(t *testing.T) {
	out0 := &syncBuffer{}
	out1 := &syncBuffer{}
	n0 := New(0, "127.0.0.1", 41907, peernet.Config{}, testTransport(), nil, out0)
	n1 := New(1, "127.0.0.1", 41908, peernet.Config{}, testTransport(), nil, out1)
	defer n1.StopJoin()

	waitOutput(t, out0, "listen to")
	waitOutput(t, out1, "listen to")

	// Operations and shutdown of node 0 must not show up on node 1.
	n0.AddPeer("not an address")
	n0.StopJoin()

	assert.NotContains(t, out1.String(), "error")
	assert.NotContains(t, out1.String(), "main loop ended")
	assert.Contains(t, out0.String(), fmt.Sprintf("net %d: main loop ended", 0))
}
