package peernet

import (
	"io"
	"net"
	"sync"
	"time"
)

// mockConn is a mock implementation of net.Conn for testing
type mockConn struct {
	mu         sync.Mutex
	readData   []byte
	readErr    error
	writeData  []byte
	writeErr   error
	localAddr  net.Addr
	remoteAddr net.Addr
	closed     bool
}

// newMockConn creates a new mock connection
func newMockConn(localAddr, remoteAddr net.Addr) *mockConn {
	return &mockConn{
		localAddr:  localAddr,
		remoteAddr: remoteAddr,
	}
}

// setReadData queues bytes for subsequent Read calls.
func (m *mockConn) setReadData(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readData = append(m.readData, b...)
}

// written returns everything written so far.
func (m *mockConn) written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.writeData))
	copy(out, m.writeData)
	return out
}

// Read implements net.Conn
func (m *mockConn) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.EOF
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.readData) == 0 {
		return 0, io.EOF
	}
	n := copy(b, m.readData)
	m.readData = m.readData[n:]
	return n, nil
}

// Write implements net.Conn
func (m *mockConn) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writeData = append(m.writeData, b...)
	return len(b), nil
}

// Close implements net.Conn
func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// LocalAddr implements net.Conn
func (m *mockConn) LocalAddr() net.Addr { return m.localAddr }

// RemoteAddr implements net.Conn
func (m *mockConn) RemoteAddr() net.Addr { return m.remoteAddr }

// SetDeadline implements net.Conn
func (m *mockConn) SetDeadline(t time.Time) error { return nil }

// SetReadDeadline implements net.Conn
func (m *mockConn) SetReadDeadline(t time.Time) error { return nil }

// SetWriteDeadline implements net.Conn
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }
