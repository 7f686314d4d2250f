package peernet

import (
	"context"
	"net"
	"time"

	"github.com/pion/dtls/v3"
)

// Transport abstracts how peer connections are dialed and accepted so the
// playground can run over plain TCP or DTLS without the network caring.
// Datagram tells the framing layer whether each Read returns one complete
// record (DTLS) or a byte stream (TCP).
type Transport interface {
	Dial(addr string) (net.Conn, error)
	Listen(addr string) (net.Listener, error)
	Datagram() bool
}

// TCPTransport dials and listens on plain TCP.
type TCPTransport struct {
	Timeout time.Duration
}

// Dial connects to addr with the configured timeout.
func (t TCPTransport) Dial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, t.Timeout)
}

// Listen binds a TCP listener on addr.
func (t TCPTransport) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func (t TCPTransport) Datagram() bool { return false }

// DTLSTransport dials and listens over DTLS on UDP.
type DTLSTransport struct {
	Config  *dtls.Config
	Timeout time.Duration
}

// Dial connects to addr and completes the DTLS handshake within the
// configured timeout.
func (t DTLSTransport) Dial(addr string) (net.Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := dtls.Dial("udp", raddr, t.Config)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	defer cancel()
	if err := conn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Listen binds a DTLS listener on addr. Accepted connections are handshaken
// before they are handed to the caller.
func (t DTLSTransport) Listen(addr string) (net.Listener, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := dtls.Listen("udp", laddr, t.Config)
	if err != nil {
		return nil, err
	}
	return &dtlsListener{Listener: ln, timeout: t.Timeout}, nil
}

func (t DTLSTransport) Datagram() bool { return true }

type dtlsListener struct {
	net.Listener
	timeout time.Duration
}

// Accept waits for the next connection that completes its handshake.
// A failed handshake drops that connection and keeps accepting.
func (l *dtlsListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		dtlsConn, ok := conn.(*dtls.Conn)
		if !ok {
			conn.Close()
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err = dtlsConn.HandshakeContext(ctx)
		cancel()
		if err != nil {
			conn.Close()
			continue
		}
		return conn, nil
	}
}
