// Package wire defines the framing used between playground peers.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// Op identifies the kind of a frame.
type Op byte

// Frame opcodes exchanged between peers.
const (
	// OpHello is sent once by the dialing side and carries its advertised
	// listen address as the payload.
	OpHello Op = 0x01
	// OpPing is the periodic keep-alive probe.
	OpPing Op = 0x02
	// OpPong answers a ping.
	OpPong Op = 0x03
)

// MaxPayload bounds frame decode memory use.
const MaxPayload = 1 << 20

// headerLen is opcode (1) + payload length (4, big endian).
const headerLen = 5

var (
	ErrShortFrame      = errors.New("wire: short frame")
	ErrPayloadTooLarge = errors.New("wire: payload too large")
	ErrUnknownOp       = errors.New("wire: unknown opcode")
)

// OpNames maps opcodes to their printable names.
var OpNames = map[Op]string{
	OpHello: "hello",
	OpPing:  "ping",
	OpPong:  "pong",
}

// IsValidOp reports whether op is a known opcode.
func IsValidOp(op Op) bool {
	_, ok := OpNames[op]
	return ok
}

// Frame is one complete wire message.
type Frame struct {
	Op      Op
	Payload []byte
}

// Encode serializes the frame into a fresh byte slice.
func (f Frame) Encode() []byte {
	b := make([]byte, headerLen+len(f.Payload))
	b[0] = byte(f.Op)
	binary.BigEndian.PutUint32(b[1:headerLen], uint32(len(f.Payload)))
	copy(b[headerLen:], f.Payload)
	return b
}

// Write encodes the frame and writes it to w.
func Write(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// Decode parses one frame from a complete datagram. Trailing bytes beyond
// the declared payload length are rejected.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerLen {
		return Frame{}, ErrShortFrame
	}
	op := Op(b[0])
	if !IsValidOp(op) {
		return Frame{}, ErrUnknownOp
	}
	n := binary.BigEndian.Uint32(b[1:headerLen])
	if n > MaxPayload {
		return Frame{}, ErrPayloadTooLarge
	}
	if uint64(len(b)) != uint64(headerLen)+uint64(n) {
		return Frame{}, ErrShortFrame
	}
	payload := make([]byte, n)
	copy(payload, b[headerLen:])
	return Frame{Op: op, Payload: payload}, nil
}

// Read reads exactly one frame from r.
// A clean EOF before the first header byte is returned as io.EOF so read
// loops can tell a closed connection from a truncated frame.
func Read(r io.Reader) (Frame, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortFrame
		}
		return Frame{}, err
	}

	op := Op(hdr[0])
	if !IsValidOp(op) {
		return Frame{}, ErrUnknownOp
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > MaxPayload {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrShortFrame
			}
			return Frame{}, err
		}
	}
	return Frame{Op: op, Payload: payload}, nil
}
