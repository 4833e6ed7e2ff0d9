// Package wire implements the length-prefixed TLV framing used by the
// handshake: a 4-byte message header followed by a payload built from
// tag-length-value fields.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ProtocolVersion is the only version byte this codec accepts.
const ProtocolVersion uint8 = 1

// Message type tags.
const (
	MsgTypeA uint8 = 0x01
	MsgTypeB uint8 = 0x02
	MsgTypeC uint8 = 0x03
)

// HeaderSize is the fixed framing header: msgType(1) || version(1) ||
// payload_len(2BE).
const HeaderSize = 4

// MaxWireSize bounds a single handshake message per spec.md §4.4.
const MaxWireSize = 64 * 1024

var (
	ErrMalformedMessage  = errors.New("malformed message")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrMessageTooLarge   = errors.New("message too large")
)

// Header is the decoded framing prefix of a handshake message.
type Header struct {
	MsgType    uint8
	Version    uint8
	PayloadLen uint16
}

// EncodeFrame wraps payload in the fixed header.
func EncodeFrame(msgType uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxWireSize-HeaderSize {
		return nil, fmt.Errorf("%w: payload %d bytes", ErrMessageTooLarge, len(payload))
	}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, msgType, ProtocolVersion)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	return buf, nil
}

// DecodeFrame splits data into its header and payload, validating version
// and declared length against the bytes actually present.
func DecodeFrame(data []byte) (Header, []byte, error) {
	if len(data) > MaxWireSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	if len(data) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: frame shorter than header", ErrMalformedMessage)
	}

	h := Header{
		MsgType:    data[0],
		Version:    data[1],
		PayloadLen: binary.BigEndian.Uint16(data[2:4]),
	}
	if h.Version != ProtocolVersion {
		return h, nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, h.Version, ProtocolVersion)
	}

	payload := data[HeaderSize:]
	if len(payload) != int(h.PayloadLen) {
		return h, nil, fmt.Errorf("%w: payload_len=%d, got %d bytes", ErrMalformedMessage, h.PayloadLen, len(payload))
	}
	return h, payload, nil
}

// fieldWriter accumulates tag-length-value fields in a fixed order.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) field(tag uint8, value []byte) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(value)))
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, value...)
}

// fieldReader parses tag-length-value fields off the front of a payload.
type fieldReader struct {
	buf []byte
}

// next consumes the next field and checks its tag matches wantTag.
func (r *fieldReader) next(wantTag uint8) ([]byte, error) {
	if len(r.buf) < 3 {
		return nil, fmt.Errorf("%w: truncated field header", ErrMalformedMessage)
	}
	tag := r.buf[0]
	if tag != wantTag {
		return nil, fmt.Errorf("%w: expected field tag 0x%02x, got 0x%02x", ErrMalformedMessage, wantTag, tag)
	}
	n := int(binary.BigEndian.Uint16(r.buf[1:3]))
	r.buf = r.buf[3:]
	if len(r.buf) < n {
		return nil, fmt.Errorf("%w: field tag 0x%02x declares %d bytes, %d remain", ErrMalformedMessage, tag, n, len(r.buf))
	}
	value := r.buf[:n]
	r.buf = r.buf[n:]
	return value, nil
}

func (r *fieldReader) done() error {
	if len(r.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes after last field", ErrMalformedMessage, len(r.buf))
	}
	return nil
}
