package chatpb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// WebSocket binary frames carry a 4-byte big-endian length prefix followed by
// a JSON-encoded Msg. The prefix lets clients on stream-oriented bridges
// re-frame without touching the payload.

const frameHeaderLen = 4

// MaxFramePayload bounds a single decoded message body.
const MaxFramePayload = 4 << 20

var (
	ErrFrameTooShort = errors.New("chatpb: frame shorter than header")
	ErrFrameTooLarge = errors.New("chatpb: frame payload exceeds limit")
	ErrFrameLength   = errors.New("chatpb: frame length prefix mismatch")
)

// EncodeFrame serialises m into a length-prefixed binary frame.
func EncodeFrame(m *Msg) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("chatpb: encode frame: %w", err)
	}
	buf := make([]byte, frameHeaderLen+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[frameHeaderLen:], body)
	return buf, nil
}

// DecodeFrame parses a length-prefixed binary frame into a Msg.
func DecodeFrame(data []byte) (*Msg, error) {
	if len(data) < frameHeaderLen {
		return nil, ErrFrameTooShort
	}
	n := binary.BigEndian.Uint32(data)
	if n > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}
	if int(n) != len(data)-frameHeaderLen {
		return nil, ErrFrameLength
	}
	m := new(Msg)
	if err := json.Unmarshal(data[frameHeaderLen:], m); err != nil {
		return nil, fmt.Errorf("chatpb: decode frame: %w", err)
	}
	return m, nil
}
