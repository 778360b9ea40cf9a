package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/seqlink/limits"
)

// FrameType identifies the kind of a seqlink frame.
type FrameType byte

const (
	// FrameControl carries a connection control mode
	FrameControl FrameType = iota + 1
	// FramePush carries a sequenced payload chunk
	FramePush
	// FrameAck acknowledges one pushed sequence number
	FrameAck
)

// String returns a human-readable frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameControl:
		return "CONTROL"
	case FramePush:
		return "PUSH"
	case FrameAck:
		return "ACK"
	default:
		return fmt.Sprintf("FrameType(%d)", byte(t))
	}
}

// ControlMode is the body of a CONTROL frame.
type ControlMode byte

const (
	ControlConnect ControlMode = iota + 1
	ControlPing
	ControlDisconnect
)

// String returns a human-readable control mode name.
func (m ControlMode) String() string {
	switch m {
	case ControlConnect:
		return "CONNECT"
	case ControlPing:
		return "PING"
	case ControlDisconnect:
		return "DISCONNECT"
	default:
		return fmt.Sprintf("ControlMode(%d)", byte(m))
	}
}

// PushMode distinguishes first sends from retransmissions. It is
// informational only; receivers treat both the same way.
type PushMode byte

const (
	PushSend PushMode = iota + 1
	PushResend
)

// Frame is a decoded seqlink frame.
//
// Wire format (big endian):
//
//	[peer id u64][type u8] then one of
//	CONTROL: [mode u8]
//	PUSH:    [push mode u8][seq u64][checksum u64][len u32][data]
//	ACK:     [seq u64]
type Frame struct {
	PeerID   uint64
	Type     FrameType
	Control  ControlMode
	PushMode PushMode
	Sequence uint64
	Checksum uint64
	Data     []byte
}

// NewControlFrame builds a CONTROL frame.
func NewControlFrame(peerID uint64, mode ControlMode) *Frame {
	return &Frame{PeerID: peerID, Type: FrameControl, Control: mode}
}

// NewPushFrame builds a PUSH frame and computes the payload checksum.
func NewPushFrame(peerID uint64, mode PushMode, seq uint64, data []byte) *Frame {
	return &Frame{
		PeerID:   peerID,
		Type:     FramePush,
		PushMode: mode,
		Sequence: seq,
		Checksum: Checksum(data),
		Data:     data,
	}
}

// NewAckFrame builds an ACK frame.
func NewAckFrame(peerID, seq uint64) *Frame {
	return &Frame{PeerID: peerID, Type: FrameAck, Sequence: seq}
}

// Size returns the encoded length of the frame.
func (f *Frame) Size() int {
	switch f.Type {
	case FrameControl:
		return limits.FrameHeaderSize + limits.ControlBodySize
	case FramePush:
		return limits.FrameHeaderSize + limits.PushHeaderSize + len(f.Data)
	case FrameAck:
		return limits.FrameHeaderSize + limits.AckBodySize
	default:
		return limits.FrameHeaderSize
	}
}

// Serialize converts a frame to a byte slice for transmission.
func (f *Frame) Serialize() ([]byte, error) {
	return f.AppendTo(make([]byte, 0, f.Size()))
}

// AppendTo appends the encoded frame to dst and returns the extended slice.
func (f *Frame) AppendTo(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint64(dst, f.PeerID)
	dst = append(dst, byte(f.Type))

	switch f.Type {
	case FrameControl:
		dst = append(dst, byte(f.Control))
	case FramePush:
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("%w: empty push payload", ErrInvalidLength)
		}
		dst = append(dst, byte(f.PushMode))
		dst = binary.BigEndian.AppendUint64(dst, f.Sequence)
		dst = binary.BigEndian.AppendUint64(dst, f.Checksum)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(f.Data)))
		dst = append(dst, f.Data...)
	case FrameAck:
		dst = binary.BigEndian.AppendUint64(dst, f.Sequence)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, byte(f.Type))
	}

	return dst, nil
}

// ParseFrame decodes a datagram into a Frame. PUSH payloads longer than mtu
// are rejected. The returned frame does not alias data.
func ParseFrame(data []byte, mtu int) (*Frame, error) {
	if len(data) < limits.FrameHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}

	f := &Frame{
		PeerID: binary.BigEndian.Uint64(data[0:8]),
		Type:   FrameType(data[8]),
	}
	body := data[limits.FrameHeaderSize:]

	switch f.Type {
	case FrameControl:
		if len(body) < limits.ControlBodySize {
			return nil, fmt.Errorf("%w: control body", ErrFrameTooShort)
		}
		f.Control = ControlMode(body[0])
	case FramePush:
		if err := f.parsePush(body, mtu); err != nil {
			return nil, err
		}
	case FrameAck:
		if len(body) < limits.AckBodySize {
			return nil, fmt.Errorf("%w: ack body", ErrFrameTooShort)
		}
		f.Sequence = binary.BigEndian.Uint64(body[0:8])
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, byte(f.Type))
	}

	return f, nil
}

func (f *Frame) parsePush(body []byte, mtu int) error {
	if len(body) < limits.PushHeaderSize {
		return fmt.Errorf("%w: push header", ErrFrameTooShort)
	}

	f.PushMode = PushMode(body[0])
	f.Sequence = binary.BigEndian.Uint64(body[1:9])
	f.Checksum = binary.BigEndian.Uint64(body[9:17])
	length := binary.BigEndian.Uint32(body[17:21])

	if length == 0 || uint64(length) > uint64(mtu) {
		return fmt.Errorf("%w: %d (mtu %d)", ErrInvalidLength, length, mtu)
	}

	payload := body[limits.PushHeaderSize:]
	if uint64(len(payload)) < uint64(length) {
		return fmt.Errorf("%w: read %d, expected %d", ErrFrameTooShort, len(payload), length)
	}

	f.Data = make([]byte, length)
	copy(f.Data, payload[:length])
	return nil
}
