package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"connect", NewControlFrame(42, ControlConnect)},
		{"ping", NewControlFrame(42, ControlPing)},
		{"disconnect", NewControlFrame(42, ControlDisconnect)},
		{"push", NewPushFrame(7, PushSend, 1<<40, []byte("payload"))},
		{"resend", NewPushFrame(7, PushResend, 3, []byte{0x00})},
		{"ack", NewAckFrame(9, 12345)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.frame.Serialize()
			require.NoError(t, err)
			assert.Len(t, data, tt.frame.Size())

			parsed, err := ParseFrame(data, 1024)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, parsed)
		})
	}
}

func TestControlFrameLayout(t *testing.T) {
	data, err := NewControlFrame(1, ControlConnect).Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}, data)
}

func TestPushFrameLayout(t *testing.T) {
	f := &Frame{PeerID: 2, Type: FramePush, PushMode: PushResend, Sequence: 5, Checksum: 0xabcd, Data: []byte{9, 8}}
	data, err := f.Serialize()
	require.NoError(t, err)

	expected := []byte{
		0, 0, 0, 0, 0, 0, 0, 2, // peer id
		2,                      // PUSH
		2,                      // RESEND
		0, 0, 0, 0, 0, 0, 0, 5, // sequence
		0, 0, 0, 0, 0, 0, 0xab, 0xcd, // checksum
		0, 0, 0, 2, // length
		9, 8,
	}
	assert.Equal(t, expected, data)
}

func TestParseFrameErrors(t *testing.T) {
	push, err := NewPushFrame(1, PushSend, 0, []byte("abcd")).Serialize()
	require.NoError(t, err)

	zeroLength := append([]byte(nil), push...)
	copy(zeroLength[26:30], []byte{0, 0, 0, 0})

	tests := []struct {
		name string
		data []byte
		mtu  int
		want error
	}{
		{"empty", nil, 1024, ErrFrameTooShort},
		{"header only", push[:8], 1024, ErrFrameTooShort},
		{"unknown type", []byte{0, 0, 0, 0, 0, 0, 0, 1, 9}, 1024, ErrUnknownFrameType},
		{"control without mode", []byte{0, 0, 0, 0, 0, 0, 0, 1, 1}, 1024, ErrFrameTooShort},
		{"short ack", []byte{0, 0, 0, 0, 0, 0, 0, 1, 3, 0, 0}, 1024, ErrFrameTooShort},
		{"truncated push header", push[:20], 1024, ErrFrameTooShort},
		{"truncated payload", push[:len(push)-1], 1024, ErrFrameTooShort},
		{"zero length", zeroLength, 1024, ErrInvalidLength},
		{"length above mtu", push, 3, ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.data, tt.mtu)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFrameDoesNotAlias(t *testing.T) {
	data, err := NewPushFrame(1, PushSend, 0, []byte("abc")).Serialize()
	require.NoError(t, err)

	f, err := ParseFrame(data, 1024)
	require.NoError(t, err)

	for i := range data {
		data[i] = 0
	}
	assert.True(t, bytes.Equal([]byte("abc"), f.Data))
}

func TestSerializeRejectsInvalidFrames(t *testing.T) {
	_, err := (&Frame{Type: FramePush}).Serialize()
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = (&Frame{Type: FrameType(77)}).Serialize()
	assert.ErrorIs(t, err, ErrUnknownFrameType)
}

func TestFrameStrings(t *testing.T) {
	assert.Equal(t, "PUSH", FramePush.String())
	assert.Equal(t, "FrameType(9)", FrameType(9).String())
	assert.Equal(t, "DISCONNECT", ControlDisconnect.String())
}
