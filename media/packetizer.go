package media

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyPayload indicates an attempt to packetize no data
	ErrEmptyPayload = errors.New("payload cannot be empty")

	// ErrInvalidClockRate indicates a zero media clock rate
	ErrInvalidClockRate = errors.New("clock rate cannot be zero")

	// ErrPacketTooLarge indicates a marshalled packet above the 16-bit length prefix
	ErrPacketTooLarge = errors.New("rtp packet too large for length prefix")
)

// lengthPrefixSize is the size of the big-endian length that precedes each
// RTP packet on the stream.
const lengthPrefixSize = 2

// Packetizer wraps media payloads in RTP packets and writes them to a byte
// stream, each preceded by its 16-bit length.
type Packetizer struct {
	mu             sync.Mutex
	w              io.Writer
	ssrc           uint32
	sequenceNumber uint16
	timestamp      uint32
	clockRate      uint32
	payloadType    uint8
}

// NewPacketizer creates a packetizer writing to w with a random SSRC.
func NewPacketizer(w io.Writer, clockRate uint32, payloadType uint8) (*Packetizer, error) {
	if clockRate == 0 {
		return nil, ErrInvalidClockRate
	}

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("failed to generate SSRC: %w", err)
	}
	ssrc := binary.BigEndian.Uint32(b[:])

	logrus.WithFields(logrus.Fields{
		"function":     "NewPacketizer",
		"ssrc":         ssrc,
		"clock_rate":   clockRate,
		"payload_type": payloadType,
	}).Info("Creating RTP packetizer")

	return &Packetizer{
		w:           w,
		ssrc:        ssrc,
		clockRate:   clockRate,
		payloadType: payloadType,
	}, nil
}

// SSRC returns the synchronisation source of the stream.
func (p *Packetizer) SSRC() uint32 {
	return p.ssrc
}

// WriteFrame sends one payload covering samples media clock ticks. The
// length prefix and packet go out in a single Write so that concurrent
// writers on a transport.Conn cannot interleave them.
func (p *Packetizer) WriteFrame(payload []byte, samples uint32) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    p.payloadType,
			SequenceNumber: p.sequenceNumber,
			Timestamp:      p.timestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}

	raw, err := packet.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal RTP packet: %w", err)
	}
	if len(raw) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(raw))
	}

	out := make([]byte, lengthPrefixSize+len(raw))
	binary.BigEndian.PutUint16(out, uint16(len(raw)))
	copy(out[lengthPrefixSize:], raw)

	if _, err := p.w.Write(out); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Packetizer.WriteFrame",
			"sequence": p.sequenceNumber,
			"error":    err.Error(),
		}).Error("Failed to write RTP packet")
		return fmt.Errorf("failed to write RTP packet: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Packetizer.WriteFrame",
		"sequence": p.sequenceNumber,
		"size":     len(raw),
	}).Debug("RTP packet written")

	p.sequenceNumber++
	p.timestamp += samples
	return nil
}
