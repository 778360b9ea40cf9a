package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/seqlink/buffer"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// ErrStalePacket indicates a packet older than the first one seen.
var ErrStalePacket = errors.New("rtp packet precedes stream start")

// Depacketizer reads length-prefixed RTP packets from a byte stream and
// turns them into buffer frames.
//
// The first SSRC seen is locked in; packets from other sources are skipped.
// 16-bit RTP sequence numbers are unwrapped into a 64-bit sequence that
// starts at zero with the first packet.
type Depacketizer struct {
	r         io.Reader
	clockRate uint32

	ssrc    uint32
	started bool
	lastSeq uint16
	lastExt int64
	lastTS  uint32
	lastDur float64

	header [lengthPrefixSize]byte
}

// NewDepacketizer reads from r; clockRate converts RTP timestamps to seconds.
func NewDepacketizer(r io.Reader, clockRate uint32) (*Depacketizer, error) {
	if clockRate == 0 {
		return nil, ErrInvalidClockRate
	}
	return &Depacketizer{r: r, clockRate: clockRate}, nil
}

// ReadFrame blocks until the next frame of the locked stream arrives. It
// returns io.EOF when the stream ends cleanly between packets.
func (d *Depacketizer) ReadFrame() (*buffer.Frame, error) {
	for {
		packet, err := d.readPacket()
		if err != nil {
			return nil, err
		}

		frame, err := d.toFrame(packet)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Depacketizer.ReadFrame",
				"ssrc":     packet.SSRC,
				"sequence": packet.SequenceNumber,
				"error":    err.Error(),
			}).Warn("Skipping RTP packet")
			continue
		}
		return frame, nil
	}
}

func (d *Depacketizer) readPacket() (*rtp.Packet, error) {
	if _, err := io.ReadFull(d.r, d.header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint16(d.header[:])
	raw := make([]byte, size)
	if _, err := io.ReadFull(d.r, raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read RTP packet body: %w", err)
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	return packet, nil
}

func (d *Depacketizer) toFrame(packet *rtp.Packet) (*buffer.Frame, error) {
	if !d.started {
		d.started = true
		d.ssrc = packet.SSRC
		d.lastSeq = packet.SequenceNumber
		d.lastTS = packet.Timestamp
		d.lastExt = 0
		return buffer.NewFrame(0, packet.Payload, 0), nil
	}

	if packet.SSRC != d.ssrc {
		return nil, fmt.Errorf("unexpected SSRC %d, stream is %d", packet.SSRC, d.ssrc)
	}

	ext := d.lastExt + int64(int16(packet.SequenceNumber-d.lastSeq))
	if ext < 0 {
		return nil, ErrStalePacket
	}

	if ext > d.lastExt {
		steps := ext - d.lastExt
		d.lastDur = float64(packet.Timestamp-d.lastTS) / float64(d.clockRate) / float64(steps)
		d.lastSeq = packet.SequenceNumber
		d.lastTS = packet.Timestamp
		d.lastExt = ext
	}

	return buffer.NewFrame(uint64(ext), packet.Payload, d.lastDur), nil
}

// Close closes the underlying reader when it supports closing.
func (d *Depacketizer) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
