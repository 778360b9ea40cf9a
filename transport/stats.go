package transport

import "sync/atomic"

// Stats is a snapshot of a Conn's frame counters.
type Stats struct {
	FramesSent       uint64
	FramesReceived   uint64
	PushesSent       uint64
	Retransmissions  uint64
	PingsSent        uint64
	AcksSent         uint64
	AcksReceived     uint64
	ChecksumFailures uint64
	DuplicatePushes  uint64
	DuplicateAcks    uint64
	FramingErrors    uint64
	PeerMismatches   uint64
	OutOfWindow      uint64
	Overruns         uint64
	BytesDelivered   uint64
}

// Dropped returns the number of received frames discarded for any reason.
func (s Stats) Dropped() uint64 {
	return s.ChecksumFailures + s.FramingErrors + s.PeerMismatches + s.OutOfWindow + s.Overruns
}

type counters struct {
	framesSent       atomic.Uint64
	framesReceived   atomic.Uint64
	pushesSent       atomic.Uint64
	retransmissions  atomic.Uint64
	pingsSent        atomic.Uint64
	acksSent         atomic.Uint64
	acksReceived     atomic.Uint64
	checksumFailures atomic.Uint64
	duplicatePushes  atomic.Uint64
	duplicateAcks    atomic.Uint64
	framingErrors    atomic.Uint64
	peerMismatches   atomic.Uint64
	outOfWindow      atomic.Uint64
	overruns         atomic.Uint64
	bytesDelivered   atomic.Uint64
}

// Stats returns the current counters.
func (c *Conn) Stats() Stats {
	s := &c.stats
	return Stats{
		FramesSent:       s.framesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
		PushesSent:       s.pushesSent.Load(),
		Retransmissions:  s.retransmissions.Load(),
		PingsSent:        s.pingsSent.Load(),
		AcksSent:         s.acksSent.Load(),
		AcksReceived:     s.acksReceived.Load(),
		ChecksumFailures: s.checksumFailures.Load(),
		DuplicatePushes:  s.duplicatePushes.Load(),
		DuplicateAcks:    s.duplicateAcks.Load(),
		FramingErrors:    s.framingErrors.Load(),
		PeerMismatches:   s.peerMismatches.Load(),
		OutOfWindow:      s.outOfWindow.Load(),
		Overruns:         s.overruns.Load(),
		BytesDelivered:   s.bytesDelivered.Load(),
	}
}
