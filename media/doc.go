// Package media frames RTP media over a seqlink byte stream and feeds it into
// a jitter buffer.
//
// It uses the pion/rtp library for standards-compliant RTP packets. Each
// packet is written to the stream behind a 16-bit big-endian length:
//
//	sender:   Packetizer.WriteFrame -> transport.Conn.Write
//	receiver: transport.Conn.Read -> Depacketizer.ReadFrame -> Pipeline -> buffer.Adaptive
//
// The receiving side unwraps RTP sequence numbers into the 64-bit sequence
// space of the buffer package, so the jitter buffer can reorder and schedule
// frames without knowing about RTP.
package media
