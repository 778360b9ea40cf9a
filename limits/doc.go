// Package limits provides centralized size constants and validation functions
// for the seqlink wire protocol.
//
// # Frame Size Hierarchy
//
// Every frame starts with a FrameHeaderSize byte header (peer id and frame
// type). PUSH frames add PushHeaderSize bytes of mode, sequence, checksum and
// length before the payload, so the largest frame for a given MTU is
// MaxFrameSize(mtu):
//
//   - DefaultMTU (1024 bytes): the default payload size per PUSH frame.
//
//   - MaxMTU: the largest MTU for which a PUSH frame still fits into a single
//     IPv4 UDP datagram (MaxUDPPayload).
//
//   - DefaultWindowCapacity (1024 slots): the default number of sequence slots
//     tracked in each direction of a connection.
//
// # Validation Functions
//
//	if err := limits.ValidatePayload(chunk, mtu); err != nil {
//	    // ErrPayloadEmpty or ErrPayloadTooLarge
//	}
//
// ValidateMTU and ValidateCapacity are used when loading configuration so that
// misconfiguration fails fast instead of surfacing as dropped frames.
package limits
