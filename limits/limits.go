// Package limits provides centralized size limits for the seqlink wire protocol.
// This ensures consistent validation across the transport, its frame codec and
// the configuration layer.
package limits

import (
	"errors"
	"fmt"
)

const (
	// FrameHeaderSize is the common frame header: peer id (8 bytes) + frame type (1 byte)
	FrameHeaderSize = 8 + 1

	// PushHeaderSize is the PUSH body header: mode (1) + sequence (8) + checksum (8) + length (4)
	PushHeaderSize = 1 + 8 + 8 + 4

	// ControlBodySize is the CONTROL body: a single mode byte
	ControlBodySize = 1

	// AckBodySize is the ACK body: the acknowledged sequence number
	AckBodySize = 8

	// DefaultMTU is the default maximum payload carried by one PUSH frame
	DefaultMTU = 1024

	// MaxUDPPayload is the largest payload a single UDP datagram can carry over IPv4
	MaxUDPPayload = 65507

	// MaxMTU is the largest MTU that still fits a PUSH frame into one UDP datagram
	MaxMTU = MaxUDPPayload - FrameHeaderSize - PushHeaderSize

	// DefaultWindowCapacity is the default number of in-flight sequence slots per direction
	DefaultWindowCapacity = 1024

	// MaxWindowCapacity bounds window allocations to keep per-connection memory predictable
	MaxWindowCapacity = 1 << 20
)

var (
	// ErrPayloadEmpty indicates an empty payload was provided
	ErrPayloadEmpty = errors.New("empty payload")

	// ErrPayloadTooLarge indicates a payload exceeds the maximum transfer unit
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidMTU indicates an MTU outside 1..MaxMTU
	ErrInvalidMTU = errors.New("invalid MTU")

	// ErrInvalidCapacity indicates a capacity outside 1..MaxWindowCapacity
	ErrInvalidCapacity = errors.New("invalid capacity")
)

// MaxFrameSize returns the size of the largest frame produced for the given MTU.
func MaxFrameSize(mtu int) int {
	return FrameHeaderSize + PushHeaderSize + mtu
}

// ValidatePayload validates a PUSH payload against the given MTU.
// Returns an error with context including the actual and maximum sizes.
func ValidatePayload(data []byte, mtu int) error {
	if len(data) == 0 {
		return ErrPayloadEmpty
	}
	if len(data) > mtu {
		return fmt.Errorf("%w: size %d exceeds MTU %d", ErrPayloadTooLarge, len(data), mtu)
	}
	return nil
}

// ValidateMTU checks that an MTU fits into a single datagram.
func ValidateMTU(mtu int) error {
	if mtu <= 0 || mtu > MaxMTU {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidMTU, mtu, MaxMTU)
	}
	return nil
}

// ValidateCapacity checks a window or buffer capacity.
func ValidateCapacity(capacity int) error {
	if capacity <= 0 || capacity > MaxWindowCapacity {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidCapacity, capacity, MaxWindowCapacity)
	}
	return nil
}
