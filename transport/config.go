package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/seqlink/limits"
)

const (
	// DefaultMaintenanceWindow is the idle time after which Update
	// retransmits or pings.
	DefaultMaintenanceWindow = 1000 * time.Millisecond

	// DefaultCloseTimeout bounds how long Close waits for outstanding
	// data to be acknowledged.
	DefaultCloseTimeout = 5 * time.Second

	// DefaultReceiveBufferSize is the number of delivered bytes a Conn
	// holds for Read before the receive loop stops taking new data.
	DefaultReceiveBufferSize = 1 << 20

	// DefaultDropLogRate is how many dropped-frame warnings per second a
	// Conn logs before falling back to debug level.
	DefaultDropLogRate = 1.0
)

// Config holds the tunables of a Conn.
type Config struct {
	WindowCapacity    int
	MTU               int
	MaintenanceWindow time.Duration
	CloseTimeout      time.Duration
	ReceiveBufferSize int
	DropLogRate       float64
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		WindowCapacity:    limits.DefaultWindowCapacity,
		MTU:               limits.DefaultMTU,
		MaintenanceWindow: DefaultMaintenanceWindow,
		CloseTimeout:      DefaultCloseTimeout,
		ReceiveBufferSize: DefaultReceiveBufferSize,
		DropLogRate:       DefaultDropLogRate,
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	if err := limits.ValidateCapacity(c.WindowCapacity); err != nil {
		errs = append(errs, fmt.Errorf("window capacity: %w", err))
	}
	if err := limits.ValidateMTU(c.MTU); err != nil {
		errs = append(errs, fmt.Errorf("mtu: %w", err))
	}
	if c.MaintenanceWindow <= 0 {
		errs = append(errs, fmt.Errorf("maintenance window must be positive, got %v", c.MaintenanceWindow))
	}
	if c.CloseTimeout < 0 {
		errs = append(errs, fmt.Errorf("close timeout cannot be negative, got %v", c.CloseTimeout))
	}
	if c.ReceiveBufferSize < c.MTU {
		errs = append(errs, fmt.Errorf("receive buffer size %d is smaller than mtu %d", c.ReceiveBufferSize, c.MTU))
	}
	if c.DropLogRate < 0 {
		errs = append(errs, fmt.Errorf("drop log rate cannot be negative, got %v", c.DropLogRate))
	}

	return errors.Join(errs...)
}
