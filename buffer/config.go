package buffer

import (
	"errors"
	"fmt"

	"github.com/opd-ai/seqlink/limits"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the default number of items a jitter buffer holds.
const DefaultCapacity = 1024

// Config holds the tunables of an Adaptive buffer.
type Config struct {
	Capacity       int
	Resolution     Resolution
	AdaptationRate float64
	VarianceWeight float64
	MaximumDelay   float64
	TimeOffset     float64
}

// DefaultConfig returns the default jitter buffer configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:       DefaultCapacity,
		Resolution:     Nanosecond,
		AdaptationRate: DefaultAdaptationRate,
		VarianceWeight: DefaultVarianceWeight,
		MaximumDelay:   DefaultMaximumDelay,
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	if err := limits.ValidateCapacity(c.Capacity); err != nil {
		errs = append(errs, fmt.Errorf("capacity: %w", err))
	}
	if c.Resolution != Millisecond && c.Resolution != Nanosecond {
		errs = append(errs, fmt.Errorf("unknown resolution %v", c.Resolution))
	}
	if !(c.AdaptationRate > 0 && c.AdaptationRate < 1) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidAdaptationRate, c.AdaptationRate))
	}
	if c.VarianceWeight < 0 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidVarianceWeight, c.VarianceWeight))
	}
	if !(c.MaximumDelay > 0) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidMaximumDelay, c.MaximumDelay))
	}

	return errors.Join(errs...)
}

// NewAdaptiveWithConfig builds an Adaptive buffer from cfg. clock may be
// nil to use a clock of cfg.Resolution.
func NewAdaptiveWithConfig[T Item](cfg Config, clock Clock) (*Adaptive[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer config: %w", err)
	}
	if clock == nil {
		clock = NewClock(cfg.Resolution)
	}

	a, err := NewAdaptive[T](cfg.Capacity, clock)
	if err != nil {
		return nil, err
	}
	// Validated above, so the setters cannot fail
	_ = a.SetAdaptationRate(cfg.AdaptationRate)
	_ = a.SetVarianceWeight(cfg.VarianceWeight)
	_ = a.SetMaximumDelay(cfg.MaximumDelay)
	a.SetOffset(cfg.TimeOffset)

	logrus.WithFields(logrus.Fields{
		"function":        "NewAdaptiveWithConfig",
		"capacity":        cfg.Capacity,
		"resolution":      cfg.Resolution.String(),
		"adaptation_rate": cfg.AdaptationRate,
		"maximum_delay":   cfg.MaximumDelay,
	}).Info("Created adaptive jitter buffer")

	return a, nil
}
