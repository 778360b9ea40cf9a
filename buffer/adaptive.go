package buffer

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultAdaptationRate weights the previous estimate in each EWMA step
	DefaultAdaptationRate = 0.998
	// DefaultVarianceWeight scales the variance added to the playout delay
	DefaultVarianceWeight = 4.0
	// DefaultMaximumDelay caps the playout delay, in seconds
	DefaultMaximumDelay = 1.0
)

var (
	ErrInvalidAdaptationRate = errors.New("adaptation rate must be in (0, 1)")
	ErrInvalidVarianceWeight = errors.New("variance weight cannot be negative")
	ErrInvalidMaximumDelay   = errors.New("maximum delay must be positive")
)

// Estimate is a snapshot of the jitter model.
type Estimate struct {
	Delay    float64
	Variance float64
	Setback  float64
}

// Adaptive is a Delayed buffer that schedules each item's release from an
// exponentially weighted estimate of the interval between items leaving
// the reorder window and of its variance:
//
//	delay    = a*delay + (1-a)*n
//	variance = a*variance + (1-a)*|delay-n|
//	setback  = clamp(delay + b*variance, 0, max)
//
// Each item is released at its own delay plus now plus setback.
type Adaptive[T Item] struct {
	*Delayed[T]

	rate     float64
	weight   float64
	maxDelay float64

	started      bool
	lastTime     float64
	lastDelay    float64
	lastVariance float64
	lastSetback  float64
}

var _ ItemQueue[*Frame] = (*Adaptive[*Frame])(nil)

// NewAdaptive creates an adaptive buffer with the default tuning.
func NewAdaptive[T Item](capacity int, clock Clock) (*Adaptive[T], error) {
	d, err := NewDelayed[T](capacity, clock)
	if err != nil {
		return nil, err
	}

	a := &Adaptive[T]{
		Delayed:  d,
		rate:     DefaultAdaptationRate,
		weight:   DefaultVarianceWeight,
		maxDelay: DefaultMaximumDelay,
	}
	d.desequence = a.schedule
	return a, nil
}

// SetAdaptationRate sets a; values closer to 1 adapt more slowly.
func (a *Adaptive[T]) SetAdaptationRate(rate float64) error {
	if !(rate > 0 && rate < 1) {
		return fmt.Errorf("%w: %v", ErrInvalidAdaptationRate, rate)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rate = rate
	return nil
}

// SetVarianceWeight sets b, how strongly variance inflates the delay.
func (a *Adaptive[T]) SetVarianceWeight(weight float64) error {
	if weight < 0 || math.IsNaN(weight) {
		return fmt.Errorf("%w: %v", ErrInvalidVarianceWeight, weight)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.weight = weight
	return nil
}

// SetMaximumDelay caps the setback, in seconds.
func (a *Adaptive[T]) SetMaximumDelay(maxDelay float64) error {
	if !(maxDelay > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidMaximumDelay, maxDelay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxDelay = maxDelay
	return nil
}

// Current returns the most recent playout delay in seconds.
func (a *Adaptive[T]) Current() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSetback
}

// Estimate returns the current delay, variance and setback.
func (a *Adaptive[T]) Estimate() Estimate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Estimate{Delay: a.lastDelay, Variance: a.lastVariance, Setback: a.lastSetback}
}

// schedule runs with the Delayed mutex held.
func (a *Adaptive[T]) schedule(item T) {
	t := a.clock.Now()
	if !a.started {
		a.started = true
		a.lastTime = t
		a.lastDelay = math.Max(0, item.Delay())
	}

	n := t - a.lastTime
	delay := a.rate*a.lastDelay + (1-a.rate)*n
	variance := a.rate*a.lastVariance + (1-a.rate)*math.Abs(delay-n)
	setback := math.Max(0, math.Min(a.maxDelay, delay+a.weight*variance))

	a.lastSetback = setback
	item.SetDelay(item.Delay() + t + setback)

	a.lastDelay = delay
	a.lastVariance = variance
	a.lastTime = t

	a.enqueue(item)
}
