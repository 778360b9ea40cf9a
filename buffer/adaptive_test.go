package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveConvergesToConstantInterval(t *testing.T) {
	clock := &manualClock{}
	a, err := NewAdaptive[*Frame](4096, clock)
	require.NoError(t, err)
	require.NoError(t, a.SetAdaptationRate(0.9))

	const interval = 0.02
	for i := 0; i < 300; i++ {
		clock.Advance(interval)
		require.NoError(t, a.Put(NewFrame(uint64(i), nil, interval)))
	}

	est := a.Estimate()
	assert.InDelta(t, interval, est.Delay, 1e-6)
	assert.InDelta(t, 0, est.Variance, 1e-6)
	assert.InDelta(t, interval, a.Current(), 1e-5)
	assert.Equal(t, est.Setback, a.Current())
}

func TestAdaptiveDefaultRateMovesSlowly(t *testing.T) {
	clock := &manualClock{}
	a, err := NewAdaptive[*Frame](64, clock)
	require.NoError(t, err)

	prev := 0.0
	for i := 0; i < 20; i++ {
		clock.Advance(0.02)
		require.NoError(t, a.Put(NewFrame(uint64(i), nil, 0.02)))
		est := a.Estimate()
		if i > 0 {
			assert.Greater(t, est.Delay, prev)
		}
		prev = est.Delay
	}
	assert.Less(t, prev, 0.02)
}

func TestAdaptiveSchedulesRelease(t *testing.T) {
	clock := &manualClock{now: 10}
	a, err := NewAdaptive[*Frame](8, clock)
	require.NoError(t, err)

	require.NoError(t, a.Put(NewFrame(0, []byte("a"), 0.02)))
	first, ok := a.Get()
	require.True(t, ok)
	assert.Equal(t, 10.0, first.Delay())
	assert.Zero(t, a.Current())

	clock.Advance(0.5)
	require.NoError(t, a.Put(NewFrame(1, []byte("b"), 0.02)))

	// n = 0.5, delay = 0.002*0.5, variance = 0.002*|delay-n|
	delay := 0.002 * 0.5
	variance := 0.002 * (0.5 - delay)
	setback := delay + 4*variance
	assert.InDelta(t, setback, a.Current(), 1e-12)

	_, ok = a.Get()
	assert.False(t, ok)

	clock.Advance(0.01)
	second, ok := a.Get()
	require.True(t, ok)
	assert.InDelta(t, 10.5+setback, second.Delay(), 1e-9)
}

func TestAdaptiveTreatsItemDelayAsBaseline(t *testing.T) {
	clock := &manualClock{now: 10}
	a, err := NewAdaptive[*Frame](8, clock)
	require.NoError(t, err)

	item := NewFrame(0, nil, 0)
	item.SetDelay(0.25)
	require.NoError(t, a.Put(item))

	delay := 0.998 * 0.25
	setback := delay + 4*(0.002*delay)
	assert.InDelta(t, 0.25+10+setback, item.Delay(), 1e-9)
}

func TestAdaptiveClampsToMaximumDelay(t *testing.T) {
	clock := &manualClock{}
	a, err := NewAdaptive[*Frame](8, clock)
	require.NoError(t, err)
	require.NoError(t, a.SetAdaptationRate(0.5))
	require.NoError(t, a.SetMaximumDelay(0.05))

	require.NoError(t, a.Put(NewFrame(0, nil, 0)))
	clock.Advance(1)
	require.NoError(t, a.Put(NewFrame(1, nil, 0)))

	assert.Equal(t, 0.05, a.Current())
}

func TestAdaptiveSetterValidation(t *testing.T) {
	a, err := NewAdaptive[*Frame](8, nil)
	require.NoError(t, err)

	for _, rate := range []float64{0, 1, -0.5, 2} {
		assert.ErrorIs(t, a.SetAdaptationRate(rate), ErrInvalidAdaptationRate)
	}
	assert.ErrorIs(t, a.SetVarianceWeight(-1), ErrInvalidVarianceWeight)
	assert.NoError(t, a.SetVarianceWeight(0))
	assert.ErrorIs(t, a.SetMaximumDelay(0), ErrInvalidMaximumDelay)
	assert.ErrorIs(t, a.SetMaximumDelay(-1), ErrInvalidMaximumDelay)
}

func TestNewAdaptiveWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeOffset = 0.5
	cfg.MaximumDelay = 0.2

	a, err := NewAdaptiveWithConfig[*Frame](cfg, &manualClock{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.Offset())
	assert.Equal(t, DefaultCapacity, a.Capacity())

	cfg.AdaptationRate = 1
	cfg.Capacity = 0
	_, err = NewAdaptiveWithConfig[*Frame](cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidAdaptationRate)
}
