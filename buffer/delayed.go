package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/opd-ai/seqlink/sequence"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidCapacity indicates a non-positive buffer capacity
	ErrInvalidCapacity = errors.New("buffer capacity must be positive")

	// ErrCapacityExceeded indicates a Put on a full buffer
	ErrCapacityExceeded = errors.New("buffer capacity exceeded")

	// ErrClosed indicates a Put after Close
	ErrClosed = errors.New("buffer closed")
)

// Delayed holds items until their release time has passed, restoring
// sequence order first.
//
// Put routes an item whose release time lies in the future straight into
// the back-buffer. Everything else passes through a sequence window (or
// skips it when unsequenced) and is handed to the desequence hook once it
// is in order. Reads move due items from the front of the back-buffer into
// the output queue, stopping at the first item that is not yet due: the
// back-buffer is kept in arrival order, so an early item can wait behind a
// later one.
type Delayed[T Item] struct {
	mu       sync.Mutex
	capacity int
	clock    Clock
	offset   float64
	closed   bool

	window *sequence.Window[T]
	back   deque.Deque[T]
	out    deque.Deque[T]

	// desequence receives items as they leave the window, with mu held
	desequence func(T)
}

var _ ItemQueue[*Frame] = (*Delayed[*Frame])(nil)

// NewDelayed creates a buffer holding at most capacity items. clock may be
// nil for a nanosecond monotonic clock.
func NewDelayed[T Item](capacity int, clock Clock) (*Delayed[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if clock == nil {
		clock = NewClock(Nanosecond)
	}

	window, err := sequence.New[T](capacity)
	if err != nil {
		return nil, fmt.Errorf("create reorder window: %w", err)
	}

	d := &Delayed[T]{
		capacity: capacity,
		clock:    clock,
		window:   window,
	}
	d.desequence = d.enqueue
	return d, nil
}

func (d *Delayed[T]) enqueue(item T) {
	d.back.PushBack(item)
}

// Put adds an item. A sequenced item below the reorder window (a late
// arrival) or too far ahead of it is rejected with sequence.ErrOutOfWindow.
func (d *Delayed[T]) Put(item T) error {
	if sequence.IsNil(item) {
		return sequence.ErrNullItem
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.sizeLocked() >= d.capacity {
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, d.capacity)
	}

	now := d.clock.Now() + d.offset
	if delay := item.Delay(); delay > 0 && delay > now {
		d.back.PushBack(item)
		return nil
	}

	if !item.Sequenced() {
		d.desequence(item)
		return nil
	}

	if err := d.window.Put(item.Sequence(), item); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Delayed.Put",
			"sequence": item.Sequence(),
			"offset":   d.window.Offset(),
		}).Debug("Rejecting item outside reorder window")
		return fmt.Errorf("sequence %d: %w", item.Sequence(), err)
	}
	d.window.DrainReady(d.desequence)
	return nil
}

// consumeLocked drains the reorder window and releases every due item at
// the front of the back-buffer.
func (d *Delayed[T]) consumeLocked() {
	d.window.DrainReady(d.desequence)

	now := d.clock.Now() + d.offset
	for d.back.Len() > 0 {
		if d.back.Front().Delay() > now {
			break
		}
		d.out.PushBack(d.back.PopFront())
	}
}

// Has reports whether an item can be read now.
func (d *Delayed[T]) Has() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.consumeLocked()
	return d.out.Len() > 0
}

// Get returns the next releasable item, if any.
func (d *Delayed[T]) Get() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if d.closed {
		return zero, false
	}
	d.consumeLocked()
	if d.out.Len() == 0 {
		return zero, false
	}
	return d.out.PopFront(), true
}

// GetAll returns every releasable item in release order.
func (d *Delayed[T]) GetAll() []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.consumeLocked()

	items := make([]T, 0, d.out.Len())
	for d.out.Len() > 0 {
		items = append(items, d.out.PopFront())
	}
	return items
}

// IsDelayed reports whether items are waiting for their release time.
func (d *Delayed[T]) IsDelayed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.consumeLocked()
	return d.back.Len() > 0
}

// Size returns the number of items held: released, waiting for release
// and waiting for reordering.
func (d *Delayed[T]) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sizeLocked()
}

func (d *Delayed[T]) sizeLocked() int {
	return d.out.Len() + d.back.Len() + d.window.Len()
}

// Capacity returns the maximum number of items.
func (d *Delayed[T]) Capacity() int {
	return d.capacity
}

// NextSequence returns the sequence number the reorder window expects next.
func (d *Delayed[T]) NextSequence() uint64 {
	return d.window.Offset()
}

// Offset returns the clock skew, in seconds, added when checking release times.
func (d *Delayed[T]) Offset() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// SetOffset sets the clock skew, in seconds.
func (d *Delayed[T]) SetOffset(offset float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset = offset
}

// Close discards held items. Later Puts fail with ErrClosed and reads
// return nothing.
func (d *Delayed[T]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.back.Clear()
	d.out.Clear()
	return nil
}
