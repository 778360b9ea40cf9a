package sequence

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrOutOfWindow indicates a sequence number or shift outside the window
	ErrOutOfWindow = errors.New("sequence out of window")

	// ErrWindowFull indicates every trailing slot has already been claimed
	ErrWindowFull = errors.New("window full")

	// ErrNullItem indicates an attempt to store a nil item
	ErrNullItem = errors.New("nil item")

	// ErrInvalidCapacity indicates a non-positive window capacity
	ErrInvalidCapacity = errors.New("invalid window capacity")
)

// Window is a fixed-capacity, offset-indexed slot array.
//
// Slots are kept in a ring so that advancing the window costs O(k) rather
// than shifting the whole array.
type Window[T any] struct {
	mu       sync.RWMutex
	slots    []T
	filled   []bool
	head     int    // ring index of slot 0
	offset   uint64 // sequence number of slot 0
	caret    int    // trailing look-ahead claimed by PutNext
	capacity int
}

// New creates a window with the given capacity.
func New[T any](capacity int) (*Window[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Window[T]{
		slots:    make([]T, capacity),
		filled:   make([]bool, capacity),
		capacity: capacity,
	}, nil
}

// index converts a sequence number to a ring index. The caller must hold
// the lock and have checked the bounds.
func (w *Window[T]) index(seq uint64) int {
	return (w.head + int(seq-w.offset)) % w.capacity
}

func (w *Window[T]) outOfWindow(seq uint64) error {
	return fmt.Errorf("%w: sequence %d (offset %d, capacity %d)", ErrOutOfWindow, seq, w.offset, w.capacity)
}

// Put stores item at sequence seq, replacing any existing item.
func (w *Window[T]) Put(seq uint64, item T) error {
	if IsNil(item) {
		return ErrNullItem
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.putLocked(seq, item)
}

func (w *Window[T]) putLocked(seq uint64, item T) error {
	if seq < w.offset || seq-w.offset >= uint64(w.capacity) {
		return w.outOfWindow(seq)
	}

	i := w.index(seq)
	w.slots[i] = item
	w.filled[i] = true
	return nil
}

// PutNext appends item at the first unclaimed trailing slot and returns
// the sequence number it was assigned.
func (w *Window[T]) PutNext(item T) (uint64, error) {
	if IsNil(item) {
		return 0, ErrNullItem
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.caret >= w.capacity {
		return 0, fmt.Errorf("%w: capacity %d", ErrWindowFull, w.capacity)
	}

	seq := w.offset + uint64(w.caret)
	if err := w.putLocked(seq, item); err != nil {
		return 0, err
	}
	w.caret++
	return seq, nil
}

// Ready reports whether slot 0 is occupied.
func (w *Window[T]) Ready() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filled[w.head]
}

// Current returns the item in slot 0 without removing it.
func (w *Window[T]) Current() (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.slots[w.head], w.filled[w.head]
}

// Next removes and returns the item in slot 0 and advances the window by
// one. It returns false and leaves the window untouched when slot 0 is
// empty.
func (w *Window[T]) Next() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextLocked()
}

func (w *Window[T]) nextLocked() (T, bool) {
	var zero T
	if !w.filled[w.head] {
		return zero, false
	}
	item := w.slots[w.head]
	w.shiftLocked(1)
	return item, true
}

// DrainReady removes every contiguous item starting at slot 0 and passes
// each one to fn in sequence order. It returns the number of items
// drained. fn runs with the window locked and must not call back into it.
func (w *Window[T]) DrainReady(fn func(T)) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for {
		item, ok := w.nextLocked()
		if !ok {
			return n
		}
		fn(item)
		n++
	}
}

// Get returns the item stored at seq. Sequence numbers below the window
// are reported as absent; sequence numbers past its end are an error.
func (w *Window[T]) Get(seq uint64) (T, bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var zero T
	if seq < w.offset {
		return zero, false, nil
	}
	if seq-w.offset >= uint64(w.capacity) {
		return zero, false, w.outOfWindow(seq)
	}

	i := w.index(seq)
	return w.slots[i], w.filled[i], nil
}

// Has reports whether an item is stored at seq.
func (w *Window[T]) Has(seq uint64) (bool, error) {
	_, ok, err := w.Get(seq)
	return ok, err
}

// Advance shifts the window forward by k slots, discarding their contents.
func (w *Window[T]) Advance(k int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if k < 0 || k > w.capacity {
		return fmt.Errorf("%w: cannot advance by %d (capacity %d)", ErrOutOfWindow, k, w.capacity)
	}
	w.shiftLocked(k)
	return nil
}

func (w *Window[T]) shiftLocked(k int) {
	var zero T
	for i := 0; i < k; i++ {
		idx := (w.head + i) % w.capacity
		w.slots[idx] = zero
		w.filled[idx] = false
	}
	w.head = (w.head + k) % w.capacity
	w.offset += uint64(k)
	w.caret -= k
	if w.caret < 0 {
		w.caret = 0
	}
}

// Reset empties the window and moves it back to sequence 0.
func (w *Window[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	for i := range w.slots {
		w.slots[i] = zero
		w.filled[i] = false
	}
	w.head = 0
	w.offset = 0
	w.caret = 0
}

// Available returns how many more items PutNext will accept.
func (w *Window[T]) Available() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.capacity - w.caret
}

// Offset returns the sequence number of slot 0.
func (w *Window[T]) Offset() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.offset
}

// Caret returns the number of trailing slots claimed by PutNext.
func (w *Window[T]) Caret() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.caret
}

// Capacity returns the fixed number of slots.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// Len returns the number of occupied slots.
func (w *Window[T]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := 0
	for _, f := range w.filled {
		if f {
			n++
		}
	}
	return n
}

// Each calls fn for every occupied slot in sequence order, stopping early
// when fn returns false.
func (w *Window[T]) Each(fn func(seq uint64, item T) bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for i := 0; i < w.capacity; i++ {
		idx := (w.head + i) % w.capacity
		if !w.filled[idx] {
			continue
		}
		if !fn(w.offset+uint64(i), w.slots[idx]) {
			return
		}
	}
}

// IsNil reports whether v is nil, including typed nil pointers, slices,
// maps, channels and funcs stored in a type parameter.
func IsNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
