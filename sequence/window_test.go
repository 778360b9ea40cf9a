package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New[int](capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestWindowScenario(t *testing.T) {
	w, err := New[string](10)
	require.NoError(t, err)

	// Slot indices run 0..9, so sequence 10 is one past the end
	assert.ErrorIs(t, w.Put(10, "x"), ErrOutOfWindow)

	for i, v := range []string{"a", "b", "c"} {
		seq, err := w.PutNext(v)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}
	assert.Equal(t, 7, w.Available())
	assert.True(t, w.Ready())

	var got []string
	for w.Ready() {
		item, ok := w.Next()
		require.True(t, ok)
		got = append(got, item)
	}

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 10, w.Available())
	assert.Equal(t, uint64(3), w.Offset())
}

func TestPutBelowOffset(t *testing.T) {
	w, err := New[int](4)
	require.NoError(t, err)

	require.NoError(t, w.Advance(2))
	assert.ErrorIs(t, w.Put(1, 7), ErrOutOfWindow)
	assert.ErrorIs(t, w.Put(6, 7), ErrOutOfWindow)
	assert.NoError(t, w.Put(5, 7))
}

func TestPutRejectsNil(t *testing.T) {
	w, err := New[*int](4)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Put(0, nil), ErrNullItem)
	_, err = w.PutNext(nil)
	assert.ErrorIs(t, err, ErrNullItem)

	b, err := New[[]byte](4)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Put(0, nil), ErrNullItem)
	assert.NoError(t, b.Put(0, []byte{}))
}

func TestPutNextWindowFull(t *testing.T) {
	w, err := New[int](2)
	require.NoError(t, err)

	_, err = w.PutNext(1)
	require.NoError(t, err)
	_, err = w.PutNext(2)
	require.NoError(t, err)

	_, err = w.PutNext(3)
	assert.ErrorIs(t, err, ErrWindowFull)
	assert.Equal(t, 0, w.Available())

	require.NoError(t, w.Advance(1))
	seq, err := w.PutNext(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}

func TestOutOfOrderInsertion(t *testing.T) {
	w, err := New[int](8)
	require.NoError(t, err)

	require.NoError(t, w.Put(2, 20))
	require.NoError(t, w.Put(1, 10))
	assert.False(t, w.Ready())

	ok, err := w.Has(2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, w.Put(0, 0))

	var got []int
	n := w.DrainReady(func(v int) { got = append(got, v) })
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 10, 20}, got)
	assert.False(t, w.Ready())
	assert.Equal(t, uint64(3), w.Offset())
}

func TestGetBounds(t *testing.T) {
	w, err := New[int](4)
	require.NoError(t, err)
	require.NoError(t, w.Advance(4))

	_, ok, err := w.Get(1)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = w.Get(8)
	assert.ErrorIs(t, err, ErrOutOfWindow)

	_, err = w.Has(100)
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestAdvance(t *testing.T) {
	w, err := New[int](4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := w.PutNext(i)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, w.Advance(5), ErrOutOfWindow)
	require.NoError(t, w.Advance(2))

	assert.Equal(t, uint64(2), w.Offset())
	assert.Equal(t, 2, w.Caret())
	item, ok := w.Current()
	assert.True(t, ok)
	assert.Equal(t, 2, item)

	// Wrapping around the ring keeps sequence order
	seq, err := w.PutNext(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)

	var seqs []uint64
	w.Each(func(s uint64, _ int) bool {
		seqs = append(seqs, s)
		return true
	})
	assert.Equal(t, []uint64{2, 3, 4}, seqs)
	assert.Equal(t, 3, w.Len())
}

func TestReset(t *testing.T) {
	w, err := New[int](3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := w.PutNext(i)
		require.NoError(t, err)
	}
	require.NoError(t, w.Advance(2))
	_, err = w.PutNext(9)
	require.NoError(t, err)

	w.Reset()
	assert.Zero(t, w.Offset())
	assert.Zero(t, w.Caret())
	assert.Zero(t, w.Len())
	assert.False(t, w.Ready())
	assert.Equal(t, 3, w.Available())

	seq, err := w.PutNext(7)
	require.NoError(t, err)
	assert.Zero(t, seq)
	item, ok := w.Current()
	assert.True(t, ok)
	assert.Equal(t, 7, item)
}

func TestNextOnEmptyWindow(t *testing.T) {
	w, err := New[int](2)
	require.NoError(t, err)

	_, ok := w.Next()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), w.Offset())
}

func TestNextYieldsStrictlyIncreasingSequences(t *testing.T) {
	w, err := New[uint64](64)
	require.NoError(t, err)

	var expected uint64
	for round := 0; round < 10; round++ {
		for w.Available() > 0 {
			seq, err := w.PutNext(0)
			require.NoError(t, err)
			require.NoError(t, w.Put(seq, seq))
		}
		for w.Ready() {
			v, ok := w.Next()
			require.True(t, ok)
			require.Equal(t, expected, v)
			expected++
		}
		assert.Equal(t, 64, w.Available())
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	w, err := New[int](16)
	require.NoError(t, err)

	const total = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if _, err := w.PutNext(i); err == nil {
				i++
			}
		}
	}()

	var got []int
	for len(got) < total {
		w.DrainReady(func(v int) { got = append(got, v) })
	}
	wg.Wait()

	for i, v := range got {
		require.Equal(t, i, v)
	}
}
