package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO_Order(t *testing.T) {
	q := New[[]byte](2)

	q.Push([]byte{0x01})
	q.Push([]byte{0x02})
	q.Push([]byte{0x03})
	assert.Equal(t, 3, q.Len())

	for _, want := range []byte{0x01, 0x02, 0x03} {
		item, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, []byte{want}, item)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestFIFO_Peek(t *testing.T) {
	q := New[int](0)

	_, ok := q.Peek()
	assert.False(t, ok)

	q.Push(7)
	q.Push(8)

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 7, head)
	assert.Equal(t, 2, q.Len(), "peek must not consume")
}

func TestFIFO_Reset(t *testing.T) {
	q := New[string](4)
	q.Push("a")
	q.Push("b")

	q.Reset()
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push("c")
	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", item)
}

func TestFIFO_InterleavedPushPop(t *testing.T) {
	q := New[int](1)

	next := 0
	for i := 0; i < 100; i++ {
		q.Push(i)
		if i%3 == 0 {
			item, ok := q.Pop()
			require.True(t, ok)
			assert.Equal(t, next, item)
			next++
		}
	}

	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		assert.Equal(t, next, item)
		next++
	}
	assert.Equal(t, 100, next)
}
