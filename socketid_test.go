package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketIDAllocatorStartsAfterWakeID(t *testing.T) {
	a := newSocketIDAllocator(10)
	id, err := a.allocate()
	require.NoError(t, err)
	assert.NotEqual(t, wakeSocketID, id)
	assert.Equal(t, SocketID(1), id)
}

func TestSocketIDAllocatorReusesReleasedIDs(t *testing.T) {
	a := newSocketIDAllocator(10)
	first, err := a.allocate()
	require.NoError(t, err)

	a.release(first)
	second, err := a.allocate()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSocketIDAllocatorExhaustion(t *testing.T) {
	a := newSocketIDAllocator(2)
	_, err := a.allocate()
	require.NoError(t, err)
	_, err = a.allocate()
	require.NoError(t, err)

	_, err = a.allocate()
	assert.ErrorIs(t, err, ErrTooManySockets)
}

func TestSocketIDAllocatorReleaseUnknownIsNoop(t *testing.T) {
	a := newSocketIDAllocator(10)
	a.release(999) // must not panic or corrupt state
	assert.Equal(t, 0, a.len())
}
