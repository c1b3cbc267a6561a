package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketRegistryAddGetRemove(t *testing.T) {
	r := newSocketRegistry()
	e := &socketEntry{id: 5, kind: kindStream, fd: 42}
	r.add(e)

	got, ok := r.get(5)
	require.True(t, ok)
	assert.Equal(t, e, got)

	r.remove(5)
	_, ok = r.get(5)
	assert.False(t, ok)
}

func TestSocketRegistryIdsSnapshot(t *testing.T) {
	r := newSocketRegistry()
	r.add(&socketEntry{id: 1})
	r.add(&socketEntry{id: 2})
	r.add(&socketEntry{id: 3})

	ids := r.ids()
	assert.Len(t, ids, 3)
	assert.ElementsMatch(t, []SocketID{1, 2, 3}, ids)
}

func TestSocketRegistryLen(t *testing.T) {
	r := newSocketRegistry()
	assert.Equal(t, 0, r.len())
	r.add(&socketEntry{id: 1})
	assert.Equal(t, 1, r.len())
}
