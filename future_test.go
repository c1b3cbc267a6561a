package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolveThenWait(t *testing.T) {
	f := newFuture[int]()
	f.resolve(7, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFutureWaitBlocksUntilResolved(t *testing.T) {
	f := newFuture[string]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.resolve("done", nil)
	}()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFutureTryGet(t *testing.T) {
	f := newFuture[int]()
	_, _, ok := f.TryGet()
	assert.False(t, ok)

	f.resolve(3, errors.New("boom"))
	v, err, ok := f.TryGet()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.EqualError(t, err, "boom")

	// TryGet must not consume the result.
	v2, err2, ok2 := f.TryGet()
	require.True(t, ok2)
	assert.Equal(t, v, v2)
	assert.Equal(t, err, err2)
}
