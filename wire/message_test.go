package wire_test

import (
	"testing"

	"github.com/nodebridge/dispatch/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenRejectsZeroPipeID(t *testing.T) {
	_, err := wire.NewOpen(0, 2, 3, nil)
	assert.ErrorIs(t, err, wire.ErrZeroPipeID)
}

func TestNewOpenAcceptsMaxPipeID(t *testing.T) {
	open, err := wire.NewOpen(0xFFFF, 2, 3, []byte("params"))
	require.NoError(t, err)
	assert.Equal(t, wire.PipeID(0xFFFF), open.PipeID)
}

func TestNewCloseRejectsZeroPipeID(t *testing.T) {
	_, err := wire.NewClose(0, true, nil)
	assert.ErrorIs(t, err, wire.ErrZeroPipeID)
}

func TestNewBlockValidation(t *testing.T) {
	t.Run("zero pipe id", func(t *testing.T) {
		_, err := wire.NewBlock(0, nil, 0, false)
		assert.ErrorIs(t, err, wire.ErrZeroPipeID)
	})

	t.Run("payload too large", func(t *testing.T) {
		_, err := wire.NewBlock(1, make([]byte, wire.MaxPayloadSize+1), 0, false)
		require.Error(t, err)
		var tooLarge *wire.PayloadTooLargeError
		require.ErrorAs(t, err, &tooLarge)
		assert.Equal(t, wire.MaxPayloadSize+1, tooLarge.Length)
	})

	t.Run("loss rate too big", func(t *testing.T) {
		_, err := wire.NewBlock(1, nil, wire.MaxLossRate+1, false)
		require.Error(t, err)
		var tooBig *wire.LossRateTooBigError
		require.ErrorAs(t, err, &tooBig)
	})

	t.Run("valid", func(t *testing.T) {
		b, err := wire.NewBlock(1, []byte("hi"), 3, true)
		require.NoError(t, err)
		assert.Equal(t, wire.PipeID(1), b.PipeID)
		assert.True(t, b.EOF)
	})
}

func TestNewSystemConfigAndPing(t *testing.T) {
	cfg := wire.SystemConfig{Version: 1, PingInterval: 30, SessionTimeout: 120}
	ctrl := wire.NewSystemConfig(cfg)
	sc, ok := ctrl.Payload.(wire.SystemConfig)
	require.True(t, ok)
	assert.Equal(t, cfg, sc)

	ping := wire.NewPing(1780000000)
	p, ok := ping.Payload.(wire.Ping)
	require.True(t, ok)
	assert.Equal(t, uint64(1780000000), p.UTCTime)
}
