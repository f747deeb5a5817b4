package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBlockBuffer_Push(t *testing.T) {
	instance := NewRingBlockBuffer(3, 4)

	push := func(v ...float32) bool {
		t.Helper()
		ok, err := instance.Push(v)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, push(1, 2))
	assert.True(t, push(3, 4, 5))
	assert.True(t, push(6))
	assert.Equal(t, uint32(3), instance.NumberOfBlocks())
	assert.Equal(t, []int{2, 3, 1}, instance.blockLengths)

	assert.False(t, push(7))
	assert.Equal(t, uint64(1), instance.Dropped())
	assert.Equal(t, uint32(3), instance.NumberOfBlocks())

	_, actualErr := instance.Push([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, ErrBlockTooLong, actualErr)

	select {
	case <-instance.Notify():
	default:
		assert.Fail(t, "expected a notification")
	}
}

func TestRingBlockBuffer_ConsumeBlocks(t *testing.T) {
	instance := NewRingBlockBuffer(3, 4)

	var consumed [][]float32
	collect := func(_ uint32, block []float32) error {
		consumed = append(consumed, append([]float32(nil), block...))
		return nil
	}

	_, _ = instance.Push([]float32{1, 2})
	_, _ = instance.Push([]float32{3})
	require.NoError(t, instance.ConsumeBlocks(collect))
	assert.Equal(t, [][]float32{{1, 2}, {3}}, consumed)
	assert.Equal(t, uint32(0), instance.NumberOfBlocks())

	// wraps around the end of the ring
	consumed = nil
	_, _ = instance.Push([]float32{4})
	_, _ = instance.Push([]float32{5, 6})
	_, _ = instance.Push([]float32{7, 8, 9})
	assert.Equal(t, 2, instance.blocksOffset)
	require.NoError(t, instance.ConsumeBlocks(collect))
	assert.Equal(t, [][]float32{{4}, {5, 6}, {7, 8, 9}}, consumed)

	consumed = nil
	_, _ = instance.Push([]float32{1})
	_, _ = instance.Push([]float32{2})
	require.NoError(t, instance.ConsumeBlocks(func(i uint32, block []float32) error {
		consumed = append(consumed, append([]float32(nil), block...))
		return ErrStopIteration
	}))
	assert.Equal(t, [][]float32{{1}}, consumed)
	assert.Equal(t, uint32(1), instance.NumberOfBlocks())

	expectedErr := errors.New("expected")
	assert.Equal(t, expectedErr, instance.ConsumeBlocks(func(uint32, []float32) error {
		return expectedErr
	}))
	assert.Equal(t, uint32(0), instance.NumberOfBlocks())
}

func TestRingBlockBuffer_PushWhileConsuming(t *testing.T) {
	instance := NewRingBlockBuffer(2, 1)

	instance.mutex.Lock()
	ok, err := instance.Push([]float32{1})
	instance.mutex.Unlock()

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), instance.Dropped())
}
