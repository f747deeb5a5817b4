package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
)

func newTestBoundLets(t *testing.T, channels, blockSize int) BoundLets {
	regions := make([][]byte, channels)
	for i := range regions {
		regions[i] = audio.NewRegion(blockSize)
	}
	result := BoundLets{{buffers: make([]*audio.ChannelBuffer, channels)}}
	for i, region := range regions {
		buffer, err := audio.NewChannelBuffer(region)
		require.NoError(t, err)
		result[0].buffers[i] = buffer
	}
	return result
}

func TestDispatcher_withoutSnapshot(t *testing.T) {
	instance := newDispatcher(nil)

	assert.NotPanics(t, func() {
		instance.OnInput(0)
		instance.OnOutput(0)
	})
	assert.Equal(t, int32(0), instance.inFlight.Load())
}

func TestDispatcher_forwardsSnapshot(t *testing.T) {
	instance := newDispatcher(nil)
	inputs := newTestBoundLets(t, 1, 8)
	outputs := newTestBoundLets(t, 2, 8)

	var gotInputs, gotOutputs BoundLets
	var gotTimestamp float64
	instance.publish(&snapshot{
		listener: ListenerFuncs{
			Input: func(timestamp float64, v BoundLets) {
				gotTimestamp = timestamp
				gotInputs = v
			},
			Output: func(_ float64, v BoundLets) {
				gotOutputs = v
			},
		},
		inputs:  inputs,
		outputs: outputs,
		budget:  time.Second,
	})

	instance.OnInput(42)
	instance.OnOutput(42)

	assert.Equal(t, 42.0, gotTimestamp)
	assert.Same(t, inputs[0], gotInputs[0])
	assert.Same(t, outputs[0], gotOutputs[0])
}

func TestDispatcher_withListener(t *testing.T) {
	instance := newDispatcher(nil)
	outputs := newTestBoundLets(t, 1, 4)

	instance.withListener(Adapter{})
	assert.Nil(t, instance.current.Load(), "nothing published yet")

	instance.publish(&snapshot{outputs: outputs})
	outputs.Buffers()[0].Fill(1)
	instance.OnOutput(0)
	assert.Equal(t, []float32{0, 0, 0, 0}, outputs.Buffers()[0].Samples())

	called := false
	instance.withListener(ListenerFuncs{Output: func(float64, BoundLets) { called = true }})
	instance.OnOutput(0)
	assert.True(t, called)
	assert.Same(t, outputs[0], instance.current.Load().outputs[0])
}

func TestDispatcher_detach_waitsForCallbackInFlight(t *testing.T) {
	instance := newDispatcher(nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	instance.publish(&snapshot{
		listener: ListenerFuncs{Output: func(float64, BoundLets) {
			close(entered)
			<-release
		}},
		outputs: newTestBoundLets(t, 1, 4),
	})

	go instance.OnOutput(0)
	<-entered

	detached := make(chan struct{})
	go func() {
		instance.detach()
		close(detached)
	}()

	select {
	case <-detached:
		t.Fatal("detach returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-detached:
	case <-time.After(5 * time.Second):
		t.Fatal("detach did not return after the callback finished")
	}

	called := false
	instance.withListener(ListenerFuncs{Output: func(float64, BoundLets) { called = true }})
	instance.OnOutput(1)
	assert.False(t, called)
}
