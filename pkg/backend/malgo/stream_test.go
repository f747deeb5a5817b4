package malgo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
)

type recordingReceiver struct {
	inputs   []float64
	outputs  []float64
	onInput  func()
	onOutput func()
}

func (this *recordingReceiver) OnInput(timestamp float64) {
	this.inputs = append(this.inputs, timestamp)
	if v := this.onInput; v != nil {
		v()
	}
}

func (this *recordingReceiver) OnOutput(timestamp float64) {
	this.outputs = append(this.outputs, timestamp)
	if v := this.onOutput; v != nil {
		v()
	}
}

func interleaved(frames, stride int, sample func(frame, channel int) float32) []byte {
	result := make([]byte, frames*stride*audio.SampleSize)
	for f := 0; f < frames; f++ {
		for c := 0; c < stride; c++ {
			audio.NativeByteOrder.PutUint32(result[(f*stride+c)*audio.SampleSize:], math.Float32bits(sample(f, c)))
		}
	}
	return result
}

func sampleAt(in []byte, frame, channel, stride int) float32 {
	return math.Float32frombits(audio.NativeByteOrder.Uint32(in[(frame*stride+channel)*audio.SampleSize:]))
}

func TestStream_process_capture(t *testing.T) {
	inputs, err := audio.NewChannelBuffers(audio.NewRegions(2, 4))
	require.NoError(t, err)
	receiver := &recordingReceiver{}
	instance := &stream{
		receiver:    receiver,
		blockSize:   4,
		inputs:      inputs,
		inputMap:    []int{1, 2},
		inputStride: 3,
	}
	in := interleaved(6, 3, func(frame, channel int) float32 {
		return float32(frame*10 + channel)
	})

	var blocks [][]float32
	receiver.onInput = func() {
		blocks = append(blocks, append([]float32(nil), inputs[0].Samples()...), append([]float32(nil), inputs[1].Samples()...))
	}

	instance.process(nil, in[:3*3*audio.SampleSize], 3)
	assert.Empty(t, receiver.inputs)
	instance.process(nil, in[3*3*audio.SampleSize:], 3)

	assert.Equal(t, []float64{0}, receiver.inputs)
	assert.Empty(t, receiver.outputs)
	require.Len(t, blocks, 2)
	assert.Equal(t, []float32{1, 11, 21, 31}, blocks[0])
	assert.Equal(t, []float32{2, 12, 22, 32}, blocks[1])
	assert.Equal(t, 2, instance.position)
}

func TestStream_process_playback(t *testing.T) {
	outputs, err := audio.NewChannelBuffers(audio.NewRegions(1, 2))
	require.NoError(t, err)
	receiver := &recordingReceiver{}
	receiver.onOutput = func() {
		outputs[0].Fill(float32(len(receiver.outputs)))
	}
	instance := &stream{
		receiver:     receiver,
		blockSize:    2,
		outputs:      outputs,
		outputMap:    []int{1},
		outputStride: 2,
	}
	out := interleaved(6, 2, func(int, int) float32 { return 9 })

	instance.process(out, nil, 6)

	assert.Equal(t, []float64{0, 2, 4}, receiver.outputs)
	for frame := 0; frame < 6; frame++ {
		assert.Equal(t, float32(0), sampleAt(out, frame, 0, 2), "unbound channel of frame %d", frame)
	}
	assert.Equal(t, float32(0), sampleAt(out, 0, 1, 2))
	assert.Equal(t, float32(0), sampleAt(out, 1, 1, 2))
	assert.Equal(t, float32(1), sampleAt(out, 2, 1, 2))
	assert.Equal(t, float32(1), sampleAt(out, 3, 1, 2))
	assert.Equal(t, float32(2), sampleAt(out, 4, 1, 2))
	assert.Equal(t, float32(2), sampleAt(out, 5, 1, 2))
}
