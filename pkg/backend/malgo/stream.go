package malgo

import (
	"math"

	"github.com/blaubaer/audio-session/pkg/audio"
)

// stream converts between the interleaved frames of a device and the channel
// regions of a session. Devices deliver frames in chunks of any size; the
// stream collects them into blocks of exactly blockSize frames.
//
// Output lags one block behind: the frames written to the device are those
// of the block produced by the previous OnOutput, so the samples produced for
// timestamp t are played at t+blockSize. The very first block is silent.
type stream struct {
	receiver  audio.BlockReceiver
	blockSize int

	inputs       []*audio.ChannelBuffer
	inputMap     []int
	inputStride  int
	outputs      []*audio.ChannelBuffer
	outputMap    []int
	outputStride int

	position  int
	timestamp float64
}

// process is called on the real-time thread of the device.
func (this *stream) process(out, in []byte, frameCount uint32) {
	frames := int(frameCount)
	for done := 0; done < frames; {
		n := min(frames-done, this.blockSize-this.position)
		if len(this.inputs) > 0 && len(in) > 0 {
			this.deinterleave(in, done, n)
		}
		if len(out) > 0 {
			this.interleave(out, done, n)
		}
		done += n
		this.position += n

		if this.position == this.blockSize {
			this.position = 0
			if len(this.inputs) > 0 {
				this.receiver.OnInput(this.timestamp)
			}
			if len(this.outputs) > 0 {
				this.receiver.OnOutput(this.timestamp)
			}
			this.timestamp += float64(this.blockSize)
		}
	}
}

func (this *stream) deinterleave(in []byte, from, n int) {
	for c, buffer := range this.inputs {
		samples := buffer.Samples()[this.position : this.position+n]
		channel := this.inputMap[c]
		for i := range samples {
			at := ((from+i)*this.inputStride + channel) * audio.SampleSize
			samples[i] = math.Float32frombits(audio.NativeByteOrder.Uint32(in[at:]))
		}
	}
}

// interleave writes the channels of the last produced block. Device channels
// which are not bound stay silent.
func (this *stream) interleave(out []byte, from, n int) {
	chunk := out[from*this.outputStride*audio.SampleSize : (from+n)*this.outputStride*audio.SampleSize]
	clear(chunk)
	for c, buffer := range this.outputs {
		samples := buffer.Samples()[this.position : this.position+n]
		channel := this.outputMap[c]
		for i, v := range samples {
			at := (i*this.outputStride + channel) * audio.SampleSize
			audio.NativeByteOrder.PutUint32(chunk[at:], math.Float32bits(v))
		}
	}
}
