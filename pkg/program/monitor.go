package program

import (
	"math"
	"sync/atomic"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/session"
)

// Monitor copies the captured input channels to the output channels. If
// there are more outputs than inputs the inputs are repeated. It also keeps
// the peak level of every input channel.
type Monitor struct {
	Gain float32

	inputs session.BoundLets
	peaks  []atomic.Uint32
}

func NewMonitor(inputChannels int) *Monitor {
	return &Monitor{
		Gain:  1,
		peaks: make([]atomic.Uint32, inputChannels),
	}
}

func (this *Monitor) OnInput(_ float64, inputs session.BoundLets) {
	this.inputs = inputs
	c := 0
	for _, let := range inputs {
		for lc := 0; lc < let.Channels(); lc++ {
			if c < len(this.peaks) {
				this.observe(c, let.Channel(lc).Samples())
			}
			c++
		}
	}
}

func (this *Monitor) observe(channel int, samples []float32) {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	for {
		old := this.peaks[channel].Load()
		if math.Float32frombits(old) >= peak || this.peaks[channel].CompareAndSwap(old, math.Float32bits(peak)) {
			return
		}
	}
}

func (this *Monitor) OnOutput(_ float64, outputs session.BoundLets) {
	inputs := this.inputs
	inputChannels := inputs.Channels()
	o := 0
	for _, let := range outputs {
		for lc := 0; lc < let.Channels(); lc++ {
			target := let.Channel(lc).Samples()
			if inputChannels == 0 {
				clear(target)
			} else {
				source := channelAt(inputs, o%inputChannels).Samples()
				for i := range target {
					target[i] = source[i] * this.Gain
				}
			}
			o++
		}
	}
}

// Peaks returns the highest absolute sample per input channel since the last
// call and resets them.
func (this *Monitor) Peaks() []float32 {
	result := make([]float32, len(this.peaks))
	for i := range this.peaks {
		result[i] = math.Float32frombits(this.peaks[i].Swap(0))
	}
	return result
}

func channelAt(lets session.BoundLets, channel int) *audio.ChannelBuffer {
	for _, let := range lets {
		if channel < let.Channels() {
			return let.Channel(channel)
		}
		channel -= let.Channels()
	}
	return nil
}
