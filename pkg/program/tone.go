package program

import (
	"math"

	"github.com/blaubaer/audio-session/pkg/session"
)

const DefaultToneFrequency = 440

// Tone plays a sine on every output channel.
type Tone struct {
	session.Adapter

	Frequency  float64
	Amplitude  float64
	SampleRate float64
}

func NewTone(frequency, sampleRate float64) *Tone {
	return &Tone{
		Frequency:  frequency,
		Amplitude:  0.25,
		SampleRate: sampleRate,
	}
}

// OnOutput derives the phase from the timestamp, so the sine continues
// seamlessly across blocks.
func (this *Tone) OnOutput(timestamp float64, outputs session.BoundLets) {
	step := 2 * math.Pi * this.Frequency / this.SampleRate
	for _, let := range outputs {
		for c := 0; c < let.Channels(); c++ {
			samples := let.Channel(c).Samples()
			for i := range samples {
				samples[i] = float32(this.Amplitude * math.Sin(step*(timestamp+float64(i))))
			}
		}
	}
}
