package fake

import (
	"github.com/blaubaer/audio-session/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		Devices: []Device{{
			Id:                1,
			Name:              "Fake Microphone",
			Manufacturer:      "audio-session",
			MinBufferSize:     64,
			MaxBufferSize:     2048,
			CurrentBufferSize: 512,
			CurrentSampleRate: 48000,
			Inputs: []Let{{
				Name:        "Mic",
				Channels:    2,
				SampleRates: []float64{44100, 48000},
			}},
		}, {
			Id:                2,
			Name:              "Fake Speaker",
			Manufacturer:      "audio-session",
			MinBufferSize:     128,
			MaxBufferSize:     4096,
			CurrentBufferSize: 512,
			CurrentSampleRate: 44100,
			Outputs: []Let{{
				Name:        "Main",
				Channels:    2,
				SampleRates: []float64{44100},
			}},
		}},
		Realtime:       true,
		InputFrequency: 440,
	}
}

type Configuration struct {
	Devices []Device `yaml:"devices,omitempty"`

	// Realtime delivers blocks from a ticker while running. Without it blocks
	// are only delivered by Fake.Tick.
	Realtime bool `yaml:"realtime"`
	// InputFrequency of the sine captured by every input channel. 0 means
	// silence.
	InputFrequency float64 `yaml:"inputFrequency"`
}

type Device struct {
	Id                int     `yaml:"id"`
	Name              string  `yaml:"name"`
	Manufacturer      string  `yaml:"manufacturer,omitempty"`
	MinBufferSize     int     `yaml:"minBufferSize"`
	MaxBufferSize     int     `yaml:"maxBufferSize"`
	CurrentBufferSize int     `yaml:"currentBufferSize"`
	CurrentSampleRate float64 `yaml:"currentSampleRate"`
	Inputs            []Let   `yaml:"inputs,omitempty"`
	Outputs           []Let   `yaml:"outputs,omitempty"`
}

type Let struct {
	Name        string    `yaml:"name,omitempty"`
	Channels    int       `yaml:"channels"`
	SampleRates []float64 `yaml:"sampleRates,flow"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("backend.fake.realtime", "If enabled the fake backend delivers blocks in real time while playing.").
		Envar("AS_BACKEND_FAKE_REALTIME").
		BoolVar(&this.Realtime)
	using.Flag("backend.fake.inputFrequency", "Frequency in Hz of the sine the fake backend captures on every input channel. 0 means silence.").
		Envar("AS_BACKEND_FAKE_INPUT_FREQUENCY").
		Float64Var(&this.InputFrequency)
}
