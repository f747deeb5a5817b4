package portaudio

import (
	"github.com/blaubaer/audio-session/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		LetWidth:      2,
		MinBufferSize: 16,
		MaxBufferSize: 8192,
	}
}

type Configuration struct {
	// LetWidth is the number of channels grouped into one let.
	LetWidth      int  `yaml:"letWidth"`
	MinBufferSize int  `yaml:"minBufferSize"`
	MaxBufferSize int  `yaml:"maxBufferSize"`
	HighLatency   bool `yaml:"highLatency,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("backend.portaudio.letWidth", "Number of device channels grouped into one let.").
		PlaceHolder("<channels>").
		Envar("AS_BACKEND_PORTAUDIO_LET_WIDTH").
		IntVar(&this.LetWidth)
	using.Flag("backend.portaudio.highLatency", "Use the default high latency of the devices instead of the low one.").
		Envar("AS_BACKEND_PORTAUDIO_HIGH_LATENCY").
		BoolVar(&this.HighLatency)
}
