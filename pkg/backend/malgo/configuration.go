package malgo

import (
	"github.com/blaubaer/audio-session/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		LetWidth:          2,
		MinBufferSize:     32,
		MaxBufferSize:     4096,
		CurrentBufferSize: 512,
	}
}

type Configuration struct {
	// LetWidth is the number of channels grouped into one let.
	LetWidth          int `yaml:"letWidth"`
	MinBufferSize     int `yaml:"minBufferSize"`
	MaxBufferSize     int `yaml:"maxBufferSize"`
	CurrentBufferSize int `yaml:"currentBufferSize"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("backend.malgo.letWidth", "Number of device channels grouped into one let.").
		PlaceHolder("<channels>").
		Envar("AS_BACKEND_MALGO_LET_WIDTH").
		IntVar(&this.LetWidth)
	using.Flag("backend.malgo.minBufferSize", "Smallest block size in frames offered for every device.").
		PlaceHolder("<frames>").
		Envar("AS_BACKEND_MALGO_MIN_BUFFER_SIZE").
		IntVar(&this.MinBufferSize)
	using.Flag("backend.malgo.maxBufferSize", "Largest block size in frames offered for every device.").
		PlaceHolder("<frames>").
		Envar("AS_BACKEND_MALGO_MAX_BUFFER_SIZE").
		IntVar(&this.MaxBufferSize)
	using.Flag("backend.malgo.currentBufferSize", "Block size in frames reported as current for every device.").
		PlaceHolder("<frames>").
		Envar("AS_BACKEND_MALGO_CURRENT_BUFFER_SIZE").
		IntVar(&this.CurrentBufferSize)
}
