package backend

import (
	"github.com/blaubaer/audio-session/pkg/backend/fake"
	"github.com/blaubaer/audio-session/pkg/backend/malgo"
	"github.com/blaubaer/audio-session/pkg/backend/portaudio"
	"github.com/blaubaer/audio-session/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		Type:      TypeDefault,
		Malgo:     malgo.NewConfiguration(),
		PortAudio: portaudio.NewConfiguration(),
		Fake:      fake.NewConfiguration(),
	}
}

type Configuration struct {
	Type      Type                    `yaml:"type"`
	Malgo     malgo.Configuration     `yaml:"malgo,omitempty"`
	PortAudio portaudio.Configuration `yaml:"portAudio,omitempty"`
	Fake      fake.Configuration      `yaml:"fake,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("backend", "Audio backend to use. All possible values: "+AllTypes.String()).
		Envar("AS_BACKEND").
		SetValue(&this.Type)

	this.Malgo.SetupConfiguration(using)
	this.PortAudio.SetupConfiguration(using)
	this.Fake.SetupConfiguration(using)
}
