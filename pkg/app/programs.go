package app

import (
	"fmt"

	"github.com/blaubaer/audio-session/pkg/program"
	"github.com/blaubaer/audio-session/pkg/session"
)

// Tone plays a sine on the selected output lets.
func (this *App) Tone() Program {
	return Program{
		Name:   "tone",
		Output: true,
		NewListener: func(s *session.Session) (session.Listener, error) {
			return program.NewTone(this.Configuration().Tone.Frequency, s.SampleRate()), nil
		},
	}
}

// Monitor plays the selected input lets on the selected output lets.
func (this *App) Monitor() Program {
	return Program{
		Name:   "monitor",
		Input:  true,
		Output: true,
		NewListener: func(s *session.Session) (session.Listener, error) {
			result := program.NewMonitor(s.InputLets().Channels())
			if v := this.Configuration().Monitor.Gain; v > 0 {
				result.Gain = v
			}
			return result, nil
		},
	}
}

// Record writes the selected input lets into the configured WAV file.
func (this *App) Record() Program {
	return Program{
		Name:  "record",
		Input: true,
		NewListener: func(s *session.Session) (session.Listener, error) {
			fn := this.Configuration().Record.File
			if fn == "" {
				return nil, fmt.Errorf("no file to record into configured")
			}
			return program.NewRecorder(fn, s.SampleRate(), s.InputLets().Channels(), s.BlockSize())
		},
	}
}
