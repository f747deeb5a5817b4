//go:build !portaudio

package portaudio

import (
	"errors"

	"github.com/blaubaer/audio-session/pkg/audio"
)

var ErrNotSupported = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio is a placeholder which fails on every call. The real backend is
// only compiled with -tags portaudio.
type PortAudio struct{}

func New(Configuration) *PortAudio {
	return &PortAudio{}
}

func (this *PortAudio) Initialize() error {
	return ErrNotSupported
}

func (this *PortAudio) Dispose() error {
	return nil
}

func (this *PortAudio) EnumerateDevices() ([]audio.DeviceDescriptor, error) {
	return nil, ErrNotSupported
}

func (this *PortAudio) QueryLetSampleRates(audio.DeviceId, int, audio.Direction) ([]float64, error) {
	return nil, ErrNotSupported
}

func (this *PortAudio) QueryBufferSizeBounds(audio.DeviceId) (int, int, error) {
	return 0, 0, ErrNotSupported
}

func (this *PortAudio) QueryCurrentBufferSize(audio.DeviceId) (int, error) {
	return 0, ErrNotSupported
}

func (this *PortAudio) QueryCurrentSampleRate(audio.DeviceId) (float64, error) {
	return 0, ErrNotSupported
}

func (this *PortAudio) OpenSession(audio.OpenRequest, audio.BlockReceiver) (audio.OpenedSession, error) {
	return audio.OpenedSession{}, ErrNotSupported
}

func (this *PortAudio) CloseSession(audio.Handle) error {
	return ErrNotSupported
}

func (this *PortAudio) SetRunning(audio.Handle, bool) error {
	return ErrNotSupported
}
