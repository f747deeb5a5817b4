//go:build !portaudio

package portaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blaubaer/audio-session/pkg/audio"
)

func TestPortAudio_stub(t *testing.T) {
	var instance audio.Backend = New(NewConfiguration())

	assert.ErrorIs(t, instance.Initialize(), ErrNotSupported)
	_, err := instance.EnumerateDevices()
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.NoError(t, instance.Dispose())
}
