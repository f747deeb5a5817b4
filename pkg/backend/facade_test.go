package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
)

func TestType_Set(t *testing.T) {
	var actual Type

	require.NoError(t, actual.Set("PortAudio"))
	assert.Equal(t, TypePortAudio, actual)
	require.NoError(t, actual.Set("dry"))
	assert.Equal(t, TypeFake, actual)
	assert.Error(t, actual.Set("alsa"))

	assert.Equal(t, "malgo,portaudio,fake", AllTypes.String())
	assert.Equal(t, "illegal-backend-type-9", Type(9).String())
}

func TestFacade_notConfigured(t *testing.T) {
	instance := &Facade{}

	assert.ErrorIs(t, instance.Initialize(), ErrNotConfigured)
	_, err := instance.EnumerateDevices()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, instance.Dispose())
}

func TestFacade_fake(t *testing.T) {
	conf := NewConfiguration()
	conf.Type = TypeFake
	conf.Fake.Realtime = false
	instance := &Facade{}
	require.NoError(t, instance.Configure(&conf))
	assert.Equal(t, TypeFake, instance.GetType())

	catalog := audio.NewCatalog(instance)
	require.NoError(t, catalog.Initialize())
	devices, err := catalog.ListDevices()
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Len(t, devices.Inputs(), 1)
	assert.Len(t, devices.Outputs(), 1)

	require.NoError(t, catalog.Dispose())
	_, err = instance.EnumerateDevices()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFacade_unsupportedType(t *testing.T) {
	conf := NewConfiguration()
	conf.Type = Type(42)

	assert.Error(t, (&Facade{}).Configure(&conf))
}
