package program

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/backend/fake"
	"github.com/blaubaer/audio-session/pkg/session"
)

const testBlockSize = 128

// newTestSession initializes a session of the default fake devices at
// 44.1 kHz. Blocks are delivered with backend.Tick.
func newTestSession(t *testing.T, withInput, withOutput bool, listener session.Listener) (*fake.Fake, *session.Session) {
	t.Helper()

	conf := fake.NewConfiguration()
	conf.Realtime = false
	backend := fake.New(conf)
	catalog := audio.NewCatalog(backend)
	require.NoError(t, catalog.Initialize())

	devices, err := catalog.ListDevices()
	require.NoError(t, err)

	var inputs, outputs audio.Lets
	if withInput {
		inputs = devices.Inputs()[0].Inputs()
	}
	if withOutput {
		outputs = devices.Outputs()[0].Outputs()
	}

	instance := session.NewSession(backend, nil)
	instance.SetListener(listener)
	require.NoError(t, instance.Initialize(inputs, outputs, testBlockSize, 44100))
	require.NoError(t, instance.Play())
	t.Cleanup(func() {
		require.NoError(t, instance.Uninitialize())
		require.NoError(t, catalog.Dispose())
	})

	return backend, instance
}
