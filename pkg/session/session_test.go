package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/backend/fake"
)

type fixture struct {
	backend *fake.Fake
	session *Session
	a       *audio.Device
	b       *audio.Device
}

func (this fixture) aIn() audio.Lets {
	return this.a.Inputs()
}

func (this fixture) bOut() audio.Lets {
	return this.b.Outputs()
}

func newFixture(t *testing.T) fixture {
	conf := fake.NewConfiguration()
	conf.Realtime = false
	backend := fake.New(conf)

	catalog := audio.NewCatalog(backend)
	require.NoError(t, catalog.Initialize())
	t.Cleanup(func() {
		assert.NoError(t, catalog.Dispose())
	})

	devices, err := catalog.ListDevices()
	require.NoError(t, err)
	a, ok := devices.ById(1)
	require.True(t, ok)
	b, ok := devices.ById(2)
	require.True(t, ok)

	return fixture{
		backend: backend,
		session: NewSession(backend, nil),
		a:       a,
		b:       b,
	}
}

func (this fixture) operationsSince(mark int) []fake.Operation {
	all := this.backend.Operations()
	return all[mark:]
}

func TestSession_Initialize(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))

	assert.Equal(t, StateInitialized, f.session.State())
	assert.True(t, f.session.IsInitialized())
	assert.False(t, f.session.IsPlaying())
	assert.True(t, f.session.HasInput())
	assert.True(t, f.session.HasOutput())
	assert.True(t, f.a.Equals(f.session.InputDevice()))
	assert.True(t, f.b.Equals(f.session.OutputDevice()))
	assert.Equal(t, f.aIn().Keys(), f.session.InputLets().Keys())
	assert.Equal(t, f.bOut().Keys(), f.session.OutputLets().Keys())
	assert.Equal(t, 512, f.session.BlockSize())
	assert.Equal(t, 44100.0, f.session.SampleRate())
	assert.NotEqual(t, uuid.Nil, f.session.Id())

	sessions := f.backend.OpenSessions()
	require.Len(t, sessions, 1)
	req := sessions[0].Request()
	assert.Equal(t, audio.DeviceId(1), req.InputDevice)
	assert.Equal(t, 2, req.InputChannels)
	assert.Equal(t, audio.DeviceId(2), req.OutputDevice)
	assert.Equal(t, 2, req.OutputChannels)
	assert.Equal(t, 512, req.BlockSize)
	assert.Equal(t, 44100.0, req.SampleRate)
}

func TestSession_Initialize_onlyOneSide(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Initialize(nil, f.bOut(), 256, 44100))

	assert.False(t, f.session.HasInput())
	assert.Nil(t, f.session.InputDevice())
	assert.Nil(t, f.session.InputLets())

	req := f.backend.OpenSessions()[0].Request()
	assert.Equal(t, audio.NoDevice, req.InputDevice)
	assert.Equal(t, 0, req.InputChannels)
}

func TestSession_Initialize_duplicateLets(t *testing.T) {
	f := newFixture(t)
	let := f.aIn()[0]

	require.NoError(t, f.session.Initialize(audio.Lets{let, let}, nil, 512, 48000))

	req := f.backend.OpenSessions()[0].Request()
	assert.Equal(t, 2, req.InputChannels)
	assert.Len(t, req.Inputs, 1)
	assert.Equal(t, audio.Lets{let}, f.session.InputLets())
}

func TestSession_Initialize_invalidArguments(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name       string
		inputs     audio.Lets
		outputs    audio.Lets
		blockSize  int
		sampleRate float64
	}{{
		name:       "mixed devices and directions",
		inputs:     f.aIn().With(f.bOut()[0]),
		outputs:    f.bOut(),
		blockSize:  512,
		sampleRate: 44100,
	}, {
		name:       "both empty",
		blockSize:  512,
		sampleRate: 44100,
	}, {
		name:       "outputs used as inputs",
		inputs:     f.bOut(),
		blockSize:  512,
		sampleRate: 44100,
	}, {
		name:       "block size below device bounds",
		inputs:     f.aIn(),
		blockSize:  32,
		sampleRate: 44100,
	}, {
		name:       "block size above bounds of one device",
		inputs:     f.aIn(),
		outputs:    f.bOut(),
		blockSize:  3000,
		sampleRate: 44100,
	}, {
		name:       "unsupported sample rate",
		inputs:     f.aIn(),
		outputs:    f.bOut(),
		blockSize:  256,
		sampleRate: 96000,
	}, {
		name:       "sample rate only supported by one side",
		inputs:     f.aIn(),
		outputs:    f.bOut(),
		blockSize:  512,
		sampleRate: 48000,
	}}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := f.session.Initialize(c.inputs, c.outputs, c.blockSize, c.sampleRate)

			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, StateUninitialized, f.session.State())
			assert.Equal(t, uuid.Nil, f.session.Id())
			assert.Nil(t, f.session.InputLets())
			assert.Nil(t, f.session.OutputLets())
			assert.Equal(t, 0, f.session.BlockSize())
		})
	}

	assert.Equal(t, 0, f.backend.CountOf(fake.OperationOpenSession))
}

func TestSession_Initialize_twice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), nil, 512, 48000))

	err := f.session.Initialize(f.aIn(), nil, 512, 48000)

	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationOpenSession))
}

func TestSession_Initialize_backendFails(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.backend.FailWith(fake.OperationOpenSession, boom)

	err := f.session.Initialize(f.aIn(), f.bOut(), 512, 44100)

	assert.ErrorIs(t, err, boom)
	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "open session", be.Operation)
	assert.Equal(t, StateUninitialized, f.session.State())

	f.backend.FailWith(fake.OperationOpenSession, nil)
	assert.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
}

type regionDroppingBackend struct {
	*fake.Fake
}

func (this regionDroppingBackend) OpenSession(req audio.OpenRequest, receiver audio.BlockReceiver) (audio.OpenedSession, error) {
	result, err := this.Fake.OpenSession(req, receiver)
	if err == nil {
		result.OutputRegions = result.OutputRegions[1:]
	}
	return result, err
}

func TestSession_Initialize_releasesHandleIfRegionsAreBroken(t *testing.T) {
	f := newFixture(t)
	f.session.Backend = regionDroppingBackend{f.backend}

	err := f.session.Initialize(f.aIn(), f.bOut(), 512, 44100)

	assert.Error(t, err)
	assert.Equal(t, StateUninitialized, f.session.State())
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationCloseSession))
	assert.Empty(t, f.backend.OpenSessions())
}

func TestSession_InitializeWithDefaults(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.InitializeWithDefaults(f.aIn(), nil))

	assert.Equal(t, DefaultBlockSize, f.session.BlockSize())
	assert.Equal(t, f.a.CurrentSampleRate(), f.session.SampleRate())
}

func TestSession_InitializeWithDefaults_usesInputRate(t *testing.T) {
	f := newFixture(t)

	// 48000 of device A is not supported by device B
	err := f.session.InitializeWithDefaults(f.aIn(), f.bOut())

	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSession_Play(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))

	require.NoError(t, f.session.Play())
	require.NoError(t, f.session.Play())

	assert.Equal(t, StateRunning, f.session.State())
	assert.True(t, f.session.IsPlaying())
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationStart))
}

func TestSession_Play_uninitialized(t *testing.T) {
	f := newFixture(t)

	err := f.session.Play()

	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, 0, f.backend.CountOf(fake.OperationStart))
}

func TestSession_Play_backendFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	f.backend.FailWith(fake.OperationStart, errors.New("boom"))

	err := f.session.Play()

	assert.Error(t, err)
	assert.Equal(t, StateInitialized, f.session.State())
}

func TestSession_Pause(t *testing.T) {
	f := newFixture(t)

	mark := len(f.backend.Operations())
	require.NoError(t, f.session.Pause())
	assert.Empty(t, f.operationsSince(mark))

	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	mark = len(f.backend.Operations())
	require.NoError(t, f.session.Pause())
	assert.Empty(t, f.operationsSince(mark))

	require.NoError(t, f.session.Play())
	mark = len(f.backend.Operations())
	require.NoError(t, f.session.Pause())
	assert.Equal(t, []fake.Operation{fake.OperationStop}, f.operationsSince(mark))
	assert.Equal(t, StateInitialized, f.session.State())
	assert.Len(t, f.backend.OpenSessions(), 1)

	require.NoError(t, f.session.Play())
	assert.Equal(t, 2, f.backend.CountOf(fake.OperationStart))
}

func TestSession_ReturnToState_fromRunningToUninitialized(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	require.NoError(t, f.session.Play())
	require.NoError(t, f.session.Play())
	mark := len(f.backend.Operations())

	require.NoError(t, f.session.ReturnToState(StateUninitialized))

	assert.Equal(t, []fake.Operation{fake.OperationStop, fake.OperationCloseSession}, f.operationsSince(mark))
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationStart))
	assert.Equal(t, StateUninitialized, f.session.State())
	assert.False(t, f.session.HasInput())
	assert.False(t, f.session.HasOutput())
	assert.Nil(t, f.session.InputDevice())
	assert.Nil(t, f.session.OutputDevice())
	assert.Equal(t, uuid.Nil, f.session.Id())
	assert.Empty(t, f.backend.OpenSessions())
}

func TestSession_ReturnToState_neverIncreasesActivity(t *testing.T) {
	f := newFixture(t)

	for _, target := range AllStates {
		require.NoError(t, f.session.ReturnToState(target))
		assert.Equal(t, StateUninitialized, f.session.State())
	}

	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	require.NoError(t, f.session.ReturnToState(StateRunning))
	assert.Equal(t, StateInitialized, f.session.State())
	require.NoError(t, f.session.ReturnToState(StateInitialized))
	assert.Equal(t, StateInitialized, f.session.State())
	assert.Equal(t, 0, f.backend.CountOf(fake.OperationStart))
	assert.Equal(t, 0, f.backend.CountOf(fake.OperationStop))
}

func TestSession_Uninitialize_fromInitialized(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	mark := len(f.backend.Operations())

	require.NoError(t, f.session.Uninitialize())
	require.NoError(t, f.session.Uninitialize())

	assert.Equal(t, []fake.Operation{fake.OperationCloseSession}, f.operationsSince(mark))
}

func TestSession_Uninitialize_releasesHandleEvenIfStopFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	require.NoError(t, f.session.Play())
	boom := errors.New("boom")
	f.backend.FailWith(fake.OperationStop, boom)

	err := f.session.Uninitialize()

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateUninitialized, f.session.State())
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationCloseSession))
	assert.Empty(t, f.backend.OpenSessions())
}

func TestSession_Uninitialize_closeFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	f.backend.FailWith(fake.OperationCloseSession, errors.New("boom"))

	err := f.session.Uninitialize()

	assert.Error(t, err)
	assert.Equal(t, StateUninitialized, f.session.State())

	f.backend.FailWith(fake.OperationCloseSession, nil)
	assert.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
}

func TestSession_roundTrip(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	first := f.session.Id()
	require.NoError(t, f.session.Uninitialize())
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))

	assert.Equal(t, StateInitialized, f.session.State())
	assert.NotEqual(t, first, f.session.Id())
	assert.Len(t, f.backend.OpenSessions(), 1)
	assert.Equal(t, 2, f.backend.CountOf(fake.OperationOpenSession))
	assert.Equal(t, 1, f.backend.CountOf(fake.OperationCloseSession))
}

func TestSession_Dispose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	require.NoError(t, f.session.Play())

	require.NoError(t, f.session.Dispose())

	assert.True(t, f.session.IsUninitialized())
	assert.Empty(t, f.backend.OpenSessions())
}

func TestSession_lets_areCopies(t *testing.T) {
	f := newFixture(t)
	inputs := f.aIn()
	require.NoError(t, f.session.Initialize(inputs, f.bOut(), 512, 44100))

	inputs[0] = f.bOut()[0]
	returned := f.session.InputLets()
	returned[0] = f.bOut()[0]

	assert.Equal(t, f.aIn().Keys(), f.session.InputLets().Keys())
}

func TestSession_listener(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))

	var timestamps []float64
	var captured []float32
	f.session.SetListener(ListenerFuncs{
		Input: func(timestamp float64, inputs BoundLets) {
			timestamps = append(timestamps, timestamp)
			require.Len(t, inputs, 1)
			require.Equal(t, 2, inputs.Channels())
			captured = append(captured[:0], inputs[0].Channel(0).Samples()...)
		},
		Output: func(timestamp float64, outputs BoundLets) {
			for _, buffer := range outputs.Buffers() {
				buffer.Fill(0.5)
			}
		},
	})

	assert.Equal(t, 0, f.backend.Tick(), "not running yet")

	require.NoError(t, f.session.Play())
	assert.Equal(t, 1, f.backend.Tick())
	assert.Equal(t, 1, f.backend.Tick())

	assert.Equal(t, []float64{0, 512}, timestamps)
	require.Len(t, captured, 512)
	assert.NotZero(t, captured[1])

	out := f.backend.OpenSessions()[0].LastOutput()
	require.Len(t, out, 2)
	for _, channel := range out {
		require.Len(t, channel, 512)
		assert.Equal(t, float32(0.5), channel[0])
		assert.Equal(t, float32(0.5), channel[511])
	}
}

func TestSession_SetListener_whileRunning(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(nil, f.bOut(), 512, 44100))
	require.NoError(t, f.session.Play())

	first, second := 0, 0
	f.session.SetListener(ListenerFuncs{Output: func(float64, BoundLets) { first++ }})
	f.backend.Tick()
	f.session.SetListener(Listeners{
		ListenerFuncs{Output: func(float64, BoundLets) { second++ }},
		Adapter{},
	})
	f.backend.Tick()

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestSession_withoutListener_outputsSilence(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(nil, f.bOut(), 512, 44100))
	f.session.SetListener(ListenerFuncs{Output: func(_ float64, outputs BoundLets) {
		for _, buffer := range outputs.Buffers() {
			buffer.Fill(1)
		}
	}})
	require.NoError(t, f.session.Play())
	f.backend.Tick()

	f.session.SetListener(nil)
	f.backend.Tick()

	for _, channel := range f.backend.OpenSessions()[0].LastOutput() {
		assert.Equal(t, float32(0), channel[0])
	}
}

func TestSession_noCallbacksAfterUninitialize(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Initialize(f.aIn(), nil, 512, 48000))
	calls := 0
	f.session.SetListener(ListenerFuncs{Input: func(float64, BoundLets) { calls++ }})
	require.NoError(t, f.session.Play())
	f.backend.Tick()

	require.NoError(t, f.session.Uninitialize())

	assert.Equal(t, 0, f.backend.Tick())
	assert.Equal(t, 1, calls)
	assert.NotNil(t, f.session.Listener())
}

func TestSession_metrics(t *testing.T) {
	f := newFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	f.session = NewSession(f.backend, metrics)
	require.NoError(t, f.session.Initialize(f.aIn(), f.bOut(), 512, 44100))
	f.session.SetListener(Adapter{})
	require.NoError(t, f.session.Play())

	f.backend.Tick()
	f.backend.Tick()

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.inputBlocks))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.outputBlocks))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inputOverruns))
	assert.Equal(t, float64(StateRunning), testutil.ToFloat64(metrics.state))

	require.NoError(t, f.session.Uninitialize())
	assert.Equal(t, float64(StateUninitialized), testutil.ToFloat64(metrics.state))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("running", "initialized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("initialized", "uninitialized")))
}
