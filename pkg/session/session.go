package session

import (
	"errors"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/google/uuid"

	"github.com/blaubaer/audio-session/pkg/audio"
)

// DefaultBlockSize is used by InitializeWithDefaults.
const DefaultBlockSize = 512

// Session binds lets of at most one input and one output device to the
// backend and delivers their blocks to a Listener.
//
// All methods which change the state are mutually exclusive. The block
// callbacks never wait for them: they read an immutable snapshot which is
// replaced atomically.
type Session struct {
	Backend audio.Backend
	Metrics *Metrics

	id           uuid.UUID
	state        State
	inputDevice  *audio.Device
	outputDevice *audio.Device
	inputs       BoundLets
	outputs      BoundLets
	blockSize    int
	sampleRate   float64
	handle       audio.Handle
	listener     Listener
	dispatcher   *dispatcher

	mutex sync.RWMutex
}

func NewSession(backend audio.Backend, metrics *Metrics) *Session {
	return &Session{
		Backend:    backend,
		Metrics:    metrics,
		dispatcher: newDispatcher(metrics),
	}
}

// Initialize binds inputs and outputs with the given block size and sample
// rate and opens the backend session. It is only allowed in
// StateUninitialized. If it fails, nothing was changed.
func (this *Session) Initialize(inputs, outputs audio.Lets, blockSize int, sampleRate float64) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.state != StateUninitialized {
		return illegalState("cannot initialize session which is %v", this.state)
	}
	if this.Backend == nil {
		return illegalState("session has no backend")
	}
	if err := validate(inputs, outputs, blockSize, sampleRate); err != nil {
		return err
	}

	inputs, outputs = audio.NewLets(inputs...), audio.NewLets(outputs...)
	request := audio.OpenRequest{
		Inputs:         inputs.Descriptors(),
		InputChannels:  inputs.Channels(),
		InputDevice:    deviceIdOf(inputs),
		Outputs:        outputs.Descriptors(),
		OutputChannels: outputs.Channels(),
		OutputDevice:   deviceIdOf(outputs),
		BlockSize:      blockSize,
		SampleRate:     sampleRate,
	}

	opened, err := this.Backend.OpenSession(request, this.dispatcher)
	if err != nil {
		return &BackendError{Operation: "open session", Err: err}
	}
	if opened.Handle == nil {
		return &BackendError{Operation: "open session", Err: errors.New("no handle returned")}
	}

	boundInputs, err := bindLets(inputs, opened.InputRegions, blockSize)
	if err != nil {
		return this.abandon(opened.Handle, err)
	}
	boundOutputs, err := bindLets(outputs, opened.OutputRegions, blockSize)
	if err != nil {
		return this.abandon(opened.Handle, err)
	}

	this.id = uuid.New()
	this.inputDevice = inputs.Device()
	this.outputDevice = outputs.Device()
	this.inputs = boundInputs
	this.outputs = boundOutputs
	this.blockSize = blockSize
	this.sampleRate = sampleRate
	this.handle = opened.Handle

	this.dispatcher.publish(&snapshot{
		listener: this.listener,
		inputs:   boundInputs,
		outputs:  boundOutputs,
		budget:   time.Duration(float64(blockSize) / sampleRate * float64(time.Second)),
	})
	this.setState(StateInitialized)

	log.With("session", this.id).
		With("inputs", inputs).
		With("outputs", outputs).
		With("blockSize", blockSize).
		With("sampleRate", sampleRate).
		Info("Session initialized.")

	return nil
}

// InitializeWithDefaults calls Initialize with DefaultBlockSize and the
// current sample rate of the input device or, if there are no inputs, of the
// output device.
func (this *Session) InitializeWithDefaults(inputs, outputs audio.Lets) error {
	var sampleRate float64
	if d := inputs.Device(); d != nil {
		sampleRate = d.CurrentSampleRate()
	} else if d := outputs.Device(); d != nil {
		sampleRate = d.CurrentSampleRate()
	}
	return this.Initialize(inputs, outputs, DefaultBlockSize, sampleRate)
}

func validate(inputs, outputs audio.Lets, blockSize int, sampleRate float64) error {
	if !audio.Verify(inputs) {
		return invalidArgument("input lets do not share one device and direction: %v", inputs)
	}
	if !audio.Verify(outputs) {
		return invalidArgument("output lets do not share one device and direction: %v", outputs)
	}
	if inputs.IsZero() && outputs.IsZero() {
		return invalidArgument("neither input nor output lets provided")
	}
	if inputs.HasContent() && inputs[0].Direction() != audio.DirectionInput {
		return invalidArgument("input lets are not capturing: %v", inputs)
	}
	if outputs.HasContent() && outputs[0].Direction() != audio.DirectionOutput {
		return invalidArgument("output lets are not playing: %v", outputs)
	}
	for _, device := range []*audio.Device{inputs.Device(), outputs.Device()} {
		if device != nil && !device.AcceptsBufferSize(blockSize) {
			return invalidArgument("block size %d is outside of [%d, %d] supported by device %v", blockSize, device.MinBufferSize(), device.MaxBufferSize(), device)
		}
	}
	for _, lets := range []audio.Lets{inputs, outputs} {
		for _, let := range lets {
			if !let.CanSampleRate(sampleRate) {
				return invalidArgument("sample rate %v is not supported by let %v of device %v; supported are %v", sampleRate, let, let.Device(), let.SampleRates())
			}
		}
	}
	return nil
}

func deviceIdOf(lets audio.Lets) audio.DeviceId {
	if d := lets.Device(); d != nil {
		return d.Id()
	}
	return audio.NoDevice
}

// abandon closes a handle which was opened but could not be bound.
func (this *Session) abandon(handle audio.Handle, cause error) error {
	err := &BackendError{Operation: "provide channel regions", Err: cause}
	if cErr := this.Backend.CloseSession(handle); cErr != nil {
		return errors.Join(err, &BackendError{Operation: "close session", Err: cErr})
	}
	return err
}

// Play starts the delivery of blocks. It does nothing if the session is
// already running.
func (this *Session) Play() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	switch this.state {
	case StateRunning:
		return nil
	case StateUninitialized:
		return illegalState("cannot play session which is %v", this.state)
	}

	if err := this.Backend.SetRunning(this.handle, true); err != nil {
		return &BackendError{Operation: "start session", Err: err}
	}
	this.setState(StateRunning)

	log.With("session", this.id).
		Debug("Session playing.")

	return nil
}

// Pause stops the delivery of blocks but keeps the backend session open. It
// does nothing unless the session is running.
func (this *Session) Pause() error {
	return this.ReturnToState(StateInitialized)
}

// Uninitialize stops the session if required and releases the backend
// session. It does nothing if the session is not initialized.
func (this *Session) Uninitialize() error {
	return this.ReturnToState(StateUninitialized)
}

// Dispose is Uninitialize for the teardown of the process.
func (this *Session) Dispose() error {
	return this.Uninitialize()
}

// ReturnToState brings the session down to target. It never makes the
// session more active: if the session already is at or below target it does
// nothing. Every effect of the way down is applied even if a previous one
// failed, so the backend session is always released when target is
// StateUninitialized.
func (this *Session) ReturnToState(target State) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	var result error
	for _, e := range collapsePlan(this.state, target) {
		switch e {
		case effectStop:
			result = errors.Join(result, this.stop())
		case effectClose:
			result = errors.Join(result, this.close())
		}
	}
	return result
}

func (this *Session) stop() error {
	this.setState(StateInitialized)
	if err := this.Backend.SetRunning(this.handle, false); err != nil {
		return &BackendError{Operation: "stop session", Err: err}
	}

	log.With("session", this.id).
		Debug("Session paused.")

	return nil
}

func (this *Session) close() error {
	this.dispatcher.detach()

	id, handle := this.id, this.handle
	this.id = uuid.Nil
	this.inputDevice = nil
	this.outputDevice = nil
	this.inputs = nil
	this.outputs = nil
	this.blockSize = 0
	this.sampleRate = 0
	this.handle = nil
	this.setState(StateUninitialized)

	if err := this.Backend.CloseSession(handle); err != nil {
		return &BackendError{Operation: "close session", Err: err}
	}

	log.With("session", id).
		Info("Session uninitialized.")

	return nil
}

func (this *Session) setState(v State) {
	if old := this.state; old != v {
		this.state = v
		this.Metrics.observeTransition(old, v)
	}
}

// SetListener replaces the listener. It is allowed in every state; the next
// block goes to the new listener. A nil listener makes outputs silent.
func (this *Session) SetListener(v Listener) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.listener = v
	this.dispatcher.withListener(v)
}

func (this *Session) Listener() Listener {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.listener
}

func (this *Session) State() State {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.state
}

func (this *Session) IsPlaying() bool {
	return this.State() == StateRunning
}

// IsInitialized reports whether the session is initialized, which is also
// the case while it is playing.
func (this *Session) IsInitialized() bool {
	return this.State() != StateUninitialized
}

func (this *Session) IsUninitialized() bool {
	return this.State() == StateUninitialized
}

func (this *Session) HasInput() bool {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return len(this.inputs) > 0
}

func (this *Session) HasOutput() bool {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return len(this.outputs) > 0
}

// Id changes with every Initialize. It is uuid.Nil while uninitialized.
func (this *Session) Id() uuid.UUID {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.id
}

func (this *Session) InputDevice() *audio.Device {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.inputDevice
}

func (this *Session) OutputDevice() *audio.Device {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.outputDevice
}

// InputLets returns a copy of the bound input lets.
func (this *Session) InputLets() audio.Lets {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	if len(this.inputs) == 0 {
		return nil
	}
	return this.inputs.Lets()
}

// OutputLets returns a copy of the bound output lets.
func (this *Session) OutputLets() audio.Lets {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	if len(this.outputs) == 0 {
		return nil
	}
	return this.outputs.Lets()
}

func (this *Session) BlockSize() int {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.blockSize
}

func (this *Session) SampleRate() float64 {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.sampleRate
}
