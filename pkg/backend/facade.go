package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/backend/fake"
	"github.com/blaubaer/audio-session/pkg/backend/malgo"
	"github.com/blaubaer/audio-session/pkg/backend/portaudio"
)

var ErrNotConfigured = errors.New("backend not configured")

// Facade is an audio.Backend which delegates to the backend selected by
// Configure.
type Facade struct {
	audio.Backend

	kind Type
	lock sync.RWMutex
}

func (this *Facade) Configure(conf *Configuration) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.Backend != nil {
		return nil
	}

	switch conf.Type {
	case TypeMalgo:
		this.Backend = malgo.New(conf.Malgo)
	case TypePortAudio:
		this.Backend = portaudio.New(conf.PortAudio)
	case TypeFake:
		this.Backend = fake.New(conf.Fake)
	default:
		return fmt.Errorf("unsupported backend type: %v", conf.Type)
	}
	this.kind = conf.Type

	return nil
}

func (this *Facade) delegate() (audio.Backend, error) {
	this.lock.RLock()
	defer this.lock.RUnlock()

	if v := this.Backend; v != nil {
		return v, nil
	}
	return nil, ErrNotConfigured
}

func (this *Facade) Initialize() error {
	v, err := this.delegate()
	if err != nil {
		return err
	}
	return v.Initialize()
}

func (this *Facade) Dispose() error {
	this.lock.Lock()
	defer this.lock.Unlock()

	defer func() {
		this.Backend = nil
	}()

	if v := this.Backend; v != nil {
		return v.Dispose()
	}
	return nil
}

func (this *Facade) EnumerateDevices() ([]audio.DeviceDescriptor, error) {
	v, err := this.delegate()
	if err != nil {
		return nil, err
	}
	return v.EnumerateDevices()
}

func (this *Facade) QueryLetSampleRates(device audio.DeviceId, letIndex int, direction audio.Direction) ([]float64, error) {
	v, err := this.delegate()
	if err != nil {
		return nil, err
	}
	return v.QueryLetSampleRates(device, letIndex, direction)
}

func (this *Facade) QueryBufferSizeBounds(device audio.DeviceId) (min, max int, _ error) {
	v, err := this.delegate()
	if err != nil {
		return 0, 0, err
	}
	return v.QueryBufferSizeBounds(device)
}

func (this *Facade) QueryCurrentBufferSize(device audio.DeviceId) (int, error) {
	v, err := this.delegate()
	if err != nil {
		return 0, err
	}
	return v.QueryCurrentBufferSize(device)
}

func (this *Facade) QueryCurrentSampleRate(device audio.DeviceId) (float64, error) {
	v, err := this.delegate()
	if err != nil {
		return 0, err
	}
	return v.QueryCurrentSampleRate(device)
}

func (this *Facade) OpenSession(req audio.OpenRequest, receiver audio.BlockReceiver) (audio.OpenedSession, error) {
	v, err := this.delegate()
	if err != nil {
		return audio.OpenedSession{}, err
	}
	return v.OpenSession(req, receiver)
}

func (this *Facade) CloseSession(h audio.Handle) error {
	v, err := this.delegate()
	if err != nil {
		return err
	}
	return v.CloseSession(h)
}

func (this *Facade) SetRunning(h audio.Handle, running bool) error {
	v, err := this.delegate()
	if err != nil {
		return err
	}
	return v.SetRunning(h, running)
}

func (this *Facade) GetType() Type {
	this.lock.RLock()
	defer this.lock.RUnlock()
	return this.kind
}
