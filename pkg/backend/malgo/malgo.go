package malgo

import (
	"errors"
	"fmt"
	"math"
	"sync"

	log "github.com/echocat/slf4g"
	"github.com/gen2brain/malgo"

	"github.com/blaubaer/audio-session/pkg/audio"
)

var (
	ErrNotInitialized = errors.New("miniaudio context not initialized")
	ErrUnknownHandle  = errors.New("unknown session handle")

	standardSampleRates = []float64{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000}
)

const defaultChannels = 2

// endpoint is a capture or playback device of miniaudio. miniaudio reports
// both sides of one sound card as separate devices, so every endpoint
// becomes its own audio.Device.
type endpoint struct {
	id                audio.DeviceId
	kind              malgo.DeviceType
	deviceId          malgo.DeviceID
	name              string
	channels          int
	sampleRates       []float64
	currentSampleRate float64
}

func (this *endpoint) direction() audio.Direction {
	if this.kind == malgo.Capture {
		return audio.DirectionInput
	}
	return audio.DirectionOutput
}

// Malgo is an audio.Backend using miniaudio.
type Malgo struct {
	conf Configuration

	context   *malgo.AllocatedContext
	endpoints map[audio.DeviceId]*endpoint
	sessions  map[*session]struct{}
	mutex     sync.RWMutex
}

func New(conf Configuration) *Malgo {
	return &Malgo{
		conf:      conf,
		endpoints: map[audio.DeviceId]*endpoint{},
		sessions:  map[*session]struct{}{},
	}
}

func (this *Malgo) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.context != nil {
		return nil
	}
	if this.conf.LetWidth <= 0 {
		return fmt.Errorf("illegal let width: %d", this.conf.LetWidth)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("cannot initialize miniaudio context: %w", err)
	}
	this.context = ctx

	return nil
}

func (this *Malgo) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	for s := range this.sessions {
		s.close()
	}
	clear(this.sessions)

	if this.context == nil {
		return nil
	}
	defer func() {
		this.context.Free()
		this.context = nil
	}()

	if err := this.context.Uninit(); err != nil {
		return fmt.Errorf("cannot uninitialize miniaudio context: %w", err)
	}
	return nil
}

func (this *Malgo) EnumerateDevices() ([]audio.DeviceDescriptor, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.context == nil {
		return nil, ErrNotInitialized
	}

	endpoints := map[audio.DeviceId]*endpoint{}
	var result []audio.DeviceDescriptor
	for _, kind := range []malgo.DeviceType{malgo.Capture, malgo.Playback} {
		infos, err := this.context.Devices(kind)
		if err != nil {
			return nil, fmt.Errorf("cannot list %v devices: %w", kind, err)
		}
		for _, info := range infos {
			ep := this.newEndpoint(audio.DeviceId(len(endpoints)+1), kind, info)
			endpoints[ep.id] = ep
			result = append(result, this.describe(ep))
		}
	}

	this.endpoints = endpoints
	return result, nil
}

func (this *Malgo) newEndpoint(id audio.DeviceId, kind malgo.DeviceType, info malgo.DeviceInfo) *endpoint {
	full, err := this.context.DeviceInfo(kind, info.ID, malgo.Shared)
	if err != nil {
		log.WithError(err).
			With("device", info.Name()).
			Debug("Cannot get details of device; using defaults.")
		full = info
	}

	result := &endpoint{
		id:       id,
		kind:     kind,
		deviceId: info.ID,
		name:     info.Name(),
	}

	anyRate := false
	for i := 0; i < int(full.FormatCount) && i < len(full.Formats); i++ {
		f := full.Formats[i]
		if int(f.Channels) > result.channels {
			result.channels = int(f.Channels)
		}
		if f.SampleRate == 0 {
			anyRate = true
		} else if rate := float64(f.SampleRate); !containsRate(result.sampleRates, rate) {
			result.sampleRates = append(result.sampleRates, rate)
		}
		if result.currentSampleRate == 0 && f.SampleRate != 0 {
			result.currentSampleRate = float64(f.SampleRate)
		}
	}
	if result.channels == 0 {
		result.channels = defaultChannels
	}
	if anyRate || len(result.sampleRates) == 0 {
		result.sampleRates = standardSampleRates
	}
	if result.currentSampleRate == 0 {
		result.currentSampleRate = 48000
	}

	return result
}

func containsRate(in []float64, v float64) bool {
	for _, candidate := range in {
		if candidate == v {
			return true
		}
	}
	return false
}

func (this *Malgo) describe(ep *endpoint) audio.DeviceDescriptor {
	lets := audio.GroupChannels(ep.channels, this.conf.LetWidth, ep.direction())
	result := audio.DeviceDescriptor{
		Id:   ep.id,
		Name: ep.name,
	}
	if ep.kind == malgo.Capture {
		result.Inputs = lets
	} else {
		result.Outputs = lets
	}
	return result
}

func (this *Malgo) endpoint(id audio.DeviceId) (*endpoint, error) {
	if v, ok := this.endpoints[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown device %d", id)
}

func (this *Malgo) QueryLetSampleRates(id audio.DeviceId, letIndex int, direction audio.Direction) ([]float64, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	ep, err := this.endpoint(id)
	if err != nil {
		return nil, err
	}
	if direction != ep.direction() {
		return nil, fmt.Errorf("device %d has no %v lets", id, direction)
	}
	if letIndex < 0 || letIndex*this.conf.LetWidth >= ep.channels {
		return nil, fmt.Errorf("unknown %v let %d of device %d", direction, letIndex, id)
	}
	return append([]float64(nil), ep.sampleRates...), nil
}

func (this *Malgo) QueryBufferSizeBounds(id audio.DeviceId) (min, max int, _ error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if _, err := this.endpoint(id); err != nil {
		return 0, 0, err
	}
	return this.conf.MinBufferSize, this.conf.MaxBufferSize, nil
}

func (this *Malgo) QueryCurrentBufferSize(id audio.DeviceId) (int, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if _, err := this.endpoint(id); err != nil {
		return 0, err
	}
	return this.conf.CurrentBufferSize, nil
}

func (this *Malgo) QueryCurrentSampleRate(id audio.DeviceId) (float64, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	ep, err := this.endpoint(id)
	if err != nil {
		return 0, err
	}
	return ep.currentSampleRate, nil
}

func (this *Malgo) OpenSession(req audio.OpenRequest, receiver audio.BlockReceiver) (audio.OpenedSession, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.context == nil {
		return audio.OpenedSession{}, ErrNotInitialized
	}
	if req.SampleRate != math.Trunc(req.SampleRate) || req.SampleRate <= 0 {
		return audio.OpenedSession{}, fmt.Errorf("miniaudio only supports integral sample rates, got %v", req.SampleRate)
	}

	var kind malgo.DeviceType
	switch {
	case req.HasInput() && req.HasOutput():
		kind = malgo.Duplex
	case req.HasInput():
		kind = malgo.Capture
	case req.HasOutput():
		kind = malgo.Playback
	default:
		return audio.OpenedSession{}, fmt.Errorf("session without inputs and outputs requested")
	}

	s := &session{stream: stream{
		receiver:  receiver,
		blockSize: req.BlockSize,
	}}
	inputRegions := audio.NewRegions(req.InputChannels, req.BlockSize)
	outputRegions := audio.NewRegions(req.OutputChannels, req.BlockSize)

	conf := malgo.DefaultDeviceConfig(kind)
	conf.SampleRate = uint32(req.SampleRate)
	conf.PeriodSizeInFrames = uint32(req.BlockSize)
	conf.Alsa.NoMMap = 1

	if req.HasInput() {
		ep, err := this.endpoint(req.InputDevice)
		if err != nil {
			return audio.OpenedSession{}, err
		}
		if s.inputs, err = audio.NewChannelBuffers(inputRegions); err != nil {
			return audio.OpenedSession{}, err
		}
		s.inputMap = audio.ChannelMap(req.Inputs)
		s.inputStride = ep.channels
		s.endpoints = append(s.endpoints, ep)
		conf.Capture.Format = malgo.FormatF32
		conf.Capture.Channels = uint32(ep.channels)
		conf.Capture.DeviceID = ep.deviceId.Pointer()
	}
	if req.HasOutput() {
		ep, err := this.endpoint(req.OutputDevice)
		if err != nil {
			return audio.OpenedSession{}, err
		}
		if s.outputs, err = audio.NewChannelBuffers(outputRegions); err != nil {
			return audio.OpenedSession{}, err
		}
		s.outputMap = audio.ChannelMap(req.Outputs)
		s.outputStride = ep.channels
		s.endpoints = append(s.endpoints, ep)
		conf.Playback.Format = malgo.FormatF32
		conf.Playback.Channels = uint32(ep.channels)
		conf.Playback.DeviceID = ep.deviceId.Pointer()
	}

	device, err := malgo.InitDevice(this.context.Context, conf, malgo.DeviceCallbacks{
		Data: s.process,
	})
	if err != nil {
		return audio.OpenedSession{}, fmt.Errorf("cannot initialize %v device: %w", kind, err)
	}
	s.device = device
	this.sessions[s] = struct{}{}

	log.With("kind", kind).
		With("sampleRate", req.SampleRate).
		With("blockSize", req.BlockSize).
		Debug("Device initialized.")

	return audio.OpenedSession{
		Handle:        s,
		InputRegions:  inputRegions,
		OutputRegions: outputRegions,
	}, nil
}

func (this *Malgo) session(h audio.Handle) (*session, error) {
	s, ok := h.(*session)
	if !ok {
		return nil, ErrUnknownHandle
	}
	if _, ok := this.sessions[s]; !ok {
		return nil, ErrUnknownHandle
	}
	return s, nil
}

func (this *Malgo) CloseSession(h audio.Handle) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	s, err := this.session(h)
	if err != nil {
		return err
	}
	delete(this.sessions, s)
	s.close()
	return nil
}

// SetRunning relies on miniaudio: stopping a device waits until its data
// callback returned.
func (this *Malgo) SetRunning(h audio.Handle, running bool) error {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	s, err := this.session(h)
	if err != nil {
		return err
	}
	if running {
		if err := s.device.Start(); err != nil {
			return fmt.Errorf("cannot start device: %w", err)
		}
		return nil
	}
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("cannot stop device: %w", err)
	}
	return nil
}

type session struct {
	stream
	device *malgo.Device
	// keeps the device ids referenced by the device config alive
	endpoints []*endpoint
}

func (this *session) close() {
	if v := this.device; v != nil {
		v.Uninit()
		this.device = nil
	}
}
