//go:build portaudio

package portaudio

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"
	"github.com/gordonklaus/portaudio"

	"github.com/blaubaer/audio-session/pkg/audio"
)

var (
	ErrNotInitialized = errors.New("PortAudio not initialized")
	ErrUnknownHandle  = errors.New("unknown session handle")

	probedSampleRates = []float64{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000}
)

// PortAudio is an audio.Backend using PortAudio. Devices are identified by
// their PortAudio index.
type PortAudio struct {
	conf Configuration

	initialized bool
	devices     map[audio.DeviceId]*portaudio.DeviceInfo
	sessions    map[*session]struct{}
	mutex       sync.RWMutex
}

func New(conf Configuration) *PortAudio {
	return &PortAudio{
		conf:     conf,
		devices:  map[audio.DeviceId]*portaudio.DeviceInfo{},
		sessions: map[*session]struct{}{},
	}
}

func (this *PortAudio) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.initialized {
		return nil
	}
	if this.conf.LetWidth <= 0 {
		return fmt.Errorf("illegal let width: %d", this.conf.LetWidth)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("cannot initialize PortAudio: %w", err)
	}
	this.initialized = true

	log.With("version", portaudio.VersionText()).
		Debug("PortAudio initialized.")

	return nil
}

func (this *PortAudio) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return nil
	}

	var result error
	for s := range this.sessions {
		result = errors.Join(result, s.close())
	}
	clear(this.sessions)

	this.initialized = false
	if err := portaudio.Terminate(); err != nil {
		result = errors.Join(result, fmt.Errorf("cannot terminate PortAudio: %w", err))
	}
	return result
}

func (this *PortAudio) EnumerateDevices() ([]audio.DeviceDescriptor, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return nil, ErrNotInitialized
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}

	devices := make(map[audio.DeviceId]*portaudio.DeviceInfo, len(infos))
	result := make([]audio.DeviceDescriptor, len(infos))
	for i, info := range infos {
		id := audio.DeviceId(info.Index)
		devices[id] = info
		result[i] = audio.DeviceDescriptor{
			Id:      id,
			Name:    info.Name,
			Inputs:  audio.GroupChannels(info.MaxInputChannels, this.conf.LetWidth, audio.DirectionInput),
			Outputs: audio.GroupChannels(info.MaxOutputChannels, this.conf.LetWidth, audio.DirectionOutput),
		}
		if api := info.HostApi; api != nil {
			result[i].Manufacturer = api.Name
		}
	}

	this.devices = devices
	return result, nil
}

func (this *PortAudio) device(id audio.DeviceId) (*portaudio.DeviceInfo, error) {
	if v, ok := this.devices[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown device %d", id)
}

func (this *PortAudio) deviceParameters(info *portaudio.DeviceInfo, channels int, direction audio.Direction) portaudio.StreamDeviceParameters {
	result := portaudio.StreamDeviceParameters{
		Device:   info,
		Channels: channels,
	}
	switch {
	case direction == audio.DirectionInput && this.conf.HighLatency:
		result.Latency = info.DefaultHighInputLatency
	case direction == audio.DirectionInput:
		result.Latency = info.DefaultLowInputLatency
	case this.conf.HighLatency:
		result.Latency = info.DefaultHighOutputLatency
	default:
		result.Latency = info.DefaultLowOutputLatency
	}
	return result
}

// QueryLetSampleRates probes which of the common sample rates PortAudio
// accepts for the channels of the let.
func (this *PortAudio) QueryLetSampleRates(id audio.DeviceId, letIndex int, direction audio.Direction) ([]float64, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	info, err := this.device(id)
	if err != nil {
		return nil, err
	}
	channels := info.MaxOutputChannels
	if direction == audio.DirectionInput {
		channels = info.MaxInputChannels
	}
	lets := audio.GroupChannels(channels, this.conf.LetWidth, direction)
	if letIndex < 0 || letIndex >= len(lets) {
		return nil, fmt.Errorf("unknown %v let %d of device %d", direction, letIndex, id)
	}
	let := lets[letIndex]

	var result []float64
	for _, rate := range probedSampleRates {
		params := portaudio.StreamParameters{SampleRate: rate}
		parameters := this.deviceParameters(info, let.ChannelOffset+let.Channels, direction)
		if direction == audio.DirectionInput {
			params.Input = parameters
		} else {
			params.Output = parameters
		}
		if err := portaudio.IsFormatSupported(params, func(_, _ [][]float32) {}); err == nil {
			result = append(result, rate)
		}
	}
	if len(result) == 0 {
		result = append(result, info.DefaultSampleRate)
	}
	return result, nil
}

func (this *PortAudio) QueryBufferSizeBounds(id audio.DeviceId) (min, max int, _ error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if _, err := this.device(id); err != nil {
		return 0, 0, err
	}
	return this.conf.MinBufferSize, this.conf.MaxBufferSize, nil
}

// QueryCurrentBufferSize derives the block size from the default low latency
// of the device.
func (this *PortAudio) QueryCurrentBufferSize(id audio.DeviceId) (int, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	info, err := this.device(id)
	if err != nil {
		return 0, err
	}
	latency := info.DefaultLowOutputLatency
	if info.MaxOutputChannels == 0 {
		latency = info.DefaultLowInputLatency
	}
	result := int(latency.Seconds() * info.DefaultSampleRate)
	return max(this.conf.MinBufferSize, min(this.conf.MaxBufferSize, result)), nil
}

func (this *PortAudio) QueryCurrentSampleRate(id audio.DeviceId) (float64, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	info, err := this.device(id)
	if err != nil {
		return 0, err
	}
	return info.DefaultSampleRate, nil
}

func (this *PortAudio) OpenSession(req audio.OpenRequest, receiver audio.BlockReceiver) (audio.OpenedSession, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return audio.OpenedSession{}, ErrNotInitialized
	}
	if !req.HasInput() && !req.HasOutput() {
		return audio.OpenedSession{}, fmt.Errorf("session without inputs and outputs requested")
	}

	s := &session{
		receiver:  receiver,
		blockSize: req.BlockSize,
	}
	inputRegions, outputRegions := audio.NewRegions(req.InputChannels, req.BlockSize), audio.NewRegions(req.OutputChannels, req.BlockSize)
	params := portaudio.StreamParameters{
		SampleRate:      req.SampleRate,
		FramesPerBuffer: req.BlockSize,
	}

	if req.HasInput() {
		info, err := this.device(req.InputDevice)
		if err != nil {
			return audio.OpenedSession{}, err
		}
		if s.inputs, err = audio.NewChannelBuffers(inputRegions); err != nil {
			return audio.OpenedSession{}, err
		}
		s.inputMap = audio.ChannelMap(req.Inputs)
		params.Input = this.deviceParameters(info, channelsNeeded(s.inputMap), audio.DirectionInput)
	}
	if req.HasOutput() {
		info, err := this.device(req.OutputDevice)
		if err != nil {
			return audio.OpenedSession{}, err
		}
		if s.outputs, err = audio.NewChannelBuffers(outputRegions); err != nil {
			return audio.OpenedSession{}, err
		}
		s.outputMap = audio.ChannelMap(req.Outputs)
		params.Output = this.deviceParameters(info, channelsNeeded(s.outputMap), audio.DirectionOutput)
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return audio.OpenedSession{}, fmt.Errorf("cannot open stream: %w", err)
	}
	s.stream = stream
	this.sessions[s] = struct{}{}

	log.With("sampleRate", req.SampleRate).
		With("blockSize", req.BlockSize).
		Debug("Stream opened.")

	return audio.OpenedSession{
		Handle:        s,
		InputRegions:  inputRegions,
		OutputRegions: outputRegions,
	}, nil
}

func (this *PortAudio) session(h audio.Handle) (*session, error) {
	s, ok := h.(*session)
	if !ok {
		return nil, ErrUnknownHandle
	}
	if _, ok := this.sessions[s]; !ok {
		return nil, ErrUnknownHandle
	}
	return s, nil
}

func (this *PortAudio) CloseSession(h audio.Handle) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	s, err := this.session(h)
	if err != nil {
		return err
	}
	delete(this.sessions, s)
	return s.close()
}

// SetRunning relies on PortAudio: Pa_StopStream returns after all pending
// callbacks completed.
func (this *PortAudio) SetRunning(h audio.Handle, running bool) error {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	s, err := this.session(h)
	if err != nil {
		return err
	}
	if running {
		if err := s.stream.Start(); err != nil {
			return fmt.Errorf("cannot start stream: %w", err)
		}
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("cannot stop stream: %w", err)
	}
	return nil
}

// channelsNeeded is the number of device channels a stream must open to
// reach every mapped channel.
func channelsNeeded(channelMap []int) (result int) {
	for _, v := range channelMap {
		result = max(result, v+1)
	}
	return
}

type session struct {
	receiver  audio.BlockReceiver
	blockSize int
	inputs    []*audio.ChannelBuffer
	inputMap  []int
	outputs   []*audio.ChannelBuffer
	outputMap []int
	timestamp float64
	stream    *portaudio.Stream
}

// process is called by PortAudio with exactly blockSize frames in
// non-interleaved channels.
func (this *session) process(in, out [][]float32) {
	if len(this.inputs) > 0 {
		for c, buffer := range this.inputs {
			buffer.CopyFrom(in[this.inputMap[c]])
		}
		this.receiver.OnInput(this.timestamp)
	}
	if len(this.outputs) > 0 {
		for _, channel := range out {
			clear(channel)
		}
		this.receiver.OnOutput(this.timestamp)
		for c, buffer := range this.outputs {
			copy(out[this.outputMap[c]], buffer.Samples())
		}
	}
	this.timestamp += float64(this.blockSize)
}

func (this *session) close() error {
	if v := this.stream; v != nil {
		this.stream = nil
		if err := v.Close(); err != nil {
			return fmt.Errorf("cannot close stream: %w", err)
		}
	}
	return nil
}
