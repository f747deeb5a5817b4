package fake

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/audio-session/pkg/audio"
)

var ErrUnknownHandle = errors.New("unknown session handle")

type Operation string

const (
	OperationInitialize       = Operation("initialize")
	OperationDispose          = Operation("dispose")
	OperationEnumerateDevices = Operation("enumerateDevices")
	OperationQueryCapability  = Operation("queryCapability")
	OperationOpenSession      = Operation("openSession")
	OperationCloseSession     = Operation("closeSession")
	OperationStart            = Operation("start")
	OperationStop             = Operation("stop")
)

// Call is one recorded invocation of the Fake.
type Call struct {
	Operation Operation
	Handle    audio.Handle
	Request   *audio.OpenRequest
}

// Fake is an in-memory audio.Backend. It records every call and delivers
// blocks either manually using Tick or, if configured, in real time.
type Fake struct {
	conf Configuration

	calls    []Call
	failures map[Operation]error
	sessions []*Session
	mutex    sync.Mutex
}

func New(conf Configuration) *Fake {
	return &Fake{
		conf:     conf,
		failures: map[Operation]error{},
	}
}

// FailWith makes every following call of op fail with err. A nil err removes
// the failure.
func (this *Fake) FailWith(op Operation, err error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	if err == nil {
		delete(this.failures, op)
	} else {
		this.failures[op] = err
	}
}

// Calls returns a copy of all recorded calls in order.
func (this *Fake) Calls() []Call {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return slices.Clone(this.calls)
}

// Operations returns the operations of all recorded calls, excluding
// capability queries.
func (this *Fake) Operations() (result []Operation) {
	for _, c := range this.Calls() {
		if c.Operation != OperationQueryCapability {
			result = append(result, c.Operation)
		}
	}
	return
}

func (this *Fake) CountOf(op Operation) (result int) {
	for _, c := range this.Calls() {
		if c.Operation == op {
			result++
		}
	}
	return
}

// OpenSessions returns the sessions which are not closed yet.
func (this *Fake) OpenSessions() []*Session {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return slices.Clone(this.sessions)
}

func (this *Fake) record(c Call) error {
	this.calls = append(this.calls, c)
	return this.failures[c.Operation]
}

func (this *Fake) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.record(Call{Operation: OperationInitialize})
}

func (this *Fake) Dispose() error {
	this.mutex.Lock()
	sessions := this.sessions
	this.sessions = nil
	err := this.record(Call{Operation: OperationDispose})
	this.mutex.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	return err
}

func (this *Fake) EnumerateDevices() ([]audio.DeviceDescriptor, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.record(Call{Operation: OperationEnumerateDevices}); err != nil {
		return nil, err
	}

	result := make([]audio.DeviceDescriptor, len(this.conf.Devices))
	for i, d := range this.conf.Devices {
		result[i] = audio.DeviceDescriptor{
			Id:           audio.DeviceId(d.Id),
			Name:         d.Name,
			Manufacturer: d.Manufacturer,
			Inputs:       letDescriptors(d.Inputs, audio.DirectionInput),
			Outputs:      letDescriptors(d.Outputs, audio.DirectionOutput),
		}
	}
	return result, nil
}

func letDescriptors(lets []Let, direction audio.Direction) []audio.LetDescriptor {
	result := make([]audio.LetDescriptor, len(lets))
	offset := 0
	for i, l := range lets {
		result[i] = audio.LetDescriptor{
			Index:         i,
			ChannelOffset: offset,
			Name:          l.Name,
			Direction:     direction,
			Channels:      l.Channels,
		}
		offset += l.Channels
	}
	return result
}

func (this *Fake) device(id audio.DeviceId) (*Device, error) {
	for i, d := range this.conf.Devices {
		if audio.DeviceId(d.Id) == id {
			return &this.conf.Devices[i], nil
		}
	}
	return nil, fmt.Errorf("unknown device %d", id)
}

func (this *Fake) let(id audio.DeviceId, index int, direction audio.Direction) (*Let, error) {
	d, err := this.device(id)
	if err != nil {
		return nil, err
	}
	lets := d.Inputs
	if direction == audio.DirectionOutput {
		lets = d.Outputs
	}
	if index < 0 || index >= len(lets) {
		return nil, fmt.Errorf("unknown %v let %d of device %d", direction, index, id)
	}
	return &lets[index], nil
}

func (this *Fake) query(id audio.DeviceId) (*Device, error) {
	if err := this.record(Call{Operation: OperationQueryCapability}); err != nil {
		return nil, err
	}
	return this.device(id)
}

func (this *Fake) QueryLetSampleRates(id audio.DeviceId, letIndex int, direction audio.Direction) ([]float64, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.record(Call{Operation: OperationQueryCapability}); err != nil {
		return nil, err
	}
	l, err := this.let(id, letIndex, direction)
	if err != nil {
		return nil, err
	}
	return slices.Clone(l.SampleRates), nil
}

func (this *Fake) QueryBufferSizeBounds(id audio.DeviceId) (min, max int, _ error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	d, err := this.query(id)
	if err != nil {
		return 0, 0, err
	}
	return d.MinBufferSize, d.MaxBufferSize, nil
}

func (this *Fake) QueryCurrentBufferSize(id audio.DeviceId) (int, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	d, err := this.query(id)
	if err != nil {
		return 0, err
	}
	return d.CurrentBufferSize, nil
}

func (this *Fake) QueryCurrentSampleRate(id audio.DeviceId) (float64, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	d, err := this.query(id)
	if err != nil {
		return 0, err
	}
	return d.CurrentSampleRate, nil
}

func (this *Fake) OpenSession(req audio.OpenRequest, receiver audio.BlockReceiver) (audio.OpenedSession, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.record(Call{Operation: OperationOpenSession, Request: &req}); err != nil {
		return audio.OpenedSession{}, err
	}
	if !req.HasInput() && !req.HasOutput() {
		return audio.OpenedSession{}, fmt.Errorf("session without inputs and outputs requested")
	}
	if err := this.checkSide(req.InputDevice, req.Inputs, req.BlockSize); err != nil {
		return audio.OpenedSession{}, err
	}
	if err := this.checkSide(req.OutputDevice, req.Outputs, req.BlockSize); err != nil {
		return audio.OpenedSession{}, err
	}

	s := &Session{
		request:        req,
		receiver:       receiver,
		inputRegions:   audio.NewRegions(req.InputChannels, req.BlockSize),
		outputRegions:  audio.NewRegions(req.OutputChannels, req.BlockSize),
		realtime:       this.conf.Realtime,
		inputFrequency: this.conf.InputFrequency,
	}
	this.sessions = append(this.sessions, s)

	log.With("inputs", req.InputChannels).
		With("outputs", req.OutputChannels).
		With("blockSize", req.BlockSize).
		With("sampleRate", req.SampleRate).
		Debug("Fake session opened.")

	return audio.OpenedSession{
		Handle:        s,
		InputRegions:  s.inputRegions,
		OutputRegions: s.outputRegions,
	}, nil
}

func (this *Fake) checkSide(id audio.DeviceId, lets []audio.LetDescriptor, blockSize int) error {
	if len(lets) == 0 {
		return nil
	}
	d, err := this.device(id)
	if err != nil {
		return err
	}
	if blockSize < d.MinBufferSize || blockSize > d.MaxBufferSize {
		return fmt.Errorf("block size %d not supported by device %d", blockSize, id)
	}
	for _, l := range lets {
		if _, err := this.let(id, l.Index, l.Direction); err != nil {
			return err
		}
	}
	return nil
}

func (this *Fake) session(h audio.Handle) (*Session, int, error) {
	s, ok := h.(*Session)
	if !ok {
		return nil, -1, ErrUnknownHandle
	}
	i := slices.Index(this.sessions, s)
	if i < 0 {
		return nil, -1, ErrUnknownHandle
	}
	return s, i, nil
}

func (this *Fake) CloseSession(h audio.Handle) error {
	this.mutex.Lock()
	if err := this.record(Call{Operation: OperationCloseSession, Handle: h}); err != nil {
		this.mutex.Unlock()
		return err
	}
	s, i, err := this.session(h)
	if err != nil {
		this.mutex.Unlock()
		return err
	}
	this.sessions = slices.Delete(this.sessions, i, i+1)
	this.mutex.Unlock()

	s.stop()
	return nil
}

func (this *Fake) SetRunning(h audio.Handle, running bool) error {
	op := OperationStop
	if running {
		op = OperationStart
	}

	this.mutex.Lock()
	if err := this.record(Call{Operation: op, Handle: h}); err != nil {
		this.mutex.Unlock()
		return err
	}
	s, _, err := this.session(h)
	this.mutex.Unlock()
	if err != nil {
		return err
	}

	if running {
		s.start()
	} else {
		s.stop()
	}
	return nil
}

// Tick delivers one block to every running session and returns how many
// sessions received it.
func (this *Fake) Tick() int {
	result := 0
	for _, s := range this.OpenSessions() {
		if s.deliver() {
			result++
		}
	}
	return result
}

// Session is the handle of a session opened at the Fake.
type Session struct {
	request        audio.OpenRequest
	receiver       audio.BlockReceiver
	inputRegions   [][]byte
	outputRegions  [][]byte
	realtime       bool
	inputFrequency float64

	running   atomic.Bool
	timestamp float64
	blocks    uint64
	lastOut   [][]float32

	stopTicker chan struct{}
	tickerDone chan struct{}
	delivery   sync.Mutex
	control    sync.Mutex
}

func (this *Session) Request() audio.OpenRequest {
	return this.request
}

func (this *Session) IsRunning() bool {
	return this.running.Load()
}

// Blocks returns how many blocks were delivered.
func (this *Session) Blocks() uint64 {
	this.delivery.Lock()
	defer this.delivery.Unlock()
	return this.blocks
}

// LastOutput returns a copy of the samples the receiver produced for every
// output channel in the last block.
func (this *Session) LastOutput() [][]float32 {
	this.delivery.Lock()
	defer this.delivery.Unlock()
	result := make([][]float32, len(this.lastOut))
	for i, v := range this.lastOut {
		result[i] = slices.Clone(v)
	}
	return result
}

func (this *Session) start() {
	this.control.Lock()
	defer this.control.Unlock()

	if this.running.Swap(true) || !this.realtime {
		return
	}

	this.stopTicker = make(chan struct{})
	this.tickerDone = make(chan struct{})
	go this.tick(this.stopTicker, this.tickerDone)
}

func (this *Session) tick(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(float64(this.request.BlockSize) / this.request.SampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			this.deliver()
		}
	}
}

// stop returns after the last block was delivered.
func (this *Session) stop() {
	this.control.Lock()
	defer this.control.Unlock()

	this.running.Store(false)
	if this.stopTicker != nil {
		close(this.stopTicker)
		<-this.tickerDone
		this.stopTicker, this.tickerDone = nil, nil
	}

	// waits for a Tick in progress
	this.delivery.Lock()
	this.delivery.Unlock()
}

func (this *Session) deliver() bool {
	this.delivery.Lock()
	defer this.delivery.Unlock()

	if !this.running.Load() {
		return false
	}

	if len(this.inputRegions) > 0 {
		this.capture()
		this.receiver.OnInput(this.timestamp)
	}
	if len(this.outputRegions) > 0 {
		this.receiver.OnOutput(this.timestamp)
		this.render()
	}

	this.timestamp += float64(this.request.BlockSize)
	this.blocks++
	return true
}

func (this *Session) capture() {
	bs := this.request.BlockSize
	for _, region := range this.inputRegions {
		for i := 0; i < bs; i++ {
			var v float32
			if f := this.inputFrequency; f > 0 {
				frame := this.timestamp + float64(i)
				v = float32(0.25 * math.Sin(2*math.Pi*f*frame/this.request.SampleRate))
			}
			audio.NativeByteOrder.PutUint32(region[i*audio.SampleSize:], math.Float32bits(v))
		}
	}
}

func (this *Session) render() {
	if this.lastOut == nil {
		this.lastOut = make([][]float32, len(this.outputRegions))
		for i := range this.lastOut {
			this.lastOut[i] = make([]float32, this.request.BlockSize)
		}
	}
	for c, region := range this.outputRegions {
		for i := range this.lastOut[c] {
			this.lastOut[c][i] = math.Float32frombits(audio.NativeByteOrder.Uint32(region[i*audio.SampleSize:]))
		}
	}
}
