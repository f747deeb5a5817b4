package program

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	log "github.com/echocat/slf4g"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/blaubaer/audio-session/pkg/common"
	"github.com/blaubaer/audio-session/pkg/session"
)

const (
	recorderBitDepth = 16
	// wave format tag of integer PCM
	recorderPcmFormat = 1
	recorderQueueSize = 64
)

// Recorder writes the captured input channels interleaved into a 16 bit
// WAV file. The real-time thread only copies the block into a queue; a
// separate goroutine encodes it.
type Recorder struct {
	session.Adapter

	file     *os.File
	encoder  *wav.Encoder
	channels int
	queue    *common.RingBlockBuffer
	frame    []float32
	intData  *goaudio.IntBuffer

	stop      chan struct{}
	done      chan struct{}
	err       error
	pushErr   atomic.Pointer[error]
	closeOnce sync.Once
}

func NewRecorder(filename string, sampleRate float64, channels, blockSize int) (*Recorder, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("nothing to record: no input channels")
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", filename, err)
	}

	result := &Recorder{
		file:     f,
		encoder:  wav.NewEncoder(f, int(sampleRate), recorderBitDepth, channels, recorderPcmFormat),
		channels: channels,
		queue:    common.NewRingBlockBuffer(recorderQueueSize, uint32(channels*blockSize)),
		frame:    make([]float32, channels*blockSize),
		intData: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  int(sampleRate),
			},
			Data:           make([]int, channels*blockSize),
			SourceBitDepth: recorderBitDepth,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go result.write()

	return result, nil
}

func (this *Recorder) OnInput(_ float64, inputs session.BoundLets) {
	c := 0
	for _, let := range inputs {
		for lc := 0; lc < let.Channels(); lc++ {
			if c >= this.channels {
				break
			}
			for i, v := range let.Channel(lc).Samples() {
				this.frame[i*this.channels+c] = v
			}
			c++
		}
	}
	if _, err := this.queue.Push(this.frame); err != nil {
		this.pushErr.CompareAndSwap(nil, &err)
	}
}

func (this *Recorder) write() {
	defer close(this.done)
	for {
		select {
		case <-this.queue.Notify():
			if err := this.queue.ConsumeBlocks(this.encode); err != nil {
				this.err = err
				return
			}
		case <-this.stop:
			this.err = this.queue.ConsumeBlocks(this.encode)
			return
		}
	}
}

func (this *Recorder) encode(_ uint32, block []float32) error {
	this.intData.Data = this.intData.Data[:len(block)]
	for i, v := range block {
		this.intData.Data[i] = toInt16(v)
	}
	if err := this.encoder.Write(this.intData); err != nil {
		return fmt.Errorf("cannot write to %s: %w", this.file.Name(), err)
	}
	return nil
}

func toInt16(v float32) int {
	v = max(-1, min(1, v))
	return int(math.Round(float64(v) * math.MaxInt16))
}

// Dropped is the number of blocks which could not be queued because the
// writer was too slow.
func (this *Recorder) Dropped() uint64 {
	return this.queue.Dropped()
}

// Close writes what is still queued and finalizes the file. It must be
// called after the session stopped delivering blocks.
func (this *Recorder) Close() (rErr error) {
	this.closeOnce.Do(func() {
		close(this.stop)
		<-this.done

		rErr = this.err
		if v := this.pushErr.Load(); v != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot queue block for %s: %w", this.file.Name(), *v))
		}
		if err := this.encoder.Close(); err != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot finalize %s: %w", this.file.Name(), err))
		}
		if err := this.file.Close(); err != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot close %s: %w", this.file.Name(), err))
		}

		if dropped := this.Dropped(); dropped > 0 {
			log.With("file", this.file.Name()).
				With("dropped", dropped).
				Warn("Blocks were dropped while recording.")
		}
	})
	return
}
