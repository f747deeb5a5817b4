package session

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/blaubaer/audio-session/pkg/audio"
)

// snapshot is everything a block callback reads. It is never mutated after it
// was published.
type snapshot struct {
	listener Listener
	inputs   BoundLets
	outputs  BoundLets
	budget   time.Duration
}

// dispatcher receives the block callbacks of the backend and forwards them to
// the listener of the current snapshot. It never locks.
type dispatcher struct {
	metrics  *Metrics
	current  atomic.Pointer[snapshot]
	inFlight atomic.Int32
}

func newDispatcher(metrics *Metrics) *dispatcher {
	return &dispatcher{metrics: metrics}
}

func (this *dispatcher) OnInput(timestamp float64) {
	this.inFlight.Add(1)
	defer this.inFlight.Add(-1)

	s := this.current.Load()
	if s == nil || s.listener == nil || len(s.inputs) == 0 {
		return
	}

	start := time.Now()
	s.listener.OnInput(timestamp, s.inputs)
	this.metrics.observeBlock(audio.DirectionInput, time.Since(start), s.budget)
}

func (this *dispatcher) OnOutput(timestamp float64) {
	this.inFlight.Add(1)
	defer this.inFlight.Add(-1)

	s := this.current.Load()
	if s == nil || len(s.outputs) == 0 {
		return
	}
	if s.listener == nil {
		silence(s.outputs)
		return
	}

	start := time.Now()
	s.listener.OnOutput(timestamp, s.outputs)
	this.metrics.observeBlock(audio.DirectionOutput, time.Since(start), s.budget)
}

// publish makes s visible to all following callbacks.
func (this *dispatcher) publish(s *snapshot) {
	this.current.Store(s)
}

// withListener publishes a copy of the current snapshot using listener.
func (this *dispatcher) withListener(listener Listener) {
	for {
		old := this.current.Load()
		if old == nil {
			return
		}
		s := *old
		s.listener = listener
		if this.current.CompareAndSwap(old, &s) {
			return
		}
	}
}

// detach removes the snapshot and waits until no callback is running
// anymore. After it returned no callback touches the bound buffers.
func (this *dispatcher) detach() {
	this.current.Store(nil)
	for this.inFlight.Load() > 0 {
		runtime.Gosched()
	}
}

func silence(lets BoundLets) {
	for _, let := range lets {
		for _, buffer := range let.buffers {
			buffer.Fill(0)
		}
	}
}
