package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blaubaer/audio-session/pkg/audio"
)

const metricsNamespace = "audio_session"

// Metrics of a Session. A nil *Metrics records nothing.
type Metrics struct {
	blocks           *prometheus.CounterVec
	overruns         *prometheus.CounterVec
	listenerDuration *prometheus.HistogramVec
	state            prometheus.Gauge
	transitions      *prometheus.CounterVec

	// resolved once, so the real-time path does no label lookups
	inputBlocks    prometheus.Counter
	outputBlocks   prometheus.Counter
	inputOverruns  prometheus.Counter
	outputOverruns prometheus.Counter
	inputDuration  prometheus.Observer
	outputDuration prometheus.Observer
}

// NewMetrics creates the metrics and registers them at registerer, if given.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	result := &Metrics{
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_total",
			Help:      "Blocks delivered to the listener.",
		}, []string{"direction"}),
		overruns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "block_overruns_total",
			Help:      "Blocks for which the listener needed longer than the block duration.",
		}, []string{"direction"}),
		listenerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "listener_duration_seconds",
			Help:      "Time the listener needed per block.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}, []string{"direction"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "state",
			Help:      "Current state of the session (0=uninitialized, 1=initialized, 2=running).",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transitions_total",
			Help:      "State transitions of the session.",
		}, []string{"from", "to"}),
	}

	in, out := audio.DirectionInput.String(), audio.DirectionOutput.String()
	result.inputBlocks = result.blocks.WithLabelValues(in)
	result.outputBlocks = result.blocks.WithLabelValues(out)
	result.inputOverruns = result.overruns.WithLabelValues(in)
	result.outputOverruns = result.overruns.WithLabelValues(out)
	result.inputDuration = result.listenerDuration.WithLabelValues(in)
	result.outputDuration = result.listenerDuration.WithLabelValues(out)

	if registerer != nil {
		registerer.MustRegister(
			result.blocks,
			result.overruns,
			result.listenerDuration,
			result.state,
			result.transitions,
		)
	}

	return result
}

func (this *Metrics) observeBlock(direction audio.Direction, took, budget time.Duration) {
	if this == nil {
		return
	}
	if direction == audio.DirectionInput {
		this.inputBlocks.Inc()
		this.inputDuration.Observe(took.Seconds())
		if took > budget {
			this.inputOverruns.Inc()
		}
	} else {
		this.outputBlocks.Inc()
		this.outputDuration.Observe(took.Seconds())
		if took > budget {
			this.outputOverruns.Inc()
		}
	}
}

func (this *Metrics) observeTransition(from, to State) {
	if this == nil {
		return
	}
	this.state.Set(float64(to))
	this.transitions.WithLabelValues(from.String(), to.String()).Inc()
}
