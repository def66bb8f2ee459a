// Package metrics exports executor events as Prometheus metrics.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vk/flowgrid/internal/executor"
)

const namespace = "flowgrid"

// statusValues maps engine states onto the status gauge.
var statusValues = map[executor.EventType]float64{
	executor.EventStarted:   1,
	executor.EventResumed:   1,
	executor.EventPaused:    2,
	executor.EventCompleted: 3,
	executor.EventStopped:   0,
}

// Observer is an executor.Observer that records run metrics.
type Observer struct {
	runs             *prometheus.CounterVec
	validationFailed prometheus.Counter
	activations      *prometheus.CounterVec
	failures         *prometheus.CounterVec
	messages         prometheus.Counter
	status           prometheus.Gauge
	duration         prometheus.Histogram

	mu      sync.Mutex
	started time.Time
}

// New registers the metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Run lifecycle transitions.",
		}, []string{"event"}),
		validationFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Starts rejected by graph validation.",
		}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_activations_total",
			Help:      "Messages processed, by node kind.",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_failures_total",
			Help:      "Node faults, by node kind.",
		}, []string{"kind"}),
		messages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_completed_total",
			Help:      "Messages that reached an end node.",
		}),
		status: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_status",
			Help:      "0 idle, 1 running, 2 paused, 3 completed.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time from start to completion.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		}),
	}
}

// OnEvent implements executor.Observer.
func (o *Observer) OnEvent(_ context.Context, ev executor.Event) {
	if v, ok := statusValues[ev.Type]; ok {
		o.status.Set(v)
	}

	switch ev.Type {
	case executor.EventStarted:
		o.runs.WithLabelValues(string(ev.Type)).Inc()
		o.mu.Lock()
		o.started = ev.Time
		o.mu.Unlock()
	case executor.EventCompleted:
		o.runs.WithLabelValues(string(ev.Type)).Inc()
		o.mu.Lock()
		if !o.started.IsZero() {
			o.duration.Observe(ev.Time.Sub(o.started).Seconds())
			o.started = time.Time{}
		}
		o.mu.Unlock()
	case executor.EventStopped, executor.EventPaused, executor.EventResumed:
		o.runs.WithLabelValues(string(ev.Type)).Inc()
	case executor.EventValidationFailed:
		o.validationFailed.Inc()
	case executor.EventNodeActivated:
		o.activations.WithLabelValues(string(ev.Kind)).Inc()
	case executor.EventNodeFailed:
		o.failures.WithLabelValues(string(ev.Kind)).Inc()
	case executor.EventMessageCompleted:
		o.messages.Inc()
	}
}

var _ executor.Observer = (*Observer)(nil)
