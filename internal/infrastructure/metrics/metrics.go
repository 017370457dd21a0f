package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/tsmigrate/internal/pipeline"
	"github.com/nerrad567/tsmigrate/internal/sink"
)

const namespace = "tsmigrate"

// Observer records pipeline events into Prometheus collectors.
//
// Thread Safety: All methods are safe for concurrent use.
type Observer struct {
	registry *prometheus.Registry

	recordsRead   prometheus.Counter
	pointsWritten prometheus.Counter
	writeFailures *prometheus.CounterVec
	writeDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
	state         *prometheus.GaugeVec
}

var _ pipeline.Observer = (*Observer)(nil)

// New creates an Observer with its collectors registered on a fresh
// registry, together with the Go runtime and process collectors.
func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		recordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Records read from the source.",
		}),
		pointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_written_total",
			Help:      "Points accepted by the sink.",
		}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Sink write failures by error class and severity.",
		}, []string{"class", "severity"}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Time spent in a successful sink write.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Records buffered between reader and writer.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_state",
			Help:      "1 for the current pipeline state, 0 otherwise.",
		}, []string{"state"}),
	}

	o.registry.MustRegister(
		o.recordsRead,
		o.pointsWritten,
		o.writeFailures,
		o.writeDuration,
		o.queueDepth,
		o.state,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, s := range pipeline.States() {
		o.state.WithLabelValues(string(s)).Set(0)
	}
	o.state.WithLabelValues(string(pipeline.StateCreated)).Set(1)

	return o
}

// Gatherer returns the registry backing this observer.
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

func (o *Observer) StateChanged(from, to pipeline.State) {
	o.state.WithLabelValues(string(from)).Set(0)
	o.state.WithLabelValues(string(to)).Set(1)
}

func (o *Observer) RecordRead() {
	o.recordsRead.Inc()
}

func (o *Observer) PointWritten(d time.Duration) {
	o.pointsWritten.Inc()
	o.writeDuration.Observe(d.Seconds())
}

func (o *Observer) WriteFailed(class sink.Class, severity sink.Severity) {
	o.writeFailures.WithLabelValues(string(class), severity.String()).Inc()
}

func (o *Observer) QueueDepth(n int) {
	o.queueDepth.Set(float64(n))
}
