package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultEvaluated = "evaluated"
	resultSkipped   = "skipped"
)

// Collector holds the geozone engine metrics. A nil *Collector is a valid
// no-op recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Fixes             *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	SnapshotPublishes prometheus.Counter
	ZoneRejections    *prometheus.CounterVec
	EvaluationTime    prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fixes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geozone_fixes_total",
		Help: "Position fixes seen by the tracker, labeled by whether they were evaluated or skipped.",
	}, []string{"result"}), "geozone_fixes_total")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geozone_transitions_total",
		Help: "Zone transition events emitted, labeled by event type.",
	}, []string{"type"}), "geozone_transitions_total")
	if err != nil {
		return nil, err
	}

	rejections, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geozone_zone_rejections_total",
		Help: "Zone definitions rejected by validation, labeled by error code.",
	}, []string{"code"}), "geozone_zone_rejections_total")
	if err != nil {
		return nil, err
	}

	publishes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geozone_snapshot_publishes_total",
		Help: "Zone snapshots published.",
	}), "geozone_snapshot_publishes_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geozone_evaluation_duration_seconds",
		Help:    "Time spent evaluating one position fix against a zone snapshot.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "geozone_evaluation_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		Fixes:             fixes,
		Transitions:       transitions,
		SnapshotPublishes: publishes,
		ZoneRejections:    rejections,
		EvaluationTime:    duration,
	}, nil
}

func (c *Collector) FixEvaluated(d time.Duration) {
	if c == nil {
		return
	}
	c.Fixes.WithLabelValues(resultEvaluated).Inc()
	c.EvaluationTime.Observe(d.Seconds())
}

func (c *Collector) FixSkipped() {
	if c == nil {
		return
	}
	c.Fixes.WithLabelValues(resultSkipped).Inc()
}

func (c *Collector) Transition(eventType string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(eventType).Inc()
}

func (c *Collector) SnapshotPublished() {
	if c == nil {
		return
	}
	c.SnapshotPublishes.Inc()
}

func (c *Collector) ZoneRejected(code string) {
	if c == nil {
		return
	}
	c.ZoneRejections.WithLabelValues(code).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
