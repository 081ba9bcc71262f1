package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region collector
// Collector exports per-surface quality metrics. Every series carries a
// "surface" label naming the controller it came from.
type Collector struct {
	registry *prometheus.Registry

	fps         *prometheus.GaugeVec
	frameTime   *prometheus.GaugeVec
	memory      *prometheus.GaugeVec
	level       *prometheus.GaugeVec
	adapting    *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quality_fps",
			Help: "Frames per second over the last sampling window",
		}, []string{"surface"}),
		frameTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quality_frame_time_ms",
			Help: "Average frame duration over the last sampling window",
		}, []string{"surface"}),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quality_memory_mb",
			Help: "Heap usage in megabytes, 0 when unavailable",
		}, []string{"surface"}),
		level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quality_level",
			Help: "Active quality tier: 0 minimal, 1 low, 2 medium, 3 high",
		}, []string{"surface"}),
		adapting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quality_adapting",
			Help: "1 while a tier change is waiting out its window",
		}, []string{"surface"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quality_transitions_total",
			Help: "Committed tier changes",
		}, []string{"surface", "trigger", "to"}),
	}
	c.registry.MustRegister(c.fps, c.frameTime, c.memory, c.level, c.adapting, c.transitions)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// #endregion collector

// #region observe

// ObserveMetrics records one published sample.
func (c *Collector) ObserveMetrics(surface string, m perf.Metrics) {
	c.fps.WithLabelValues(surface).Set(float64(m.FPS))
	c.frameTime.WithLabelValues(surface).Set(m.FrameTime)
	c.memory.WithLabelValues(surface).Set(float64(m.MemoryMB))
}

// ObserveSnapshot records level and adapting state.
func (c *Collector) ObserveSnapshot(surface string, s controller.Snapshot) {
	c.level.WithLabelValues(surface).Set(LevelValue(s.Level))
	c.adapting.WithLabelValues(surface).Set(boolGauge(s.Adapting))
}

// ObserveTransition counts one committed change.
func (c *Collector) ObserveTransition(surface string, t controller.Transition) {
	c.transitions.WithLabelValues(surface, string(t.Trigger), string(t.To)).Inc()
	c.level.WithLabelValues(surface).Set(LevelValue(t.To))
}

// Forget drops every series of a surface.
func (c *Collector) Forget(surface string) {
	labels := prometheus.Labels{"surface": surface}
	c.fps.DeletePartialMatch(labels)
	c.frameTime.DeletePartialMatch(labels)
	c.memory.DeletePartialMatch(labels)
	c.level.DeletePartialMatch(labels)
	c.adapting.DeletePartialMatch(labels)
	c.transitions.DeletePartialMatch(labels)
}

// #endregion observe

// #region attach

// Attach feeds a controller's samples and transitions into the collector
// under the given surface label. The returned func detaches and forgets
// the surface.
func (c *Collector) Attach(surface string, ctrl *controller.Controller) (detach func()) {
	c.level.WithLabelValues(surface).Set(LevelValue(ctrl.Level()))
	c.adapting.WithLabelValues(surface).Set(0)

	unsubMetrics := ctrl.OnMetrics(func(m perf.Metrics) {
		c.ObserveMetrics(surface, m)
		c.ObserveSnapshot(surface, ctrl.Snapshot())
	})
	unsubTransitions := ctrl.Subscribe(func(t controller.Transition) {
		c.ObserveTransition(surface, t)
	})
	return func() {
		unsubMetrics()
		unsubTransitions()
		c.Forget(surface)
	}
}

// #endregion attach

// LevelValue maps a tier to its gauge value.
func LevelValue(l quality.Level) float64 {
	return float64(l.Rank())
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
