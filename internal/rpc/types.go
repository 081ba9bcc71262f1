package rpc

import (
	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region backend
// Backend is the controller surface the service exposes.
// *controller.Controller satisfies it.
type Backend interface {
	Snapshot() controller.Snapshot
	SetLevel(level quality.Level)
	SetHidden(hidden bool)
	Subscribe(fn func(controller.Transition)) (unsubscribe func())
}

// #endregion backend

// #region metrics-report
// MetricsReport is the GetMetrics payload.
type MetricsReport struct {
	Level     quality.Level `json:"level"`
	FPS       int           `json:"fps"`
	MemoryMB  int           `json:"memory_mb"`
	FrameTime float64       `json:"frame_time_ms"`
	Rating    perf.Rating   `json:"rating"`
	Degraded  bool          `json:"degraded"`
	Adapting  bool          `json:"adapting"`
	Target    quality.Level `json:"target,omitempty"`
	Ready     bool          `json:"ready"`
}

func reportFrom(s controller.Snapshot) MetricsReport {
	return MetricsReport{
		Level:     s.Level,
		FPS:       s.Metrics.FPS,
		MemoryMB:  s.Metrics.MemoryMB,
		FrameTime: s.Metrics.FrameTime,
		Rating:    s.Rating,
		Degraded:  s.Degraded,
		Adapting:  s.Adapting,
		Target:    s.Target,
		Ready:     s.Ready,
	}
}

// #endregion metrics-report
