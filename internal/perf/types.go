package perf

import "time"

// #region metrics

// Metrics is the snapshot published once per sampling window.
type Metrics struct {
	FPS       int     `json:"fps"`
	MemoryMB  int     `json:"memory_mb"`
	FrameTime float64 `json:"frame_time_ms"`
}

// #endregion metrics

// #region rating

// Rating is a coarse label derived from fps.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingPoor      Rating = "poor"
	RatingCritical  Rating = "critical"
)

// RatingFor maps fps onto a Rating: >=55 excellent, >=30 good, >=15 poor.
func RatingFor(fps int) Rating {
	switch {
	case fps >= 55:
		return RatingExcellent
	case fps >= 30:
		return RatingGood
	case fps >= 15:
		return RatingPoor
	default:
		return RatingCritical
	}
}

// IsDegraded reports fps below 30.
func IsDegraded(fps int) bool {
	return fps < 30
}

// #endregion rating

// #region sources

// FrameSource registers a one-shot callback for the next displayed frame,
// in the manner of requestAnimationFrame. cancel drops a pending registration.
// fn must not run before RequestFrame returns.
type FrameSource interface {
	RequestFrame(fn func(now time.Time)) (cancel func())
}

// MemoryReader reports current heap usage in megabytes.
type MemoryReader interface {
	HeapMB() (int, error)
}

// #endregion sources

// #region config

// SamplerConfig holds the sampling window knobs.
type SamplerConfig struct {
	SampleInterval time.Duration
	TargetFPS      int // published fps never exceeds this
}

// DefaultSamplerConfig returns a one second window at 60 fps.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		SampleInterval: time.Second,
		TargetFPS:      60,
	}
}

// #endregion config
