package controller

import (
	"time"

	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/policy"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region trigger
// Trigger names what caused a committed tier change.
type Trigger string

const (
	TriggerInitial    Trigger = "initial"    // detection resolved
	TriggerAuto       Trigger = "auto"       // debounced fps adaptation
	TriggerVisibility Trigger = "visibility" // page hidden while at high
	TriggerManual     Trigger = "manual"     // SetLevel
)

// #endregion trigger

// #region transition
// Transition is one committed change of the active tier.
type Transition struct {
	From    quality.Level `json:"from"`
	To      quality.Level `json:"to"`
	Trigger Trigger       `json:"trigger"`
	Metrics perf.Metrics  `json:"metrics"`
	Reason  string        `json:"reason"`
	At      time.Time     `json:"at"`
}

// Sink receives every committed transition, e.g. a history store.
type Sink interface {
	Record(t Transition) error
}

// VisibilitySource reports page visibility changes.
type VisibilitySource interface {
	OnVisibilityChange(fn func(hidden bool)) (detach func())
}

// #endregion transition

// #region snapshot
// Snapshot is a consistent read of everything the surface can observe.
type Snapshot struct {
	Level    quality.Level        `json:"level"`
	Settings quality.Settings     `json:"settings"`
	Metrics  perf.Metrics         `json:"metrics"`
	Rating   perf.Rating          `json:"rating"`
	Degraded bool                 `json:"degraded"`
	Adapting bool                 `json:"adapting"`
	Target   quality.Level        `json:"target,omitempty"` // set while adapting
	Profile  device.DeviceProfile `json:"profile"`
	Ready    bool                 `json:"ready"`
}

// #endregion snapshot

// #region config
// Config holds the controller knobs.
type Config struct {
	Policy           policy.PolicyConfig
	Sampler          perf.SamplerConfig
	Profiler         device.ProfilerConfig
	AdaptationDelay  time.Duration // quiescence window before an automatic commit
	OverridePersists bool          // SetLevel suspends automatic evaluation until ClearOverride
}

// DefaultConfig returns the stock thresholds with a 3s adaptation delay.
func DefaultConfig() Config {
	return Config{
		Policy:          policy.DefaultPolicyConfig(),
		Sampler:         perf.DefaultSamplerConfig(),
		Profiler:        device.DefaultProfilerConfig(),
		AdaptationDelay: 3 * time.Second,
	}
}

// #endregion config
