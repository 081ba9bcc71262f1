package policy

import (
	"fmt"

	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region initial
// InitialLevel seeds the controller from a detected profile.
// Mobile and low-power devices never start at high.
func InitialLevel(p device.DeviceProfile) quality.Level {
	constrained := p.IsMobile || p.IsLowPower
	switch {
	case constrained && p.GPUTier == device.GPUHigh:
		return quality.LevelMedium
	case constrained:
		return quality.LevelLow
	case p.GPUTier == device.GPUHigh:
		return quality.LevelHigh
	case p.GPUTier == device.GPUMedium:
		return quality.LevelMedium
	default:
		return quality.LevelLow
	}
}

// #endregion initial

// #region evaluate
// Evaluator applies the transition rule to fps samples.
type Evaluator struct {
	config PolicyConfig
}

// NewEvaluator creates an evaluator. Zero thresholds take the defaults.
func NewEvaluator(config PolicyConfig) *Evaluator {
	def := DefaultPolicyConfig()
	if config.LowFPS <= 0 {
		config.LowFPS = def.LowFPS
	}
	if config.MediumFPS <= 0 {
		config.MediumFPS = def.MediumFPS
	}
	if config.HighFPS <= 0 {
		config.HighFPS = def.HighFPS
	}
	return &Evaluator{config: config}
}

// Config returns the effective thresholds.
func (e *Evaluator) Config() PolicyConfig {
	return e.config
}

// Evaluate picks the target tier for one sample. Rules are checked in order;
// the first match wins. Upgrades move one step and never happen on mobile.
func (e *Evaluator) Evaluate(current quality.Level, fps int, mobile bool) Decision {
	c := e.config
	switch {
	case fps < c.LowFPS:
		return decide(current, quality.LevelMinimal,
			fmt.Sprintf("fps %d below %d", fps, c.LowFPS))
	case fps < c.MediumFPS:
		return decide(current, quality.LevelLow,
			fmt.Sprintf("fps %d below %d", fps, c.MediumFPS))
	case fps < c.HighFPS && current == quality.LevelHigh:
		return decide(current, quality.LevelMedium,
			fmt.Sprintf("fps %d below %d at high", fps, c.HighFPS))
	case fps >= c.HighFPS && current != quality.LevelHigh && !mobile:
		return decide(current, current.Up(),
			fmt.Sprintf("fps %d at or above %d", fps, c.HighFPS))
	}
	return Decision{
		Action:  ActionHold,
		Current: current,
		Target:  current,
		Reason:  fmt.Sprintf("fps %d: no rule matched", fps),
	}
}

func decide(current, target quality.Level, reason string) Decision {
	if target == current {
		return Decision{
			Action:  ActionHold,
			Current: current,
			Target:  current,
			Reason:  "already at target: " + reason,
		}
	}
	return Decision{
		Action:  ActionAdapt,
		Current: current,
		Target:  target,
		Reason:  reason,
	}
}

// #endregion evaluate
