package policy

import "github.com/strandline/quality-controller/internal/quality"

// #region action
// Action is the outcome of evaluating one performance sample.
type Action string

const (
	ActionHold  Action = "hold"  // no transition wanted
	ActionAdapt Action = "adapt" // target differs from current, debounce before committing
)

// #endregion action

// #region policy-config
// PolicyConfig holds the fps thresholds of the transition rule.
type PolicyConfig struct {
	LowFPS    int // below: minimal
	MediumFPS int // below: low
	HighFPS   int // below: cap high at medium; at or above: step up
}

// DefaultPolicyConfig returns the 15/30/50 thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		LowFPS:    15,
		MediumFPS: 30,
		HighFPS:   50,
	}
}

// #endregion policy-config

// #region decision
// Decision is the output of Evaluate.
type Decision struct {
	Action  Action
	Current quality.Level
	Target  quality.Level // equals Current when Action is hold
	Reason  string
}

// #endregion decision
