package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/policy"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay trace.
type Fixture struct {
	Description  string               `json:"description"`
	Profile      device.DeviceProfile `json:"profile"`
	Config       FixtureConfig        `json:"config"`
	Steps        []Step               `json:"steps"`
	Expectations []Expectation        `json:"expectations"`
}

// FixtureConfig overrides controller knobs. Zero fields keep the defaults.
type FixtureConfig struct {
	LowFPS            int   `json:"low_fps"`
	MediumFPS         int   `json:"medium_fps"`
	HighFPS           int   `json:"high_fps"`
	AdaptationDelayMS int64 `json:"adaptation_delay_ms"`
	OverridePersists  bool  `json:"override_persists"`
}

// Step is one input applied at AtMS after detection resolved.
// Nil fields are not applied.
type Step struct {
	AtMS     int64  `json:"at_ms"`
	FPS      *int   `json:"fps,omitempty"`
	Hidden   *bool  `json:"hidden,omitempty"`
	Width    *int   `json:"width,omitempty"`
	SetLevel string `json:"set_level,omitempty"`
}

// Expectation is checked at AtMS, after any step at the same time.
type Expectation struct {
	AtMS     int64         `json:"at_ms"`
	Level    quality.Level `json:"level"`
	Adapting *bool         `json:"adapting,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads, parses and validates a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate rejects negative times, unknown levels and impossible widths,
// and orders steps and expectations by time. Equal times keep file order.
func (f *Fixture) Validate() error {
	var errs []error
	for i, s := range f.Steps {
		if s.AtMS < 0 {
			errs = append(errs, fmt.Errorf("step %d: negative at_ms", i))
		}
		if s.SetLevel != "" {
			if _, err := quality.Parse(s.SetLevel); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i, err))
			}
		}
		if s.FPS != nil && *s.FPS < 0 {
			errs = append(errs, fmt.Errorf("step %d: negative fps", i))
		}
		if s.Width != nil && *s.Width <= 0 {
			errs = append(errs, fmt.Errorf("step %d: width must be positive", i))
		}
	}
	for i, e := range f.Expectations {
		if e.AtMS < 0 {
			errs = append(errs, fmt.Errorf("expectation %d: negative at_ms", i))
		}
		if !e.Level.Valid() {
			errs = append(errs, fmt.Errorf("expectation %d: %w: %q", i, quality.ErrUnknownLevel, e.Level))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	sort.SliceStable(f.Steps, func(i, j int) bool { return f.Steps[i].AtMS < f.Steps[j].AtMS })
	sort.SliceStable(f.Expectations, func(i, j int) bool { return f.Expectations[i].AtMS < f.Expectations[j].AtMS })
	return nil
}

// ToControllerConfig layers the overrides onto the default controller config.
func (fc FixtureConfig) ToControllerConfig() controller.Config {
	cfg := controller.DefaultConfig()
	p := policy.DefaultPolicyConfig()
	if fc.LowFPS > 0 {
		p.LowFPS = fc.LowFPS
	}
	if fc.MediumFPS > 0 {
		p.MediumFPS = fc.MediumFPS
	}
	if fc.HighFPS > 0 {
		p.HighFPS = fc.HighFPS
	}
	cfg.Policy = p
	if fc.AdaptationDelayMS > 0 {
		cfg.AdaptationDelay = time.Duration(fc.AdaptationDelayMS) * time.Millisecond
	}
	cfg.OverridePersists = fc.OverridePersists
	return cfg
}

// #endregion fixture-loader
