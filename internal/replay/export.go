package replay

import (
	"fmt"
	"time"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/history"
)

// #region export

// manualGapMS separates a checked change from the next step.
const manualGapMS = 100

// FromSession rebuilds a replay trace from a recorded session. Recorded
// wall-clock gaps are not kept: each automatic change becomes one sample of
// its recorded fps followed by an expectation one adaptation window later,
// and manual or visibility changes become immediate steps.
func FromSession(sess history.Session, chain []history.TransitionRecord, cfg FixtureConfig) (*Fixture, error) {
	delay := cfg.ToControllerConfig().AdaptationDelay.Milliseconds()
	f := &Fixture{
		Description: fmt.Sprintf("session %s recorded %s", sess.ID, sess.StartedAt.Format(time.RFC3339)),
		Profile:     sess.Profile,
		Config:      cfg,
	}

	var at int64
	for i, rec := range chain {
		switch rec.Trigger {
		case controller.TriggerInitial:
			f.Expectations = append(f.Expectations, Expectation{AtMS: at, Level: rec.To})
		case controller.TriggerAuto:
			fps := rec.Metrics.FPS
			f.Steps = append(f.Steps, Step{AtMS: at, FPS: &fps})
			f.Expectations = append(f.Expectations, Expectation{AtMS: at + delay, Level: rec.To})
			at += delay + manualGapMS
		case controller.TriggerManual:
			f.Steps = append(f.Steps, Step{AtMS: at, SetLevel: string(rec.To)})
			f.Expectations = append(f.Expectations, Expectation{AtMS: at, Level: rec.To})
			at += manualGapMS
		case controller.TriggerVisibility:
			hidden := true
			f.Steps = append(f.Steps, Step{AtMS: at, Hidden: &hidden})
			f.Expectations = append(f.Expectations, Expectation{AtMS: at, Level: rec.To})
			at += manualGapMS
		default:
			return nil, fmt.Errorf("transition %d (%s): unknown trigger %q", i, rec.VersionID, rec.Trigger)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("derived fixture: %w", err)
	}
	return f, nil
}

// #endregion export
