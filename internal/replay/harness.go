package replay

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region types
// Result is the outcome of one expectation.
type Result struct {
	AtMS         int64
	WantLevel    quality.Level
	GotLevel     quality.Level
	WantAdapting *bool
	GotAdapting  bool
	Passed       bool
	Reason       string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Description  string
	Steps        int
	Expectations int
	Passed       int
	Failed       int
	InitialLevel quality.Level
	FinalLevel   quality.Level
	// Transitions counts transitions observed by subscribers, the initial
	// one included.
	Transitions int
}

// OK reports whether every expectation held.
func (s Summary) OK() bool { return s.Failed == 0 }

// #endregion types

// #region replay
// event is a step or an expectation on the merged timeline.
type event struct {
	at   int64
	step *Step
	want *Expectation
}

// Replay drives a controller through the fixture on a mock clock. Time zero
// is the moment detection resolved. At equal times steps run before
// expectations are checked.
func Replay(ctx context.Context, f *Fixture) ([]Result, Summary, error) {
	mock := clock.NewMock()
	platform := newTracePlatform(f.Profile)
	ctrl := controller.New(f.Config.ToControllerConfig(), controller.Deps{
		Platform: platform,
		Clock:    mock,
	})
	defer ctrl.Dispose()

	var mu sync.Mutex
	transitions := 0
	unsubscribe := ctrl.Subscribe(func(controller.Transition) {
		mu.Lock()
		transitions++
		mu.Unlock()
	})
	defer unsubscribe()

	ctrl.Start(ctx)
	select {
	case <-ctrl.Ready():
	case <-ctx.Done():
		return nil, Summary{}, fmt.Errorf("wait for detection: %w", ctx.Err())
	}

	summary := Summary{
		Description:  f.Description,
		Steps:        len(f.Steps),
		Expectations: len(f.Expectations),
		InitialLevel: ctrl.Level(),
	}

	start := mock.Now()
	results := make([]Result, 0, len(f.Expectations))
	for _, ev := range timeline(f) {
		if err := ctx.Err(); err != nil {
			return results, summary, err
		}
		target := start.Add(time.Duration(ev.at) * time.Millisecond)
		if d := target.Sub(mock.Now()); d > 0 {
			mock.Add(d)
		}

		if ev.step != nil {
			apply(ctrl, platform, *ev.step)
			continue
		}
		r := check(ctrl, *ev.want)
		if r.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		results = append(results, r)
	}

	summary.FinalLevel = ctrl.Level()
	mu.Lock()
	summary.Transitions = transitions
	mu.Unlock()
	return results, summary, nil
}

func timeline(f *Fixture) []event {
	events := make([]event, 0, len(f.Steps)+len(f.Expectations))
	i, j := 0, 0
	for i < len(f.Steps) || j < len(f.Expectations) {
		if j == len(f.Expectations) || (i < len(f.Steps) && f.Steps[i].AtMS <= f.Expectations[j].AtMS) {
			events = append(events, event{at: f.Steps[i].AtMS, step: &f.Steps[i]})
			i++
			continue
		}
		events = append(events, event{at: f.Expectations[j].AtMS, want: &f.Expectations[j]})
		j++
	}
	return events
}

// apply feeds one step. Visibility goes first so a sample in the same step
// is evaluated against the capped level.
func apply(ctrl *controller.Controller, platform *tracePlatform, s Step) {
	if s.Hidden != nil {
		ctrl.SetHidden(*s.Hidden)
	}
	if s.Width != nil {
		platform.setWidth(*s.Width)
	}
	if s.SetLevel != "" {
		if level, err := quality.Parse(s.SetLevel); err == nil {
			ctrl.SetLevel(level)
		}
	}
	if s.FPS != nil {
		ctrl.OnSample(sample(*s.FPS))
	}
}

// sample builds the metrics a sampler would publish for a steady fps.
func sample(fps int) perf.Metrics {
	m := perf.Metrics{FPS: fps}
	if fps > 0 {
		m.FrameTime = math.Round(100000/float64(fps)) / 100
	}
	return m
}

func check(ctrl *controller.Controller, want Expectation) Result {
	snap := ctrl.Snapshot()
	r := Result{
		AtMS:         want.AtMS,
		WantLevel:    want.Level,
		GotLevel:     snap.Level,
		WantAdapting: want.Adapting,
		GotAdapting:  snap.Adapting,
		Passed:       true,
	}
	switch {
	case snap.Level != want.Level:
		r.Passed = false
		r.Reason = fmt.Sprintf("level: want %s, got %s", want.Level, snap.Level)
	case want.Adapting != nil && *want.Adapting != snap.Adapting:
		r.Passed = false
		r.Reason = fmt.Sprintf("adapting: want %v, got %v", *want.Adapting, snap.Adapting)
	}
	return r
}

// #endregion replay
