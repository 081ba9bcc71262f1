package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/quality"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func run(t *testing.T, f *Fixture) ([]Result, Summary) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, summary, err := Replay(ctx, f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return results, summary
}

// #region fixture-tests

// TestFixtures replays every trace under testdata and requires each
// expectation to hold. New traces are picked up automatically.
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures under testdata")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := LoadFixture(path)
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			results, summary := run(t, f)
			if len(results) != len(f.Expectations) {
				t.Fatalf("expected %d results, got %d", len(f.Expectations), len(results))
			}
			for _, r := range results {
				if !r.Passed {
					t.Errorf("at %dms: %s", r.AtMS, r.Reason)
				}
			}
			if !summary.OK() {
				t.Errorf("%s: %d of %d expectations failed", f.Description, summary.Failed, summary.Expectations)
			}
		})
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadFixture_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json}"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		f    Fixture
	}{
		{"negative step time", Fixture{Steps: []Step{{AtMS: -1}}}},
		{"unknown set_level", Fixture{Steps: []Step{{SetLevel: "ultra"}}}},
		{"negative fps", Fixture{Steps: []Step{{FPS: intp(-3)}}}},
		{"zero width", Fixture{Steps: []Step{{Width: intp(0)}}}},
		{"unknown expected level", Fixture{Expectations: []Expectation{{Level: "max"}}}},
	}
	for _, tt := range tests {
		if err := tt.f.Validate(); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestValidate_SortsStable(t *testing.T) {
	f := Fixture{Steps: []Step{
		{AtMS: 200, FPS: intp(1)},
		{AtMS: 100, FPS: intp(2)},
		{AtMS: 200, FPS: intp(3)},
	}}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := []int{*f.Steps[0].FPS, *f.Steps[1].FPS, *f.Steps[2].FPS}
	if got[0] != 2 || got[1] != 1 || got[2] != 3 {
		t.Errorf("expected order [2 1 3], got %v", got)
	}
}

// #endregion fixture-tests

// #region harness-tests

func TestTimeline_StepsBeforeExpectations(t *testing.T) {
	f := &Fixture{
		Steps:        []Step{{AtMS: 0}, {AtMS: 100}},
		Expectations: []Expectation{{AtMS: 0}, {AtMS: 50}, {AtMS: 100}},
	}
	events := timeline(f)
	kinds := ""
	for _, ev := range events {
		if ev.step != nil {
			kinds += "s"
		} else {
			kinds += "e"
		}
	}
	if kinds != "seese" {
		t.Errorf("expected order seese, got %s", kinds)
	}
}

func TestReplay_ReportsFailures(t *testing.T) {
	f := &Fixture{
		Profile: device.DeviceProfile{GPUTier: device.GPUHigh},
		Expectations: []Expectation{
			{AtMS: 0, Level: quality.LevelHigh},
			{AtMS: 0, Level: quality.LevelLow},
			{AtMS: 0, Level: quality.LevelHigh, Adapting: boolp(true)},
		},
	}
	results, summary := run(t, f)

	if summary.Passed != 1 || summary.Failed != 2 {
		t.Fatalf("expected 1 passed / 2 failed, got %d / %d", summary.Passed, summary.Failed)
	}
	if summary.OK() {
		t.Error("expected OK()=false")
	}
	if results[1].GotLevel != quality.LevelHigh || results[1].Reason == "" {
		t.Errorf("expected level mismatch with reason, got %+v", results[1])
	}
	if results[2].Reason == "" {
		t.Error("expected adapting mismatch reason")
	}
}

func TestReplay_InitialLevelFromProfile(t *testing.T) {
	tests := []struct {
		profile device.DeviceProfile
		want    quality.Level
	}{
		{device.DeviceProfile{GPUTier: device.GPUHigh}, quality.LevelHigh},
		{device.DeviceProfile{GPUTier: device.GPUMedium}, quality.LevelMedium},
		{device.DeviceProfile{GPUTier: device.GPULow}, quality.LevelLow},
		{device.DeviceProfile{GPUTier: device.GPUNone}, quality.LevelLow},
		{device.DeviceProfile{IsMobile: true, GPUTier: device.GPUHigh}, quality.LevelMedium},
		{device.DeviceProfile{IsLowPower: true, GPUTier: device.GPUHigh}, quality.LevelMedium},
		{device.DeviceProfile{IsLowPower: true, GPUTier: device.GPUMedium}, quality.LevelLow},
	}
	for _, tt := range tests {
		_, summary := run(t, &Fixture{Profile: tt.profile})
		if summary.InitialLevel != tt.want {
			t.Errorf("%+v: expected %s, got %s", tt.profile, tt.want, summary.InitialLevel)
		}
	}
}

func TestReplay_ResizeToDesktopAllowsUpgrade(t *testing.T) {
	f := &Fixture{
		Profile: device.DeviceProfile{IsMobile: true, GPUTier: device.GPUHigh},
		Steps: []Step{
			{AtMS: 0, FPS: intp(60)},
			{AtMS: 1000, Width: intp(1440)},
			{AtMS: 1000, FPS: intp(60)},
		},
		Expectations: []Expectation{
			{AtMS: 0, Level: quality.LevelMedium, Adapting: boolp(false)},
			{AtMS: 4000, Level: quality.LevelHigh},
		},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	results, summary := run(t, f)
	if !summary.OK() {
		for _, r := range results {
			if !r.Passed {
				t.Errorf("at %dms: %s", r.AtMS, r.Reason)
			}
		}
	}
}

func TestReplay_ManualTransitionsCounted(t *testing.T) {
	f := &Fixture{
		Profile: device.DeviceProfile{GPUTier: device.GPUMedium},
		Steps: []Step{
			{AtMS: 10, SetLevel: "high"},
			{AtMS: 20, SetLevel: "minimal"},
		},
	}
	_, summary := run(t, f)
	if summary.Transitions != 3 {
		t.Errorf("expected 3 transitions (initial + 2 manual), got %d", summary.Transitions)
	}
	if summary.FinalLevel != quality.LevelMinimal {
		t.Errorf("expected final minimal, got %s", summary.FinalLevel)
	}
}

func TestSample_FrameTime(t *testing.T) {
	if m := sample(60); m.FrameTime != 16.67 {
		t.Errorf("expected 16.67ms, got %v", m.FrameTime)
	}
	if m := sample(0); m.FrameTime != 0 {
		t.Errorf("expected 0ms for 0 fps, got %v", m.FrameTime)
	}
}

// #endregion harness-tests
