package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

func recordSession(t *testing.T, profile device.DeviceProfile, ts []controller.Transition) (history.Session, []history.TransitionRecord) {
	t.Helper()
	store, err := history.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	sess, err := store.OpenSession(profile)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	for _, tr := range ts {
		if _, err := store.Record(sess.ID, tr); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	chain, err := store.ListTransitions(sess.ID, -1)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	return sess, chain
}

func TestFromSession_RoundTrips(t *testing.T) {
	now := time.Now()
	sess, chain := recordSession(t, device.DeviceProfile{GPUTier: device.GPUHigh}, []controller.Transition{
		{From: quality.LevelMedium, To: quality.LevelHigh, Trigger: controller.TriggerInitial, At: now},
		{From: quality.LevelHigh, To: quality.LevelMinimal, Trigger: controller.TriggerAuto,
			Metrics: perf.Metrics{FPS: 9}, At: now.Add(5 * time.Second)},
		{From: quality.LevelMinimal, To: quality.LevelLow, Trigger: controller.TriggerAuto,
			Metrics: perf.Metrics{FPS: 58}, At: now.Add(20 * time.Second)},
		{From: quality.LevelLow, To: quality.LevelHigh, Trigger: controller.TriggerManual, At: now.Add(21 * time.Second)},
		{From: quality.LevelHigh, To: quality.LevelMedium, Trigger: controller.TriggerVisibility, At: now.Add(22 * time.Second)},
	})

	f, err := FromSession(sess, chain, FixtureConfig{})
	if err != nil {
		t.Fatalf("FromSession: %v", err)
	}
	if len(f.Steps) != 4 || len(f.Expectations) != 5 {
		t.Fatalf("expected 4 steps / 5 expectations, got %d / %d", len(f.Steps), len(f.Expectations))
	}
	if f.Expectations[2].AtMS != 6100 {
		t.Errorf("expected second auto change at 6100ms, got %d", f.Expectations[2].AtMS)
	}

	results, summary := run(t, f)
	for _, r := range results {
		if !r.Passed {
			t.Errorf("at %dms: %s", r.AtMS, r.Reason)
		}
	}
	if summary.FinalLevel != quality.LevelMedium {
		t.Errorf("expected final medium, got %s", summary.FinalLevel)
	}
}

func TestFromSession_UsesConfiguredDelay(t *testing.T) {
	sess, chain := recordSession(t, device.DeviceProfile{GPUTier: device.GPUMedium}, []controller.Transition{
		{From: quality.LevelMedium, To: quality.LevelMedium, Trigger: controller.TriggerInitial},
		{From: quality.LevelMedium, To: quality.LevelLow, Trigger: controller.TriggerAuto, Metrics: perf.Metrics{FPS: 20}},
	})
	f, err := FromSession(sess, chain, FixtureConfig{AdaptationDelayMS: 500})
	if err != nil {
		t.Fatalf("FromSession: %v", err)
	}
	if got := f.Expectations[1].AtMS; got != 500 {
		t.Errorf("expected expectation at 500ms, got %d", got)
	}
}

func TestFromSession_UnknownTrigger(t *testing.T) {
	chain := []history.TransitionRecord{{VersionID: "v1", To: quality.LevelLow, Trigger: "cosmic"}}
	if _, err := FromSession(history.Session{ID: "s"}, chain, FixtureConfig{}); err == nil {
		t.Fatal("expected error for unknown trigger, got nil")
	}
}
