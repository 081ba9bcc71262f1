package surface

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gdamore/tcell/v2"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region helpers
func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return screen
}

// count tallies glyph over the scene rows; the last row is the status line.
func count(screen tcell.Screen, glyph rune) int {
	w, h := screen.Size()
	n := 0
	for y := 0; y < h-1; y++ {
		for x := 0; x < w; x++ {
			if mainc, _, _, _ := screen.GetContent(x, y); mainc == glyph {
				n++
			}
		}
	}
	return n
}

func row(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		mainc, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(mainc)
	}
	return b.String()
}

func snapshotAt(level quality.Level) controller.Snapshot {
	return controller.Snapshot{
		Level:    level,
		Settings: quality.SettingsFor(level),
		Metrics:  perf.Metrics{FPS: 42, FrameTime: 23.81, MemoryMB: 64},
		Rating:   perf.RatingGood,
	}
}

type fakeController struct {
	mu       sync.Mutex
	ticks    int
	levels   []quality.Level
	cleared  int
	hidden   []bool
	snapshot controller.Snapshot
	subs     []func(controller.Transition)
}

func (f *fakeController) Tick(time.Time) {
	f.mu.Lock()
	f.ticks++
	f.mu.Unlock()
}

func (f *fakeController) Snapshot() controller.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeController) Subscribe(fn func(controller.Transition)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeController) SetLevel(l quality.Level) { f.levels = append(f.levels, l) }
func (f *fakeController) ClearOverride()           { f.cleared++ }
func (f *fakeController) SetHidden(h bool)         { f.hidden = append(f.hidden, h) }

// #endregion helpers

// #region renderer-tests
func TestApplyResizesParticlePool(t *testing.T) {
	r := NewRenderer(newScreen(t), 1)
	if r.Particles() != 0 {
		t.Fatalf("expected empty pool before Apply, got %d", r.Particles())
	}
	for _, level := range []quality.Level{quality.LevelHigh, quality.LevelLow, quality.LevelMedium, quality.LevelMinimal} {
		r.Apply(level, quality.SettingsFor(level))
		if got, want := r.Particles(), quality.SettingsFor(level).ParticleCount; got != want {
			t.Errorf("%s: expected %d particles, got %d", level, want, got)
		}
		if r.Level() != level {
			t.Errorf("expected level %s, got %s", level, r.Level())
		}
	}
}

func TestApplyParticlesOffEmptiesPool(t *testing.T) {
	r := NewRenderer(newScreen(t), 1)
	s := quality.SettingsFor(quality.LevelHigh)
	s.Particles = false
	r.Apply(quality.LevelHigh, s)
	if r.Particles() != 0 {
		t.Errorf("expected no particles when disabled, got %d", r.Particles())
	}
}

func TestWireframeDrawsNoFill(t *testing.T) {
	screen := newScreen(t)
	r := NewRenderer(screen, 1)

	r.Apply(quality.LevelMinimal, quality.SettingsFor(quality.LevelMinimal))
	r.Draw(snapshotAt(quality.LevelMinimal))
	if n := count(screen, glyphFill); n != 0 {
		t.Errorf("wireframe: expected no fill cells, got %d", n)
	}
	if n := count(screen, glyphWire); n != 80 {
		t.Errorf("wireframe: expected one ridge cell per column, got %d", n)
	}
	if n := count(screen, glyphParticle); n != 0 {
		t.Errorf("minimal: expected no particles, got %d", n)
	}
}

func TestHighDrawsFillShadowsAndVignette(t *testing.T) {
	screen := newScreen(t)
	r := NewRenderer(screen, 1)

	r.Apply(quality.LevelHigh, quality.SettingsFor(quality.LevelHigh))
	r.Draw(snapshotAt(quality.LevelHigh))
	if count(screen, glyphFill) == 0 {
		t.Error("expected filled ground")
	}
	if count(screen, glyphWire) != 0 {
		t.Error("expected no wireframe ridge")
	}
	if count(screen, glyphShadow) == 0 {
		t.Error("expected shadow cells")
	}
	if mainc, _, _, _ := screen.GetContent(0, 5); mainc != glyphVignette {
		t.Errorf("expected vignette at left edge, got %q", mainc)
	}
}

func TestMediumHasNoVignette(t *testing.T) {
	screen := newScreen(t)
	r := NewRenderer(screen, 1)
	r.Apply(quality.LevelMedium, quality.SettingsFor(quality.LevelMedium))
	r.Draw(snapshotAt(quality.LevelMedium))
	if n := count(screen, glyphVignette); n != 0 {
		t.Errorf("expected no vignette without post-processing, got %d", n)
	}
}

func TestStatusLine(t *testing.T) {
	screen := newScreen(t)
	r := NewRenderer(screen, 1)
	snap := snapshotAt(quality.LevelLow)
	snap.Adapting = true
	snap.Target = quality.LevelMinimal
	r.Draw(snap)

	line := row(screen, 23)
	for _, want := range []string{"quality=low", "fps=42", "frame=23.81ms", "mem=64MB", "good", "adapting->minimal"} {
		if !strings.Contains(line, want) {
			t.Errorf("status line %q missing %q", line, want)
		}
	}
}

func TestStepWrapsParticles(t *testing.T) {
	r := NewRenderer(newScreen(t), 7)
	r.Apply(quality.LevelLow, quality.SettingsFor(quality.LevelLow))
	for i := 0; i < 100; i++ {
		r.Step(500 * time.Millisecond)
	}
	for _, p := range r.particles {
		if p.x < 0 || p.x >= 1 || p.y < 0 || p.y >= 1 {
			t.Fatalf("particle escaped the unit square: %+v", p)
		}
	}
}

// #endregion renderer-tests

// #region app-tests
func TestFrameTicksAndDraws(t *testing.T) {
	screen := newScreen(t)
	ctrl := &fakeController{snapshot: snapshotAt(quality.LevelMedium)}
	app := NewApp(screen, ctrl, AppOptions{Clock: clock.NewMock()})

	app.Frame(time.Unix(0, 0))
	app.Frame(time.Unix(0, int64(16*time.Millisecond)))
	if ctrl.ticks != 2 {
		t.Errorf("expected 2 ticks, got %d", ctrl.ticks)
	}
	if !strings.Contains(row(screen, 23), "quality=medium") {
		t.Errorf("expected status drawn, got %q", row(screen, 23))
	}
}

func TestHiddenFrameSkipsDraw(t *testing.T) {
	screen := newScreen(t)
	ctrl := &fakeController{snapshot: snapshotAt(quality.LevelMedium)}
	app := NewApp(screen, ctrl, AppOptions{Clock: clock.NewMock()})

	app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone))
	app.Frame(time.Unix(0, 0))
	if ctrl.ticks != 1 {
		t.Errorf("hidden frames still tick, got %d", ctrl.ticks)
	}
	if strings.Contains(row(screen, 23), "quality=") {
		t.Error("expected nothing drawn while hidden")
	}
}

func TestKeysDriveController(t *testing.T) {
	ctrl := &fakeController{}
	app := NewApp(newScreen(t), ctrl, AppOptions{Clock: clock.NewMock()})

	for _, r := range "4120hh+-x" {
		if !app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)) {
			t.Fatalf("key %q should not quit", r)
		}
	}
	want := []quality.Level{quality.LevelHigh, quality.LevelMinimal, quality.LevelLow}
	if len(ctrl.levels) != len(want) {
		t.Fatalf("expected levels %v, got %v", want, ctrl.levels)
	}
	for i := range want {
		if ctrl.levels[i] != want[i] {
			t.Errorf("level %d: expected %s, got %s", i, want[i], ctrl.levels[i])
		}
	}
	if ctrl.cleared != 1 {
		t.Errorf("expected one ClearOverride, got %d", ctrl.cleared)
	}
	if len(ctrl.hidden) != 2 || !ctrl.hidden[0] || ctrl.hidden[1] {
		t.Errorf("expected hidden toggled [true false], got %v", ctrl.hidden)
	}
	if app.load != 0 {
		t.Errorf("expected load back to 0, got %s", app.load)
	}
}

func TestQuitKeys(t *testing.T) {
	app := NewApp(newScreen(t), &fakeController{}, AppOptions{Clock: clock.NewMock()})
	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	} {
		if app.HandleEvent(ev) {
			t.Errorf("expected %v to quit", ev.Name())
		}
	}
}

func TestResizeReportsPixels(t *testing.T) {
	screen := newScreen(t)
	var got int
	app := NewApp(screen, &fakeController{}, AppOptions{
		Clock:     clock.NewMock(),
		CellWidth: 10,
		OnResize:  func(w int) { got = w },
	})
	screen.SetSize(120, 40)
	app.HandleEvent(tcell.NewEventResize(120, 40))
	if got != 1200 {
		t.Errorf("expected 1200px, got %d", got)
	}
}

// #endregion app-tests
