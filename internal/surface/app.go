package surface

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gdamore/tcell/v2"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region app
// Controller is the part of controller.Controller the app drives.
type Controller interface {
	Tick(now time.Time)
	Snapshot() controller.Snapshot
	Subscribe(fn func(controller.Transition)) (unsubscribe func())
	SetLevel(level quality.Level)
	ClearOverride()
	SetHidden(hidden bool)
}

// AppOptions configures an App.
type AppOptions struct {
	Clock clock.Clock   // nil: wall clock
	Frame time.Duration // display cadence, zero means 16ms
	// OnResize receives the new viewport width in pixels.
	OnResize func(width int)
	// CellWidth converts terminal columns to pixels. Zero means 8.
	CellWidth int
	Seed      int64
}

// App runs the render loop: each frame ticks the controller, steps the
// scene and draws it with the settings of the active tier.
type App struct {
	screen   tcell.Screen
	renderer *Renderer
	ctrl     Controller
	clock    clock.Clock
	opts     AppOptions

	hidden bool
	load   time.Duration
	last   time.Time
}

// loadStep is the synthetic per-frame cost added by one press of '+'.
const loadStep = 4 * time.Millisecond

// NewApp wires a renderer on screen to ctrl. The renderer follows every
// committed transition.
func NewApp(screen tcell.Screen, ctrl Controller, opts AppOptions) *App {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Frame <= 0 {
		opts.Frame = 16 * time.Millisecond
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	return &App{
		screen:   screen,
		renderer: NewRenderer(screen, opts.Seed),
		ctrl:     ctrl,
		clock:    opts.Clock,
		opts:     opts,
	}
}

func (a *App) Renderer() *Renderer { return a.renderer }

// Run drives frames until ctx ends or the user quits.
func (a *App) Run(ctx context.Context) error {
	snap := a.ctrl.Snapshot()
	a.renderer.Apply(snap.Level, snap.Settings)
	unsubscribe := a.ctrl.Subscribe(func(t controller.Transition) {
		a.renderer.Apply(t.To, quality.SettingsFor(t.To))
	})
	defer unsubscribe()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	defer close(quit)

	ticker := a.clock.Ticker(a.opts.Frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
		case now := <-ticker.C:
			a.Frame(now)
		}
	}
}

// Frame renders one frame at now.
func (a *App) Frame(now time.Time) {
	if !a.last.IsZero() {
		a.renderer.Step(now.Sub(a.last))
	}
	a.last = now
	a.ctrl.Tick(now)
	if a.hidden {
		return
	}
	a.renderer.Draw(a.ctrl.Snapshot())
	if a.load > 0 {
		// heavier bundles cost more: scale by the particle pool
		a.clock.Sleep(a.load * time.Duration(1+a.renderer.Particles()/250))
	}
}

// #endregion app

// #region input
var levelKeys = map[rune]quality.Level{
	'1': quality.LevelMinimal,
	'2': quality.LevelLow,
	'3': quality.LevelMedium,
	'4': quality.LevelHigh,
}

// HandleEvent applies one terminal event and reports whether to keep running.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); r {
		case 'q':
			return false
		case '0':
			a.ctrl.ClearOverride()
		case 'h':
			a.hidden = !a.hidden
			a.ctrl.SetHidden(a.hidden)
		case '+':
			a.load += loadStep
			log.Printf("[SURFACE] synthetic load %s", a.load)
		case '-':
			if a.load >= loadStep {
				a.load -= loadStep
			}
			log.Printf("[SURFACE] synthetic load %s", a.load)
		default:
			if level, ok := levelKeys[r]; ok {
				a.ctrl.SetLevel(level)
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
		if a.opts.OnResize != nil {
			w, _ := a.screen.Size()
			a.opts.OnResize(w * a.opts.CellWidth)
		}
	}
	return true
}

// #endregion input
