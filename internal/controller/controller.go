package controller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/policy"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region controller

// Deps are the collaborators a Controller is wired to. Platform is
// required; everything else is optional.
type Deps struct {
	Platform   device.Platform
	Frames     perf.FrameSource // nil: ticks pushed through Tick
	Memory     perf.MemoryReader
	Visibility VisibilitySource
	Clock      clock.Clock // nil: wall clock
	Sink       Sink
}

// Controller owns the active quality tier for one rendering surface.
// Create one per surface with New, Start it, and Dispose it on teardown.
type Controller struct {
	config     Config
	clock      clock.Clock
	profiler   *device.Profiler
	sampler    *perf.Sampler
	evaluator  *policy.Evaluator
	visibility VisibilitySource
	sink       Sink

	ready chan struct{}

	mu           sync.Mutex
	started      bool
	detected     bool
	disposed     bool
	current      quality.Level
	profile      device.DeviceProfile
	adapting     bool
	target       quality.Level
	targetReason string
	deadline     time.Time
	timer        *clock.Timer
	gen          int
	hidden       bool
	manualEarly  bool // SetLevel before detection resolved
	pinned       bool // persistent override active
	subs         map[int]func(Transition)
	nextID       int
	outbox       []Transition // committed, not yet delivered
	draining     bool
	queued       int
	delivered    int
	drained      *sync.Cond
	detach       []func()
	cancel       context.CancelFunc
}

// New wires a controller. It reports medium until Start's detection resolves.
func New(config Config, deps Deps) *Controller {
	def := DefaultConfig()
	if config.AdaptationDelay <= 0 {
		config.AdaptationDelay = def.AdaptationDelay
	}
	if config.Profiler.MobileBreakpoint <= 0 {
		config.Profiler.MobileBreakpoint = def.Profiler.MobileBreakpoint
	}
	if config.Profiler.LowBatteryLevel <= 0 {
		config.Profiler.LowBatteryLevel = def.Profiler.LowBatteryLevel
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	c := &Controller{
		config:     config,
		clock:      clk,
		profiler:   device.NewProfiler(deps.Platform, config.Profiler),
		sampler:    perf.NewSampler(deps.Frames, deps.Memory, config.Sampler),
		evaluator:  policy.NewEvaluator(config.Policy),
		visibility: deps.Visibility,
		sink:       deps.Sink,
		ready:      make(chan struct{}),
		current:    quality.LevelMedium,
		subs:       make(map[int]func(Transition)),
	}
	c.drained = sync.NewCond(&c.mu)
	return c
}

// #endregion controller

// #region lifecycle

// Start attaches the sampler and visibility listener and runs device
// detection in the background. Ready is closed once detection resolves.
// Calling Start more than once, or after Dispose, does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.disposed {
		c.mu.Unlock()
		return
	}
	c.started = true
	dctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.detach = append(c.detach, c.sampler.OnPublish(c.OnSample))
	if c.visibility != nil {
		c.detach = append(c.detach, c.visibility.OnVisibilityChange(c.SetHidden))
	}
	c.sampler.Start()
	c.detach = append(c.detach, c.sampler.Stop)
	c.mu.Unlock()

	go func() {
		c.resolve(c.profiler.Detect(dctx))
	}()
}

// Ready is closed once the device profile is known and the initial
// transition has reached the sink and subscribers.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// resolve seeds the initial tier from the detected profile.
func (c *Controller) resolve(profile device.DeviceProfile) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.profile = profile
	c.detected = true
	c.detach = append(c.detach, c.profiler.Watch(c.onResize))

	if c.manualEarly {
		log.Printf("[CTRL] detection resolved, keeping manual level %s", c.current)
	} else {
		level := policy.InitialLevel(profile)
		c.commit(level, TriggerInitial, "initial tier for gpu="+string(profile.GPUTier))
		if c.hidden && c.current == quality.LevelHigh {
			c.commit(quality.LevelMedium, TriggerVisibility, "page hidden at high")
		}
	}
	seq := c.queued
	c.mu.Unlock()
	c.emit()

	c.mu.Lock()
	for c.delivered < seq {
		c.drained.Wait()
	}
	c.mu.Unlock()
	close(c.ready)
}

// Dispose cancels the pending tick registration, the debounce timer, and
// every listener. It is safe to call more than once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.stopAdapting()
	if c.cancel != nil {
		c.cancel()
	}
	detach := c.detach
	c.detach = nil
	c.subs = make(map[int]func(Transition))
	c.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	log.Printf("[CTRL] disposed at level %s", c.Level())
}

// #endregion lifecycle

// #region inputs

// Tick forwards one displayed frame to the sampler, for surfaces that own
// their render loop.
func (c *Controller) Tick(now time.Time) {
	c.sampler.Tick(now)
}

// OnSample runs the transition rule against a published sample. Samples
// before detection resolves, after Dispose, or under a persistent override
// are not evaluated.
func (c *Controller) OnSample(m perf.Metrics) {
	c.mu.Lock()
	now := c.clock.Now()
	c.settle(now)
	if c.disposed || !c.detected || c.pinned {
		c.mu.Unlock()
		c.emit()
		return
	}

	d := c.evaluator.Evaluate(c.current, m.FPS, c.profile.IsMobile)
	switch {
	case d.Action == policy.ActionHold && c.adapting:
		log.Printf("[POLICY] fps=%d current=%s: adaptation to %s cancelled", m.FPS, c.current, c.target)
		c.stopAdapting()
	case d.Action == policy.ActionAdapt:
		if !c.adapting || c.target != d.Target {
			log.Printf("[POLICY] fps=%d current=%s target=%s: %s", m.FPS, c.current, d.Target, d.Reason)
		}
		c.startAdapting(now, d.Target, d.Reason)
	}
	c.mu.Unlock()
	c.emit()
}

// SetHidden applies a page visibility change. Hiding the page at high
// drops to medium at once; showing it again restores nothing.
func (c *Controller) SetHidden(hidden bool) {
	c.mu.Lock()
	c.settle(c.clock.Now())
	c.hidden = hidden
	if hidden && !c.disposed && c.detected && c.current == quality.LevelHigh {
		c.stopAdapting()
		c.commit(quality.LevelMedium, TriggerVisibility, "page hidden at high")
	}
	c.mu.Unlock()
	c.emit()
}

// SetLevel switches to level immediately, cancelling any pending adaptation.
// Unless OverridePersists is set the next sample resumes automatic control.
// Unknown levels are ignored.
func (c *Controller) SetLevel(level quality.Level) {
	if !level.Valid() {
		log.Printf("[CTRL] ignoring unknown level %q", level)
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.settle(c.clock.Now())
	c.stopAdapting()
	if !c.detected {
		c.manualEarly = true
	}
	if c.config.OverridePersists {
		c.pinned = true
	}
	c.commit(level, TriggerManual, "manual override")
	c.mu.Unlock()
	c.emit()
}

// ClearOverride hands control back to automatic evaluation after a
// persistent override.
func (c *Controller) ClearOverride() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = false
}

func (c *Controller) onResize(profile device.DeviceProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile.IsMobile = profile.IsMobile
}

// #endregion inputs

// #region state-machine

// startAdapting (re)starts the quiescence window. Must hold c.mu.
func (c *Controller) startAdapting(now time.Time, target quality.Level, reason string) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.adapting = true
	c.target = target
	c.targetReason = reason
	c.deadline = now.Add(c.config.AdaptationDelay)
	c.timer = c.clock.AfterFunc(c.config.AdaptationDelay, func() { c.fire(gen) })
}

// stopAdapting drops any pending adaptation. Must hold c.mu.
func (c *Controller) stopAdapting() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.adapting = false
	c.target = ""
	c.targetReason = ""
}

// fire is the debounce timer callback.
func (c *Controller) fire(gen int) {
	c.mu.Lock()
	if gen != c.gen || !c.adapting || c.disposed {
		c.mu.Unlock()
		return
	}
	c.commitPending()
	c.mu.Unlock()
	c.emit()
}

// settle commits a pending adaptation whose window has already elapsed,
// so reads never observe a stale tier while the timer goroutine is
// still on its way. Must hold c.mu.
func (c *Controller) settle(now time.Time) {
	if !c.adapting || c.disposed || now.Before(c.deadline) {
		return
	}
	c.commitPending()
}

// commitPending must hold c.mu with c.adapting set.
func (c *Controller) commitPending() {
	target, reason := c.target, c.targetReason
	c.stopAdapting()
	c.commit(target, TriggerAuto, reason)
}

// commit switches the active tier and queues the transition for delivery.
// Must hold c.mu.
func (c *Controller) commit(to quality.Level, trigger Trigger, reason string) {
	t := Transition{
		From:    c.current,
		To:      to,
		Trigger: trigger,
		Metrics: c.sampler.Metrics(),
		Reason:  reason,
		At:      c.clock.Now(),
	}
	c.current = to
	c.outbox = append(c.outbox, t)
	c.queued++
	log.Printf("[CTRL] %s -> %s trigger=%s fps=%d: %s", t.From, t.To, trigger, t.Metrics.FPS, reason)
}

// emit delivers queued transitions to the sink and subscribers outside
// c.mu, in commit order. One goroutine drains at a time. A caller that
// finds a drain in progress leaves its transitions to that drain, so
// subscribers may call back into the controller.
func (c *Controller) emit() {
	c.mu.Lock()
	if c.draining || len(c.outbox) == 0 {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.outbox) > 0 {
		batch := c.outbox
		c.outbox = nil
		subs := make([]func(Transition), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		for _, t := range batch {
			if c.sink != nil {
				if err := c.sink.Record(t); err != nil {
					log.Printf("[CTRL] sink record failed: %v", err)
				}
			}
			for _, fn := range subs {
				fn(t)
			}
		}

		c.mu.Lock()
		c.delivered += len(batch)
		c.drained.Broadcast()
	}
	c.draining = false
	c.mu.Unlock()
}

// #endregion state-machine

// #region read

// Subscribe registers fn for every committed transition.
func (c *Controller) Subscribe(fn func(Transition)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// OnMetrics registers fn for every published sample.
func (c *Controller) OnMetrics(fn func(perf.Metrics)) (unsubscribe func()) {
	return c.sampler.OnPublish(fn)
}

// Level returns the active tier.
func (c *Controller) Level() quality.Level {
	c.mu.Lock()
	c.settle(c.clock.Now())
	level := c.current
	c.mu.Unlock()
	c.emit()
	return level
}

// Settings returns the bundle for the active tier.
func (c *Controller) Settings() quality.Settings {
	return quality.SettingsFor(c.Level())
}

// IsAdapting reports whether a tier change is waiting out its window.
func (c *Controller) IsAdapting() bool {
	c.mu.Lock()
	c.settle(c.clock.Now())
	adapting := c.adapting
	c.mu.Unlock()
	c.emit()
	return adapting
}

// Metrics returns the latest published sample.
func (c *Controller) Metrics() perf.Metrics { return c.sampler.Metrics() }

func (c *Controller) FPS() int { return c.sampler.Metrics().FPS }

func (c *Controller) Rating() perf.Rating { return c.sampler.Rating() }

func (c *Controller) IsDegraded() bool { return c.sampler.IsDegraded() }

// Profile returns the detected profile, zero before Ready.
func (c *Controller) Profile() device.DeviceProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Snapshot reads level, settings and metrics under one lock so the pair
// level/settings always matches.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	c.settle(c.clock.Now())
	m := c.sampler.Metrics()
	s := Snapshot{
		Level:    c.current,
		Settings: quality.SettingsFor(c.current),
		Metrics:  m,
		Rating:   perf.RatingFor(m.FPS),
		Degraded: perf.IsDegraded(m.FPS),
		Adapting: c.adapting,
		Target:   c.target,
		Profile:  c.profile,
		Ready:    c.detected,
	}
	c.mu.Unlock()
	c.emit()
	return s
}

// #endregion read
