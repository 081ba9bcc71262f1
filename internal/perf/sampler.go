package perf

import (
	"math"
	"sync"
	"time"
)

// #region sampler

// Sampler measures achieved frame rate over a sliding wall-clock window.
type Sampler struct {
	config SamplerConfig
	frames FrameSource
	memory MemoryReader

	mu          sync.Mutex
	active      bool
	gen         int
	cancel      func()
	started     bool
	windowStart time.Time
	lastTick    time.Time
	ticks       int
	frameSum    time.Duration
	metrics     Metrics

	subs   map[int]func(Metrics)
	nextID int
}

// NewSampler creates a sampler. frames and memory may be nil: without a
// frame source ticks must be pushed through Tick, without a memory reader
// MemoryMB stays 0.
func NewSampler(frames FrameSource, memory MemoryReader, config SamplerConfig) *Sampler {
	if config.SampleInterval <= 0 {
		config.SampleInterval = DefaultSamplerConfig().SampleInterval
	}
	if config.TargetFPS <= 0 {
		config.TargetFPS = DefaultSamplerConfig().TargetFPS
	}
	return &Sampler{
		config: config,
		frames: frames,
		memory: memory,
		subs:   make(map[int]func(Metrics)),
	}
}

// #endregion sampler

// #region lifecycle

// Start begins sampling with an empty window. With a frame source the
// sampler re-registers for the next frame after every tick until Stop.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.started = false
	s.ticks = 0
	s.frameSum = 0
	s.windowStart = time.Time{}
	s.lastTick = time.Time{}
	s.gen++
	s.request()
}

// Stop halts sampling and cancels the pending frame registration.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Active reports whether the sampler is running.
func (s *Sampler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// request must be called with s.mu held.
func (s *Sampler) request() {
	if s.frames == nil {
		return
	}
	gen := s.gen
	s.cancel = s.frames.RequestFrame(func(now time.Time) {
		s.onFrame(gen, now)
	})
}

// onFrame drops callbacks from a registration made before the last Start.
func (s *Sampler) onFrame(gen int, now time.Time) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}
	s.Tick(now)
	s.mu.Lock()
	if s.active && gen == s.gen {
		s.request()
	}
	s.mu.Unlock()
}

// #endregion lifecycle

// #region tick

// Tick records one displayed frame at now. Once a full window has elapsed
// it publishes fresh metrics to subscribers before returning. Ticks while
// inactive are ignored.
func (s *Sampler) Tick(now time.Time) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if !s.started {
		s.started = true
		s.windowStart = now
		s.lastTick = now
		s.mu.Unlock()
		return
	}

	if delta := now.Sub(s.lastTick); delta > 0 {
		s.frameSum += delta
	}
	s.lastTick = now
	s.ticks++

	elapsed := now.Sub(s.windowStart)
	if elapsed < s.config.SampleInterval {
		s.mu.Unlock()
		return
	}

	m := Metrics{
		FPS:       computeFPS(s.ticks, elapsed, s.config.TargetFPS),
		FrameTime: averageFrameTime(s.frameSum, s.ticks),
		MemoryMB:  s.readMemory(),
	}
	s.metrics = m
	s.windowStart = now
	s.ticks = 0
	s.frameSum = 0

	subs := make([]func(Metrics), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(m)
	}
}

func (s *Sampler) readMemory() int {
	if s.memory == nil {
		return 0
	}
	mb, err := s.memory.HeapMB()
	if err != nil {
		return 0
	}
	return mb
}

// #endregion tick

// #region read

// OnPublish registers fn for every published window and returns an
// unsubscribe func.
func (s *Sampler) OnPublish(fn func(Metrics)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Metrics returns the latest published snapshot.
func (s *Sampler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Rating is recomputed from the latest fps on every call.
func (s *Sampler) Rating() Rating {
	return RatingFor(s.Metrics().FPS)
}

// IsDegraded is recomputed from the latest fps on every call.
func (s *Sampler) IsDegraded() bool {
	return IsDegraded(s.Metrics().FPS)
}

// #endregion read

// #region helpers

func computeFPS(ticks int, elapsed time.Duration, target int) int {
	ms := float64(elapsed) / float64(time.Millisecond)
	if ms <= 0 {
		return 0
	}
	fps := int(math.Round(float64(ticks) * 1000 / ms))
	if fps > target {
		return target
	}
	return fps
}

func averageFrameTime(sum time.Duration, ticks int) float64 {
	if ticks == 0 {
		return 0
	}
	ms := float64(sum) / float64(time.Millisecond) / float64(ticks)
	return math.Round(ms*100) / 100
}

// #endregion helpers
