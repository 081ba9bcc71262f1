package perf

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region fakes

type manualFrames struct {
	mu       sync.Mutex
	pending  func(time.Time)
	requests int
	cancels  int
}

func (f *manualFrames) RequestFrame(fn func(time.Time)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = fn
	f.requests++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.pending = nil
		f.cancels++
	}
}

func (f *manualFrames) fire(now time.Time) bool {
	f.mu.Lock()
	fn := f.pending
	f.pending = nil
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(now)
	return true
}

type fixedMemory struct {
	mb  int
	err error
}

func (m fixedMemory) HeapMB() (int, error) { return m.mb, m.err }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms float64) time.Time {
	return epoch.Add(time.Duration(ms * float64(time.Millisecond)))
}

// tickEvery pushes ticks spaced stepMs apart, starting after the baseline at 0.
func tickEvery(s *Sampler, stepMs float64, count int) {
	for i := 1; i <= count; i++ {
		s.Tick(at(stepMs * float64(i)))
	}
}

// #endregion fakes

// #region rating-tests

func TestRatingBoundaries(t *testing.T) {
	tests := []struct {
		fps      int
		rating   Rating
		degraded bool
	}{
		{60, RatingExcellent, false},
		{55, RatingExcellent, false},
		{54, RatingGood, false},
		{30, RatingGood, false},
		{29, RatingPoor, true},
		{15, RatingPoor, true},
		{14, RatingCritical, true},
		{0, RatingCritical, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rating, RatingFor(tt.fps), "fps=%d", tt.fps)
		assert.Equal(t, tt.degraded, IsDegraded(tt.fps), "fps=%d", tt.fps)
	}
}

// #endregion rating-tests

// #region window-tests

func TestSamplerPublishesOncePerWindow(t *testing.T) {
	s := NewSampler(nil, fixedMemory{mb: 42}, DefaultSamplerConfig())
	var published []Metrics
	s.OnPublish(func(m Metrics) { published = append(published, m) })
	s.Start()

	s.Tick(at(0))
	tickEvery(s, 25, 39) // up to 975 ms: no publish yet
	require.Empty(t, published)

	s.Tick(at(1000))
	require.Len(t, published, 1)
	assert.Equal(t, 40, published[0].FPS)
	assert.Equal(t, 25.0, published[0].FrameTime)
	assert.Equal(t, 42, published[0].MemoryMB)
	assert.Equal(t, published[0], s.Metrics())
	assert.Equal(t, RatingGood, s.Rating())
	assert.False(t, s.IsDegraded())
}

func TestSamplerClampsToTarget(t *testing.T) {
	s := NewSampler(nil, nil, DefaultSamplerConfig())
	s.Start()
	s.Tick(at(0))
	tickEvery(s, 5, 200) // 200 ticks in one second

	assert.Equal(t, 60, s.Metrics().FPS)
	assert.Equal(t, RatingExcellent, s.Rating())
}

func TestSamplerFrameTimeRoundsToTwoDecimals(t *testing.T) {
	s := NewSampler(nil, nil, DefaultSamplerConfig())
	s.Start()
	s.Tick(at(0))
	for i := 1; i <= 3; i++ {
		s.Tick(at(float64(i) * 1000.0 / 3.0))
	}

	m := s.Metrics()
	assert.Equal(t, 3, m.FPS)
	assert.Equal(t, 333.33, m.FrameTime)
}

func TestSamplerResetsCountersAfterPublish(t *testing.T) {
	s := NewSampler(nil, nil, DefaultSamplerConfig())
	s.Start()
	s.Tick(at(0))
	tickEvery(s, 20, 50) // 50 fps window ending at 1000

	for i := 1; i <= 10; i++ {
		s.Tick(at(1000 + float64(i)*100))
	}
	assert.Equal(t, 10, s.Metrics().FPS)
	assert.Equal(t, RatingCritical, s.Rating())
	assert.True(t, s.IsDegraded())
}

func TestSamplerMemoryFailureIsZero(t *testing.T) {
	s := NewSampler(nil, fixedMemory{mb: 99, err: errors.New("no api")}, DefaultSamplerConfig())
	s.Start()
	s.Tick(at(0))
	tickEvery(s, 100, 10)
	assert.Equal(t, 0, s.Metrics().MemoryMB)
}

func TestSamplerIgnoresTicksWhileInactive(t *testing.T) {
	s := NewSampler(nil, nil, DefaultSamplerConfig())
	s.Tick(at(0))
	tickEvery(s, 10, 200)
	assert.Equal(t, Metrics{}, s.Metrics())
}

func TestSamplerRestartDropsPartialWindow(t *testing.T) {
	s := NewSampler(nil, nil, DefaultSamplerConfig())
	var published []Metrics
	s.OnPublish(func(m Metrics) { published = append(published, m) })
	s.Start()

	s.Tick(at(0))
	tickEvery(s, 10, 50) // half a window at 100 fps
	s.Stop()
	s.Start()

	s.Tick(at(2000))
	for i := 1; i <= 20; i++ {
		s.Tick(at(2000 + float64(i)*50))
	}
	require.Len(t, published, 1)
	assert.Equal(t, 20, published[0].FPS)
	assert.Equal(t, 50.0, published[0].FrameTime)
}

// #endregion window-tests

// #region lifecycle-tests

func TestSamplerReRegistersUntilStopped(t *testing.T) {
	frames := &manualFrames{}
	s := NewSampler(frames, nil, DefaultSamplerConfig())
	s.Start()
	require.Equal(t, 1, frames.requests)

	require.True(t, frames.fire(at(0)))
	for i := 1; i <= 60; i++ {
		require.True(t, frames.fire(at(float64(i)*1000/60)))
	}
	assert.Equal(t, 60, s.Metrics().FPS)
	assert.Equal(t, 62, frames.requests)

	s.Stop()
	assert.Equal(t, 1, frames.cancels)
	assert.False(t, frames.fire(at(2000)), "stop must cancel the pending frame")
	assert.False(t, s.Active())
}

func TestSamplerStaleFrameAfterRestart(t *testing.T) {
	frames := &manualFrames{}
	s := NewSampler(frames, nil, DefaultSamplerConfig())
	s.Start()

	frames.mu.Lock()
	stale := frames.pending
	frames.mu.Unlock()

	s.Stop()
	s.Start()
	requests := frames.requests

	stale(at(0))
	assert.Equal(t, requests, frames.requests, "stale callback must not re-register")
}

// signalFrames forwards to a FrameSource and reports each registration.
type signalFrames struct {
	inner    FrameSource
	requests chan struct{}
}

func (f *signalFrames) RequestFrame(fn func(time.Time)) func() {
	cancel := f.inner.RequestFrame(fn)
	f.requests <- struct{}{}
	return cancel
}

func TestClockFramesDriveSampler(t *testing.T) {
	mock := clock.NewMock()
	frames := &signalFrames{
		inner:    NewClockFrames(mock, 20*time.Millisecond),
		requests: make(chan struct{}, 1),
	}
	s := NewSampler(frames, nil, DefaultSamplerConfig())

	published := make(chan Metrics, 4)
	s.OnPublish(func(m Metrics) { published <- m })
	s.Start()
	defer s.Stop()

	// Frames re-register from the timer goroutine: wait for each
	// registration before advancing the clock by one frame.
	for i := 0; i <= 50; i++ {
		select {
		case <-frames.requests:
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d never registered", i)
		}
		mock.Add(20 * time.Millisecond)
	}

	select {
	case m := <-published:
		assert.Equal(t, 50, m.FPS)
		assert.Equal(t, 20.0, m.FrameTime)
	case <-time.After(5 * time.Second):
		t.Fatal("no metrics published")
	}
}

// #endregion lifecycle-tests
