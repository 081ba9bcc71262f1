package perf

import (
	"time"

	"github.com/benbjohnson/clock"
)

// #region clock-frames

// ClockFrames emulates a display refresh cadence on a clock.
type ClockFrames struct {
	clk      clock.Clock
	interval time.Duration
}

// NewClockFrames fires one frame every interval on clk.
func NewClockFrames(clk clock.Clock, interval time.Duration) *ClockFrames {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &ClockFrames{clk: clk, interval: interval}
}

func (f *ClockFrames) RequestFrame(fn func(now time.Time)) (cancel func()) {
	t := f.clk.AfterFunc(f.interval, func() {
		fn(f.clk.Now())
	})
	return func() { t.Stop() }
}

// #endregion clock-frames
