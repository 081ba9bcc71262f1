//go:build js && wasm

package perf

import (
	"sync"
	"syscall/js"
	"time"
)

// #region raf-frames

// AnimationFrames drives ticks from window.requestAnimationFrame.
type AnimationFrames struct {
	global js.Value
	origin time.Time // wall time of performance.timeOrigin
}

// NewAnimationFrames binds to globalThis.
func NewAnimationFrames() *AnimationFrames {
	g := js.Global()
	origin := time.Now()
	if perf := g.Get("performance"); perf.Truthy() {
		if o := perf.Get("timeOrigin"); o.Type() == js.TypeNumber {
			origin = time.UnixMilli(int64(o.Float()))
		}
	}
	return &AnimationFrames{global: g, origin: origin}
}

func (f *AnimationFrames) RequestFrame(fn func(now time.Time)) (cancel func()) {
	var once sync.Once
	var handler js.Func
	release := func() { once.Do(handler.Release) }

	handler = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		ms := args[0].Float()
		fn(f.origin.Add(time.Duration(ms * float64(time.Millisecond))))
		return nil
	})
	id := f.global.Call("requestAnimationFrame", handler)

	return func() {
		f.global.Call("cancelAnimationFrame", id)
		release()
	}
}

// #endregion raf-frames
