//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"log"
	"syscall/js"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region main

// main mounts one controller on the page and exposes it as
// globalThis.qualityController until dispose() is called.
func main() {
	platform := device.NewBrowserPlatform()
	ctrl := controller.New(controller.DefaultConfig(), controller.Deps{
		Platform:   platform,
		Visibility: platform,
		Frames:     perf.NewAnimationFrames(),
		Memory:     perf.NewHeapReader(),
	})

	done := make(chan struct{})
	global := js.Global()
	api, release := bind(ctrl, done)
	global.Set("qualityController", api)

	ctrl.Start(context.Background())
	log.Printf("[WASM] qualityController mounted")

	<-done
	global.Delete("qualityController")
	release()
	log.Printf("[WASM] qualityController disposed")
}

// #endregion main

// #region bindings

// bind builds the JS facade. The returned func releases every callback.
func bind(ctrl *controller.Controller, done chan struct{}) (js.Value, func()) {
	var funcs []js.Func
	api := js.Global().Get("Object").New()
	def := func(name string, fn func(args []js.Value) any) {
		f := js.FuncOf(func(this js.Value, args []js.Value) any { return fn(args) })
		funcs = append(funcs, f)
		api.Set(name, f)
	}

	def("level", func([]js.Value) any { return string(ctrl.Level()) })
	def("settings", func([]js.Value) any { return toJS(ctrl.Settings()) })
	def("metrics", func([]js.Value) any { return toJS(ctrl.Metrics()) })
	def("snapshot", func([]js.Value) any { return toJS(ctrl.Snapshot()) })
	def("isAdapting", func([]js.Value) any { return ctrl.IsAdapting() })
	def("isDegraded", func([]js.Value) any { return ctrl.IsDegraded() })
	def("rating", func([]js.Value) any { return string(ctrl.Rating()) })
	def("setLevel", func(args []js.Value) any {
		if len(args) == 0 {
			return false
		}
		level, err := quality.Parse(args[0].String())
		if err != nil {
			log.Printf("[WASM] setLevel: %v", err)
			return false
		}
		ctrl.SetLevel(level)
		return true
	})
	def("clearOverride", func([]js.Value) any {
		ctrl.ClearOverride()
		return nil
	})
	def("subscribe", func(args []js.Value) any {
		if len(args) == 0 || args[0].Type() != js.TypeFunction {
			return js.Undefined()
		}
		cb := args[0]
		unsubscribe := ctrl.Subscribe(func(t controller.Transition) {
			cb.Invoke(toJS(t))
		})
		var off js.Func
		off = js.FuncOf(func(js.Value, []js.Value) any {
			unsubscribe()
			off.Release()
			return nil
		})
		return off
	})
	def("dispose", func([]js.Value) any {
		ctrl.Dispose()
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	})

	return api, func() {
		for _, f := range funcs {
			f.Release()
		}
	}
}

// toJS converts a tagged struct into a plain JS object through JSON.
func toJS(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return js.Null()
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}

// #endregion bindings
