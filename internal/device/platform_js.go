//go:build js && wasm

package device

import (
	"context"
	"fmt"
	"syscall/js"
)

// #region browser-platform

// BrowserPlatform reads device capabilities from the page's JS globals.
// JS exceptions surface as panics; the profiler recovers them.
type BrowserPlatform struct {
	global js.Value
}

// NewBrowserPlatform binds to globalThis.
func NewBrowserPlatform() *BrowserPlatform {
	return &BrowserPlatform{global: js.Global()}
}

func (p *BrowserPlatform) navigator() js.Value {
	return p.global.Get("navigator")
}

func (p *BrowserPlatform) HasTouch() bool {
	if t := p.global.Get("ontouchstart"); t.Type() != js.TypeUndefined {
		return true
	}
	nav := p.navigator()
	if !nav.Truthy() {
		return false
	}
	points := nav.Get("maxTouchPoints")
	return points.Type() == js.TypeNumber && points.Int() > 0
}

func (p *BrowserPlatform) UserAgent() string {
	nav := p.navigator()
	if !nav.Truthy() {
		return ""
	}
	return nav.Get("userAgent").String()
}

func (p *BrowserPlatform) ViewportWidth() int {
	w := p.global.Get("innerWidth")
	if w.Type() != js.TypeNumber {
		return 0
	}
	return w.Int()
}

func (p *BrowserPlatform) SaveData() bool {
	nav := p.navigator()
	if !nav.Truthy() {
		return false
	}
	conn := nav.Get("connection")
	return conn.Truthy() && conn.Get("saveData").Truthy()
}

func (p *BrowserPlatform) PrefersReducedMotion() bool {
	match := p.global.Get("matchMedia")
	if match.Type() != js.TypeFunction {
		return false
	}
	return p.global.Call("matchMedia", "(prefers-reduced-motion: reduce)").Get("matches").Truthy()
}

// #endregion browser-platform

// #region browser-battery

// Battery awaits navigator.getBattery().
func (p *BrowserPlatform) Battery(ctx context.Context) (BatteryStatus, error) {
	nav := p.navigator()
	if !nav.Truthy() || nav.Get("getBattery").Type() != js.TypeFunction {
		return BatteryStatus{}, ErrNoBattery
	}

	type result struct {
		status BatteryStatus
		err    error
	}
	done := make(chan result, 1)

	// Released by whichever callback settles the promise.
	var onResolve, onReject js.Func
	release := func() {
		onResolve.Release()
		onReject.Release()
	}
	onResolve = js.FuncOf(func(this js.Value, args []js.Value) any {
		b := args[0]
		done <- result{status: BatteryStatus{
			Level:    b.Get("level").Float(),
			Charging: b.Get("charging").Bool(),
		}}
		release()
		return nil
	})
	onReject = js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- result{err: ErrNoBattery}
		release()
		return nil
	})

	nav.Call("getBattery").Call("then", onResolve, onReject)

	select {
	case r := <-done:
		return r.status, r.err
	case <-ctx.Done():
		return BatteryStatus{}, ctx.Err()
	}
}

// #endregion browser-battery

// #region browser-webgl

// GraphicsContext creates a detached canvas and asks for a WebGL context.
func (p *BrowserPlatform) GraphicsContext() (GraphicsContext, error) {
	doc := p.global.Get("document")
	if !doc.Truthy() {
		return nil, ErrNoContext
	}
	canvas := doc.Call("createElement", "canvas")
	gl := canvas.Call("getContext", "webgl")
	if !gl.Truthy() {
		gl = canvas.Call("getContext", "experimental-webgl")
	}
	if !gl.Truthy() {
		return nil, ErrNoContext
	}
	return webglContext{gl: gl}, nil
}

type webglContext struct {
	gl js.Value
}

func (c webglContext) RendererInfo() (string, bool) {
	ext := c.gl.Call("getExtension", "WEBGL_debug_renderer_info")
	if !ext.Truthy() {
		return "", false
	}
	r := c.gl.Call("getParameter", ext.Get("UNMASKED_RENDERER_WEBGL"))
	if r.Type() != js.TypeString {
		return "", false
	}
	return r.String(), true
}

func (c webglContext) CompileVertexShader(src string) error {
	shader := c.gl.Call("createShader", c.gl.Get("VERTEX_SHADER"))
	if !shader.Truthy() {
		return fmt.Errorf("create shader: %w", ErrNoContext)
	}
	defer c.gl.Call("deleteShader", shader)
	c.gl.Call("shaderSource", shader, src)
	c.gl.Call("compileShader", shader)
	if !c.gl.Call("getShaderParameter", shader, c.gl.Get("COMPILE_STATUS")).Truthy() {
		return fmt.Errorf("compile shader: %s", c.gl.Call("getShaderInfoLog", shader).String())
	}
	return nil
}

// #endregion browser-webgl

// #region browser-listeners

func (p *BrowserPlatform) OnResize(fn func(width int)) (detach func()) {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(p.ViewportWidth())
		return nil
	})
	p.global.Call("addEventListener", "resize", handler)
	return func() {
		p.global.Call("removeEventListener", "resize", handler)
		handler.Release()
	}
}

// OnVisibilityChange reports document.hidden on every visibilitychange.
func (p *BrowserPlatform) OnVisibilityChange(fn func(hidden bool)) (detach func()) {
	doc := p.global.Get("document")
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(doc.Get("hidden").Truthy())
		return nil
	})
	doc.Call("addEventListener", "visibilitychange", handler)
	return func() {
		doc.Call("removeEventListener", "visibilitychange", handler)
		handler.Release()
	}
}

// #endregion browser-listeners
