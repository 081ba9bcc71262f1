package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/strandline/quality-controller/internal/device"
)

// #region remote-platform
// remotePlatform answers device.Platform queries from a browser's hello
// message and relays its resize and visibility events.
type remotePlatform struct {
	hello Hello

	mu         sync.Mutex
	width      int
	resize     map[int]func(int)
	visibility map[int]func(bool)
	nextID     int
}

func newRemotePlatform(h Hello) *remotePlatform {
	return &remotePlatform{
		hello:      h,
		width:      h.Width,
		resize:     make(map[int]func(int)),
		visibility: make(map[int]func(bool)),
	}
}

func (p *remotePlatform) HasTouch() bool             { return p.hello.Touch }
func (p *remotePlatform) UserAgent() string          { return p.hello.UserAgent }
func (p *remotePlatform) SaveData() bool             { return p.hello.SaveData }
func (p *remotePlatform) PrefersReducedMotion() bool { return p.hello.ReducedMotion }

func (p *remotePlatform) ViewportWidth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *remotePlatform) Battery(context.Context) (device.BatteryStatus, error) {
	if p.hello.Battery == nil {
		return device.BatteryStatus{}, device.ErrNoBattery
	}
	return device.BatteryStatus{Level: p.hello.Battery.Level, Charging: p.hello.Battery.Charging}, nil
}

func (p *remotePlatform) GraphicsContext() (device.GraphicsContext, error) {
	if !p.hello.HasContext {
		return nil, device.ErrNoContext
	}
	return remoteContext{renderer: p.hello.Renderer, shaderOK: p.hello.ShaderOK}, nil
}

func (p *remotePlatform) OnResize(fn func(int)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.resize[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.resize, id)
		p.mu.Unlock()
	}
}

// OnVisibilityChange makes the platform a controller.VisibilitySource.
func (p *remotePlatform) OnVisibilityChange(fn func(bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.visibility[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.visibility, id)
		p.mu.Unlock()
	}
}

func (p *remotePlatform) setWidth(width int) {
	p.mu.Lock()
	p.width = width
	fns := make([]func(int), 0, len(p.resize))
	for _, fn := range p.resize {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(width)
	}
}

func (p *remotePlatform) setHidden(hidden bool) {
	p.mu.Lock()
	fns := make([]func(bool), 0, len(p.visibility))
	for _, fn := range p.visibility {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(hidden)
	}
}

// #endregion remote-platform

// #region remote-context
var errShaderCompile = errors.New("vertex shader failed to compile in browser")

type remoteContext struct {
	renderer string
	shaderOK bool
}

func (c remoteContext) RendererInfo() (string, bool) {
	return c.renderer, c.renderer != ""
}

func (c remoteContext) CompileVertexShader(string) error {
	if !c.shaderOK {
		return errShaderCompile
	}
	return nil
}

// #endregion remote-context
