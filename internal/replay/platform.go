package replay

import (
	"context"
	"sync"

	"github.com/strandline/quality-controller/internal/device"
)

// #region trace-platform
// tracePlatform plays a fixture profile back as sensor readings, so the
// real profiler classifies it to the same profile.
type tracePlatform struct {
	profile device.DeviceProfile

	mu     sync.Mutex
	width  int
	resize map[int]func(int)
	nextID int
}

const (
	desktopWidth = 1920
	mobileWidth  = 390
)

func newTracePlatform(p device.DeviceProfile) *tracePlatform {
	width := desktopWidth
	if p.IsMobile {
		width = mobileWidth
	}
	return &tracePlatform{profile: p, width: width, resize: make(map[int]func(int))}
}

func (p *tracePlatform) HasTouch() bool             { return p.profile.IsTouch }
func (p *tracePlatform) UserAgent() string          { return "replay" }
func (p *tracePlatform) SaveData() bool             { return p.profile.IsLowPower }
func (p *tracePlatform) PrefersReducedMotion() bool { return false }

func (p *tracePlatform) ViewportWidth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *tracePlatform) Battery(context.Context) (device.BatteryStatus, error) {
	return device.BatteryStatus{}, device.ErrNoBattery
}

func (p *tracePlatform) GraphicsContext() (device.GraphicsContext, error) {
	switch p.profile.GPUTier {
	case device.GPUNone:
		return nil, device.ErrNoContext
	case device.GPUHigh:
		return traceContext{renderer: "NVIDIA GeForce (replay)"}, nil
	case device.GPULow:
		return traceContext{renderer: "SwiftShader (replay)"}, nil
	default:
		return traceContext{}, nil
	}
}

func (p *tracePlatform) OnResize(fn func(int)) func() {
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

func (p *tracePlatform) setWidth(width int) {
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

// traceContext with no renderer falls through to the shader probe, which
// always compiles: the medium tier.
type traceContext struct {
	renderer string
}

func (c traceContext) RendererInfo() (string, bool)     { return c.renderer, c.renderer != "" }
func (c traceContext) CompileVertexShader(string) error { return nil }

// #endregion trace-platform
