package device

import (
	"context"
	"log"
	"sync"
)

// #region profiler

// Profiler classifies the running device once and keeps IsMobile live
// across viewport resizes.
type Profiler struct {
	platform Platform
	config   ProfilerConfig

	mu       sync.Mutex
	profile  DeviceProfile
	detected bool
}

// NewProfiler creates a Profiler over the given platform sensors.
func NewProfiler(platform Platform, config ProfilerConfig) *Profiler {
	return &Profiler{platform: platform, config: config}
}

// #endregion profiler

// #region detect

// Detect reads the platform and returns the device profile. It never fails:
// every probe degrades to a conservative default. GPU tier and low-power
// are computed on the first call only; later calls refresh IsMobile.
func (p *Profiler) Detect(ctx context.Context) DeviceProfile {
	p.mu.Lock()
	if p.detected {
		p.mu.Unlock()
		return p.refreshMobile(p.viewportWidth())
	}
	p.mu.Unlock()

	profile := DeviceProfile{
		IsTouch:    probe(false, p.platform.HasTouch),
		IsMobile:   p.isMobile(p.viewportWidth()),
		GPUTier:    p.detectGPU(),
		IsLowPower: p.detectLowPower(ctx),
	}

	p.mu.Lock()
	p.profile = profile
	p.detected = true
	p.mu.Unlock()

	log.Printf("[PROFILE] mobile=%v touch=%v low_power=%v gpu=%s",
		profile.IsMobile, profile.IsTouch, profile.IsLowPower, profile.GPUTier)
	return profile
}

// Profile returns the latest detected profile (zero value before Detect).
func (p *Profiler) Profile() DeviceProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile
}

// #endregion detect

// #region watch

// Watch attaches the resize listener. fn receives the profile every time
// IsMobile is re-derived. The returned func detaches the listener.
func (p *Profiler) Watch(fn func(DeviceProfile)) (detach func()) {
	return p.platform.OnResize(func(width int) {
		profile := p.refreshMobile(width)
		if fn != nil {
			fn(profile)
		}
	})
}

func (p *Profiler) refreshMobile(width int) DeviceProfile {
	mobile := p.isMobile(width)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile.IsMobile = mobile
	return p.profile
}

// #endregion watch

// #region mobile

func (p *Profiler) viewportWidth() int {
	return probe(0, p.platform.ViewportWidth)
}

// isMobile: narrow viewport or a known mobile user agent. A width of 0
// means the platform reported nothing, so only the agent decides.
func (p *Profiler) isMobile(width int) bool {
	if width > 0 && width < p.config.MobileBreakpoint {
		return true
	}
	return IsMobileAgent(probe("", p.platform.UserAgent))
}

// #endregion mobile

// #region gpu

// detectGPU runs the tier probe: renderer string lists first, then the
// shader compile fallback. A panic anywhere in the probe yields GPULow.
func (p *Profiler) detectGPU() (tier GPUTier) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PROFILE] gpu probe failed: %v", r)
			tier = GPULow
		}
	}()

	gl, err := p.platform.GraphicsContext()
	if err != nil || gl == nil {
		return GPUNone
	}

	if renderer, ok := gl.RendererInfo(); ok {
		if t, matched := ClassifyRenderer(renderer); matched {
			log.Printf("[PROFILE] renderer=%q tier=%s", renderer, t)
			return t
		}
	}

	if err := gl.CompileVertexShader(probeShader); err != nil {
		return GPULow
	}
	return GPUMedium
}

// #endregion gpu

// #region low-power

// detectLowPower: any one of low battery, charging, data-saver or reduced
// motion. Missing APIs count as the signal being absent.
func (p *Profiler) detectLowPower(ctx context.Context) bool {
	if probe(false, p.platform.SaveData) {
		return true
	}
	if probe(false, p.platform.PrefersReducedMotion) {
		return true
	}
	battery, err := p.readBattery(ctx)
	if err != nil {
		return false
	}
	return battery.Level < p.config.LowBatteryLevel || battery.Charging
}

func (p *Profiler) readBattery(ctx context.Context) (status BatteryStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, err = BatteryStatus{}, ErrNoBattery
		}
	}()
	return p.platform.Battery(ctx)
}

// #endregion low-power

// #region helpers

// probe calls read and returns fallback if it panics.
func probe[T any](fallback T, read func() T) (v T) {
	defer func() {
		if r := recover(); r != nil {
			v = fallback
		}
	}()
	return read()
}

// #endregion helpers
