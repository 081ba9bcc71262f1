package device

import (
	"context"
	"errors"
)

// #region gpu-tier

// GPUTier is the heuristic graphics-hardware class of the running device.
type GPUTier string

const (
	GPUHigh   GPUTier = "high"
	GPUMedium GPUTier = "medium"
	GPULow    GPUTier = "low"
	GPUNone   GPUTier = "none"
)

// #endregion gpu-tier

// #region profile

// DeviceProfile is the one-shot capability classification of the device.
// IsMobile is re-derived on viewport resize; the other fields are fixed.
type DeviceProfile struct {
	IsMobile   bool    `json:"is_mobile"`
	IsTouch    bool    `json:"is_touch"`
	IsLowPower bool    `json:"is_low_power"`
	GPUTier    GPUTier `json:"gpu_tier"`
}

// #endregion profile

// #region platform

// BatteryStatus is a battery reading. Level is a fraction in [0, 1].
type BatteryStatus struct {
	Level    float64
	Charging bool
}

var (
	ErrNoBattery = errors.New("battery status unavailable")
	ErrNoContext = errors.New("graphics context unavailable")
)

// Platform abstracts the device sensors the profiler reads.
// Absent capabilities report their zero value (or an error for Battery and
// GraphicsContext); probes may also panic, which the profiler recovers.
type Platform interface {
	HasTouch() bool
	UserAgent() string
	ViewportWidth() int
	Battery(ctx context.Context) (BatteryStatus, error)
	SaveData() bool
	PrefersReducedMotion() bool
	GraphicsContext() (GraphicsContext, error)
	// OnResize registers fn for viewport width changes and returns a detach func.
	OnResize(fn func(width int)) (detach func())
}

// GraphicsContext is an obtained rendering context.
type GraphicsContext interface {
	// RendererInfo reads the renderer identification string through the
	// debug-info capability. ok is false when the capability is absent.
	RendererInfo() (renderer string, ok bool)
	CompileVertexShader(src string) error
}

// #endregion platform

// #region config

// ProfilerConfig holds classification knobs.
type ProfilerConfig struct {
	MobileBreakpoint int     // viewport width below this is mobile
	LowBatteryLevel  float64 // battery fraction below this signals low power
}

// DefaultProfilerConfig returns sensible defaults.
func DefaultProfilerConfig() ProfilerConfig {
	return ProfilerConfig{
		MobileBreakpoint: 768,
		LowBatteryLevel:  0.2,
	}
}

// #endregion config
