//go:build !js || !wasm

package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// #region native-config

// NativeConfig describes what sysfs cannot tell us about a native surface.
type NativeConfig struct {
	Root          string // filesystem root for /sys and /proc lookups ("/" when empty)
	ViewportWidth int
	DataSaver     bool
	ReducedMotion bool
}

// #endregion native-config

// #region native-platform

// NativePlatform reads device capabilities from Linux sysfs and procfs.
type NativePlatform struct {
	config NativeConfig

	mu        sync.Mutex
	width     int
	listeners map[int]func(int)
	nextID    int
}

// NewNativePlatform creates a platform rooted at config.Root.
func NewNativePlatform(config NativeConfig) *NativePlatform {
	if config.Root == "" {
		config.Root = "/"
	}
	return &NativePlatform{
		config:    config,
		width:     config.ViewportWidth,
		listeners: make(map[int]func(int)),
	}
}

// HasTouch looks for a touchscreen among the kernel's input devices.
func (p *NativePlatform) HasTouch() bool {
	data, err := os.ReadFile(p.path("proc/bus/input/devices"))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "touchscreen")
}

func (p *NativePlatform) UserAgent() string {
	return fmt.Sprintf("quality-controller (%s; %s)", runtime.GOOS, runtime.GOARCH)
}

func (p *NativePlatform) ViewportWidth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// SetViewportWidth records a new surface width and notifies resize listeners.
func (p *NativePlatform) SetViewportWidth(width int) {
	p.mu.Lock()
	p.width = width
	fns := make([]func(int), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(width)
	}
}

func (p *NativePlatform) OnResize(fn func(width int)) (detach func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *NativePlatform) SaveData() bool             { return p.config.DataSaver }
func (p *NativePlatform) PrefersReducedMotion() bool { return p.config.ReducedMotion }

// #endregion native-platform

// #region native-battery

// Battery reads the first BAT* power supply.
func (p *NativePlatform) Battery(ctx context.Context) (BatteryStatus, error) {
	if err := ctx.Err(); err != nil {
		return BatteryStatus{}, err
	}
	dirs, _ := filepath.Glob(p.path("sys/class/power_supply/BAT*"))
	if len(dirs) == 0 {
		return BatteryStatus{}, ErrNoBattery
	}
	raw, err := os.ReadFile(filepath.Join(dirs[0], "capacity"))
	if err != nil {
		return BatteryStatus{}, fmt.Errorf("read capacity: %w", err)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return BatteryStatus{}, fmt.Errorf("parse capacity: %w", err)
	}
	status, _ := os.ReadFile(filepath.Join(dirs[0], "status"))
	return BatteryStatus{
		Level:    float64(capacity) / 100,
		Charging: strings.EqualFold(strings.TrimSpace(string(status)), "charging"),
	}, nil
}

// #endregion native-battery

// #region native-gpu

// drmVendors maps PCI vendor ids to renderer names the classifier knows.
var drmVendors = map[string]string{
	"0x10de": "NVIDIA",
	"0x1002": "AMD Radeon",
	"0x8086": "Intel",
}

// GraphicsContext returns a context for the first DRM card, if any.
func (p *NativePlatform) GraphicsContext() (GraphicsContext, error) {
	vendors, _ := filepath.Glob(p.path("sys/class/drm/card*/device/vendor"))
	if len(vendors) == 0 {
		return nil, ErrNoContext
	}
	raw, err := os.ReadFile(vendors[0])
	if err != nil {
		return nil, fmt.Errorf("read drm vendor: %w", err)
	}
	return drmContext{vendor: strings.ToLower(strings.TrimSpace(string(raw)))}, nil
}

type drmContext struct {
	vendor string
}

// RendererInfo is only available for vendors we can name.
func (c drmContext) RendererInfo() (string, bool) {
	name, ok := drmVendors[c.vendor]
	return name, ok
}

// CompileVertexShader succeeds whenever a DRM device exists; there is no
// shader compiler on the native path.
func (c drmContext) CompileVertexShader(string) error {
	return nil
}

// #endregion native-gpu

// #region helpers

func (p *NativePlatform) path(rel string) string {
	return filepath.Join(p.config.Root, rel)
}

// #endregion helpers
