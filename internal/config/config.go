package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/policy"
)

// #region defaults
// Defaults holds every key with its built-in value. File and QUALITY_*
// environment values override them.
var Defaults = map[string]any{
	"policy.low_fps":           15,
	"policy.medium_fps":        30,
	"policy.high_fps":          50,
	"policy.adaptation_delay":  "3s",
	"policy.override_persists": false,
	"sampler.interval":         "1s",
	"sampler.target_fps":       60,
	"device.mobile_breakpoint": 768,
	"device.low_battery":       0.2,
	"device.root":              "/",
	"device.viewport_width":    1920,
	"device.data_saver":        false,
	"device.reduced_motion":    false,
	"history.db":               "quality_history.db",
	"server.ws_addr":           ":8090",
	"server.grpc_addr":         ":50061",
	"server.metrics_addr":      ":9090",
}

// #endregion defaults

// #region config
// Config is the resolved process configuration.
type Config struct {
	Controller controller.Config
	Native     device.NativeConfig

	HistoryDB   string // empty disables history
	WSAddr      string
	GRPCAddr    string
	MetricsAddr string
}

// #endregion config

// #region load

// New returns a viper instance carrying the defaults and the QUALITY_
// environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("QUALITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	for key, val := range Defaults {
		v.SetDefault(key, val)
	}
	return v
}

// Load reads the optional config file at path (or $QUALITY_CONFIG when path
// is empty) over the defaults and environment.
func Load(path string) (Config, error) {
	v := New()
	if path == "" {
		path = os.Getenv("QUALITY_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper resolves and validates a Config.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Controller: controller.Config{
			Policy: policy.PolicyConfig{
				LowFPS:    v.GetInt("policy.low_fps"),
				MediumFPS: v.GetInt("policy.medium_fps"),
				HighFPS:   v.GetInt("policy.high_fps"),
			},
			Sampler: perf.SamplerConfig{
				SampleInterval: v.GetDuration("sampler.interval"),
				TargetFPS:      v.GetInt("sampler.target_fps"),
			},
			Profiler: device.ProfilerConfig{
				MobileBreakpoint: v.GetInt("device.mobile_breakpoint"),
				LowBatteryLevel:  v.GetFloat64("device.low_battery"),
			},
			AdaptationDelay:  v.GetDuration("policy.adaptation_delay"),
			OverridePersists: v.GetBool("policy.override_persists"),
		},
		Native: device.NativeConfig{
			Root:          v.GetString("device.root"),
			ViewportWidth: v.GetInt("device.viewport_width"),
			DataSaver:     v.GetBool("device.data_saver"),
			ReducedMotion: v.GetBool("device.reduced_motion"),
		},
		HistoryDB:   v.GetString("history.db"),
		WSAddr:      v.GetString("server.ws_addr"),
		GRPCAddr:    v.GetString("server.grpc_addr"),
		MetricsAddr: v.GetString("server.metrics_addr"),
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate

func validate(cfg Config) error {
	var errs []error
	p := cfg.Controller.Policy
	if p.LowFPS <= 0 || p.LowFPS >= p.MediumFPS || p.MediumFPS >= p.HighFPS {
		errs = append(errs, fmt.Errorf("policy thresholds must satisfy 0 < low < medium < high, got %d/%d/%d",
			p.LowFPS, p.MediumFPS, p.HighFPS))
	}
	if cfg.Controller.AdaptationDelay <= 0 {
		errs = append(errs, fmt.Errorf("policy.adaptation_delay must be positive, got %s", cfg.Controller.AdaptationDelay))
	}
	s := cfg.Controller.Sampler
	if s.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sampler.interval must be positive, got %s", s.SampleInterval))
	}
	if s.TargetFPS < p.HighFPS {
		errs = append(errs, fmt.Errorf("sampler.target_fps %d is below policy.high_fps %d", s.TargetFPS, p.HighFPS))
	}
	if b := cfg.Controller.Profiler.MobileBreakpoint; b <= 0 {
		errs = append(errs, fmt.Errorf("device.mobile_breakpoint must be positive, got %d", b))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion validate
