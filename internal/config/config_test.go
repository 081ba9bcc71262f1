package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Controller.Policy
	if p.LowFPS != 15 || p.MediumFPS != 30 || p.HighFPS != 50 {
		t.Errorf("unexpected thresholds %+v", p)
	}
	if cfg.Controller.AdaptationDelay != 3*time.Second {
		t.Errorf("expected 3s delay, got %s", cfg.Controller.AdaptationDelay)
	}
	if cfg.Controller.Sampler.SampleInterval != time.Second || cfg.Controller.Sampler.TargetFPS != 60 {
		t.Errorf("unexpected sampler config %+v", cfg.Controller.Sampler)
	}
	if cfg.Controller.Profiler.MobileBreakpoint != 768 {
		t.Errorf("expected breakpoint 768, got %d", cfg.Controller.Profiler.MobileBreakpoint)
	}
	if cfg.Controller.OverridePersists {
		t.Error("override should be one-shot by default")
	}
	if cfg.HistoryDB != "quality_history.db" || cfg.WSAddr != ":8090" || cfg.GRPCAddr != ":50061" || cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected server config %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUALITY_POLICY_ADAPTATION_DELAY", "500ms")
	t.Setenv("QUALITY_POLICY_OVERRIDE_PERSISTS", "true")
	t.Setenv("QUALITY_DEVICE_VIEWPORT_WIDTH", "600")
	t.Setenv("QUALITY_HISTORY_DB", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Controller.AdaptationDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %s", cfg.Controller.AdaptationDelay)
	}
	if !cfg.Controller.OverridePersists {
		t.Error("expected persistent override from env")
	}
	if cfg.HistoryDB != "" {
		t.Errorf("empty QUALITY_HISTORY_DB should disable history, got %q", cfg.HistoryDB)
	}
	if cfg.Native.ViewportWidth != 600 {
		t.Errorf("expected width 600, got %d", cfg.Native.ViewportWidth)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quality.yaml")
	body := "policy:\n  high_fps: 55\n  adaptation_delay: 5s\nserver:\n  ws_addr: \":9999\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Controller.Policy.HighFPS != 55 || cfg.Controller.AdaptationDelay != 5*time.Second {
		t.Errorf("file values not applied: %+v", cfg.Controller)
	}
	if cfg.Controller.Policy.LowFPS != 15 {
		t.Errorf("unset keys should keep defaults, got low=%d", cfg.Controller.Policy.LowFPS)
	}
	if cfg.WSAddr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.WSAddr)
	}
}

func TestMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	v := New()
	v.Set("policy.low_fps", 40)
	v.Set("sampler.target_fps", 30)

	_, err := FromViper(v)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"low < medium < high", "target_fps"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}
