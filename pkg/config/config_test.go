package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Input.PaceMS != 150 || cfg.Input.TypeDebounceMS != 500 {
		t.Fatalf("unexpected input defaults: %#v", cfg.Input)
	}
	if cfg.Vision.CacheTTLSeconds != 300 || cfg.Vision.CacheMaxSize != 1000 {
		t.Fatalf("unexpected vision defaults: %#v", cfg.Vision)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadAppliesOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
input:
  max_click_count: 5
vision:
  service_url: http://recognizer:9000/
  fallback_enabled: false
sink:
  kind: log
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input.MaxClickCount != 5 {
		t.Fatalf("override not applied: %d", cfg.Input.MaxClickCount)
	}
	if cfg.Input.MaxScrollCount != 50 {
		t.Fatalf("unset field should keep default: %d", cfg.Input.MaxScrollCount)
	}
	if cfg.Vision.ServiceURL != "http://recognizer:9000" {
		t.Fatalf("url should be trimmed: %q", cfg.Vision.ServiceURL)
	}
	if cfg.Sink.Kind != "log" {
		t.Fatalf("sink kind not applied: %q", cfg.Sink.Kind)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level not applied: %q", cfg.Logging.Level)
	}
	if cfg.Source != path {
		t.Fatalf("source should record the file path: %q", cfg.Source)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"bad force backend":  func(c *Config) { c.Vision.ForceBackend = "gpu" },
		"bad sink kind":      func(c *Config) { c.Sink.Kind = "kafka" },
		"mqtt needs broker":  func(c *Config) { c.Sink.Kind = "mqtt"; c.Sink.BrokerURL = "" },
		"bad quality bounds": func(c *Config) { c.Compress.InitialQuality = 10; c.Compress.MinQuality = 20 },
		"bad scroll burst":   func(c *Config) { c.Input.ScrollBurstSize = 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	if lvl, err := NormalizeLogLevel("WARNING"); err != nil || lvl != "warn" {
		t.Fatalf("expected warn, got %q err %v", lvl, err)
	}
	if _, err := NormalizeLogLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
