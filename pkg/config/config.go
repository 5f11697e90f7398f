// Package config loads and validates the agent's user-adjustable knobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "config.yaml"

// Config captures the user-adjustable knobs for the agent.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Vision   VisionConfig   `yaml:"vision"`
	Compress CompressConfig `yaml:"compress"`
	Sink     SinkConfig     `yaml:"sink"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// InputConfig tunes dispatch pacing and synthesizer aggregation. The values
// are empirical UX tuning, kept adjustable on purpose.
type InputConfig struct {
	PaceMS          int `yaml:"pace_ms"`
	MoveDebounceMS  int `yaml:"move_debounce_ms"`
	ClickDebounceMS int `yaml:"click_debounce_ms"`
	TypeDebounceMS  int `yaml:"type_debounce_ms"`
	MaxClickCount   int `yaml:"max_click_count"`
	MaxScrollCount  int `yaml:"max_scroll_count"`
	DragMinPoints   int `yaml:"drag_min_points"`
	ScrollBurstSize int `yaml:"scroll_burst_size"`
}

// VisionConfig governs the recognizer backends and result cache.
type VisionConfig struct {
	ServiceURL      string `yaml:"service_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	FallbackEnabled bool   `yaml:"fallback_enabled"`
	ForceBackend    string `yaml:"force_backend"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	CacheMaxSize    int    `yaml:"cache_max_size"`
	SweepSeconds    int    `yaml:"sweep_seconds"`
	BatchWindow     int    `yaml:"batch_window"`
}

// CompressConfig bounds the frame-size optimizer.
type CompressConfig struct {
	InitialQuality int     `yaml:"initial_quality"`
	MinQuality     int     `yaml:"min_quality"`
	MaxIterations  int     `yaml:"max_iterations"`
	MinScale       float64 `yaml:"min_scale"`
}

// SinkConfig selects where synthesized observations are delivered and which
// redaction rules apply on the way out.
type SinkConfig struct {
	Kind           string   `yaml:"kind"`
	Path           string   `yaml:"path"`
	BrokerURL      string   `yaml:"broker_url"`
	Topic          string   `yaml:"topic"`
	ClientID       string   `yaml:"client_id"`
	WithFrames     bool     `yaml:"with_frames"`
	RedactEmails   bool     `yaml:"redact_emails"`
	RedactPatterns []string `yaml:"redact_patterns"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Input: InputConfig{
			PaceMS:          150,
			MoveDebounceMS:  250,
			ClickDebounceMS: 250,
			TypeDebounceMS:  500,
			MaxClickCount:   10,
			MaxScrollCount:  50,
			DragMinPoints:   3,
			ScrollBurstSize: 4,
		},
		Vision: VisionConfig{
			ServiceURL:      "http://127.0.0.1:8080",
			TimeoutSeconds:  30,
			FallbackEnabled: true,
			ForceBackend:    "",
			CacheTTLSeconds: 300,
			CacheMaxSize:    1000,
			SweepSeconds:    60,
			BatchWindow:     5,
		},
		Compress: CompressConfig{
			InitialQuality: 85,
			MinQuality:     20,
			MaxIterations:  8,
			MinScale:       0.25,
		},
		Sink: SinkConfig{
			Kind:     "jsonl",
			Path:     "observations.jsonl",
			Topic:    "deskpilot/observations",
			ClientID: "deskpilot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Input.PaceMS < 0 {
		return errors.New("input.pace_ms must not be negative")
	}
	if c.Input.MoveDebounceMS <= 0 {
		return errors.New("input.move_debounce_ms must be positive")
	}
	if c.Input.ClickDebounceMS <= 0 {
		return errors.New("input.click_debounce_ms must be positive")
	}
	if c.Input.TypeDebounceMS <= 0 {
		return errors.New("input.type_debounce_ms must be positive")
	}
	if c.Input.MaxClickCount <= 0 {
		return errors.New("input.max_click_count must be positive")
	}
	if c.Input.MaxScrollCount <= 0 {
		return errors.New("input.max_scroll_count must be positive")
	}
	if c.Input.DragMinPoints <= 0 {
		return errors.New("input.drag_min_points must be positive")
	}
	if c.Input.ScrollBurstSize <= 1 {
		return errors.New("input.scroll_burst_size must be greater than one")
	}

	switch strings.ToLower(strings.TrimSpace(c.Vision.ForceBackend)) {
	case "", "accelerated", "local":
	default:
		return fmt.Errorf("vision.force_backend must be empty, %q, or %q", "accelerated", "local")
	}
	if c.Vision.TimeoutSeconds <= 0 {
		return errors.New("vision.timeout_seconds must be positive")
	}
	if c.Vision.CacheTTLSeconds <= 0 {
		return errors.New("vision.cache_ttl_seconds must be positive")
	}
	if c.Vision.CacheMaxSize <= 0 {
		return errors.New("vision.cache_max_size must be positive")
	}
	if c.Vision.BatchWindow <= 0 {
		return errors.New("vision.batch_window must be positive")
	}

	if c.Compress.MinQuality <= 0 || c.Compress.MinQuality > 100 {
		return errors.New("compress.min_quality must be within 1..100")
	}
	if c.Compress.InitialQuality < c.Compress.MinQuality || c.Compress.InitialQuality > 100 {
		return errors.New("compress.initial_quality must be within min_quality..100")
	}
	if c.Compress.MaxIterations <= 0 {
		return errors.New("compress.max_iterations must be positive")
	}
	if c.Compress.MinScale <= 0 || c.Compress.MinScale > 1 {
		return errors.New("compress.min_scale must be within (0,1]")
	}

	switch strings.ToLower(strings.TrimSpace(c.Sink.Kind)) {
	case "jsonl", "mqtt", "log":
	default:
		return fmt.Errorf("sink.kind must be one of jsonl, mqtt, log")
	}
	if strings.EqualFold(c.Sink.Kind, "mqtt") && strings.TrimSpace(c.Sink.BrokerURL) == "" {
		return errors.New("sink.broker_url must be set for the mqtt sink")
	}

	return nil
}

// Timeout returns the accelerated-backend timeout as a duration.
func (c VisionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c VisionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SweepInterval returns the cadence of the expired-entry sweep.
func (c VisionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

func (c *Config) normalize() {
	defaults := Default()

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Input.PaceMS == 0 {
		c.Input.PaceMS = defaults.Input.PaceMS
	}
	if c.Input.MoveDebounceMS <= 0 {
		c.Input.MoveDebounceMS = defaults.Input.MoveDebounceMS
	}
	if c.Input.ClickDebounceMS <= 0 {
		c.Input.ClickDebounceMS = defaults.Input.ClickDebounceMS
	}
	if c.Input.TypeDebounceMS <= 0 {
		c.Input.TypeDebounceMS = defaults.Input.TypeDebounceMS
	}
	if c.Input.MaxClickCount <= 0 {
		c.Input.MaxClickCount = defaults.Input.MaxClickCount
	}
	if c.Input.MaxScrollCount <= 0 {
		c.Input.MaxScrollCount = defaults.Input.MaxScrollCount
	}
	if c.Input.DragMinPoints <= 0 {
		c.Input.DragMinPoints = defaults.Input.DragMinPoints
	}
	if c.Input.ScrollBurstSize <= 0 {
		c.Input.ScrollBurstSize = defaults.Input.ScrollBurstSize
	}

	if strings.TrimSpace(c.Vision.ServiceURL) == "" {
		c.Vision.ServiceURL = defaults.Vision.ServiceURL
	}
	c.Vision.ServiceURL = strings.TrimRight(strings.TrimSpace(c.Vision.ServiceURL), "/")
	c.Vision.ForceBackend = strings.ToLower(strings.TrimSpace(c.Vision.ForceBackend))
	if c.Vision.TimeoutSeconds <= 0 {
		c.Vision.TimeoutSeconds = defaults.Vision.TimeoutSeconds
	}
	if c.Vision.CacheTTLSeconds <= 0 {
		c.Vision.CacheTTLSeconds = defaults.Vision.CacheTTLSeconds
	}
	if c.Vision.CacheMaxSize <= 0 {
		c.Vision.CacheMaxSize = defaults.Vision.CacheMaxSize
	}
	if c.Vision.SweepSeconds <= 0 {
		c.Vision.SweepSeconds = defaults.Vision.SweepSeconds
	}
	if c.Vision.BatchWindow <= 0 {
		c.Vision.BatchWindow = defaults.Vision.BatchWindow
	}

	if c.Compress.InitialQuality <= 0 {
		c.Compress.InitialQuality = defaults.Compress.InitialQuality
	}
	if c.Compress.MinQuality <= 0 {
		c.Compress.MinQuality = defaults.Compress.MinQuality
	}
	if c.Compress.MaxIterations <= 0 {
		c.Compress.MaxIterations = defaults.Compress.MaxIterations
	}
	if c.Compress.MinScale <= 0 {
		c.Compress.MinScale = defaults.Compress.MinScale
	}

	if strings.TrimSpace(c.Sink.Kind) == "" {
		c.Sink.Kind = defaults.Sink.Kind
	}
	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))
	if strings.TrimSpace(c.Sink.Path) == "" {
		c.Sink.Path = defaults.Sink.Path
	}
	if strings.TrimSpace(c.Sink.Topic) == "" {
		c.Sink.Topic = defaults.Sink.Topic
	}
	if strings.TrimSpace(c.Sink.ClientID) == "" {
		c.Sink.ClientID = defaults.Sink.ClientID
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
