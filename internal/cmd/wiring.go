package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/compress"
	"github.com/offlinefirst/deskpilot/pkg/config"
	"github.com/offlinefirst/deskpilot/pkg/dispatch"
	"github.com/offlinefirst/deskpilot/pkg/driver"
	"github.com/offlinefirst/deskpilot/pkg/sink"
	"github.com/offlinefirst/deskpilot/pkg/vision"
)

// newVisionService builds the recognition service from configuration.
func newVisionService(cfg config.VisionConfig, logger *slog.Logger) (*vision.Service, error) {
	svc, err := vision.NewService(vision.Options{
		Accelerated:     vision.NewHTTPBackend(cfg.ServiceURL, cfg.Timeout()),
		FallbackEnabled: cfg.FallbackEnabled,
		ForceBackend:    vision.Backend(cfg.ForceBackend),
		CacheTTL:        cfg.CacheTTL(),
		CacheMaxSize:    cfg.CacheMaxSize,
		BatchWindow:     cfg.BatchWindow,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure vision service: %w", err)
	}
	return svc, nil
}

// newCompressor builds the frame budgeter from configuration.
func newCompressor(cfg config.CompressConfig, logger *slog.Logger) *compress.Compressor {
	return compress.New(compress.Options{
		InitialQuality: cfg.InitialQuality,
		MinQuality:     cfg.MinQuality,
		MaxIterations:  cfg.MaxIterations,
		MinScale:       cfg.MinScale,
		Logger:         logger,
	})
}

// newDispatcher assembles a dispatcher against the real host driver.
func newDispatcher(cfg config.Config, logger *slog.Logger, budgetKB int, svc *vision.Service) (*dispatch.Dispatcher, error) {
	return dispatch.New(dispatch.Options{
		Driver:         driver.NewRobotgo(),
		Vision:         svc,
		Compressor:     newCompressor(cfg.Compress, logger),
		FrameBudgetKB:  budgetKB,
		Pace:           time.Duration(cfg.Input.PaceMS) * time.Millisecond,
		MaxClickCount:  cfg.Input.MaxClickCount,
		MaxScrollCount: cfg.Input.MaxScrollCount,
		Logger:         logger,
	})
}

// newSink builds the observation destination from configuration.
func newSink(cfg config.SinkConfig, logger *slog.Logger) (sink.Sink, error) {
	redactor, err := sink.NewRedactor(cfg.RedactEmails, cfg.RedactPatterns)
	if err != nil {
		return nil, fmt.Errorf("configure redactor: %w", err)
	}

	switch cfg.Kind {
	case "jsonl":
		return sink.NewJSONL(cfg.Path, redactor, cfg.WithFrames)
	case "mqtt":
		return sink.NewMQTT(sink.MQTTOptions{
			BrokerURL:  cfg.BrokerURL,
			Topic:      cfg.Topic,
			ClientID:   cfg.ClientID,
			Redactor:   redactor,
			WithFrames: cfg.WithFrames,
		})
	case "log":
		return sink.NewLog(logger, redactor), nil
	default:
		return nil, fmt.Errorf("unsupported sink kind %q", cfg.Kind)
	}
}
