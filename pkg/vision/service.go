package vision

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/logging"
)

// Options configure the vision service.
type Options struct {
	// Accelerated is the remote backend. Nil means only the local stub is
	// available.
	Accelerated *HTTPBackend
	// FallbackEnabled allows routing to the local stub after an accelerated
	// failure.
	FallbackEnabled bool
	// ForceBackend pins every request to one backend ("accelerated" or
	// "local"). Empty selects the normal accelerated-first order.
	ForceBackend Backend

	CacheTTL     time.Duration
	CacheMaxSize int
	BatchWindow  int

	Logger *slog.Logger
	Clock  func() time.Time
}

// Service routes recognition requests across backends with caching and
// windowed batching.
type Service struct {
	accelerated *HTTPBackend
	local       localBackend
	fallback    bool
	force       Backend
	batchWindow int

	cache  *resultCache
	logger *slog.Logger
	clock  func() time.Time
}

// NewService validates options and constructs a vision service.
func NewService(opts Options) (*Service, error) {
	switch opts.ForceBackend {
	case "", BackendAccelerated, BackendLocal:
	default:
		return nil, errors.New("force backend must be accelerated or local")
	}
	if opts.ForceBackend == BackendAccelerated && opts.Accelerated == nil {
		return nil, errors.New("accelerated backend forced but not configured")
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxSize := opts.CacheMaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	window := opts.BatchWindow
	if window <= 0 {
		window = 5
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Service{
		accelerated: opts.Accelerated,
		fallback:    opts.FallbackEnabled,
		force:       opts.ForceBackend,
		batchWindow: window,
		cache:       newResultCache(ttl, maxSize, clock),
		logger:      logger,
		clock:       clock,
	}, nil
}

// Recognize runs OCR on a frame. It never fails as a Go error: backend
// failures, timeouts, and bad input all surface inside the returned result.
func (s *Service) Recognize(ctx context.Context, frame []byte, opts RecognizeOptions) Result {
	start := s.clock()
	opts = opts.withDefaults()

	if len(frame) == 0 {
		return Result{Err: "empty frame", ProcessingTimeMS: elapsedMS(start, s.clock())}
	}

	key := fingerprint(frame, opts)
	if cached, ok := s.cache.get(key); ok {
		cached.Backend = BackendCached
		cached.ProcessingTimeMS = elapsedMS(start, s.clock())
		s.logger.Debug("recognition served from cache", "fingerprint", key[:12])
		return cached
	}

	result := s.recognizeBackends(ctx, frame, opts)
	result.ProcessingTimeMS = elapsedMS(start, s.clock())
	if result.OK() {
		s.cache.put(key, result)
	}
	return result
}

func (s *Service) recognizeBackends(ctx context.Context, frame []byte, opts RecognizeOptions) Result {
	for _, backend := range s.route() {
		result, err := backend.Recognize(ctx, frame, opts)
		if err == nil {
			result.Backend = backend.Name()
			return result
		}
		s.logger.Warn("recognition backend failed", "backend", backend.Name(), "error", err)
		if !s.shouldFallback(backend) {
			return Result{Backend: backend.Name(), Err: err.Error()}
		}
	}
	return Result{Err: "no recognition backend available"}
}

// DetectRegions locates text areas in a frame. Detection follows the same
// backend order and fallback rules as recognition but results are never
// cached.
func (s *Service) DetectRegions(ctx context.Context, frame []byte, opts DetectOptions) RegionResult {
	start := s.clock()
	opts = opts.withDefaults()

	if len(frame) == 0 {
		return RegionResult{Err: "empty frame", ProcessingTimeMS: elapsedMS(start, s.clock())}
	}

	for _, backend := range s.route() {
		result, err := backend.DetectRegions(ctx, frame, opts)
		if err == nil {
			result.Backend = backend.Name()
			result.ProcessingTimeMS = elapsedMS(start, s.clock())
			return result
		}
		s.logger.Warn("detection backend failed", "backend", backend.Name(), "error", err)
		if !s.shouldFallback(backend) {
			return RegionResult{Backend: backend.Name(), Err: err.Error(), ProcessingTimeMS: elapsedMS(start, s.clock())}
		}
	}
	return RegionResult{Err: "no detection backend available", ProcessingTimeMS: elapsedMS(start, s.clock())}
}

// RecognizeBatch processes frames in fixed-size concurrent windows, returning
// results in input order. Window size bounds backend load and in-flight
// memory.
func (s *Service) RecognizeBatch(ctx context.Context, frames [][]byte, opts RecognizeOptions) []Result {
	results := make([]Result, len(frames))

	for offset := 0; offset < len(frames); offset += s.batchWindow {
		end := offset + s.batchWindow
		if end > len(frames) {
			end = len(frames)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.Recognize(ctx, frames[i], opts)
			}(i)
		}
		wg.Wait()
	}

	return results
}

// StartSweeper runs the periodic expired-entry purge until the context ends.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.cache.sweep(); removed > 0 {
					s.logger.Debug("cache sweep removed expired entries", "removed", removed, "remaining", s.cache.len())
				}
			}
		}
	}()
}

// SweepNow purges expired cache entries once and reports how many were
// removed.
func (s *Service) SweepNow() int {
	return s.cache.sweep()
}

// Health probes the accelerated backend when one is configured.
func (s *Service) Health(ctx context.Context) error {
	if s.accelerated == nil {
		return errors.New("accelerated backend not configured")
	}
	return s.accelerated.Health(ctx)
}

// route returns the backends to try, in order.
func (s *Service) route() []recognizerBackend {
	switch s.force {
	case BackendAccelerated:
		return []recognizerBackend{s.accelerated}
	case BackendLocal:
		return []recognizerBackend{s.local}
	}

	var order []recognizerBackend
	if s.accelerated != nil {
		order = append(order, s.accelerated)
	}
	order = append(order, s.local)
	return order
}

// shouldFallback reports whether a failure of backend may continue to the
// next route entry.
func (s *Service) shouldFallback(backend recognizerBackend) bool {
	return s.force == "" && backend.Name() == BackendAccelerated && s.fallback
}
