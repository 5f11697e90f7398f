package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances manually.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func recognizerServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/vision/ocr":
			calls.Add(1)
			json.NewEncoder(w).Encode(ocrResponse{
				Text:       "hello world",
				Confidence: 0.95,
				Boxes:      []Box{{Text: "hello", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05, Confidence: 0.95}},
			})
		case "/api/v1/vision/detect":
			json.NewEncoder(w).Encode(detectResponse{
				Detected: true,
				Regions:  []Region{{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.2, Confidence: 0.9}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestService(t *testing.T, server *httptest.Server, clock *fakeClock, mutate func(*Options)) *Service {
	t.Helper()
	opts := Options{
		FallbackEnabled: true,
		CacheTTL:        5 * time.Minute,
		CacheMaxSize:    10,
		Clock:           clock.Now,
	}
	if server != nil {
		opts.Accelerated = NewHTTPBackend(server.URL, 5*time.Second)
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRecognizeUsesAcceleratedBackend(t *testing.T) {
	var calls atomic.Int64
	server := recognizerServer(t, &calls)
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), nil)
	result := svc.Recognize(context.Background(), []byte("frame-bytes"), RecognizeOptions{})

	if !result.OK() {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if result.Backend != BackendAccelerated {
		t.Fatalf("expected accelerated backend, got %s", result.Backend)
	}
	if result.Text != "hello world" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestRecognizeEmptyFrame(t *testing.T) {
	svc := newTestService(t, nil, newFakeClock(), nil)
	result := svc.Recognize(context.Background(), nil, RecognizeOptions{})
	if result.OK() {
		t.Fatalf("expected error result for empty frame")
	}
}

func TestRecognizeCacheHitAndExpiry(t *testing.T) {
	var calls atomic.Int64
	server := recognizerServer(t, &calls)
	defer server.Close()

	clock := newFakeClock()
	svc := newTestService(t, server, clock, nil)
	frame := []byte("stable-frame-bytes")

	first := svc.Recognize(context.Background(), frame, RecognizeOptions{})
	if first.Backend != BackendAccelerated {
		t.Fatalf("first call should hit the backend, got %s", first.Backend)
	}

	second := svc.Recognize(context.Background(), frame, RecognizeOptions{})
	if second.Backend != BackendCached {
		t.Fatalf("second call should be cached, got %s", second.Backend)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}

	clock.Advance(6 * time.Minute)
	third := svc.Recognize(context.Background(), frame, RecognizeOptions{})
	if third.Backend != BackendAccelerated {
		t.Fatalf("expired entry should be absent, got %s", third.Backend)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 backend calls after expiry, got %d", got)
	}
}

func TestRecognizeFallsBackToLocal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), nil)
	result := svc.Recognize(context.Background(), []byte("frame"), RecognizeOptions{})

	if result.Backend != BackendLocal {
		t.Fatalf("expected local fallback, got %s", result.Backend)
	}
	if result.OK() {
		t.Fatalf("local stub must report degraded capability")
	}
}

func TestRecognizeFallbackDisabledSurfacesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), func(o *Options) {
		o.FallbackEnabled = false
	})
	result := svc.Recognize(context.Background(), []byte("frame"), RecognizeOptions{})

	if result.Backend != BackendAccelerated {
		t.Fatalf("failure should carry the accelerated tag, got %s", result.Backend)
	}
	if result.OK() {
		t.Fatalf("expected error result")
	}
}

func TestRecognizeForcedLocal(t *testing.T) {
	var calls atomic.Int64
	server := recognizerServer(t, &calls)
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), func(o *Options) {
		o.ForceBackend = BackendLocal
	})
	result := svc.Recognize(context.Background(), []byte("frame"), RecognizeOptions{})

	if result.Backend != BackendLocal {
		t.Fatalf("expected local backend, got %s", result.Backend)
	}
	if calls.Load() != 0 {
		t.Fatalf("accelerated backend must not be called when local is forced")
	}
}

func TestNewServiceRejectsForcedAcceleratedWithoutBackend(t *testing.T) {
	_, err := NewService(Options{ForceBackend: BackendAccelerated})
	if err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestDetectRegionsNeverCached(t *testing.T) {
	var calls atomic.Int64
	server := recognizerServer(t, &calls)
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), nil)
	frame := []byte("frame")

	first := svc.DetectRegions(context.Background(), frame, DetectOptions{})
	second := svc.DetectRegions(context.Background(), frame, DetectOptions{})
	if !first.OK() || !second.OK() {
		t.Fatalf("detection failed: %s / %s", first.Err, second.Err)
	}
	if first.Backend == BackendCached || second.Backend == BackendCached {
		t.Fatalf("detection results must never come from the cache")
	}
	if !first.Detected || len(first.Regions) != 1 {
		t.Fatalf("unexpected detection result: %#v", first)
	}
}

func TestRecognizeBatchPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ocrRequest
		json.NewDecoder(r.Body).Decode(&req)
		// Echo the payload length so each frame gets a distinct text.
		json.NewEncoder(w).Encode(ocrResponse{Text: req.ImageData, Confidence: 1})
	}))
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), func(o *Options) {
		o.BatchWindow = 2
	})

	frames := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte("dddd"), []byte("eeeee")}
	results := svc.RecognizeBatch(context.Background(), frames, RecognizeOptions{})

	if len(results) != len(frames) {
		t.Fatalf("expected %d results, got %d", len(frames), len(results))
	}
	lengths := []int{4, 4, 4, 8, 8}
	for i, result := range results {
		if !result.OK() {
			t.Fatalf("frame %d failed: %s", i, result.Err)
		}
		if len(result.Text) != lengths[i] {
			t.Fatalf("frame %d out of order: text %q", i, result.Text)
		}
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	cache := newResultCache(time.Minute, 10, clock.Now)

	cache.put("a", Result{Text: "a"})
	clock.Advance(30 * time.Second)
	cache.put("b", Result{Text: "b"})
	clock.Advance(40 * time.Second)

	if removed := cache.sweep(); removed != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", removed)
	}
	if _, ok := cache.get("b"); !ok {
		t.Fatalf("fresh entry must survive the sweep")
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	clock := newFakeClock()
	cache := newResultCache(time.Hour, 2, clock.Now)

	cache.put("first", Result{Text: "1"})
	clock.Advance(time.Second)
	cache.put("second", Result{Text: "2"})
	clock.Advance(time.Second)
	cache.put("third", Result{Text: "3"})

	if _, ok := cache.get("first"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if _, ok := cache.get("second"); !ok {
		t.Fatalf("newer entry should remain")
	}
	if _, ok := cache.get("third"); !ok {
		t.Fatalf("newest entry should remain")
	}
}

func TestCacheRejectsErrorResults(t *testing.T) {
	cache := newResultCache(time.Hour, 2, newFakeClock().Now)
	cache.put("bad", Result{Err: "boom"})
	if _, ok := cache.get("bad"); ok {
		t.Fatalf("error results must not be cached")
	}
}

func TestFingerprintDependsOnOptions(t *testing.T) {
	frame := []byte("same frame bytes")
	a := fingerprint(frame, RecognizeOptions{RecognitionLevel: "accurate", Languages: []string{"en-US"}})
	b := fingerprint(frame, RecognizeOptions{RecognitionLevel: "fast", Languages: []string{"en-US"}})
	if a == b {
		t.Fatalf("recognition level must change the fingerprint")
	}

	c := fingerprint(frame, RecognizeOptions{RecognitionLevel: "accurate", Languages: []string{"de-DE", "en-US"}})
	d := fingerprint(frame, RecognizeOptions{RecognitionLevel: "accurate", Languages: []string{"en-US", "de-DE"}})
	if c != d {
		t.Fatalf("language order must not change the fingerprint")
	}
}

func TestHealthProbe(t *testing.T) {
	var calls atomic.Int64
	server := recognizerServer(t, &calls)
	defer server.Close()

	svc := newTestService(t, server, newFakeClock(), nil)
	if err := svc.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	unconfigured := newTestService(t, nil, newFakeClock(), nil)
	if err := unconfigured.Health(context.Background()); err == nil {
		t.Fatalf("expected error without accelerated backend")
	}
}
