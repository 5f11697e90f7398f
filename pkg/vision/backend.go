package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrLocalNotImplemented is the fixed outcome of the local fallback. The stub
// signals degraded capability explicitly instead of pretending to recognize.
var ErrLocalNotImplemented = errors.New("local recognizer not implemented")

// recognizerBackend is one engine the service can route a request to.
type recognizerBackend interface {
	Name() Backend
	Recognize(ctx context.Context, frame []byte, opts RecognizeOptions) (Result, error)
	DetectRegions(ctx context.Context, frame []byte, opts DetectOptions) (RegionResult, error)
}

// HTTPBackend calls the accelerated recognizer service over HTTP. Every call
// carries a hard timeout; a timeout is reported like any other backend failure.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend builds a client for the recognizer service at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in results.
func (b *HTTPBackend) Name() Backend {
	return BackendAccelerated
}

type ocrRequest struct {
	ImageData        string   `json:"image_data"`
	RecognitionLevel string   `json:"recognition_level"`
	Languages        []string `json:"languages"`
	MinTextHeight    float64  `json:"minimum_text_height"`
}

type ocrResponse struct {
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	Boxes            []Box   `json:"bounding_boxes"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	Language         string  `json:"language"`
	Error            string  `json:"error"`
}

// Recognize submits one frame for OCR.
func (b *HTTPBackend) Recognize(ctx context.Context, frame []byte, opts RecognizeOptions) (Result, error) {
	payload := ocrRequest{
		ImageData:        base64.StdEncoding.EncodeToString(frame),
		RecognitionLevel: opts.RecognitionLevel,
		Languages:        opts.Languages,
		MinTextHeight:    opts.MinTextHeight,
	}

	var resp ocrResponse
	if err := b.post(ctx, "/api/v1/vision/ocr", payload, &resp); err != nil {
		return Result{}, err
	}
	if resp.Error != "" {
		return Result{}, fmt.Errorf("recognizer reported: %s", resp.Error)
	}

	language := resp.Language
	if language == "" && len(opts.Languages) > 0 {
		language = opts.Languages[0]
	}
	return Result{
		Text:             resp.Text,
		Confidence:       resp.Confidence,
		Boxes:            resp.Boxes,
		ProcessingTimeMS: resp.ProcessingTimeMS,
		Backend:          BackendAccelerated,
		Language:         language,
	}, nil
}

type detectRequest struct {
	ImageData           string  `json:"image_data"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

type detectResponse struct {
	Detected         bool     `json:"detected"`
	Regions          []Region `json:"regions"`
	ProcessingTimeMS float64  `json:"processing_time_ms"`
	Error            string   `json:"error"`
}

// DetectRegions submits one frame for text region detection.
func (b *HTTPBackend) DetectRegions(ctx context.Context, frame []byte, opts DetectOptions) (RegionResult, error) {
	payload := detectRequest{
		ImageData:           base64.StdEncoding.EncodeToString(frame),
		ConfidenceThreshold: opts.ConfidenceThreshold,
	}

	var resp detectResponse
	if err := b.post(ctx, "/api/v1/vision/detect", payload, &resp); err != nil {
		return RegionResult{}, err
	}
	if resp.Error != "" {
		return RegionResult{}, fmt.Errorf("recognizer reported: %s", resp.Error)
	}

	return RegionResult{
		Detected:         resp.Detected,
		Regions:          resp.Regions,
		ProcessingTimeMS: resp.ProcessingTimeMS,
		Backend:          BackendAccelerated,
	}, nil
}

// Health probes the recognizer service's health endpoint.
func (b *HTTPBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("recognizer health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognizer health check: status %d", resp.StatusCode)
	}
	return nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode recognizer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build recognizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("call recognizer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read recognizer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognizer returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode recognizer response: %w", err)
	}
	return nil
}

// localBackend is the deliberate stub. It never recognizes anything and makes
// that visible in every result.
type localBackend struct{}

func (localBackend) Name() Backend {
	return BackendLocal
}

func (localBackend) Recognize(ctx context.Context, frame []byte, opts RecognizeOptions) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Backend: BackendLocal, Err: ErrLocalNotImplemented.Error()}, nil
}

func (localBackend) DetectRegions(ctx context.Context, frame []byte, opts DetectOptions) (RegionResult, error) {
	if err := ctx.Err(); err != nil {
		return RegionResult{}, err
	}
	return RegionResult{Backend: BackendLocal, Err: ErrLocalNotImplemented.Error()}, nil
}
