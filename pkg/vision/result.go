// Package vision augments captured frames with text recognition and region
// detection. Failures are encoded in results rather than returned as errors,
// so callers always receive something they can attach to an operation.
package vision

import "time"

// Backend identifies which recognition engine produced a result.
type Backend string

const (
	// BackendAccelerated is the remote hardware-accelerated recognizer.
	BackendAccelerated Backend = "accelerated"
	// BackendLocal is the in-process fallback recognizer.
	BackendLocal Backend = "local"
	// BackendCached marks a result served from the result cache.
	BackendCached Backend = "cached"
)

// Box is one recognized text fragment with its normalized bounding rectangle.
type Box struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one recognition call. Confidence and boxes are
// meaningful only when Err is empty; empty Boxes with no error means nothing
// was found.
type Result struct {
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	Boxes            []Box   `json:"bounding_boxes,omitempty"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	Backend          Backend `json:"backend"`
	Language         string  `json:"language,omitempty"`
	Err              string  `json:"error,omitempty"`
}

// OK reports whether the recognition succeeded.
func (r Result) OK() bool {
	return r.Err == ""
}

// clone returns a deep copy so cached entries never alias caller slices.
func (r Result) clone() Result {
	out := r
	if len(r.Boxes) > 0 {
		out.Boxes = append([]Box(nil), r.Boxes...)
	}
	return out
}

// Region is one detected text area without recognized content.
type Region struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// RegionResult is the outcome of one region detection call.
type RegionResult struct {
	Detected         bool     `json:"detected"`
	Regions          []Region `json:"regions,omitempty"`
	ProcessingTimeMS float64  `json:"processing_time_ms"`
	Backend          Backend  `json:"backend"`
	Err              string   `json:"error,omitempty"`
}

// OK reports whether the detection succeeded.
func (r RegionResult) OK() bool {
	return r.Err == ""
}

// RecognizeOptions tune one recognition request.
type RecognizeOptions struct {
	RecognitionLevel string
	Languages        []string
	MinTextHeight    float64
}

// DetectOptions tune one region detection request.
type DetectOptions struct {
	ConfidenceThreshold float64
}

func (o RecognizeOptions) withDefaults() RecognizeOptions {
	if o.RecognitionLevel == "" {
		o.RecognitionLevel = "accurate"
	}
	if len(o.Languages) == 0 {
		o.Languages = []string{"en-US"}
	}
	if o.MinTextHeight <= 0 {
		o.MinTextHeight = 0.03125
	}
	return o
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 0.8
	}
	return o
}

func elapsedMS(start, end time.Time) float64 {
	return float64(end.Sub(start)) / float64(time.Millisecond)
}
