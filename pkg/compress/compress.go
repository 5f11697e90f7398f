// Package compress shrinks encoded frames to a byte budget. It searches the
// lossy quality range first and falls back to spatial downscaling only when no
// quality alone can meet the budget.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/offlinefirst/deskpilot/pkg/logging"
)

// ErrBadTarget rejects non-positive size budgets.
var ErrBadTarget = errors.New("target size must be positive")

// Options tune the budget search.
type Options struct {
	// InitialQuality is the upper bound of the quality search. Zero selects 85.
	InitialQuality int
	// MinQuality is the lower bound. Zero selects 20.
	MinQuality int
	// MaxIterations bounds encode trials per quality search. Zero selects 8.
	MaxIterations int
	// MinScale is the downscale floor as a fraction of the original
	// dimensions. Zero selects 0.25.
	MinScale float64

	Logger *slog.Logger
}

// Result describes the achieved encoding.
type Result struct {
	// Data is the budgeted frame. Always non-empty on success, even when the
	// budget could not be met.
	Data []byte
	// AchievedKB is len(Data) in kilobytes.
	AchievedKB float64
	// Quality is the final encode quality, or zero when Data passed through
	// unchanged.
	Quality int
	// Iterations counts encode trials across all quality searches.
	Iterations int
	// Scale is the final fraction of the original dimensions, 1.0 when no
	// downscaling happened.
	Scale float64
}

// Compressor runs budget searches with fixed tuning.
type Compressor struct {
	initialQuality int
	minQuality     int
	maxIterations  int
	minScale       float64
	logger         *slog.Logger
}

// New constructs a compressor, filling zero options with defaults.
func New(opts Options) *Compressor {
	initial := opts.InitialQuality
	if initial <= 0 {
		initial = 85
	}
	min := opts.MinQuality
	if min <= 0 {
		min = 20
	}
	if min > initial {
		min = initial
	}
	iterations := opts.MaxIterations
	if iterations <= 0 {
		iterations = 8
	}
	scale := opts.MinScale
	if scale <= 0 || scale > 1 {
		scale = 0.25
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Compressor{
		initialQuality: initial,
		minQuality:     min,
		maxIterations:  iterations,
		minScale:       scale,
		logger:         logger,
	}
}

// ToBudget reduces frame to at most targetKB kilobytes, re-encoding in the
// requested lossy format. A frame already within budget passes through
// unchanged with zero iterations. When even the minimum quality at the scale
// floor exceeds the budget, the smallest achieved encoding is returned rather
// than nothing.
func (c *Compressor) ToBudget(frame []byte, targetKB int, format string) (Result, error) {
	if targetKB <= 0 {
		return Result{}, ErrBadTarget
	}
	if format == "" {
		format = "jpeg"
	}
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
	default:
		return Result{}, fmt.Errorf("unsupported target format %q", format)
	}

	budget := targetKB * 1024
	if len(frame) <= budget {
		return Result{
			Data:       frame,
			AchievedKB: kilobytes(len(frame)),
			Iterations: 0,
			Scale:      1.0,
		}, nil
	}

	img, sourceFormat, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Result{}, fmt.Errorf("decode frame: %w", err)
	}
	c.logger.Debug("frame over budget, searching",
		"source_format", sourceFormat,
		"size_kb", kilobytes(len(frame)),
		"target_kb", targetKB)

	bounds := img.Bounds()
	iterations := 0
	var smallest []byte
	smallestQuality := c.minQuality
	smallestScale := 1.0

	for scale := 1.0; ; scale *= 0.75 {
		if scale < c.minScale {
			scale = c.minScale
		}

		scaled := img
		if scale < 1.0 {
			scaled = downscale(img, bounds, scale)
		}

		best, bestQuality, trials, err := c.searchQuality(scaled, budget)
		iterations += trials
		if err != nil {
			return Result{}, err
		}
		if best != nil {
			return Result{
				Data:       best,
				AchievedKB: kilobytes(len(best)),
				Quality:    bestQuality,
				Iterations: iterations,
				Scale:      scale,
			}, nil
		}

		// Nothing fit at this scale; keep the minimum-quality encoding as the
		// fallback answer.
		floor, err := encodeJPEG(scaled, c.minQuality)
		if err != nil {
			return Result{}, err
		}
		iterations++
		if smallest == nil || len(floor) < len(smallest) {
			smallest = floor
			smallestScale = scale
		}
		if len(floor) <= budget {
			return Result{
				Data:       floor,
				AchievedKB: kilobytes(len(floor)),
				Quality:    c.minQuality,
				Iterations: iterations,
				Scale:      scale,
			}, nil
		}

		if scale <= c.minScale {
			break
		}
	}

	c.logger.Warn("budget unreachable, returning smallest encoding",
		"achieved_kb", kilobytes(len(smallest)),
		"target_kb", targetKB,
		"scale", smallestScale)
	return Result{
		Data:       smallest,
		AchievedKB: kilobytes(len(smallest)),
		Quality:    smallestQuality,
		Iterations: iterations,
		Scale:      smallestScale,
	}, nil
}

// searchQuality binary-searches the quality range for the highest quality
// within budget. It returns the best encoding found, or nil when no trial fit.
func (c *Compressor) searchQuality(img image.Image, budget int) ([]byte, int, int, error) {
	lo, hi := c.minQuality, c.initialQuality
	trials := 0
	var best []byte
	bestQuality := 0

	for lo <= hi && trials < c.maxIterations {
		quality := (lo + hi) / 2
		data, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, 0, trials, err
		}
		trials++

		if len(data) <= budget {
			best = data
			bestQuality = quality
			lo = quality + 1
		} else {
			hi = quality - 1
		}
	}
	return best, bestQuality, trials, nil
}

// downscale resamples img to scale times its original dimensions.
func downscale(img image.Image, bounds image.Rectangle, scale float64) image.Image {
	width := int(float64(bounds.Dx()) * scale)
	height := int(float64(bounds.Dy()) * scale)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func kilobytes(n int) float64 {
	return float64(n) / 1024.0
}
