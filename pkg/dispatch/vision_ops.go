package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"

	"github.com/offlinefirst/deskpilot/pkg/action"
	"github.com/offlinefirst/deskpilot/pkg/textsearch"
	"github.com/offlinefirst/deskpilot/pkg/vision"
)

func (d *Dispatcher) ocr(ctx context.Context, v action.Ocr) (Result, error) {
	if d.vision == nil {
		return nil, fmt.Errorf("%w: vision service", ErrNotConfigured)
	}

	frame, err := d.driver.CaptureFrame(ctx)
	if err != nil {
		return nil, err
	}
	if v.Region != nil {
		frame, err = cropFrame(frame, *v.Region)
		if err != nil {
			return nil, err
		}
	}

	opts := vision.RecognizeOptions{}
	if v.Language != "" {
		opts.Languages = []string{v.Language}
	}
	return Recognition{Result: d.vision.Recognize(ctx, frame, opts)}, nil
}

func (d *Dispatcher) findText(ctx context.Context, v action.FindText) (Result, error) {
	// Query validation happens before any capture or recognition work.
	if strings.TrimSpace(v.Text) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, textsearch.ErrEmptyQuery)
	}
	if d.vision == nil {
		return nil, fmt.Errorf("%w: vision service", ErrNotConfigured)
	}

	frame, err := d.driver.CaptureFrame(ctx)
	if err != nil {
		return nil, err
	}

	recognized := d.vision.Recognize(ctx, frame, vision.RecognizeOptions{})
	if !recognized.OK() {
		return nil, fmt.Errorf("recognition failed: %s", recognized.Err)
	}

	matches, err := textsearch.Find(recognized, v.Text, v.CaseSensitive, v.WholeWord)
	if err != nil {
		return nil, err
	}
	return TextMatches{Found: len(matches) > 0, Matches: matches}, nil
}

// enhancedScreenshot applies partial-success semantics: the base capture must
// succeed, each requested enhancement independently contributes or is dropped
// with a diagnostic.
func (d *Dispatcher) enhancedScreenshot(ctx context.Context, logger *slog.Logger, v action.EnhancedScreenshot) (Result, error) {
	frame, err := d.captureBudgeted(ctx, logger)
	if err != nil {
		return nil, err
	}

	out := AugmentedFrame{Frame: frame}
	if !v.IncludeText && !v.IncludeRegions {
		return out, nil
	}
	if d.vision == nil {
		out.Diagnostics = append(out.Diagnostics, "vision service not configured")
		return out, nil
	}

	if v.IncludeText {
		recognized := d.vision.Recognize(ctx, frame.Data, vision.RecognizeOptions{})
		if recognized.OK() {
			out.Text = &recognized
		} else {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("text recognition: %s", recognized.Err))
			logger.Warn("enhancement dropped", "enhancement", "text", "error", recognized.Err)
		}
	}
	if v.IncludeRegions {
		detected := d.vision.DetectRegions(ctx, frame.Data, vision.DetectOptions{})
		if detected.OK() {
			out.Regions = &detected
		} else {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("region detection: %s", detected.Err))
			logger.Warn("enhancement dropped", "enhancement", "regions", "error", detected.Err)
		}
	}
	return out, nil
}

// cropFrame cuts a rectangular region out of an encoded frame and re-encodes
// it as PNG.
func cropFrame(frame []byte, region action.Region) ([]byte, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: region dimensions must be positive", ErrInvalidAction)
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: region outside frame bounds", ErrInvalidAction)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	src, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("frame image does not support cropping")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode region: %w", err)
	}
	return buf.Bytes(), nil
}
