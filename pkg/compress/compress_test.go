package compress

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// noisyPNG encodes an incompressible image so quality search has real work.
func noisyPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestToBudgetRejectsBadInput(t *testing.T) {
	c := New(Options{})
	if _, err := c.ToBudget([]byte("x"), 0, "jpeg"); err == nil {
		t.Fatalf("expected error for zero budget")
	}
	if _, err := c.ToBudget(noisyPNG(t, 8, 8), 10, "gif"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestToBudgetPassthroughWithinBudget(t *testing.T) {
	c := New(Options{})
	frame := noisyPNG(t, 16, 16)

	result, err := c.ToBudget(frame, 1024, "jpeg")
	if err != nil {
		t.Fatalf("to budget: %v", err)
	}
	if result.Iterations != 0 {
		t.Fatalf("expected 0 iterations, got %d", result.Iterations)
	}
	if !bytes.Equal(result.Data, frame) {
		t.Fatalf("expected bytes unchanged")
	}
	if result.Scale != 1.0 {
		t.Fatalf("expected scale 1.0, got %v", result.Scale)
	}
}

func TestToBudgetMeetsGenerousBudget(t *testing.T) {
	c := New(Options{})
	frame := noisyPNG(t, 320, 240)
	targetKB := 64

	result, err := c.ToBudget(frame, targetKB, "jpeg")
	if err != nil {
		t.Fatalf("to budget: %v", err)
	}
	if result.Iterations == 0 {
		t.Fatalf("expected at least one trial for an oversized frame")
	}
	if int(result.AchievedKB*1024) > targetKB*1024 {
		t.Fatalf("budget missed: %.1f KB > %d KB", result.AchievedKB, targetKB)
	}
	if len(result.Data) == 0 {
		t.Fatalf("expected data")
	}
}

func TestToBudgetAlwaysReturnsSomething(t *testing.T) {
	c := New(Options{MaxIterations: 3})
	frame := noisyPNG(t, 256, 256)

	// An absurd budget cannot be met, but the call still produces an encoding.
	result, err := c.ToBudget(frame, 1, "jpeg")
	if err != nil {
		t.Fatalf("to budget: %v", err)
	}
	if len(result.Data) == 0 {
		t.Fatalf("expected a fallback encoding")
	}
	if result.Scale > 1.0 {
		t.Fatalf("unexpected scale %v", result.Scale)
	}
}

func TestToBudgetDownscalesWhenQualityIsNotEnough(t *testing.T) {
	c := New(Options{})
	frame := noisyPNG(t, 640, 480)
	targetKB := 12

	result, err := c.ToBudget(frame, targetKB, "jpeg")
	if err != nil {
		t.Fatalf("to budget: %v", err)
	}
	if len(result.Data) == 0 {
		t.Fatalf("expected data")
	}
	if result.Scale > 1.0 || result.Scale < 0.25-1e-9 {
		t.Fatalf("scale out of range: %v", result.Scale)
	}
}
