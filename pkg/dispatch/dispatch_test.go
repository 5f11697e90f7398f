package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

// fakeDriver records every primitive call and can be scripted to fail.
type fakeDriver struct {
	calls   []string
	frame   []byte
	failOn  string
	failErr error
	x, y    int
}

func (d *fakeDriver) record(call string) error {
	d.calls = append(d.calls, call)
	if d.failOn != "" && strings.HasPrefix(call, d.failOn) {
		if d.failErr != nil {
			return d.failErr
		}
		return fmt.Errorf("scripted failure at %s", call)
	}
	return nil
}

func (d *fakeDriver) MoveTo(ctx context.Context, x, y int) error {
	return d.record(fmt.Sprintf("move %d,%d", x, y))
}

func (d *fakeDriver) ButtonEvent(ctx context.Context, button action.Button, down bool) error {
	dir := "up"
	if down {
		dir = "down"
	}
	return d.record(fmt.Sprintf("button %s %s", button, dir))
}

func (d *fakeDriver) WheelEvent(ctx context.Context, direction action.ScrollDirection, amount int) error {
	return d.record(fmt.Sprintf("wheel %s %d", direction, amount))
}

func (d *fakeDriver) KeyHold(ctx context.Context, keys []string, down bool) error {
	dir := "up"
	if down {
		dir = "down"
	}
	return d.record(fmt.Sprintf("hold %s %s", strings.Join(keys, "+"), dir))
}

func (d *fakeDriver) SendKeys(ctx context.Context, keys []string, delay time.Duration) error {
	return d.record(fmt.Sprintf("keys %s", strings.Join(keys, "+")))
}

func (d *fakeDriver) TypeText(ctx context.Context, text string, delay time.Duration) error {
	return d.record(fmt.Sprintf("type %s", text))
}

func (d *fakeDriver) PasteText(ctx context.Context, text string) error {
	return d.record(fmt.Sprintf("paste %s", text))
}

func (d *fakeDriver) CaptureFrame(ctx context.Context) ([]byte, error) {
	if err := d.record("capture"); err != nil {
		return nil, err
	}
	return d.frame, nil
}

func (d *fakeDriver) PointerPosition(ctx context.Context) (int, int, error) {
	if err := d.record("position"); err != nil {
		return 0, 0, err
	}
	return d.x, d.y, nil
}

func (d *fakeDriver) count(prefix string) int {
	n := 0
	for _, call := range d.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T, drv *fakeDriver) *Dispatcher {
	t.Helper()
	d, err := New(Options{
		Driver: drv,
		Sleep:  func(ctx context.Context, dur time.Duration) error { return nil },
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

func TestClickClampsCount(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	if _, err := d.Execute(context.Background(), action.Click{Button: action.ButtonLeft, Count: 20}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := drv.count("button left down"); got != 10 {
		t.Fatalf("expected 10 primitive clicks, got %d", got)
	}
}

func TestScrollClampsCount(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	if _, err := d.Execute(context.Background(), action.Scroll{Direction: action.ScrollDown, Count: 100}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := drv.count("wheel"); got != 50 {
		t.Fatalf("expected 50 wheel calls, got %d", got)
	}
}

func TestRepeatedPrimitivesArePaced(t *testing.T) {
	drv := &fakeDriver{}
	var pauses []time.Duration
	d, err := New(Options{
		Driver: drv,
		Pace:   150 * time.Millisecond,
		Sleep: func(ctx context.Context, dur time.Duration) error {
			pauses = append(pauses, dur)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if _, err := d.Execute(context.Background(), action.Click{Button: action.ButtonLeft, Count: 3}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Pauses sit between repetitions, never before the first or after the last.
	if len(pauses) != 2 {
		t.Fatalf("expected 2 pauses for a triple click, got %d", len(pauses))
	}
	for _, p := range pauses {
		if p != 150*time.Millisecond {
			t.Fatalf("unexpected pace %v", p)
		}
	}

	pauses = pauses[:0]
	if _, err := d.Execute(context.Background(), action.Scroll{Direction: action.ScrollUp, Count: 4}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(pauses) != 3 {
		t.Fatalf("expected 3 pauses for 4 wheel steps, got %d", len(pauses))
	}
}

func TestClickReleasesHeldKeysOnFailure(t *testing.T) {
	drv := &fakeDriver{failOn: "button"}
	d := newTestDispatcher(t, drv)

	_, err := d.Execute(context.Background(), action.Click{
		Button:   action.ButtonLeft,
		Count:    1,
		HoldKeys: []string{"shift"},
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "click") {
		t.Fatalf("error should name the action kind: %v", err)
	}

	downs := drv.count("hold shift down")
	ups := drv.count("hold shift up")
	if downs != 1 || ups != 1 {
		t.Fatalf("acquire/release must pair even on failure: %d down, %d up", downs, ups)
	}
}

func TestDragReleasesButtonOnFailure(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	// Fail only on moves after the button is down.
	path := []action.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}
	drv.failOn = "move 5"

	_, err := d.Execute(context.Background(), action.Drag{Path: path, Button: action.ButtonLeft})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if drv.count("button left down") != 1 || drv.count("button left up") != 1 {
		t.Fatalf("button must be released on failure: %v", drv.calls)
	}
}

func TestDragRejectsEmptyPathBeforeAcquisition(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	_, err := d.Execute(context.Background(), action.Drag{Path: nil, Button: action.ButtonLeft})
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if len(drv.calls) != 0 {
		t.Fatalf("validation must happen before any driver call: %v", drv.calls)
	}
}

func TestTraceAlongRejectsEmptyPath(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	if _, err := d.Execute(context.Background(), action.TraceAlong{}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestClickMovesToCoordsFirst(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	coords := &action.Point{X: 100, Y: 200}
	if _, err := d.Execute(context.Background(), action.Click{Button: action.ButtonRight, Count: 1, Coords: coords}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(drv.calls) < 1 || drv.calls[0] != "move 100,200" {
		t.Fatalf("expected leading move, got %v", drv.calls)
	}
}

func TestCursorPosition(t *testing.T) {
	drv := &fakeDriver{x: 42, y: 17}
	d := newTestDispatcher(t, drv)

	result, err := d.Execute(context.Background(), action.CursorPosition{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	pos, ok := result.(Position)
	if !ok {
		t.Fatalf("expected Position, got %T", result)
	}
	if pos.X != 42 || pos.Y != 17 {
		t.Fatalf("unexpected position %+v", pos)
	}
}

func TestScreenshotReturnsFrame(t *testing.T) {
	drv := &fakeDriver{frame: testPNG(t)}
	d := newTestDispatcher(t, drv)

	result, err := d.Execute(context.Background(), action.Screenshot{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	frame, ok := result.(Frame)
	if !ok {
		t.Fatalf("expected Frame, got %T", result)
	}
	if !bytes.Equal(frame.Data, drv.frame) {
		t.Fatalf("frame bytes should pass through unchanged without a budget")
	}
	if frame.Format != "png" {
		t.Fatalf("unexpected format %q", frame.Format)
	}
}

func TestOcrRequiresVisionService(t *testing.T) {
	drv := &fakeDriver{frame: testPNG(t)}
	d := newTestDispatcher(t, drv)

	_, err := d.Execute(context.Background(), action.Ocr{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFindTextRejectsEmptyQueryBeforeCapture(t *testing.T) {
	drv := &fakeDriver{frame: testPNG(t)}
	d := newTestDispatcher(t, drv)

	_, err := d.Execute(context.Background(), action.FindText{Text: "   "})
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if drv.count("capture") != 0 {
		t.Fatalf("no capture may happen for an empty query: %v", drv.calls)
	}
}

func TestEnhancedScreenshotWithoutVisionService(t *testing.T) {
	drv := &fakeDriver{frame: testPNG(t)}
	d := newTestDispatcher(t, drv)

	result, err := d.Execute(context.Background(), action.EnhancedScreenshot{IncludeText: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	augmented, ok := result.(AugmentedFrame)
	if !ok {
		t.Fatalf("expected AugmentedFrame, got %T", result)
	}
	if len(augmented.Frame.Data) == 0 {
		t.Fatalf("base capture must succeed")
	}
	if augmented.Text != nil {
		t.Fatalf("enhancement should be omitted without a vision service")
	}
	if len(augmented.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for the dropped enhancement")
	}
}

func TestFileRoundTrip(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)
	path := t.TempDir() + "/note.txt"

	if _, err := d.Execute(context.Background(), action.FileWrite{Path: path, Data: []byte("payload")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err := d.Execute(context.Background(), action.FileRead{Path: path})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data, ok := result.(FileData)
	if !ok {
		t.Fatalf("expected FileData, got %T", result)
	}
	if string(data.Data) != "payload" {
		t.Fatalf("unexpected contents %q", data.Data)
	}
}

func TestWaitRejectsNegativeDuration(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{})
	if _, err := d.Execute(context.Background(), action.Wait{DurationMS: -1}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestHoldKeysValidation(t *testing.T) {
	drv := &fakeDriver{}
	d := newTestDispatcher(t, drv)

	if _, err := d.Execute(context.Background(), action.HoldKeys{Direction: action.DirectionDown}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for empty key set, got %v", err)
	}
	if _, err := d.Execute(context.Background(), action.HoldKeys{Keys: []string{"ctrl"}, Direction: action.DirectionDown}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if drv.count("hold ctrl down") != 1 {
		t.Fatalf("expected hold call: %v", drv.calls)
	}
}
