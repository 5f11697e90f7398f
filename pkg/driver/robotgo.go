package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

// Robotgo drives the host through the robotgo bindings.
type Robotgo struct{}

// NewRobotgo returns a driver backed by robotgo.
func NewRobotgo() *Robotgo {
	return &Robotgo{}
}

var _ Driver = (*Robotgo)(nil)

// MoveTo places the pointer at an absolute position.
func (r *Robotgo) MoveTo(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	return nil
}

// ButtonEvent presses or releases a pointer button.
func (r *Robotgo) ButtonEvent(ctx context.Context, button action.Button, down bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := robotgoButton(button)
	if err != nil {
		return err
	}
	dir := "up"
	if down {
		dir = "down"
	}
	if err := robotgo.Toggle(name, dir); err != nil {
		return fmt.Errorf("toggle %s button %s: %w", name, dir, err)
	}
	return nil
}

// WheelEvent turns the wheel by amount notches in a direction.
func (r *Robotgo) WheelEvent(ctx context.Context, direction action.ScrollDirection, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		amount = 1
	}
	switch direction {
	case action.ScrollUp, action.ScrollDown, action.ScrollLeft, action.ScrollRight:
		robotgo.ScrollDir(amount, string(direction))
	default:
		return fmt.Errorf("unknown scroll direction %q", direction)
	}
	return nil
}

// KeyHold presses or releases each named key.
func (r *Robotgo) KeyHold(ctx context.Context, keys []string, down bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("no keys to hold")
	}
	dir := "up"
	if down {
		dir = "down"
	}
	for _, key := range keys {
		if err := robotgo.KeyToggle(key, dir); err != nil {
			return fmt.Errorf("toggle key %q %s: %w", key, dir, err)
		}
	}
	return nil
}

// SendKeys taps each named key in order.
func (r *Robotgo) SendKeys(ctx context.Context, keys []string, delay time.Duration) error {
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && delay > 0 {
			robotgo.MilliSleep(int(delay.Milliseconds()))
		}
		if err := robotgo.KeyTap(key); err != nil {
			return fmt.Errorf("tap key %q: %w", key, err)
		}
	}
	return nil
}

// TypeText types literal text.
func (r *Robotgo) TypeText(ctx context.Context, text string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		robotgo.TypeStr(text)
		return nil
	}
	for _, ch := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		robotgo.TypeStr(string(ch))
		robotgo.MilliSleep(int(delay.Milliseconds()))
	}
	return nil
}

// PasteText places text on the clipboard and pastes it.
func (r *Robotgo) PasteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := robotgo.PasteStr(text); err != nil {
		return fmt.Errorf("paste text: %w", err)
	}
	return nil
}

// CaptureFrame grabs the full screen as PNG bytes.
func (r *Robotgo) CaptureFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// PointerPosition reports the current pointer location.
func (r *Robotgo) PointerPosition(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	x, y := robotgo.Location()
	return x, y, nil
}

func robotgoButton(button action.Button) (string, error) {
	switch button {
	case action.ButtonLeft, "":
		return "left", nil
	case action.ButtonRight:
		return "right", nil
	case action.ButtonMiddle:
		return "center", nil
	default:
		return "", fmt.Errorf("unknown button %q", button)
	}
}
