// Package driver wraps the local machine's pointer, keyboard, and screen
// behind a small interface, and exposes the raw hardware event stream the
// synthesizer consumes.
package driver

import (
	"context"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

// Driver performs primitive input and capture operations on the host.
type Driver interface {
	// MoveTo places the pointer at an absolute position.
	MoveTo(ctx context.Context, x, y int) error
	// ButtonEvent presses (down=true) or releases a pointer button.
	ButtonEvent(ctx context.Context, button action.Button, down bool) error
	// WheelEvent turns the wheel by amount notches in a direction.
	WheelEvent(ctx context.Context, direction action.ScrollDirection, amount int) error
	// KeyHold presses or releases a set of named keys without tapping them.
	KeyHold(ctx context.Context, keys []string, down bool) error
	// SendKeys taps each named key in order, pausing delay between taps.
	SendKeys(ctx context.Context, keys []string, delay time.Duration) error
	// TypeText types literal text, pausing delay between characters.
	TypeText(ctx context.Context, text string, delay time.Duration) error
	// PasteText places text on the clipboard and pastes it.
	PasteText(ctx context.Context, text string) error
	// CaptureFrame returns the current screen contents as encoded PNG bytes.
	CaptureFrame(ctx context.Context) ([]byte, error)
	// PointerPosition reports the current pointer location.
	PointerPosition(ctx context.Context) (x, y int, err error)
}

// RawEvent is one sample from the hardware input stream. The set is closed;
// the synthesizer switches over it exhaustively.
type RawEvent interface {
	rawEvent()
}

// PointerMove reports the pointer at a new position.
type PointerMove struct {
	X, Y int
}

// ButtonDown reports a pointer button press at a position.
type ButtonDown struct {
	Button action.Button
	X, Y   int
}

// ButtonUp reports a pointer button release at a position.
type ButtonUp struct {
	Button action.Button
	X, Y   int
}

// Wheel reports one wheel movement.
type Wheel struct {
	Direction action.ScrollDirection
	Amount    int
}

// KeyDown reports a key press identified by hardware key code. Repeat marks
// OS auto-repeat while the key stays held.
type KeyDown struct {
	Code      uint16
	Modifiers Modifiers
	Repeat    bool
}

// KeyUp reports a key release identified by hardware key code.
type KeyUp struct {
	Code      uint16
	Modifiers Modifiers
}

// Modifiers carries the modifier state accompanying a key event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// Any reports whether a non-shift modifier is active. Shift alone still
// produces printable characters, so it does not count.
func (m Modifiers) Any() bool {
	return m.Ctrl || m.Alt || m.Meta
}

func (PointerMove) rawEvent() {}
func (ButtonDown) rawEvent()  {}
func (ButtonUp) rawEvent()    {}
func (Wheel) rawEvent()       {}
func (KeyDown) rawEvent()     {}
func (KeyUp) rawEvent()       {}

// EventSource emits raw hardware events until the context ends.
type EventSource interface {
	Stream(ctx context.Context, emit func(RawEvent) error) error
}

// EventSourceFunc adapts a function literal to the EventSource interface.
type EventSourceFunc func(ctx context.Context, emit func(RawEvent) error) error

// Stream calls the underlying function.
func (f EventSourceFunc) Stream(ctx context.Context, emit func(RawEvent) error) error {
	return f(ctx, emit)
}
