package driver

import (
	"context"

	hook "github.com/robotn/gohook"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

// libuiohook modifier masks as surfaced through gohook's Event.Mask.
const (
	maskShiftL = 1 << 0
	maskCtrlL  = 1 << 1
	maskMetaL  = 1 << 2
	maskAltL   = 1 << 3
	maskShiftR = 1 << 4
	maskCtrlR  = 1 << 5
	maskMetaR  = 1 << 6
	maskAltR   = 1 << 7
)

const wheelHorizontal = 4

// HookSource streams raw hardware events through the gohook global tap.
type HookSource struct{}

// NewHookSource returns an event source backed by gohook.
func NewHookSource() *HookSource {
	return &HookSource{}
}

var _ EventSource = (*HookSource)(nil)

// Stream registers the global hook and forwards translated events until the
// context ends or emit returns an error.
func (s *HookSource) Stream(ctx context.Context, emit func(RawEvent) error) error {
	events := hook.Start()
	defer hook.End()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			raw, ok := translate(ev)
			if !ok {
				continue
			}
			if err := emit(raw); err != nil {
				return err
			}
		}
	}
}

func translate(ev hook.Event) (RawEvent, bool) {
	switch ev.Kind {
	case hook.MouseMove, hook.MouseDrag:
		return PointerMove{X: int(ev.X), Y: int(ev.Y)}, true
	case hook.MouseDown:
		return ButtonDown{Button: hookButton(ev.Button), X: int(ev.X), Y: int(ev.Y)}, true
	case hook.MouseUp:
		return ButtonUp{Button: hookButton(ev.Button), X: int(ev.X), Y: int(ev.Y)}, true
	case hook.MouseWheel:
		return Wheel{Direction: wheelDirection(ev), Amount: absInt(int(ev.Rotation))}, true
	case hook.KeyDown:
		return KeyDown{Code: ev.Keycode, Modifiers: hookModifiers(ev.Mask)}, true
	case hook.KeyHold:
		return KeyDown{Code: ev.Keycode, Modifiers: hookModifiers(ev.Mask), Repeat: true}, true
	case hook.KeyUp:
		return KeyUp{Code: ev.Keycode, Modifiers: hookModifiers(ev.Mask)}, true
	default:
		return nil, false
	}
}

func hookButton(button uint16) action.Button {
	switch button {
	case 2:
		return action.ButtonRight
	case 3:
		return action.ButtonMiddle
	default:
		return action.ButtonLeft
	}
}

func wheelDirection(ev hook.Event) action.ScrollDirection {
	if ev.Direction == wheelHorizontal {
		if ev.Rotation >= 0 {
			return action.ScrollLeft
		}
		return action.ScrollRight
	}
	if ev.Rotation >= 0 {
		return action.ScrollUp
	}
	return action.ScrollDown
}

func hookModifiers(mask uint16) Modifiers {
	return Modifiers{
		Shift: mask&(maskShiftL|maskShiftR) != 0,
		Ctrl:  mask&(maskCtrlL|maskCtrlR) != 0,
		Alt:   mask&(maskAltL|maskAltR) != 0,
		Meta:  mask&(maskMetaL|maskMetaR) != 0,
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
