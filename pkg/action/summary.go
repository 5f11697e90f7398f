package action

import (
	"fmt"
	"strings"
)

// Summary renders a one-line description of an action suitable for logs and
// diagnostics. Sensitive text payloads are masked rather than echoed.
func Summary(a Action) string {
	switch v := a.(type) {
	case MoveTo:
		return fmt.Sprintf("move to (%d,%d)", v.X, v.Y)
	case TraceAlong:
		return fmt.Sprintf("trace along %d points", len(v.Path))
	case Click:
		return fmt.Sprintf("click %s x%d%s%s", v.Button, max(v.Count, 1), atCoords(v.Coords), withKeys(v.HoldKeys))
	case PressRelease:
		return fmt.Sprintf("button %s %s%s", v.Button, v.Direction, atCoords(v.Coords))
	case Drag:
		return fmt.Sprintf("drag %s along %d points%s", v.Button, len(v.Path), withKeys(v.HoldKeys))
	case Scroll:
		return fmt.Sprintf("scroll %s x%d%s%s", v.Direction, max(v.Count, 1), atCoords(v.Coords), withKeys(v.HoldKeys))
	case TypeKeySequence:
		return "press keys " + strings.Join(v.Keys, "+")
	case HoldKeys:
		return fmt.Sprintf("hold %s %s", strings.Join(v.Keys, "+"), v.Direction)
	case TypeText:
		if v.Sensitive {
			return fmt.Sprintf("type %d chars (sensitive)", len([]rune(v.Text)))
		}
		return fmt.Sprintf("type %q", v.Text)
	case PasteText:
		return fmt.Sprintf("paste %d chars", len([]rune(v.Text)))
	case Wait:
		return fmt.Sprintf("wait %dms", v.DurationMS)
	case Screenshot:
		return "screenshot"
	case CursorPosition:
		return "cursor position"
	case ApplicationControl:
		return fmt.Sprintf("activate application %q", v.App)
	case FileWrite:
		return fmt.Sprintf("write %d bytes to file", len(v.Data))
	case FileRead:
		return "read file"
	case Ocr:
		if v.Region != nil {
			return fmt.Sprintf("ocr region %dx%d", v.Region.Width, v.Region.Height)
		}
		return "ocr full frame"
	case FindText:
		return fmt.Sprintf("find text %q", v.Text)
	case EnhancedScreenshot:
		return fmt.Sprintf("enhanced screenshot (text=%t regions=%t)", v.IncludeText, v.IncludeRegions)
	default:
		return string(a.Kind())
	}
}

func atCoords(p *Point) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf(" at (%d,%d)", p.X, p.Y)
}

func withKeys(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return " holding " + strings.Join(keys, "+")
}
