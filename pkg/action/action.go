// Package action defines the closed command/observation vocabulary shared by
// the dispatcher and the event synthesizer. Every variant carries everything
// needed to replay it deterministically.
package action

// Kind identifies an action variant on the wire.
type Kind string

const (
	KindMoveTo             Kind = "move_to"
	KindTraceAlong         Kind = "trace_along"
	KindClick              Kind = "click"
	KindPressRelease       Kind = "press_release"
	KindDrag               Kind = "drag"
	KindScroll             Kind = "scroll"
	KindTypeKeySequence    Kind = "type_key_sequence"
	KindHoldKeys           Kind = "hold_keys"
	KindTypeText           Kind = "type_text"
	KindPasteText          Kind = "paste_text"
	KindWait               Kind = "wait"
	KindScreenshot         Kind = "screenshot"
	KindCursorPosition     Kind = "cursor_position"
	KindApplicationControl Kind = "application_control"
	KindFileWrite          Kind = "file_write"
	KindFileRead           Kind = "file_read"
	KindOcr                Kind = "ocr"
	KindFindText           Kind = "find_text"
	KindEnhancedScreenshot Kind = "enhanced_screenshot"
)

// Button names a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// PressDirection distinguishes the two halves of a press/release pair.
type PressDirection string

const (
	DirectionDown PressDirection = "down"
	DirectionUp   PressDirection = "up"
)

// ScrollDirection names a wheel direction.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region describes a rectangular screen area.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Action is the sealed interface implemented by every vocabulary variant.
// The marker method keeps the set closed to this package so dispatch switches
// stay exhaustive.
type Action interface {
	Kind() Kind
	sealed()
}

// MoveTo moves the pointer to an absolute position.
type MoveTo struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TraceAlong moves the pointer through each point of a path in order.
type TraceAlong struct {
	Path []Point `json:"path"`
}

// Click presses and releases a button one or more times, optionally at a
// coordinate and optionally while a set of keyboard keys is held.
type Click struct {
	Button   Button   `json:"button"`
	Count    int      `json:"count,omitempty"`
	Coords   *Point   `json:"coords,omitempty"`
	HoldKeys []string `json:"hold_keys,omitempty"`
}

// PressRelease performs one half of a button press.
type PressRelease struct {
	Button    Button         `json:"button"`
	Direction PressDirection `json:"direction"`
	Coords    *Point         `json:"coords,omitempty"`
}

// Drag holds a button down while tracing a path, releasing at the end.
type Drag struct {
	Path     []Point  `json:"path"`
	Button   Button   `json:"button"`
	HoldKeys []string `json:"hold_keys,omitempty"`
}

// Scroll turns the wheel one or more notches in a direction.
type Scroll struct {
	Direction ScrollDirection `json:"direction"`
	Count     int             `json:"count,omitempty"`
	Coords    *Point          `json:"coords,omitempty"`
	HoldKeys  []string        `json:"hold_keys,omitempty"`
}

// TypeKeySequence taps a sequence of named keys.
type TypeKeySequence struct {
	Keys    []string `json:"keys"`
	DelayMS int      `json:"delay_ms,omitempty"`
}

// HoldKeys presses or releases a set of keys without tapping them.
type HoldKeys struct {
	Keys      []string       `json:"keys"`
	Direction PressDirection `json:"direction"`
}

// TypeText types literal text character by character. Sensitive payloads are
// masked in logs and sink output.
type TypeText struct {
	Text      string `json:"text"`
	DelayMS   int    `json:"delay_ms,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// PasteText places text on the clipboard and pastes it.
type PasteText struct {
	Text string `json:"text"`
}

// Wait pauses execution for the given duration.
type Wait struct {
	DurationMS int `json:"duration_ms"`
}

// Screenshot captures the current frame.
type Screenshot struct{}

// CursorPosition reports the current pointer location.
type CursorPosition struct{}

// ApplicationControl activates or launches the named application.
type ApplicationControl struct {
	App string `json:"app"`
}

// FileWrite persists bytes at a path on the agent host.
type FileWrite struct {
	Path string `json:"path"`
	Data []byte `json:"data"`
}

// FileRead returns the bytes stored at a path on the agent host.
type FileRead struct {
	Path string `json:"path"`
}

// Ocr recognizes text in the current frame or a sub-region of it.
type Ocr struct {
	Region   *Region `json:"region,omitempty"`
	Language string  `json:"language,omitempty"`
}

// FindText captures a frame, recognizes it, and searches the result.
type FindText struct {
	Text          string `json:"text"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	WholeWord     bool   `json:"whole_word,omitempty"`
}

// EnhancedScreenshot captures a frame and independently augments it with
// recognized text and detected regions.
type EnhancedScreenshot struct {
	IncludeText    bool `json:"include_text,omitempty"`
	IncludeRegions bool `json:"include_regions,omitempty"`
}

func (MoveTo) Kind() Kind             { return KindMoveTo }
func (TraceAlong) Kind() Kind         { return KindTraceAlong }
func (Click) Kind() Kind              { return KindClick }
func (PressRelease) Kind() Kind       { return KindPressRelease }
func (Drag) Kind() Kind               { return KindDrag }
func (Scroll) Kind() Kind             { return KindScroll }
func (TypeKeySequence) Kind() Kind    { return KindTypeKeySequence }
func (HoldKeys) Kind() Kind           { return KindHoldKeys }
func (TypeText) Kind() Kind           { return KindTypeText }
func (PasteText) Kind() Kind          { return KindPasteText }
func (Wait) Kind() Kind               { return KindWait }
func (Screenshot) Kind() Kind         { return KindScreenshot }
func (CursorPosition) Kind() Kind     { return KindCursorPosition }
func (ApplicationControl) Kind() Kind { return KindApplicationControl }
func (FileWrite) Kind() Kind          { return KindFileWrite }
func (FileRead) Kind() Kind           { return KindFileRead }
func (Ocr) Kind() Kind                { return KindOcr }
func (FindText) Kind() Kind           { return KindFindText }
func (EnhancedScreenshot) Kind() Kind { return KindEnhancedScreenshot }

func (MoveTo) sealed()             {}
func (TraceAlong) sealed()         {}
func (Click) sealed()              {}
func (PressRelease) sealed()       {}
func (Drag) sealed()               {}
func (Scroll) sealed()             {}
func (TypeKeySequence) sealed()    {}
func (HoldKeys) sealed()           {}
func (TypeText) sealed()           {}
func (PasteText) sealed()          {}
func (Wait) sealed()               {}
func (Screenshot) sealed()         {}
func (CursorPosition) sealed()     {}
func (ApplicationControl) sealed() {}
func (FileWrite) sealed()          {}
func (FileRead) sealed()           {}
func (Ocr) sealed()                {}
func (FindText) sealed()           {}
func (EnhancedScreenshot) sealed() {}
