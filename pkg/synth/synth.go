// Package synth turns the raw hardware event stream into debounced, aggregated
// action observations. It is a strictly sequential reducer: one goroutine owns
// the state and the timers, fed by one ordered stream.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/action"
	"github.com/offlinefirst/deskpilot/pkg/driver"
	"github.com/offlinefirst/deskpilot/pkg/logging"
	"github.com/offlinefirst/deskpilot/pkg/sink"
)

// Options configure one tracking session.
type Options struct {
	// Source feeds raw hardware events. Required.
	Source driver.EventSource
	// Sink receives synthesized observations. Required.
	Sink sink.Sink
	// Keymap resolves hardware key codes. Nil selects the US-layout default.
	Keymap driver.Keymap
	// Capture grabs a context frame after idle pointer motion settles. Nil
	// disables frame caching.
	Capture func(ctx context.Context) ([]byte, error)
	// Controller allows pausing and stopping the session. Optional.
	Controller *Controller

	// MoveDebounce and ClickDebounce default to 250ms, TypeDebounce to 500ms.
	MoveDebounce  time.Duration
	ClickDebounce time.Duration
	TypeDebounce  time.Duration
	// DragMinPoints is the path length a drag must exceed to be emitted.
	// Zero selects 3.
	DragMinPoints int
	// ScrollBurst is the same-direction wheel count that flushes one Scroll.
	// Zero selects 4.
	ScrollBurst int

	Logger   *slog.Logger
	Clock    func() time.Time
	NewTimer NewTimerFunc
}

type pendingClick struct {
	button action.Button
	at     action.Point
	count  int
}

// Synthesizer reduces raw events to actions. Not safe for concurrent use;
// Run owns all state for the duration of the session.
type Synthesizer struct {
	source     driver.EventSource
	out        sink.Sink
	keymap     driver.Keymap
	capture    func(ctx context.Context) ([]byte, error)
	controller *Controller

	moveDebounce  time.Duration
	clickDebounce time.Duration
	typeDebounce  time.Duration
	dragMinPoints int
	scrollBurst   int

	logger   *slog.Logger
	clock    func() time.Time
	newTimer NewTimerFunc

	moveTimer  Timer
	clickTimer Timer
	typeTimer  Timer

	dragInProgress bool
	dragButton     action.Button
	dragPath       []action.Point
	scrollDir      action.ScrollDirection
	scrollCount    int
	pendingClicks  []pendingClick
	pressedKeys    []string
	pressedSet     map[string]struct{}
	typedBuffer    strings.Builder
	contextFrame   []byte
	pausedDrained  bool
}

// New validates options and constructs a synthesizer.
func New(opts Options) (*Synthesizer, error) {
	if opts.Source == nil {
		return nil, errors.New("event source must not be nil")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink must not be nil")
	}

	keymap := opts.Keymap
	if keymap == nil {
		keymap = driver.DefaultKeymap()
	}
	moveDebounce := opts.MoveDebounce
	if moveDebounce <= 0 {
		moveDebounce = 250 * time.Millisecond
	}
	clickDebounce := opts.ClickDebounce
	if clickDebounce <= 0 {
		clickDebounce = 250 * time.Millisecond
	}
	typeDebounce := opts.TypeDebounce
	if typeDebounce <= 0 {
		typeDebounce = 500 * time.Millisecond
	}
	dragMinPoints := opts.DragMinPoints
	if dragMinPoints <= 0 {
		dragMinPoints = 3
	}
	scrollBurst := opts.ScrollBurst
	if scrollBurst <= 0 {
		scrollBurst = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newTimer := opts.NewTimer
	if newTimer == nil {
		newTimer = newRealTimer
	}

	return &Synthesizer{
		source:        opts.Source,
		out:           opts.Sink,
		keymap:        keymap,
		capture:       opts.Capture,
		controller:    opts.Controller,
		moveDebounce:  moveDebounce,
		clickDebounce: clickDebounce,
		typeDebounce:  typeDebounce,
		dragMinPoints: dragMinPoints,
		scrollBurst:   scrollBurst,
		logger:        logger,
		clock:         clock,
		newTimer:      newTimer,
		pressedSet:    make(map[string]struct{}),
	}, nil
}

// Run consumes the event stream until the context ends, the controller stops
// the session, or the source fails. Buffered state is flushed on the way out.
func (s *Synthesizer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.moveTimer = s.newTimer()
	s.clickTimer = s.newTimer()
	s.typeTimer = s.newTimer()
	defer s.moveTimer.Stop()
	defer s.clickTimer.Stop()
	defer s.typeTimer.Stop()

	events := make(chan driver.RawEvent, 128)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- s.source.Stream(ctx, func(ev driver.RawEvent) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	// Teardown flushes must outlive session cancellation or the sinks would
	// reject the final buffered actions.
	flushCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			s.drainEvents(flushCtx, events)
			s.flushAll(flushCtx)
			return ctx.Err()
		case <-s.controllerDone():
			s.drainEvents(flushCtx, events)
			s.flushAll(flushCtx)
			cancel()
			<-streamErr
			return s.controller.Err()
		case ev := <-events:
			s.handle(ctx, ev)
		case <-s.moveTimer.C():
			s.cacheContextFrame(ctx)
		case <-s.clickTimer.C():
			s.flushClicks(ctx)
		case <-s.typeTimer.C():
			s.flushTyping(ctx)
		case err := <-streamErr:
			s.drainEvents(flushCtx, events)
			s.flushAll(flushCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event stream: %w", err)
			}
			return nil
		}
	}
}

// drainEvents consumes events that were already queued when the session ended.
// The select in Run picks among ready cases at random, so the stream-end signal
// can arrive while emitted events still sit in the buffer; dropping them would
// break the ordered-stream contract.
func (s *Synthesizer) drainEvents(ctx context.Context, events <-chan driver.RawEvent) {
	for {
		select {
		case ev := <-events:
			s.handle(ctx, ev)
		default:
			return
		}
	}
}

func (s *Synthesizer) controllerDone() <-chan struct{} {
	if s.controller == nil {
		return nil
	}
	return s.controller.Done()
}

// handle is the single reducer step. All state mutation happens here and in
// the flush methods, on the Run goroutine only.
func (s *Synthesizer) handle(ctx context.Context, ev driver.RawEvent) {
	if s.controller != nil && s.controller.Paused() {
		if !s.pausedDrained {
			s.flushAll(ctx)
			s.pausedDrained = true
		}
		return
	}
	s.pausedDrained = false

	switch v := ev.(type) {
	case driver.PointerMove:
		s.handleMove(v)
	case driver.ButtonDown:
		s.handleButtonDown(v)
	case driver.ButtonUp:
		s.handleButtonUp(ctx, v)
	case driver.Wheel:
		s.handleWheel(ctx, v)
	case driver.KeyDown:
		s.handleKeyDown(ctx, v)
	case driver.KeyUp:
		s.handleKeyUp(ctx)
	}
}

func (s *Synthesizer) handleMove(v driver.PointerMove) {
	if s.dragInProgress {
		s.dragPath = append(s.dragPath, action.Point{X: v.X, Y: v.Y})
		return
	}
	// Pure debounce: every move restarts the window.
	s.moveTimer.Reset(s.moveDebounce)
}

func (s *Synthesizer) handleButtonDown(v driver.ButtonDown) {
	s.dragInProgress = true
	s.dragButton = v.Button
	s.dragPath = append(s.dragPath[:0], action.Point{X: v.X, Y: v.Y})
	s.moveTimer.Stop()
}

func (s *Synthesizer) handleButtonUp(ctx context.Context, v driver.ButtonUp) {
	if !s.dragInProgress {
		return
	}
	s.dragInProgress = false
	path := append([]action.Point(nil), s.dragPath...)
	s.dragPath = s.dragPath[:0]

	if len(path) > s.dragMinPoints {
		s.flushClicks(ctx)
		s.emit(ctx, action.Drag{Path: path, Button: v.Button}, s.takeContextFrame())
		return
	}

	// Short press with little motion is a click, buffered per burst.
	s.bufferClick(ctx, v.Button, action.Point{X: v.X, Y: v.Y})
	s.clickTimer.Reset(s.clickDebounce)
}

func (s *Synthesizer) bufferClick(ctx context.Context, button action.Button, at action.Point) {
	if n := len(s.pendingClicks); n > 0 && s.pendingClicks[n-1].button != button {
		s.flushClicks(ctx)
	}
	count := 1
	if n := len(s.pendingClicks); n > 0 {
		count = s.pendingClicks[n-1].count + 1
	}
	s.pendingClicks = append(s.pendingClicks, pendingClick{button: button, at: at, count: count})
}

func (s *Synthesizer) handleWheel(ctx context.Context, v driver.Wheel) {
	if s.scrollCount > 0 && v.Direction != s.scrollDir {
		// Direction change discards the old partial burst.
		s.scrollDir = v.Direction
		s.scrollCount = 1
		return
	}
	s.scrollDir = v.Direction
	s.scrollCount++
	if s.scrollCount >= s.scrollBurst {
		s.flushScroll(ctx)
	}
}

func (s *Synthesizer) handleKeyDown(ctx context.Context, v driver.KeyDown) {
	if v.Repeat {
		return
	}
	key, ok := s.keymap.Lookup(v.Code)
	if !ok {
		s.logger.Debug("unknown key code ignored", "code", v.Code)
		return
	}

	if key.Modifier || !key.Printable() || v.Modifiers.Any() {
		// Flush buffered typing first so emission order matches input order.
		s.flushTyping(ctx)
		s.pressKey(key.Name)
		return
	}

	s.typedBuffer.WriteString(key.String(v.Modifiers.Shift))
	s.typeTimer.Reset(s.typeDebounce)
}

func (s *Synthesizer) pressKey(name string) {
	if _, held := s.pressedSet[name]; held {
		return
	}
	s.pressedSet[name] = struct{}{}
	s.pressedKeys = append(s.pressedKeys, name)
}

func (s *Synthesizer) handleKeyUp(ctx context.Context) {
	if len(s.pressedKeys) == 0 {
		return
	}
	keys := append([]string(nil), s.pressedKeys...)
	s.pressedKeys = s.pressedKeys[:0]
	clear(s.pressedSet)
	s.emit(ctx, action.TypeKeySequence{Keys: keys}, nil)
}

func (s *Synthesizer) flushClicks(ctx context.Context) {
	if len(s.pendingClicks) == 0 {
		return
	}
	best := s.pendingClicks[0]
	for _, c := range s.pendingClicks[1:] {
		if c.count > best.count {
			best = c
		}
	}
	s.pendingClicks = s.pendingClicks[:0]
	at := best.at
	s.emit(ctx, action.Click{Button: best.button, Count: best.count, Coords: &at}, s.takeContextFrame())
}

func (s *Synthesizer) flushScroll(ctx context.Context) {
	if s.scrollCount == 0 {
		return
	}
	count := s.scrollCount
	dir := s.scrollDir
	s.scrollCount = 0
	s.emit(ctx, action.Scroll{Direction: dir, Count: count}, nil)
}

func (s *Synthesizer) flushTyping(ctx context.Context) {
	if s.typedBuffer.Len() == 0 {
		return
	}
	text := s.typedBuffer.String()
	s.typedBuffer.Reset()
	s.typeTimer.Stop()
	s.emit(ctx, action.TypeText{Text: text}, nil)
}

// flushAll drains every buffer. An unfinished drag is dropped as noise.
func (s *Synthesizer) flushAll(ctx context.Context) {
	if s.dragInProgress {
		s.logger.Debug("dropping unfinished drag", "points", len(s.dragPath))
		s.dragInProgress = false
		s.dragPath = s.dragPath[:0]
	}
	s.flushTyping(ctx)
	s.flushClicks(ctx)
	s.flushScroll(ctx)
}

// cacheContextFrame captures the screen after idle motion settles so the next
// click or drag carries visual context.
func (s *Synthesizer) cacheContextFrame(ctx context.Context) {
	if s.capture == nil {
		return
	}
	frame, err := s.capture(ctx)
	if err != nil {
		s.logger.Debug("context frame capture failed", "error", err)
		return
	}
	s.contextFrame = frame
}

func (s *Synthesizer) takeContextFrame() []byte {
	frame := s.contextFrame
	s.contextFrame = nil
	return frame
}

func (s *Synthesizer) emit(ctx context.Context, a action.Action, frame []byte) {
	obs := sink.Observation{Timestamp: s.clock(), Action: a, Frame: frame}
	if err := s.out.Emit(ctx, obs); err != nil {
		s.logger.Warn("observation emit failed", "kind", a.Kind(), "error", err)
	}
}
