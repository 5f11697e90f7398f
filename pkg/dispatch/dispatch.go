// Package dispatch routes one action to its operation against the host,
// guaranteeing that transient input resources (held keys, held buttons) are
// released on every exit path.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/deskpilot/pkg/action"
	"github.com/offlinefirst/deskpilot/pkg/compress"
	"github.com/offlinefirst/deskpilot/pkg/driver"
	"github.com/offlinefirst/deskpilot/pkg/logging"
	"github.com/offlinefirst/deskpilot/pkg/vision"
)

// Options configure a dispatcher. Driver is required; everything else has a
// default or is optional.
type Options struct {
	Driver driver.Driver
	// Vision serves ocr, find_text, and enhanced_screenshot. Nil makes those
	// actions fail with a configuration error (or a diagnostic, for optional
	// enhancements).
	Vision *vision.Service
	// Compressor budgets outgoing frames when FrameBudgetKB is positive.
	Compressor    *compress.Compressor
	FrameBudgetKB int

	Launcher AppLauncher
	Files    FileStore

	// Pace is the pause between repeated primitives inside one compound
	// click/scroll. Zero selects 150ms.
	Pace time.Duration
	// MaxClickCount and MaxScrollCount clamp repeat counts. Zero selects 10
	// and 50.
	MaxClickCount  int
	MaxScrollCount int

	Logger *slog.Logger
	Clock  func() time.Time
	// Sleep pauses between paced steps; injectable for tests. Nil selects a
	// context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher executes actions. Invocations may run concurrently; each carries
// its own operation metadata and shares only the injected collaborators.
type Dispatcher struct {
	driver        driver.Driver
	vision        *vision.Service
	compressor    *compress.Compressor
	frameBudgetKB int
	launcher      AppLauncher
	files         FileStore

	pace       time.Duration
	maxClicks  int
	maxScrolls int

	logger *slog.Logger
	clock  func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// New validates options and constructs a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Driver == nil {
		return nil, fmt.Errorf("driver must not be nil")
	}

	pace := opts.Pace
	if pace <= 0 {
		pace = 150 * time.Millisecond
	}
	maxClicks := opts.MaxClickCount
	if maxClicks <= 0 {
		maxClicks = 10
	}
	maxScrolls := opts.MaxScrollCount
	if maxScrolls <= 0 {
		maxScrolls = 50
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = ShellLauncher{}
	}
	files := opts.Files
	if files == nil {
		files = OSFileStore{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	return &Dispatcher{
		driver:        opts.Driver,
		vision:        opts.Vision,
		compressor:    opts.Compressor,
		frameBudgetKB: opts.FrameBudgetKB,
		launcher:      launcher,
		files:         files,
		pace:          pace,
		maxClicks:     maxClicks,
		maxScrolls:    maxScrolls,
		logger:        logger,
		clock:         clock,
		sleep:         sleep,
	}, nil
}

// Execute runs one action to completion. Errors name the action kind and the
// root cause in one line.
func (d *Dispatcher) Execute(ctx context.Context, a action.Action) (Result, error) {
	start := d.clock()
	logger := d.logger.With("operation_id", uuid.NewString(), "kind", a.Kind())
	logger.Debug("dispatching action", "action", action.Summary(a))

	result, err := d.run(ctx, logger, a)
	duration := d.clock().Sub(start)
	if err != nil {
		err = fmt.Errorf("%s: %w", a.Kind(), err)
		logger.Warn("action failed", "error", err, "duration_ms", duration.Milliseconds())
		return nil, err
	}
	logger.Debug("action complete", "duration_ms", duration.Milliseconds())
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, a action.Action) (Result, error) {
	switch v := a.(type) {
	case action.MoveTo:
		return Done{}, d.driver.MoveTo(ctx, v.X, v.Y)
	case action.TraceAlong:
		return d.traceAlong(ctx, v)
	case action.Click:
		return d.click(ctx, logger, v)
	case action.PressRelease:
		return d.pressRelease(ctx, v)
	case action.Drag:
		return d.drag(ctx, logger, v)
	case action.Scroll:
		return d.scroll(ctx, logger, v)
	case action.TypeKeySequence:
		if len(v.Keys) == 0 {
			return nil, fmt.Errorf("%w: key sequence must not be empty", ErrInvalidAction)
		}
		return Done{}, d.driver.SendKeys(ctx, v.Keys, time.Duration(v.DelayMS)*time.Millisecond)
	case action.HoldKeys:
		if len(v.Keys) == 0 {
			return nil, fmt.Errorf("%w: key set must not be empty", ErrInvalidAction)
		}
		return Done{}, d.driver.KeyHold(ctx, v.Keys, v.Direction == action.DirectionDown)
	case action.TypeText:
		return Done{}, d.driver.TypeText(ctx, v.Text, time.Duration(v.DelayMS)*time.Millisecond)
	case action.PasteText:
		return Done{}, d.driver.PasteText(ctx, v.Text)
	case action.Wait:
		if v.DurationMS < 0 {
			return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidAction)
		}
		return Done{}, d.sleep(ctx, time.Duration(v.DurationMS)*time.Millisecond)
	case action.Screenshot:
		return d.screenshot(ctx, logger)
	case action.CursorPosition:
		x, y, err := d.driver.PointerPosition(ctx)
		if err != nil {
			return nil, err
		}
		return Position{X: x, Y: y}, nil
	case action.ApplicationControl:
		if v.App == "" {
			return nil, fmt.Errorf("%w: application name must not be empty", ErrInvalidAction)
		}
		return Done{}, d.launcher.Activate(ctx, v.App)
	case action.FileWrite:
		if v.Path == "" {
			return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidAction)
		}
		return Done{}, d.files.Write(v.Path, v.Data)
	case action.FileRead:
		if v.Path == "" {
			return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidAction)
		}
		data, err := d.files.Read(v.Path)
		if err != nil {
			return nil, err
		}
		return FileData{Data: data}, nil
	case action.Ocr:
		return d.ocr(ctx, v)
	case action.FindText:
		return d.findText(ctx, v)
	case action.EnhancedScreenshot:
		return d.enhancedScreenshot(ctx, logger, v)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind())
	}
}

func (d *Dispatcher) traceAlong(ctx context.Context, v action.TraceAlong) (Result, error) {
	if len(v.Path) == 0 {
		return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidAction)
	}
	for _, p := range v.Path {
		if err := d.driver.MoveTo(ctx, p.X, p.Y); err != nil {
			return nil, err
		}
	}
	return Done{}, nil
}

func (d *Dispatcher) click(ctx context.Context, logger *slog.Logger, v action.Click) (Result, error) {
	if err := validButton(v.Button); err != nil {
		return nil, err
	}
	count := d.clampCount(logger, "click", v.Count, d.maxClicks)

	if v.Coords != nil {
		if err := d.driver.MoveTo(ctx, v.Coords.X, v.Coords.Y); err != nil {
			return nil, err
		}
	}

	err := d.withHeldKeys(ctx, logger, v.HoldKeys, func() error {
		for i := 0; i < count; i++ {
			if i > 0 {
				if err := d.sleep(ctx, d.pace); err != nil {
					return err
				}
			}
			if err := d.driver.ButtonEvent(ctx, v.Button, true); err != nil {
				return err
			}
			if err := d.driver.ButtonEvent(ctx, v.Button, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Done{}, nil
}

func (d *Dispatcher) pressRelease(ctx context.Context, v action.PressRelease) (Result, error) {
	if err := validButton(v.Button); err != nil {
		return nil, err
	}
	if v.Direction != action.DirectionDown && v.Direction != action.DirectionUp {
		return nil, fmt.Errorf("%w: direction must be down or up", ErrInvalidAction)
	}
	if v.Coords != nil {
		if err := d.driver.MoveTo(ctx, v.Coords.X, v.Coords.Y); err != nil {
			return nil, err
		}
	}
	return Done{}, d.driver.ButtonEvent(ctx, v.Button, v.Direction == action.DirectionDown)
}

func (d *Dispatcher) drag(ctx context.Context, logger *slog.Logger, v action.Drag) (Result, error) {
	if len(v.Path) == 0 {
		return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidAction)
	}
	if err := validButton(v.Button); err != nil {
		return nil, err
	}

	if err := d.driver.MoveTo(ctx, v.Path[0].X, v.Path[0].Y); err != nil {
		return nil, err
	}

	err := d.withHeldKeys(ctx, logger, v.HoldKeys, func() error {
		return d.withHeldButton(ctx, logger, v.Button, func() error {
			for _, p := range v.Path[1:] {
				if err := d.driver.MoveTo(ctx, p.X, p.Y); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return Done{}, nil
}

func (d *Dispatcher) scroll(ctx context.Context, logger *slog.Logger, v action.Scroll) (Result, error) {
	switch v.Direction {
	case action.ScrollUp, action.ScrollDown, action.ScrollLeft, action.ScrollRight:
	default:
		return nil, fmt.Errorf("%w: unknown scroll direction %q", ErrInvalidAction, v.Direction)
	}
	count := d.clampCount(logger, "scroll", v.Count, d.maxScrolls)

	if v.Coords != nil {
		if err := d.driver.MoveTo(ctx, v.Coords.X, v.Coords.Y); err != nil {
			return nil, err
		}
	}

	err := d.withHeldKeys(ctx, logger, v.HoldKeys, func() error {
		for i := 0; i < count; i++ {
			if i > 0 {
				if err := d.sleep(ctx, d.pace); err != nil {
					return err
				}
			}
			if err := d.driver.WheelEvent(ctx, v.Direction, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Done{}, nil
}

func (d *Dispatcher) screenshot(ctx context.Context, logger *slog.Logger) (Result, error) {
	frame, err := d.captureBudgeted(ctx, logger)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// captureBudgeted grabs the current frame and, when a budget is configured,
// shrinks it before it leaves the process.
func (d *Dispatcher) captureBudgeted(ctx context.Context, logger *slog.Logger) (Frame, error) {
	data, err := d.driver.CaptureFrame(ctx)
	if err != nil {
		return Frame{}, err
	}
	if d.compressor == nil || d.frameBudgetKB <= 0 {
		return Frame{Data: data, Format: "png"}, nil
	}

	budgeted, err := d.compressor.ToBudget(data, d.frameBudgetKB, "jpeg")
	if err != nil {
		logger.Warn("frame budgeting failed, returning original", "error", err)
		return Frame{Data: data, Format: "png"}, nil
	}
	if budgeted.Iterations == 0 {
		return Frame{Data: budgeted.Data, Format: "png"}, nil
	}
	return Frame{Data: budgeted.Data, Format: "jpeg"}, nil
}

// clampCount normalizes a repeat count into [1, max], logging when the request
// was out of range.
func (d *Dispatcher) clampCount(logger *slog.Logger, what string, count, max int) int {
	clamped := count
	if clamped < 1 {
		clamped = 1
	}
	if clamped > max {
		clamped = max
	}
	if clamped != count && count != 0 {
		logger.Warn("count clamped", "primitive", what, "requested", count, "using", clamped)
	}
	return clamped
}

// withHeldKeys presses keys, runs fn, and releases the keys on every exit
// path. A release failure after a failed fn is logged and swallowed so the
// original error reaches the caller.
func (d *Dispatcher) withHeldKeys(ctx context.Context, logger *slog.Logger, keys []string, fn func() error) error {
	if len(keys) == 0 {
		return fn()
	}
	if err := d.driver.KeyHold(ctx, keys, true); err != nil {
		return fmt.Errorf("hold keys: %w", err)
	}
	defer func() {
		if err := d.driver.KeyHold(context.WithoutCancel(ctx), keys, false); err != nil {
			logger.Warn("key release failed", "keys", keys, "error", err)
		}
	}()
	return fn()
}

// withHeldButton presses a pointer button, runs fn, and releases the button on
// every exit path under the same swallow-on-cleanup rule as withHeldKeys.
func (d *Dispatcher) withHeldButton(ctx context.Context, logger *slog.Logger, button action.Button, fn func() error) error {
	if err := d.driver.ButtonEvent(ctx, button, true); err != nil {
		return fmt.Errorf("hold button: %w", err)
	}
	defer func() {
		if err := d.driver.ButtonEvent(context.WithoutCancel(ctx), button, false); err != nil {
			logger.Warn("button release failed", "button", button, "error", err)
		}
	}()
	return fn()
}

func validButton(b action.Button) error {
	switch b {
	case action.ButtonLeft, action.ButtonRight, action.ButtonMiddle:
		return nil
	default:
		return fmt.Errorf("%w: unknown button %q", ErrInvalidAction, b)
	}
}

// timerSleep pauses for d or until the context ends.
func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
