package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/driver"
	"github.com/offlinefirst/deskpilot/pkg/synth"
)

func newTrackCommand() command {
	return command{
		name:        "track",
		description: "Observe hardware input and record synthesized actions to the configured sink",
		configure: func(fs *flag.FlagSet) {
			fs.Duration("for", 0, "Stop tracking after this duration (0 runs until interrupted)")
			fs.Bool("frames", false, "Capture context frames after idle pointer motion")
		},
		run: runTrack,
	}
}

func runTrack(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	out, err := newSink(ctx.Config.Sink, ctx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			ctx.Logger.Warn("sink close failed", "error", err)
		}
	}()

	input := ctx.Config.Input
	opts := synth.Options{
		Source:        driver.NewHookSource(),
		Sink:          out,
		MoveDebounce:  time.Duration(input.MoveDebounceMS) * time.Millisecond,
		ClickDebounce: time.Duration(input.ClickDebounceMS) * time.Millisecond,
		TypeDebounce:  time.Duration(input.TypeDebounceMS) * time.Millisecond,
		DragMinPoints: input.DragMinPoints,
		ScrollBurst:   input.ScrollBurstSize,
		Logger:        ctx.Logger,
	}
	if boolFlag(fs, "frames") {
		host := driver.NewRobotgo()
		opts.Capture = func(captureCtx context.Context) ([]byte, error) {
			return host.CaptureFrame(captureCtx)
		}
	}

	synthesizer, err := synth.New(opts)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := durationFlag(fs, "for"); d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d)
		defer cancel()
	}

	ctx.Logger.Info("tracking started", "sink", ctx.Config.Sink.Kind)
	err = synthesizer.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	ctx.Logger.Info("tracking stopped")
	fmt.Fprintln(stdout, "tracking session complete")
	return nil
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	if f := fs.Lookup(name); f != nil {
		if getter, ok := f.Value.(flag.Getter); ok {
			if v, ok := getter.Get().(bool); ok {
				return v
			}
		}
	}
	return false
}

func durationFlag(fs *flag.FlagSet, name string) time.Duration {
	if f := fs.Lookup(name); f != nil {
		if getter, ok := f.Value.(flag.Getter); ok {
			if v, ok := getter.Get().(time.Duration); ok {
				return v
			}
		}
	}
	return 0
}
