package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

func newExecCommand() command {
	return command{
		name:        "exec",
		description: "Execute one action from a JSON file (or stdin with -file -)",
		configure: func(fs *flag.FlagSet) {
			fs.String("file", "-", "Path to the action JSON, or - for stdin")
			fs.Int("budget-kb", 0, "Shrink returned frames to this size budget (0 disables)")
		},
		run: runExec,
	}
}

func runExec(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	path := stringFlag(fs, "file")
	budgetKB := intFlag(fs, "budget-kb")

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read action: %w", err)
	}

	act, err := action.Decode(data)
	if err != nil {
		return fmt.Errorf("decode action: %w", err)
	}

	svc, err := newVisionService(ctx.Config.Vision, ctx.Logger)
	if err != nil {
		return err
	}
	dispatcher, err := newDispatcher(ctx.Config, ctx.Logger, budgetKB, svc)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc.StartSweeper(runCtx, ctx.Config.Vision.SweepInterval())

	result, err := dispatcher.Execute(runCtx, act)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func stringFlag(fs *flag.FlagSet, name string) string {
	if f := fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func intFlag(fs *flag.FlagSet, name string) int {
	if f := fs.Lookup(name); f != nil {
		if getter, ok := f.Value.(flag.Getter); ok {
			if v, ok := getter.Get().(int); ok {
				return v
			}
		}
	}
	return 0
}
