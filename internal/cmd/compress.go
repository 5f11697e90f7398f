package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
)

func newCompressCommand() command {
	return command{
		name:        "compress",
		description: "Shrink an encoded frame file to a size budget",
		configure: func(fs *flag.FlagSet) {
			fs.String("in", "", "Path to the input frame (png or jpeg)")
			fs.String("out", "", "Path for the budgeted output (default: overwrite input)")
			fs.Int("target-kb", 512, "Size budget in kilobytes")
			fs.String("format", "jpeg", "Target lossy format")
		},
		run: runCompress,
	}
}

func runCompress(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	in := stringFlag(fs, "in")
	if in == "" {
		return fmt.Errorf("-in is required")
	}
	out := stringFlag(fs, "out")
	if out == "" {
		out = in
	}

	frame, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	compressor := newCompressor(ctx.Config.Compress, ctx.Logger)
	result, err := compressor.ToBudget(frame, intFlag(fs, "target-kb"), stringFlag(fs, "format"))
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	fmt.Fprintf(stdout, "wrote %s: %.1f KB (quality %d, scale %.2f, %d iterations)\n",
		out, result.AchievedKB, result.Quality, result.Scale, result.Iterations)
	return nil
}
