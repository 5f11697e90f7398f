package cmd

import (
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/offlinefirst/deskpilot/internal/buildinfo"
)

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print the agent version",
		skipInit:    true,
		configure: func(fs *flag.FlagSet) {
			fs.Bool("verbose", false, "Include commit and host platform details")
		},
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if _, err := fmt.Fprintln(stdout, versionString()); err != nil {
				return err
			}
			if !boolFlag(fs, "verbose") {
				return nil
			}
			if commit := buildinfo.Commit(); commit != "" {
				fmt.Fprintf(stdout, "commit: %s\n", commit)
			}
			// The host platform decides which driver backends are available.
			fmt.Fprintf(stdout, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
