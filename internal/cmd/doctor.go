package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/permissions"
)

func newDoctorCommand() command {
	return command{
		name:        "doctor",
		description: "Check host permissions and recognizer service health",
		configure: func(fs *flag.FlagSet) {
			fs.Duration("timeout", 5*time.Second, "Health probe timeout")
		},
		run: runDoctor,
	}
}

func runDoctor(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	probes := []struct {
		name   string
		result permissions.ProbeResult
	}{
		{"accessibility", permissions.ProbeAccessibility(nil)},
		{"screen recording", permissions.ProbeScreenRecording(nil)},
		{"input monitoring", permissions.ProbeInputMonitoring(nil)},
	}

	healthy := true
	for _, probe := range probes {
		fmt.Fprintf(stdout, "%-18s %-12s %s\n", probe.name, probe.result.StatusString(), probe.result.Message)
		if probe.result.Guidance != "" {
			fmt.Fprintf(stdout, "%-18s %-12s %s\n", "", "", probe.result.Guidance)
		}
		if probe.result.Status == permissions.StatusDenied {
			healthy = false
		}
	}

	svc, err := newVisionService(ctx.Config.Vision, ctx.Logger)
	if err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), durationFlag(fs, "timeout"))
	defer cancel()
	if err := svc.Health(probeCtx); err != nil {
		fmt.Fprintf(stdout, "%-18s %-12s %v\n", "recognizer", "unreachable", err)
		healthy = false
	} else {
		fmt.Fprintf(stdout, "%-18s %-12s %s\n", "recognizer", "ok", ctx.Config.Vision.ServiceURL)
	}

	if !healthy {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintln(stdout, "all checks passed")
	return nil
}
