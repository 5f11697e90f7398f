package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// AppLauncher activates or launches a named application.
type AppLauncher interface {
	Activate(ctx context.Context, app string) error
}

// AppLauncherFunc adapts a function literal to the AppLauncher interface.
type AppLauncherFunc func(ctx context.Context, app string) error

// Activate calls the underlying function.
func (f AppLauncherFunc) Activate(ctx context.Context, app string) error {
	return f(ctx, app)
}

// ShellLauncher activates applications through the platform shell.
type ShellLauncher struct{}

// Activate brings the named application to the foreground, launching it first
// if needed.
func (ShellLauncher) Activate(ctx context.Context, app string) error {
	app = strings.TrimSpace(app)
	if app == "" {
		return errors.New("application name must not be empty")
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", app)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/C", "start", "", app)
	default:
		cmd = exec.CommandContext(ctx, app)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("activate %s: %w", app, err)
	}
	return nil
}

// FileStore persists and retrieves bytes on the agent host.
type FileStore interface {
	Write(path string, data []byte) error
	Read(path string) ([]byte, error)
}

// OSFileStore is the default FileStore backed by the local filesystem.
type OSFileStore struct{}

// Write stores data at path, creating parent directories as needed.
func (OSFileStore) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Read returns the bytes stored at path.
func (OSFileStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}
