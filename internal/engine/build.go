package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// BuildConfig describes the external build that produces the publish folder.
type BuildConfig struct {
	Stdout        io.Writer
	Stderr        io.Writer
	Command       []string // overrides the dotnet publish command when set
	WorkDir       string
	ProjectFile   string
	Framework     string // e.g. "8.0"
	Configuration string // e.g. "Release"
	Environment   string // ASP.NET Core EnvironmentName
	OutputDir     string
}

// Args returns the command line the build runs.
func (b BuildConfig) Args() []string {
	if len(b.Command) > 0 {
		return b.Command
	}
	return []string{
		"dotnet", "publish", b.ProjectFile,
		"--framework", "net" + b.Framework,
		"-c", b.Configuration,
		"-o", b.OutputDir,
		"/p:EnvironmentName=" + b.Environment,
	}
}

// RunBuild runs the build and waits for it. A non-zero exit status is a
// KindBuild error.
func RunBuild(ctx context.Context, b BuildConfig) error {
	args := b.Args()
	if len(args) == 0 || args[0] == "" {
		return &Error{Kind: KindBuild, Op: "build", Err: errors.New("no build command")}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from deployment settings
	cmd.Dir = b.WorkDir
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr

	slog.Info("building", "cmd", args)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("exit code %d", exitErr.ExitCode())
		}
		return &Error{Kind: KindBuild, Op: "build", Path: b.ProjectFile, Err: err}
	}
	return nil
}
