package engine

import (
	"bytes"
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig_DefaultArgs(t *testing.T) {
	t.Parallel()
	b := BuildConfig{
		ProjectFile:   "src/Web/Web.csproj",
		Framework:     "8.0",
		Configuration: "Release",
		Environment:   "Staging",
		OutputDir:     "bin/publish",
	}
	assert.Equal(t, []string{
		"dotnet", "publish", "src/Web/Web.csproj",
		"--framework", "net8.0",
		"-c", "Release",
		"-o", "bin/publish",
		"/p:EnvironmentName=Staging",
	}, b.Args())

	b.Command = []string{"make", "publish"}
	assert.Equal(t, []string{"make", "publish"}, b.Args())
}

func TestRunBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := RunBuild(context.Background(), BuildConfig{
			Command: []string{"sh", "-c", "echo built"},
			Stdout:  &out,
		})
		require.NoError(t, err)
		assert.Equal(t, "built\n", out.String())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		t.Parallel()
		err := RunBuild(context.Background(), BuildConfig{Command: []string{"sh", "-c", "exit 3"}})
		require.Error(t, err)
		assert.True(t, IsKind(err, KindBuild))
		assert.Contains(t, err.Error(), "exit code 3")
	})

	t.Run("missing command", func(t *testing.T) {
		t.Parallel()
		err := RunBuild(context.Background(), BuildConfig{Command: []string{"fdeploy-no-such-binary"}})
		require.Error(t, err)
		assert.True(t, IsKind(err, KindBuild))
	})
}
