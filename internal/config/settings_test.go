package config

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSettings = `
deleteOrphans: false
takeServerOffline: true
serverOfflineDelaySeconds: 3
serverOnlineDelaySeconds: 2
writeRetryDelaySeconds: 1
retryCount: 7
maxThreadCount: 4
serverConnection:
  serverAddress: web01.corp.local
  shareName: wwwroot$
  domain: CORP
  userName: deployer
  password: hunter2
  port: 1445
  connectTimeoutMs: 2000
  responseTimeoutMs: 30000
  remoteRootPath: sites\shop
project:
  projectFilePath: src/Shop/Shop.csproj
  environmentName: Staging
  publishPath: out/publish
paths:
  onlineCopyFolderPaths: [wwwroot/images]
  alwaysOverwritePaths: [config]
  ignoreFolderPaths: [wwwroot/uploads]
  ignoreFilesNamed: [Thumbs.db]
  fileCopies:
    - source: web.Staging.config
      destination: web.config
offline:
  pageTitle: Back soon
transfer:
  bandwidthLimit: 20MB
  verify: true
  sessionPerWorker: false
metricsFile: metrics/fdeploy.prom
`

func TestLoadSettings_Full(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte(fullSettings), 0o644))

	s, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.False(t, s.DeleteOrphans)
	assert.True(t, s.TakeServerOffline)
	assert.Equal(t, 3*time.Second, s.OfflineDelay())
	assert.Equal(t, 2*time.Second, s.OnlineDelay())
	assert.Equal(t, time.Second, s.RetryDelay())
	assert.Equal(t, 7, s.RetryCount)
	assert.Equal(t, 4, s.MaxThreadCount)

	c := s.ServerConnection
	assert.Equal(t, "web01.corp.local", c.ServerAddress)
	assert.Equal(t, "wwwroot$", c.ShareName)
	assert.Equal(t, 1445, c.Port)
	assert.Equal(t, 2*time.Second, c.ConnectTimeout())
	assert.Equal(t, 30*time.Second, c.ResponseTimeout())
	assert.Equal(t, `sites\shop`, c.RemoteRootPath)

	assert.Equal(t, filepath.Join("/repo", "src/Shop/Shop.csproj"), s.Project.ProjectFilePath)
	assert.Equal(t, filepath.Join("/repo", "out/publish"), s.Project.PublishPath)
	assert.Equal(t, "Staging", s.Project.EnvironmentName)
	assert.Equal(t, "Release", s.Project.BuildConfiguration, "default kept")

	assert.Equal(t, []FileCopy{{Source: "web.Staging.config", Destination: "web.config"}}, s.Paths.FileCopies)
	assert.Equal(t, []string{"Thumbs.db"}, s.Paths.IgnoreFilesNamed)

	assert.Equal(t, "Back soon", s.Offline.PageTitle)
	assert.Equal(t, "Unavailable for Maintenance", s.Offline.MetaTitle, "default kept")

	assert.Equal(t, "20MB", s.Transfer.BandwidthLimit)
	assert.True(t, s.Transfer.Verify)
	assert.False(t, s.Transfer.SessionPerWorker)
	assert.Equal(t, 1<<20, s.Transfer.ChunkSizeBytes)
	assert.Equal(t, filepath.Join("/repo", "metrics/fdeploy.prom"), s.MetricsFile)
}

func TestLoadSettings_Defaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte(`
serverConnection:
  serverAddress: web01
  shareName: site
`), 0o644))

	s, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.NoError(t, err)

	assert.True(t, s.DeleteOrphans)
	assert.True(t, s.TakeServerOffline)
	assert.Equal(t, 10, s.ServerOfflineDelaySeconds)
	assert.Zero(t, s.ServerOnlineDelaySeconds)
	assert.Equal(t, 10, s.WriteRetryDelaySeconds)
	assert.Equal(t, 5, s.RetryCount)
	assert.Equal(t, runtime.NumCPU(), s.MaxThreadCount)
	assert.Equal(t, 445, s.ServerConnection.Port)
	assert.Equal(t, filepath.Join("/repo", "bin", "publish"), s.Project.PublishPath)
	assert.Equal(t, "8.0", s.Project.TargetFramework)
	assert.True(t, s.Transfer.SessionPerWorker)
	assert.Contains(t, s.Offline.ContentHTML, "Check back soon!")
}

func TestLoadSettings_RetryCountFloor(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte("retryCount: 0\n"), 0o644))

	s, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.NoError(t, err)
	assert.Equal(t, 1, s.RetryCount)
}

func TestLoadSettings_UnknownField(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte("deleteOrphan: true\n"), 0o644))

	_, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be parsed")
	assert.Contains(t, err.Error(), "deleteOrphan")
}

func TestLoadSettings_WrongType(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte("retryCount: lots\n"), 0o644))

	_, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.Error(t, err)
}

func TestLoadSettings_Missing(t *testing.T) {
	_, err := LoadSettings(afero.NewMemMapFs(), "/repo/fdeploy-prod.yml")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "fdeploy-prod.yml")
}

func TestLoadSettings_CredentialsFile(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", "/home/dev")
	t.Setenv("USERPROFILE", "/home/dev")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte(`
serverConnection:
  serverAddress: web01
  shareName: site
  userName: placeholder
  credentialsFile: ~/.fdeploy/creds.yml
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/home/dev/.fdeploy/creds.yml", []byte(`
domain: CORP
userName: deployer
password: s3cret
`), 0o600))

	s, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.NoError(t, err)
	assert.Equal(t, "CORP", s.ServerConnection.Domain)
	assert.Equal(t, "deployer", s.ServerConnection.UserName)
	assert.Equal(t, "s3cret", s.ServerConnection.Password)
	assert.Equal(t, filepath.Join("/home/dev", ".fdeploy", "creds.yml"), s.ServerConnection.CredentialsFile)
}

func TestLoadSettings_CredentialsFileMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/fdeploy.yml", []byte(`
serverConnection:
  credentialsFile: creds.yml
`), 0o644))

	_, err := LoadSettings(fs, "/repo/fdeploy.yml")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), filepath.Join("/repo", "creds.yml"))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	s := DefaultSettings()
	s.ServerOnlineDelaySeconds = -1
	s.Paths.FileCopies = []FileCopy{{Source: "a"}}
	s.Transfer.BandwidthLimit = "quick"

	err := s.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "serverAddress is required")
	assert.Contains(t, msg, "shareName is required")
	assert.Contains(t, msg, "publishPath is required")
	assert.Contains(t, msg, "serverOnlineDelaySeconds must not be negative")
	assert.Contains(t, msg, "fileCopies[0]")
	assert.Contains(t, msg, `transfer.bandwidthLimit: invalid bandwidth "quick"`)
}

func TestValidateLocal(t *testing.T) {
	t.Parallel()
	s := DefaultSettings()
	s.Project.PublishPath = "/repo/bin/publish"
	require.NoError(t, s.ValidateLocal())
	require.Error(t, s.Validate())
}

func TestSettingsPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "fdeploy.yml", SettingsPath(""))
	assert.Equal(t, "fdeploy-prod.yml", SettingsPath("prod"))
	assert.Equal(t, "custom.yaml", SettingsPath("custom.yaml"))
	assert.Equal(t, "deploy/prod", SettingsPath("deploy/prod"))
}
