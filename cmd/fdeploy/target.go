package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/bamsammich/fdeploy/internal/config"
	"github.com/bamsammich/fdeploy/internal/engine"
	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// options are the command-line settings that override the settings file.
type options struct {
	verbose     bool
	quiet       bool
	dryRun      bool
	skipBuild   bool
	verify      bool
	workers     int
	retryCount  int
	bwLimit     string
	logFile     string
	targetDir   string
	metricsFile string
}

// targetName labels logs and metrics: "fdeploy-prod.yml" becomes "fdeploy-prod".
func targetName(settingsPath string) string {
	base := filepath.Base(settingsPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// engineConfig maps the settings file plus flags onto one deployment.
// buildOut receives the build's output.
func engineConfig(s config.Settings, o options, workDir string, buildOut io.Writer) (engine.Config, error) {
	workers := s.MaxThreadCount
	if o.workers > 0 {
		workers = o.workers
	}
	retries := s.RetryCount
	if o.retryCount > 0 {
		retries = o.retryCount
	}

	bw := s.Transfer.BandwidthLimit
	if o.bwLimit != "" {
		bw = o.bwLimit
	}
	bwLimit, err := config.ParseBandwidth(bw)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid bandwidth limit: %w", err)
	}

	cfg := engine.Config{
		LocalRoot:  s.Project.PublishPath,
		RemoteRoot: s.ServerConnection.RemoteRootPath,
		Ignore: filter.Config{
			FolderPaths: s.Paths.IgnoreFolderPaths,
			FilePaths:   s.Paths.IgnoreFilePaths,
			FolderNames: s.Paths.IgnoreFoldersNamed,
			FileNames:   s.Paths.IgnoreFilesNamed,
		},
		Classes: engine.ClassifyConfig{
			OnlineCopyFolderPaths:           s.Paths.OnlineCopyFolderPaths,
			OnlineCopyFilePaths:             s.Paths.OnlineCopyFilePaths,
			AlwaysOverwritePaths:            s.Paths.AlwaysOverwritePaths,
			AlwaysOverwritePathsWithRecurse: s.Paths.AlwaysOverwritePathsWithRecurse,
		},
		DeleteOrphans: s.DeleteOrphans,
		TakeOffline:   s.TakeServerOffline,
		Offline: engine.OfflinePage{
			MetaTitle:   s.Offline.MetaTitle,
			PageTitle:   s.Offline.PageTitle,
			ContentHTML: s.Offline.ContentHTML,
		},
		OfflineDelay:     s.OfflineDelay(),
		OnlineDelay:      s.OnlineDelay(),
		Retry:            engine.RetryPolicy{Attempts: retries, Delay: s.RetryDelay()},
		Workers:          workers,
		SessionPerWorker: s.Transfer.SessionPerWorker,
		ChunkSize:        s.Transfer.ChunkSizeBytes,
		BandwidthLimit:   bwLimit,
		Verify:           o.verify || s.Transfer.Verify,
		DryRun:           o.dryRun,
	}
	for _, fc := range s.Paths.FileCopies {
		cfg.FileCopies = append(cfg.FileCopies, engine.FileCopy{Source: fc.Source, Destination: fc.Destination})
	}

	if o.targetDir != "" {
		cfg.Connector = transport.LocalConnector{Fs: afero.NewOsFs(), Root: o.targetDir}
	} else {
		c := s.ServerConnection
		cfg.Connector = transport.SMBConnector{Opts: transport.SMBOpts{
			Server:          c.ServerAddress,
			Share:           c.ShareName,
			Domain:          c.Domain,
			User:            c.UserName,
			Password:        c.Password,
			Port:            c.Port,
			ConnectTimeout:  c.ConnectTimeout(),
			ResponseTimeout: c.ResponseTimeout(),
			MountRetries:    retries,
			MountRetryDelay: s.RetryDelay(),
		}}
	}

	if !o.skipBuild && (s.Project.ProjectFilePath != "" || len(s.Project.BuildCommand) > 0) {
		cfg.Build = &engine.BuildConfig{
			Stdout:        buildOut,
			Stderr:        buildOut,
			Command:       s.Project.BuildCommand,
			WorkDir:       workDir,
			ProjectFile:   s.Project.ProjectFilePath,
			Framework:     s.Project.TargetFramework,
			Configuration: s.Project.BuildConfiguration,
			Environment:   s.Project.EnvironmentName,
			OutputDir:     s.Project.PublishPath,
		}
	}
	return cfg, nil
}
