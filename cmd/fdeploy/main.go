package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bamsammich/fdeploy/internal/config"
	"github.com/bamsammich/fdeploy/internal/engine"
	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/stats"
	"github.com/bamsammich/fdeploy/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var o options

	rootCmd := &cobra.Command{
		Use:   "fdeploy [name|path]",
		Short: "Deploy a published web app to a Windows file share",
		Long: `Build a web app, then mirror its publish folder onto an SMB share.

Only new and changed files are uploaded. The site is taken offline with an
app_offline.htm page while files that cannot be replaced under load are
copied, and files that no longer exist locally are removed from the server.

With no argument fdeploy reads fdeploy.yml. A bare NAME reads fdeploy-NAME.yml;
anything else is taken as the path of a settings file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return deploy(cmd, name, o)
		},
	}

	rootCmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "index and plan only; write nothing to the server")
	rootCmd.Flags().BoolVar(&o.skipBuild, "skip-build", false, "deploy the existing publish folder without building")
	rootCmd.Flags().BoolVar(&o.verify, "verify", false, "read every upload back and compare BLAKE3 digests")
	rootCmd.Flags().IntVarP(&o.workers, "workers", "n", 0, "parallel upload workers (default: maxThreadCount)")
	rootCmd.Flags().IntVar(&o.retryCount, "retries", 0, "attempts per remote operation (default: retryCount)")
	rootCmd.Flags().StringVar(&o.bwLimit, "bwlimit", "", "bandwidth limit (e.g. 20M, 1G)")
	rootCmd.Flags().StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().StringVar(&o.targetDir, "target-dir", "", "deploy into a local or mounted folder instead of the SMB share")
	rootCmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to FILE")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(docsCmd)
	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fdeploy version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fdeploy %s\n", version)
	},
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every component
func deploy(cmd *cobra.Command, name string, o options) error {
	// Load optional user config.
	userCfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "path", config.Path(), "error", err)
	}
	applyConfigDefaults(cmd, userCfg.Defaults, &o)

	// Configure logging.
	logLevel := slog.LevelInfo
	if o.verbose {
		logLevel = slog.LevelDebug
	} else if o.quiet {
		logLevel = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	if o.logFile != "" {
		lf, lfErr := os.Create(o.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	// Load deployment settings.
	settingsPath := config.SettingsPath(name)
	settings, err := config.LoadSettings(afero.NewOsFs(), settingsPath)
	if err != nil {
		return err
	}
	if o.targetDir != "" {
		err = settings.ValidateLocal()
	} else {
		err = settings.Validate()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", settingsPath, err)
	}

	var buildOut io.Writer = os.Stderr
	if o.quiet {
		buildOut = io.Discard
	}
	absSettings, err := filepath.Abs(settingsPath)
	if err != nil {
		return fmt.Errorf("resolve settings path: %w", err)
	}
	engineCfg, err := engineConfig(settings, o, filepath.Dir(absSettings), buildOut)
	if err != nil {
		return err
	}

	target := targetName(settingsPath)
	metricsFile := settings.MetricsFile
	if o.metricsFile != "" {
		metricsFile = o.metricsFile
	}
	var metrics *stats.Metrics
	if metricsFile != "" {
		metrics = stats.NewMetrics(target)
	}

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)
	runID := uuid.NewString()

	presenterEvents := (<-chan event.Event)(events)
	if o.logFile != "" {
		presenterEvents = ui.LogEvents(events, runID)
	}

	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Stats:     collector,
		Theme:     userCfg.Theme,
		IsTTY:     ui.IsTTY(os.Stderr),
		Quiet:     o.quiet,
		Verbose:   o.verbose,
	})

	engineCfg.RunID = runID
	engineCfg.Events = events
	engineCfg.Stats = collector
	engineCfg.Metrics = metrics

	slog.Debug("starting deployment",
		"target", target,
		"publish", engineCfg.LocalRoot,
		"remote", engineCfg.RemoteRoot,
		"workers", engineCfg.Workers,
		"dry_run", engineCfg.DryRun,
	)

	// Presenter in the background, engine in the foreground.
	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	result := engine.Deploy(ctx, engineCfg)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if !o.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
		if o.dryRun && result.Plan != nil {
			fmt.Fprintln(os.Stderr, result.Plan.String())
		}
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			slog.Warn("failed to write metrics", "path", metricsFile, "error", err)
		}
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	}
	if result.Err != nil {
		if len(result.Errors) == 0 {
			fmt.Fprintf(os.Stderr, "error: %v\n", result.Err)
		}
		if hint := failureHint(result.Errors); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		return &exitError{code: 1}
	}
	return nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, o *options) {
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		o.verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		o.workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		o.bwLimit = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("retries") && defaults.RetryCount != nil {
		o.retryCount = *defaults.RetryCount
	}
	if !cmd.Flags().Changed("log") && defaults.LogFile != nil {
		o.logFile = *defaults.LogFile
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// failureHint suggests a next step for the first error kind that has one.
func failureHint(errs []error) string {
	for _, err := range errs {
		switch {
		case engine.IsKind(err, engine.KindBuild):
			return "hint: the build failed; run the build by hand or pass --skip-build to deploy the existing publish folder"
		case engine.IsKind(err, engine.KindRetryExhausted):
			return "hint: the server kept rejecting writes; if the site was taken offline it stays offline until a run completes"
		}
	}
	return ""
}
