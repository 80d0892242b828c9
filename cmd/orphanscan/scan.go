package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/config"
	"github.com/nao1215/orphanscan/internal/database"
	"github.com/nao1215/orphanscan/internal/log"
	"github.com/nao1215/orphanscan/internal/model"
	"github.com/nao1215/orphanscan/internal/report"
	"github.com/nao1215/orphanscan/internal/scanner"
	"github.com/nao1215/orphanscan/internal/watch"
	"github.com/spf13/cobra"
)

// ErrOrphansFound is returned by the scan command with --fail-on-orphans
// when at least one orphan was reported.
var ErrOrphansFound = errors.New("orphan lines found")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the configured page for orphan lines",
		Long: `Scan opens the configured page in headless Chrome once per viewport, measures
every element matched by the configured selectors and reports elements whose
last rendered line is an orphan.

Any browser launch, navigation or evaluation failure aborts the scan.

Examples:
  # Scan with .orphanscan from the current or home directory
  orphanscan scan

  # Use a custom configuration file
  orphanscan scan -c staging.yaml

  # Write a Markdown report for a pull request
  orphanscan scan --markdown -o orphans.md

  # Rescan whenever the page sources change
  orphanscan scan --watch ./src --watch ./public

  # Fail in CI when an orphan is found
  orphanscan scan --fail-on-orphans --no-save`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .orphanscan in current or home directory)")

	// Detection flags
	cmd.Flags().Int("tolerance", config.DefaultTolerance,
		"Pixels two characters' tops may differ while on the same line")
	cmd.Flags().Int("max-chars", config.DefaultMaxOrphanChars,
		"Longest last line, in characters, reported as an orphan")
	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Timeout for each page load")
	cmd.Flags().Bool("show-browser", false,
		"Run Chrome with a visible window")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the history database")
	cmd.Flags().Bool("fail-on-orphans", false,
		"Exit with an error when any orphan is found")

	// Watch flags
	cmd.Flags().StringSliceP("watch", "w", nil,
		"Rescan when files under this path change (repeatable)")
	cmd.Flags().Duration("debounce", config.DefaultWatchDebounce,
		"Quiet period after the last file change before rescanning")
	cmd.Flags().Bool("no-initial-scan", false,
		"With --watch, wait for the first change instead of scanning at startup")

	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := browser.NewRodDriver(browserConfig(cfg, logger))
	return runScan(ctx, cfg, driver, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig creates a Config from defaults and the configuration file.
// An explicitly requested file must exist; otherwise a missing file means
// defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return cfg, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	file.Apply(cfg)

	return cfg, nil
}

// buildConfig creates a Config from the configuration file and scan flags.
// Flags only override the file when set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		if cfg.Tolerance, err = flags.GetInt("tolerance"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-chars") {
		if cfg.MaxOrphanChars, err = flags.GetInt("max-chars"); err != nil {
			return nil, err
		}
	}
	if cfg.NavigationTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.WatchDebounce, err = flags.GetDuration("debounce"); err != nil {
		return nil, err
	}

	showBrowser, err := flags.GetBool("show-browser")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !showBrowser

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	if cfg.FailOnOrphans, err = flags.GetBool("fail-on-orphans"); err != nil {
		return nil, err
	}
	if cfg.WatchPaths, err = flags.GetStringSlice("watch"); err != nil {
		return nil, err
	}
	noInitialScan, err := flags.GetBool("no-initial-scan")
	if err != nil {
		return nil, err
	}
	cfg.WatchInitialScan = !noInitialScan

	return cfg, nil
}

// browserConfig maps the scan configuration onto the rod driver options.
func browserConfig(cfg *config.Config, logger *slog.Logger) browser.Config {
	bc := browser.DefaultConfig()
	bc.Bin = cfg.BrowserBin
	bc.Headless = cfg.Headless
	bc.NoSandbox = cfg.NoSandbox
	bc.NavigationTimeout = cfg.NavigationTimeout
	bc.Headers = cfg.Headers
	bc.Cookie = cfg.Cookie
	bc.Logger = logger
	return bc
}

// runScan scans once, or on every change of the watched paths.
func runScan(ctx context.Context, cfg *config.Config, driver browser.Driver, stdout io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"url", cfg.TargetURL,
		"viewports", len(cfg.Viewports),
		"selectors", len(cfg.Selectors),
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	if len(cfg.WatchPaths) == 0 {
		return scanOnce(ctx, cfg, driver, db, stdout, logger)
	}

	w := watch.New(cfg.WatchPaths,
		watch.WithDebounce(cfg.WatchDebounce),
		watch.WithInitialRun(cfg.WatchInitialScan),
		watch.WithLogger(logger),
		watch.WithIgnore(ignoreOwnOutput(cfg)),
	)
	fmt.Fprintf(stdout, "Watching %s for changes (Ctrl+C to stop)\n", strings.Join(cfg.WatchPaths, ", "))

	return w.Run(ctx, func(ctx context.Context) error {
		err := scanOnce(ctx, cfg, driver, db, stdout, logger)
		if errors.Is(err, ErrOrphansFound) {
			return nil
		}
		return err
	})
}

// ignoreOwnOutput keeps the report file and the database from triggering
// rescans when they live under a watched path.
func ignoreOwnOutput(cfg *config.Config) func(string) bool {
	var own []string
	if cfg.ReportFile != "" {
		if abs, err := filepath.Abs(cfg.ReportFile); err == nil {
			own = append(own, abs)
		}
	}
	if cfg.SaveToDB {
		if abs, err := filepath.Abs(cfg.DBDir); err == nil {
			own = append(own, abs)
		}
	}
	return func(path string) bool {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		for _, o := range own {
			if abs == o || strings.HasPrefix(abs, o+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}

// scanOnce runs one scan and writes its report. Console output streams to
// stdout while the scan runs; other formats are written when it completes.
func scanOnce(ctx context.Context, cfg *config.Config, driver browser.Driver, db *database.RunDB, stdout io.Writer, logger *slog.Logger) error {
	streaming := !cfg.JSONReport && !cfg.MarkdownReport && cfg.ReportFile == ""

	opts := []scanner.Option{
		scanner.WithTargetURL(cfg.TargetURL),
		scanner.WithViewports(cfg.Viewports...),
		scanner.WithSelectors(cfg.Selectors...),
		scanner.WithTolerance(cfg.Tolerance),
		scanner.WithMaxOrphanChars(cfg.MaxOrphanChars),
		scanner.WithLogger(logger),
	}
	if streaming {
		opts = append(opts, scanner.WithSink(report.NewConsoleWriter(stdout)))
	}

	scanReport, err := scanner.New(driver, opts...).Run(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if streaming {
		fmt.Fprint(stdout, report.FormatSummary(scanReport))
	} else if err := outputReport(cfg, scanReport, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
		logger.Error("failed to save scan report", "id", scanReport.ID, "error", err)
	}

	if cfg.FailOnOrphans && scanReport.HasFindings() {
		return fmt.Errorf("%w: %d", ErrOrphansFound, scanReport.TotalFindings())
	}
	return nil
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, scanReport *model.ScanReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewConsoleWriter(output, report.WithSummary(true))
	}

	_, err := w.Write(scanReport)
	return err
}

// saveScanReport saves the scan report to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.RunDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveReport(ctx, scanReport); err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database", "id", scanReport.ID)
	return nil
}
