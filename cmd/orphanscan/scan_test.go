package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/orphanscan/internal/config"
	"github.com/nao1215/orphanscan/internal/database"
	"github.com/nao1215/orphanscan/internal/model"
	"github.com/nao1215/orphanscan/internal/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config scanning .hero-description without history.
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Selectors = []string{".hero-description"}
	cfg.SaveToDB = false
	return cfg
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".orphanscan")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()
	if cmd.Use != "scan" {
		t.Errorf("expected use 'scan', got %q", cmd.Use)
	}

	flags := []struct {
		name      string
		shorthand string
	}{
		{name: "config", shorthand: "c"},
		{name: "json", shorthand: "j"},
		{name: "markdown", shorthand: "m"},
		{name: "output", shorthand: "o"},
		{name: "timeout", shorthand: "t"},
		{name: "watch", shorthand: "w"},
		{name: "tolerance"},
		{name: "max-chars"},
		{name: "no-save"},
		{name: "fail-on-orphans"},
		{name: "debounce"},
		{name: "show-browser"},
		{name: "no-initial-scan"},
	}
	for _, f := range flags {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
		})
	}

	t.Run("rejects positional arguments", func(t *testing.T) {
		t.Parallel()
		if err := NewScanCmd().Args(cmd, []string{"http://example.com"}); err == nil {
			t.Error("expected an error for a positional URL")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("file values are kept when flags are not set", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "url: https://staging.example.com/\ntolerance: 4\nmaxOrphanChars: 2\n")
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.TargetURL != "https://staging.example.com/" {
			t.Errorf("TargetURL = %q", cfg.TargetURL)
		}
		if cfg.Tolerance != 4 || cfg.MaxOrphanChars != 2 {
			t.Errorf("file thresholds not applied: tolerance=%d max=%d", cfg.Tolerance, cfg.MaxOrphanChars)
		}
		if !cfg.SaveToDB || !cfg.Headless {
			t.Error("expected history and headless defaults")
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "tolerance: 4\n")
		cmd := NewScanCmd()
		args := []string{
			"-c", path,
			"--tolerance", "1",
			"--max-chars", "5",
			"--timeout", "10s",
			"--no-save",
			"--show-browser",
			"--fail-on-orphans",
			"-j", "-o", "out.json",
			"-w", "src", "-w", "public",
			"--debounce", "1s",
			"--no-initial-scan",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		want := config.NewConfig()
		want.ConfigFilePath = path
		want.Tolerance = 1
		want.MaxOrphanChars = 5
		want.NavigationTimeout = 10 * time.Second
		want.SaveToDB = false
		want.Headless = false
		want.FailOnOrphans = true
		want.JSONReport = true
		want.ReportFile = "out.json"
		want.WatchPaths = []string{"src", "public"}
		want.WatchDebounce = time.Second
		want.WatchInitialScan = false
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd); err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "viewports: [")
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestRunScanCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "")
	cmd := NewScanCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", path, "-j", "-m"})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrConflictingReportFormats) {
		t.Errorf("expected ErrConflictingReportFormats, got %v", err)
	}
}

func TestBrowserConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.BrowserBin = "/usr/bin/chromium"
	cfg.NoSandbox = true
	cfg.Headers = map[string]string{"Authorization": "Basic abc"}
	cfg.Cookie = "a=b"
	cfg.NavigationTimeout = 5 * time.Second

	bc := browserConfig(cfg, discardLogger())
	if bc.Bin != "/usr/bin/chromium" || !bc.NoSandbox || !bc.Headless {
		t.Errorf("unexpected browser config: %+v", bc)
	}
	if bc.NavigationTimeout != 5*time.Second || bc.Cookie != "a=b" || bc.Headers["Authorization"] != "Basic abc" {
		t.Errorf("unexpected browser config: %+v", bc)
	}
}

func TestScanOnce(t *testing.T) {
	t.Parallel()

	t.Run("streams the console format", func(t *testing.T) {
		t.Parallel()

		driver := heroDriver()
		var out bytes.Buffer
		if err := scanOnce(t.Context(), testConfig(), driver, nil, &out, discardLogger()); err != nil {
			t.Fatalf("scanOnce() error = %v", err)
		}

		want := "\n========== PC (1200px) ==========\n\n" +
			"\n========== SP (375px) ==========\n\n" +
			"ORPHAN [.hero-description] (width: 343px)\n" +
			"  L1: \"Discover our\" (12文字)\n" +
			"  L2: \"amazing new\" (11文字)\n" +
			"  L3: \"spa\" (3文字)\n" +
			"\n" +
			"1 orphan(s) in 2 element(s) across 2 viewport(s)\n"
		if diff := cmp.Diff(want, out.String()); diff != "" {
			t.Errorf("output mismatch (-want +got):\n%s", diff)
		}
		if driver.closed != 1 {
			t.Errorf("expected the session to be closed once, got %d", driver.closed)
		}
	})

	t.Run("writes a JSON report file", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "orphans.json")

		var out bytes.Buffer
		if err := scanOnce(t.Context(), cfg, heroDriver(), nil, &out, discardLogger()); err != nil {
			t.Fatalf("scanOnce() error = %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("nothing should be printed to stdout, got %q", out.String())
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatal(err)
		}
		var got report.JSONReport
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Summary.TotalFindings != 1 {
			t.Errorf("TotalFindings = %d, want 1", got.Summary.TotalFindings)
		}
		info, err := os.Stat(cfg.ReportFile)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("report file mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("markdown to stdout", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.MarkdownReport = true

		var out bytes.Buffer
		if err := scanOnce(t.Context(), cfg, heroDriver(), nil, &out, discardLogger()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "# Orphan Line Report") {
			t.Errorf("expected markdown output, got %q", out.String())
		}
	})

	t.Run("fail on orphans", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.FailOnOrphans = true

		err := scanOnce(t.Context(), cfg, heroDriver(), nil, io.Discard, discardLogger())
		if !errors.Is(err, ErrOrphansFound) {
			t.Errorf("expected ErrOrphansFound, got %v", err)
		}
	})

	t.Run("clean page passes with fail on orphans", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.FailOnOrphans = true
		driver := &fakeDriver{}

		if err := scanOnce(t.Context(), cfg, driver, nil, io.Discard, discardLogger()); err != nil {
			t.Errorf("expected no error for zero matches, got %v", err)
		}
	})

	t.Run("launch failure is fatal", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("chrome not found")
		err := scanOnce(t.Context(), testConfig(), &fakeDriver{launchErr: boom}, nil, io.Discard, discardLogger())
		if !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}

func TestRunScanSavesHistory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SaveToDB = true
	cfg.DBDir = t.TempDir()

	if err := runScan(t.Context(), cfg, heroDriver(), io.Discard, discardLogger()); err != nil {
		t.Fatalf("runScan() error = %v", err)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	runs, err := db.ListRuns(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(runs))
	}
	if runs[0].FindingCount != 1 || runs[0].ElementCount != 2 || runs[0].TargetURL != config.DefaultTargetURL {
		t.Errorf("unexpected run metadata: %+v", runs[0])
	}
}

func TestSaveScanReportNilDB(t *testing.T) {
	t.Parallel()

	if err := saveScanReport(t.Context(), nil, model.NewScanReport("id", "http://localhost:3456"), discardLogger()); err != nil {
		t.Errorf("expected nil db to be a no-op, got %v", err)
	}
}

func TestIgnoreOwnOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.ReportFile = filepath.Join(dir, "report.md")
	cfg.DBDir = filepath.Join(dir, "history")

	ignore := ignoreOwnOutput(cfg)
	tests := []struct {
		path string
		want bool
	}{
		{path: cfg.ReportFile, want: true},
		{path: filepath.Join(cfg.DBDir, "orphanscan.db-wal"), want: true},
		{path: filepath.Join(dir, "index.html"), want: false},
		{path: filepath.Join(dir, "history-notes.txt"), want: false},
	}
	for _, tt := range tests {
		if got := ignore(tt.path); got != tt.want {
			t.Errorf("ignore(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRunScanWatch(t *testing.T) {
	t.Parallel()

	waitLaunch := func(t *testing.T, launches <-chan struct{}) {
		t.Helper()
		select {
		case <-launches:
		case <-time.After(5 * time.Second):
			t.Fatal("expected a scan")
		}
	}

	start := func(t *testing.T, cfg *config.Config, driver *fakeDriver) func() error {
		t.Helper()
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- runScan(ctx, cfg, driver, io.Discard, discardLogger())
		}()
		return func() error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-time.After(5 * time.Second):
				t.Fatal("watch did not stop")
				return nil
			}
		}
	}

	watchConfig := func(t *testing.T) (*config.Config, string) {
		t.Helper()
		dir := t.TempDir()
		cfg := testConfig()
		cfg.WatchPaths = []string{dir}
		cfg.WatchDebounce = 50 * time.Millisecond
		cfg.FailOnOrphans = true
		return cfg, dir
	}

	t.Run("scans at startup and keeps watching when orphans are found", func(t *testing.T) {
		t.Parallel()

		cfg, _ := watchConfig(t)
		driver := heroDriver()
		driver.launches = make(chan struct{}, 4)
		stop := start(t, cfg, driver)

		waitLaunch(t, driver.launches)
		if err := stop(); err != nil {
			t.Errorf("runScan() error = %v", err)
		}
	})

	t.Run("initial scan can be skipped", func(t *testing.T) {
		t.Parallel()

		cfg, dir := watchConfig(t)
		cfg.WatchInitialScan = false
		driver := heroDriver()
		driver.launches = make(chan struct{}, 4)
		stop := start(t, cfg, driver)

		select {
		case <-driver.launches:
			t.Fatal("unexpected scan before any change")
		case <-time.After(300 * time.Millisecond):
		}

		if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>spa</p>"), 0600); err != nil {
			t.Fatal(err)
		}
		waitLaunch(t, driver.launches)
		if err := stop(); err != nil {
			t.Errorf("runScan() error = %v", err)
		}
	})
}
