package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/lines"
	"github.com/nao1215/orphanscan/internal/model"
	"github.com/nao1215/orphanscan/internal/watch"
)

// Default configuration values.
const (
	// DefaultTargetURL is the local development server of the landing page.
	DefaultTargetURL = "http://localhost:3456"

	// DefaultTolerance is the largest difference in rounded top
	// coordinates, in pixels, between characters of one rendered line.
	DefaultTolerance = lines.DefaultTolerance

	// DefaultMaxOrphanChars is the longest last line reported as an orphan.
	DefaultMaxOrphanChars = lines.DefaultMaxOrphanChars

	// DefaultNavigationTimeout bounds each page load including the wait for
	// network idle.
	DefaultNavigationTimeout = browser.DefaultNavigationTimeout

	// DefaultWatchDebounce collapses bursts of file events into one rescan.
	DefaultWatchDebounce = watch.DefaultDebounce

	// AppName is the application name used for XDG directory paths.
	AppName = "orphanscan"
)

// DefaultViewports are the viewports scanned when none are configured:
// a desktop width and a smartphone width.
var DefaultViewports = []model.Viewport{
	{Name: "PC", Width: 1200, Height: 900},
	{Name: "SP", Width: 375, Height: 812},
}

// DefaultSelectors are the landing page sections checked for orphans.
var DefaultSelectors = []string{
	".value-description",
	".value-title",
	".section-title",
	".sauna-lead",
	".sauna-description",
	".private-design-lead",
	".private-design-description",
	".bbq-nabe-description",
	".bbq-nabe-closing",
	".kitchen-lead",
	".kitchen-closing",
	".features-lead",
	".amenities-lead",
	".nearby-lead",
	".nearby-closing",
	".pricing-tagline",
	".pricing-note",
	".hero-description",
	".benefits-note",
	".testimonials-lead",
}

// Config holds all configuration options for orphanscan.
// It is populated from defaults, the configuration file and CLI flags, in
// that order, and passed explicitly to the components that need it.
type Config struct {
	// TargetURL is the page to scan. It can only be changed in the
	// configuration file.
	TargetURL string

	// Viewports are scanned in order.
	Viewports []model.Viewport

	// Selectors are scanned in order at every viewport.
	Selectors []string

	// Tolerance is the line grouping tolerance in pixels.
	Tolerance int

	// MaxOrphanChars is the longest last line reported as an orphan.
	MaxOrphanChars int

	// NavigationTimeout bounds each page load.
	NavigationTimeout time.Duration

	// Headless runs Chrome without a window.
	Headless bool

	// BrowserBin is the Chrome/Chromium binary. Empty lets rod find one.
	BrowserBin string

	// NoSandbox disables the Chrome sandbox.
	NoSandbox bool

	// Headers are extra HTTP headers sent with every page request.
	Headers map[string]string

	// Cookie is sent with every page request when not empty.
	Cookie string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicitly requested configuration file.
	ConfigFilePath string

	// JSONReport writes the report as JSON. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the report as Markdown. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores each completed scan in the history database.
	SaveToDB bool

	// FailOnOrphans makes the scan command fail when orphans are found.
	FailOnOrphans bool

	// WatchPaths trigger a rescan when files under them change.
	WatchPaths []string

	// WatchDebounce is the quiet period before a rescan is triggered.
	WatchDebounce time.Duration

	// WatchInitialScan scans once when watching starts, before any change.
	WatchInitialScan bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TargetURL:         DefaultTargetURL,
		Viewports:         append([]model.Viewport(nil), DefaultViewports...),
		Selectors:         append([]string(nil), DefaultSelectors...),
		Tolerance:         DefaultTolerance,
		MaxOrphanChars:    DefaultMaxOrphanChars,
		NavigationTimeout: DefaultNavigationTimeout,
		Headless:          true,
		WatchDebounce:     DefaultWatchDebounce,
		WatchInitialScan:  true,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for orphanscan.
// On Linux: ~/.local/share/orphanscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTargetURL
	}

	if len(c.Viewports) == 0 {
		return ErrNoViewports
	}
	for _, vp := range c.Viewports {
		if vp.Name == "" || vp.Width <= 0 || vp.Height <= 0 {
			return fmt.Errorf("%w: %+v", ErrInvalidViewport, vp)
		}
	}

	if len(c.Selectors) == 0 {
		return ErrNoSelectors
	}

	if c.Tolerance < 0 {
		return ErrInvalidTolerance
	}

	if c.MaxOrphanChars <= 0 {
		return ErrInvalidMaxOrphanChars
	}

	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.WatchDebounce < 0 {
		return ErrInvalidDebounce
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
