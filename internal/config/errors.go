package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() for programmatic handling.
var (
	// ErrInvalidTargetURL is returned when the target URL is empty or not
	// an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid target url: must be an absolute http or https URL")

	// ErrNoViewports is returned when no viewport is configured.
	ErrNoViewports = errors.New("no viewports configured")

	// ErrInvalidViewport is returned when a viewport has no name or a
	// non-positive size.
	ErrInvalidViewport = errors.New("invalid viewport: name is required and width/height must be positive")

	// ErrNoSelectors is returned when no CSS selector is configured.
	ErrNoSelectors = errors.New("no selectors configured")

	// ErrInvalidTolerance is returned when the line tolerance is negative.
	ErrInvalidTolerance = errors.New("invalid tolerance: must be non-negative")

	// ErrInvalidMaxOrphanChars is returned when the orphan threshold is not positive.
	ErrInvalidMaxOrphanChars = errors.New("invalid max orphan chars: must be positive")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDebounce is returned when the watch debounce is negative.
	ErrInvalidDebounce = errors.New("invalid debounce: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
