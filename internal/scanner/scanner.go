package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/lines"
	"github.com/nao1215/orphanscan/internal/model"
	"github.com/nao1215/orphanscan/internal/pipeline"
)

// ErrNoDriver is returned by Run when the scanner has no browser driver.
var ErrNoDriver = errors.New("no browser driver configured")

// Sink receives scan progress as it happens.
type Sink interface {
	// StartViewport is called before a viewport's selectors are scanned.
	StartViewport(vp model.Viewport) error

	// Finding is called for every orphan, in scan order.
	Finding(f model.OrphanFinding) error
}

// Scanner orchestrates line reconstruction over viewports and selectors.
type Scanner struct {
	driver         browser.Driver
	targetURL      string
	viewports      []model.Viewport
	selectors      []string
	tolerance      int
	maxOrphanChars int
	sink           Sink
	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithTargetURL sets the page to scan.
func WithTargetURL(url string) Option {
	return func(s *Scanner) {
		s.targetURL = url
	}
}

// WithViewports sets the viewports, scanned in the given order.
func WithViewports(viewports ...model.Viewport) Option {
	return func(s *Scanner) {
		s.viewports = append([]model.Viewport(nil), viewports...)
	}
}

// WithSelectors sets the CSS selectors, scanned in the given order.
func WithSelectors(selectors ...string) Option {
	return func(s *Scanner) {
		s.selectors = append([]string(nil), selectors...)
	}
}

// WithTolerance sets the line grouping tolerance in pixels.
func WithTolerance(px int) Option {
	return func(s *Scanner) {
		s.tolerance = px
	}
}

// WithMaxOrphanChars sets the longest last line reported as an orphan.
func WithMaxOrphanChars(n int) Option {
	return func(s *Scanner) {
		s.maxOrphanChars = n
	}
}

// WithSink streams viewports and findings to sink during the scan.
func WithSink(sink Sink) Option {
	return func(s *Scanner) {
		s.sink = sink
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner that drives driver.
func New(driver browser.Driver, opts ...Option) *Scanner {
	s := &Scanner{
		driver:         driver,
		tolerance:      lines.DefaultTolerance,
		maxOrphanChars: lines.DefaultMaxOrphanChars,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run scans every viewport and selector and returns the report.
// On error the partial report is discarded.
func (s *Scanner) Run(ctx context.Context) (*model.ScanReport, error) {
	if s.driver == nil {
		return nil, ErrNoDriver
	}

	session, err := s.driver.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close browser session", "error", err)
		}
	}()

	report := model.NewScanReport(s.newID(), s.targetURL)
	report.DateScanned = s.now()

	p := pipeline.New(pipeline.WithLogger(s.logger))
	reconstructor := lines.New(lines.WithTolerance(s.tolerance))
	for _, vp := range s.viewports {
		p.AddStep(&viewportStep{
			scanner:       s,
			session:       session,
			reconstructor: reconstructor,
			viewport:      vp,
			targets:       model.Targets([]model.Viewport{vp}, s.selectors),
		})
	}

	s.logger.Info("starting orphan scan",
		"target", s.targetURL,
		"viewports", p.StepNames(),
		"selectors", len(s.selectors),
	)

	if err := p.Execute(ctx, report); err != nil {
		return nil, err
	}

	report.Duration = s.now().Sub(report.DateScanned)
	s.logger.Info("orphan scan completed",
		"target", s.targetURL,
		"elements", report.TotalElements(),
		"findings", report.TotalFindings(),
	)
	return report, nil
}

// viewportStep scans all selectors at one viewport.
type viewportStep struct {
	scanner       *Scanner
	session       browser.Session
	reconstructor *lines.Reconstructor
	viewport      model.Viewport
	targets       []model.ScanTarget
}

// Name returns the viewport name.
func (v *viewportStep) Name() string {
	return v.viewport.Name
}

// Do sets the viewport, reloads the page and measures every selector.
func (v *viewportStep) Do(ctx context.Context, report *model.ScanReport) error {
	s := v.scanner
	vp := v.viewport

	if s.sink != nil {
		if err := s.sink.StartViewport(vp); err != nil {
			return fmt.Errorf("report viewport %s: %w", vp.Name, err)
		}
	}

	if err := v.session.SetViewport(ctx, vp.Width, vp.Height); err != nil {
		return fmt.Errorf("viewport %s: %w", vp.Name, err)
	}
	if err := v.session.Navigate(ctx, s.targetURL); err != nil {
		return fmt.Errorf("viewport %s: %w", vp.Name, err)
	}

	result := model.ViewportResult{
		Viewport: vp,
		Findings: make([]model.OrphanFinding, 0),
	}

	for _, target := range v.targets {
		sel := target.Selector
		els, err := v.session.QueryAll(ctx, sel)
		if err != nil {
			return fmt.Errorf("viewport %s: %w", vp.Name, err)
		}
		s.logger.Debug("selector matched", "viewport", vp.Name, "selector", sel, "count", len(els))

		for i, el := range els {
			rendered, width, err := v.reconstructor.Reconstruct(ctx, el)
			if err != nil {
				return fmt.Errorf("viewport %s selector %q[%d]: %w", vp.Name, sel, i, err)
			}
			result.Elements++
			s.logger.Debug("element measured",
				"viewport", vp.Name,
				"selector", sel,
				"index", i,
				"width", width,
				"lines", lines.Texts(rendered),
			)

			if !lines.IsOrphan(rendered, s.maxOrphanChars) {
				continue
			}

			finding := model.OrphanFinding{
				Viewport:       vp.Name,
				Selector:       sel,
				Index:          i,
				Matched:        len(els),
				ContainerWidth: width,
				Lines:          rendered,
			}
			result.Findings = append(result.Findings, finding)

			if s.sink != nil {
				if err := s.sink.Finding(finding); err != nil {
					return fmt.Errorf("report finding %s: %w", finding.Label(), err)
				}
			}
		}
	}

	report.Viewports = append(report.Viewports, result)
	return nil
}
