package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/orphanscan/internal/model"
)

// ConsoleWriter prints findings in the terminal format:
//
//	========== SP (375px) ==========
//
//	ORPHAN [.hero-description] (width: 343px)
//	  L1: "Discover our" (12文字)
//	  L2: "amazing new" (11文字)
//	  L3: "spa" (3文字)
//
// It implements scanner.Sink for streaming and Writer for replaying a
// finished report.
type ConsoleWriter struct {
	baseWriter

	// summary appends a totals line after the last viewport.
	summary bool
}

// ConsoleWriterOption configures a ConsoleWriter.
type ConsoleWriterOption func(*ConsoleWriter)

// WithSummary appends a totals line when a whole report is written.
func WithSummary(summary bool) ConsoleWriterOption {
	return func(w *ConsoleWriter) {
		w.summary = summary
	}
}

// NewConsoleWriter creates a ConsoleWriter that outputs to the given writer.
func NewConsoleWriter(output io.Writer, opts ...ConsoleWriterOption) *ConsoleWriter {
	w := &ConsoleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// StartViewport prints the viewport header.
func (w *ConsoleWriter) StartViewport(vp model.Viewport) error {
	_, err := io.WriteString(w.output, formatHeader(vp))
	return err
}

// Finding prints one finding followed by a blank line.
func (w *ConsoleWriter) Finding(f model.OrphanFinding) error {
	_, err := io.WriteString(w.output, formatFinding(f))
	return err
}

// Write outputs every viewport of the report with its findings.
func (w *ConsoleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder
	for _, vp := range report.Viewports {
		sb.WriteString(formatHeader(vp.Viewport))
		for _, f := range vp.Findings {
			sb.WriteString(formatFinding(f))
		}
	}
	if w.summary {
		sb.WriteString(FormatSummary(report))
	}
	return io.WriteString(w.output, sb.String())
}

// FormatSummary returns the one-line totals of a report.
func FormatSummary(report *model.ScanReport) string {
	return fmt.Sprintf("%d orphan(s) in %d element(s) across %d viewport(s)\n",
		report.TotalFindings(), report.TotalElements(), len(report.Viewports))
}

func formatHeader(vp model.Viewport) string {
	return fmt.Sprintf("\n========== %s ==========\n\n", vp)
}

func formatFinding(f model.OrphanFinding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ORPHAN [%s] (width: %dpx)\n", f.Label(), f.ContainerWidth)
	for i, line := range f.Lines {
		fmt.Fprintf(&sb, "  L%d: \"%s\" (%d文字)\n", i+1, line.Text, line.Chars)
	}
	sb.WriteString("\n")
	return sb.String()
}
