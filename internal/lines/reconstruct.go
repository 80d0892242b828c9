package lines

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/nao1215/orphanscan/internal/browser"
	"github.com/nao1215/orphanscan/internal/model"
)

const (
	// DefaultTolerance is the largest difference in rounded top coordinates,
	// in pixels, between characters of the same line.
	DefaultTolerance = 2

	// DefaultMaxOrphanChars is the longest last line still flagged as an orphan.
	DefaultMaxOrphanChars = 3
)

// Probe is the JavaScript function evaluated with the measured element as
// this. It returns a model.Measurement encoded as JSON.
//
//go:embed probe.js
var Probe string

// Reconstructor groups measured characters into rendered lines.
type Reconstructor struct {
	tolerance int
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithTolerance sets the line grouping tolerance in pixels.
// Negative values are ignored.
func WithTolerance(px int) Option {
	return func(r *Reconstructor) {
		if px >= 0 {
			r.tolerance = px
		}
	}
}

// New creates a Reconstructor using DefaultTolerance unless overridden.
func New(opts ...Option) *Reconstructor {
	r := &Reconstructor{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lines groups positions, given in document order, into rendered lines
// ordered top to bottom. Lines whose trimmed text is empty are dropped.
func (r *Reconstructor) Lines(positions []model.TextPosition) []model.RenderedLine {
	var (
		result []model.RenderedLine
		acc    strings.Builder
		open   bool
		refTop int
	)

	flush := func() {
		if line := model.NewRenderedLine(acc.String()); line.Text != "" {
			result = append(result, line)
		}
		acc.Reset()
	}

	for _, p := range positions {
		top := p.RoundedTop()

		// Leading whitespace of a visual line is never accumulated.
		if p.IsSpace() && acc.Len() == 0 {
			continue
		}

		switch {
		case !open:
			open = true
			refTop = top
			acc.WriteString(p.Char)
		case abs(top-refTop) > r.tolerance:
			// The crossing character opens the next line even when it is
			// whitespace; trimming removes it from the line's text.
			flush()
			refTop = top
			acc.WriteString(p.Char)
		default:
			acc.WriteString(p.Char)
		}
	}

	if open {
		flush()
	}
	return result
}

// Texts returns the text of each line.
func Texts(lines []model.RenderedLine) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}

// IsOrphan reports whether the last of several lines has at most maxChars
// characters. A single line is never an orphan.
func IsOrphan(lines []model.RenderedLine, maxChars int) bool {
	if len(lines) <= 1 {
		return false
	}
	return lines[len(lines)-1].Chars <= maxChars
}

// Measure evaluates Probe on el.
func Measure(ctx context.Context, el browser.Element) (*model.Measurement, error) {
	var m model.Measurement
	if err := el.Evaluate(ctx, Probe, &m); err != nil {
		return nil, fmt.Errorf("measure element: %w", err)
	}
	return &m, nil
}

// Reconstruct measures el and returns its rendered lines together with the
// element's rounded clientWidth. An element without text yields no lines.
func (r *Reconstructor) Reconstruct(ctx context.Context, el browser.Element) ([]model.RenderedLine, int, error) {
	m, err := Measure(ctx, el)
	if err != nil {
		return nil, 0, err
	}
	return r.Lines(m.Positions), m.Width(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
