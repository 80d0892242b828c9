package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/orphanscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// The output is meant to be pasted into a pull request or issue.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeViewports(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Orphan Line Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.TargetURL + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Run ID", "`" + report.ID + "`"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Viewports)+1)
	for _, vp := range report.Viewports {
		rows = append(rows, []string{
			vp.Viewport.String(),
			strconv.Itoa(vp.Elements),
			strconv.Itoa(len(vp.Findings)),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + strconv.Itoa(report.TotalElements()) + "**",
		"**" + strconv.Itoa(report.TotalFindings()) + "**",
	})

	md.Table(markdown.TableSet{
		Header: []string{"Viewport", "Elements", "Orphans"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasFindings() && len(report.Viewports) > 1 {
		w.writePieChart(md, report)
	}

	if report.HasFindings() {
		md.Warningf("%d orphan line(s) detected. Adjust the copy or insert line breaks.", report.TotalFindings())
	} else {
		md.Tip("No orphan lines detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Orphans per Viewport"),
		piechart.WithShowData(true),
	)
	for _, vp := range report.Viewports {
		if len(vp.Findings) > 0 {
			chart.LabelAndIntValue(vp.Viewport.Name, uint64(len(vp.Findings)))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeViewports(md *markdown.Markdown, report *model.ScanReport) {
	for _, vp := range report.Viewports {
		md.H2(vp.Viewport.String())
		md.PlainText("")

		if len(vp.Findings) == 0 {
			md.PlainText("No orphan lines.")
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(vp.Findings))
		for i, f := range vp.Findings {
			last := f.LastLine()
			rows[i] = []string{
				"`" + f.Label() + "`",
				strconv.Itoa(f.ContainerWidth) + "px",
				strconv.Itoa(len(f.Lines)),
				last.Text,
				strconv.Itoa(last.Chars),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Element", "Width", "Lines", "Last Line", "Chars"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range vp.Findings {
			items := make([]string, len(f.Lines))
			for i, line := range f.Lines {
				items[i] = "L" + strconv.Itoa(i+1) + ": " + line.Text + " (" + strconv.Itoa(line.Chars) + ")"
			}
			md.PlainText("**" + f.Label() + "**")
			md.PlainText("")
			md.BulletList(items...)
			md.PlainText("")
		}
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by orphanscan*")
}
