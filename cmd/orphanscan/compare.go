package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/orphanscan/internal/database"
	"github.com/nao1215/orphanscan/internal/model"
	"github.com/spf13/cobra"
)

// Trend values of a comparison.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
)

// defaultHistoryLimit is the number of runs printed by --list.
const defaultHistoryLimit = 20

// NewCompareCmd creates the compare command.
// This command compares scan runs stored in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the latest scan with an earlier one",
		Long: `Compare shows which orphans appeared or disappeared between two scan runs
of the configured page.

Findings are matched by location (viewport, selector and element index), so an
orphan whose wording changed but which is still an orphan counts as unchanged.

Examples:
  # Compare the latest two runs
  orphanscan compare

  # List the run history
  orphanscan compare --list

  # Compare the latest run with a specific run (ID prefixes work)
  orphanscan compare --with 3a1f0c9e

  # Output the comparison as JSON
  orphanscan compare --json`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .orphanscan in current or home directory)")
	cmd.Flags().BoolP("list", "l", false,
		"List the run history")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs shown by --list (0 for all)")
	cmd.Flags().StringP("with", "i", "",
		"Compare with the run of this ID instead of the previous run")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	withID, err := cmd.Flags().GetString("with")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if listHistory {
		return listRunHistory(ctx, out, db, limit)
	}

	result, err := runComparison(ctx, db, cfg.TargetURL, withID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// listRunHistory prints stored runs, newest first.
func listRunHistory(ctx context.Context, out io.Writer, db *database.RunDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No scan runs found in the database.")
		fmt.Fprintln(out, "\nUse 'orphanscan scan' to scan a page.")
		return nil
	}

	fmt.Fprintf(out, "Scan history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %7s  %8s  %s\n", "ID", "Date", "Orphans", "Elements", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %7d  %8d  %s\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.FindingCount,
			run.ElementCount,
			run.TargetURL,
		)
	}

	fmt.Fprintln(out, "\nUse 'orphanscan compare' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'orphanscan compare --with <id>' to compare with a specific run.")

	return nil
}

// runComparison loads the latest run of targetURL and the run to compare it
// with: withID when given, the previous run otherwise.
func runComparison(ctx context.Context, db *database.RunDB, targetURL, withID string) (*ComparisonResult, error) {
	limit := 2
	if withID != "" {
		limit = 1
	}

	reports, err := db.LatestRuns(ctx, targetURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no scan history found for %s", targetURL)
	}

	current := reports[0]
	var previous *model.ScanReport

	if withID != "" {
		previous, err = db.GetRun(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", withID, err)
		}
		if previous.TargetURL != targetURL {
			return nil, fmt.Errorf("run %s scanned %s, not %s", withID, previous.TargetURL, targetURL)
		}
		if previous.ID == current.ID {
			return nil, fmt.Errorf("run %s is the latest run; choose an earlier run", withID)
		}
	} else {
		if len(reports) < 2 {
			return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(reports))
		}
		previous = reports[1]
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two scan runs.
type ComparisonResult struct {
	// TargetURL is the scanned page.
	TargetURL string `json:"target_url"`

	// PreviousScan contains metadata about the earlier run.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan contains metadata about the later run.
	CurrentScan ScanMetadata `json:"current_scan"`

	// NewFindings are orphans present only in the current run.
	NewFindings []model.OrphanFinding `json:"new_findings,omitempty"`

	// ResolvedFindings are orphans present only in the previous run.
	ResolvedFindings []model.OrphanFinding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of orphans present in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Trend is "improved", "worsened", or "unchanged".
	Trend string `json:"trend"`
}

// ScanMetadata contains metadata about a run for comparison display.
type ScanMetadata struct {
	ID            string    `json:"id"`
	DateScanned   time.Time `json:"date_scanned"`
	TotalFindings int       `json:"total_findings"`
	TotalElements int       `json:"total_elements"`
}

func newScanMetadata(r *model.ScanReport) ScanMetadata {
	return ScanMetadata{
		ID:            r.ID,
		DateScanned:   r.DateScanned,
		TotalFindings: r.TotalFindings(),
		TotalElements: r.TotalElements(),
	}
}

// compareReports matches findings of two runs by fingerprint.
// New and resolved findings keep scan order.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		TargetURL:    current.TargetURL,
		PreviousScan: newScanMetadata(previous),
		CurrentScan:  newScanMetadata(current),
	}

	previousKeys := make(map[string]bool)
	for _, f := range previous.Findings() {
		previousKeys[f.Fingerprint()] = true
	}
	currentKeys := make(map[string]bool)
	for _, f := range current.Findings() {
		currentKeys[f.Fingerprint()] = true
	}

	for _, f := range current.Findings() {
		if previousKeys[f.Fingerprint()] {
			result.UnchangedCount++
		} else {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for _, f := range previous.Findings() {
		if !currentKeys[f.Fingerprint()] {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	switch delta := result.CurrentScan.TotalFindings - result.PreviousScan.TotalFindings; {
	case delta < 0:
		result.Trend = trendImproved
	case delta > 0:
		result.Trend = trendWorsened
	default:
		result.Trend = trendUnchanged
	}

	return result
}

func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Orphan Comparison")
	md.PlainText("")
	md.PlainTextf("**Target:** `%s`", result.TargetURL)
	md.PlainText("")
	md.PlainTextf("**Trend:** %s", formatTrend(result.Trend))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "`" + result.PreviousScan.ID + "`", "`" + result.CurrentScan.ID + "`", "-"},
			{"Date", result.PreviousScan.DateScanned.Format("2006-01-02 15:04"), result.CurrentScan.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Orphans", strconv.Itoa(result.PreviousScan.TotalFindings), strconv.Itoa(result.CurrentScan.TotalFindings),
				formatDelta(result.CurrentScan.TotalFindings - result.PreviousScan.TotalFindings)},
			{"Elements", strconv.Itoa(result.PreviousScan.TotalElements), strconv.Itoa(result.CurrentScan.TotalElements),
				formatDelta(result.CurrentScan.TotalElements - result.PreviousScan.TotalElements)},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Orphans (%d)", len(result.NewFindings)))
		md.PlainText("")
		md.BulletList(describeFindings(result.NewFindings)...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Orphans (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		md.BulletList(describeFindings(result.ResolvedFindings)...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d orphan(s) unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Orphan Comparison: %s\n", result.TargetURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nTrend: %s\n", formatTrend(result.Trend))

	fmt.Fprintf(out, "\nPrevious run: %s  %s\n", result.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"), result.PreviousScan.ID)
	fmt.Fprintf(out, "Current run:  %s  %s\n", result.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"), result.CurrentScan.ID)

	fmt.Fprintf(out, "\n  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Orphans",
		result.PreviousScan.TotalFindings, result.CurrentScan.TotalFindings,
		formatDelta(result.CurrentScan.TotalFindings-result.PreviousScan.TotalFindings))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Elements",
		result.PreviousScan.TotalElements, result.CurrentScan.TotalElements,
		formatDelta(result.CurrentScan.TotalElements-result.PreviousScan.TotalElements))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Orphans (%d):\n", len(result.NewFindings))
		for _, d := range describeFindings(result.NewFindings) {
			fmt.Fprintf(out, "  [+] %s\n", d)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Orphans (%d):\n", len(result.ResolvedFindings))
		for _, d := range describeFindings(result.ResolvedFindings) {
			fmt.Fprintf(out, "  [-] %s\n", d)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d orphan(s)\n", result.UnchangedCount)
	}

	return nil
}

// describeFindings formats each finding as `<viewport> <label>: "<last line>"`.
func describeFindings(findings []model.OrphanFinding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = fmt.Sprintf("%s %s: %q", f.Viewport, f.Label(), f.LastLine().Text)
	}
	return out
}

func formatTrend(trend string) string {
	switch trend {
	case trendImproved:
		return "IMPROVED (fewer orphans)"
	case trendWorsened:
		return "WORSENED (more orphans)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
