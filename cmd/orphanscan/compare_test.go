package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/orphanscan/internal/database"
	"github.com/nao1215/orphanscan/internal/model"
)

const compareTarget = "http://localhost:3456"

func orphan(viewport, selector string, index int, last string) model.OrphanFinding {
	return model.OrphanFinding{
		Viewport: viewport,
		Selector: selector,
		Index:    index,
		Matched:  1,
		Lines: []model.RenderedLine{
			model.NewRenderedLine("a long enough first line"),
			model.NewRenderedLine(last),
		},
	}
}

// newRun builds a report scanned at the given minute with one SP viewport.
func newRun(id string, minute int, elements int, findings ...model.OrphanFinding) *model.ScanReport {
	r := model.NewScanReport(id, compareTarget)
	r.DateScanned = time.Date(2026, 10, 1, 12, minute, 0, 0, time.UTC)
	r.Viewports = []model.ViewportResult{{
		Viewport: model.Viewport{Name: "SP", Width: 375, Height: 812},
		Elements: elements,
		Findings: findings,
	}}
	return r
}

func openTestDB(t *testing.T, runs ...*model.ScanReport) *database.RunDB {
	t.Helper()
	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, r := range runs {
		if err := db.SaveReport(t.Context(), r); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

// TestNewCompareCmd tests the compare command creation.
func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	if cmd.Use != "compare" {
		t.Errorf("expected use 'compare', got %q", cmd.Use)
	}
	for _, name := range []string{"config", "list", "limit", "with", "json", "markdown"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		t.Fatal(err)
	}
	if limit != defaultHistoryLimit {
		t.Errorf("limit default = %d, want %d", limit, defaultHistoryLimit)
	}
}

func TestCompareReports(t *testing.T) {
	t.Parallel()

	hero := orphan("SP", ".hero-description", 0, "spa")
	faq := orphan("SP", ".faq-a", 2, "です")
	cta := orphan("SP", ".cta-main", 0, "今すぐ")

	t.Run("new resolved and unchanged", func(t *testing.T) {
		t.Parallel()

		previous := newRun("prev", 0, 20, hero, faq)
		reworded := orphan("SP", ".hero-description", 0, "now")
		current := newRun("curr", 1, 21, reworded, cta)

		result := compareReports(previous, current)
		if result.UnchangedCount != 1 {
			t.Errorf("UnchangedCount = %d, want 1", result.UnchangedCount)
		}
		if diff := cmp.Diff([]model.OrphanFinding{cta}, result.NewFindings); diff != "" {
			t.Errorf("NewFindings mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]model.OrphanFinding{faq}, result.ResolvedFindings); diff != "" {
			t.Errorf("ResolvedFindings mismatch (-want +got):\n%s", diff)
		}
		if result.Trend != trendUnchanged {
			t.Errorf("Trend = %q, want %q", result.Trend, trendUnchanged)
		}
		if result.PreviousScan.ID != "prev" || result.CurrentScan.ID != "curr" {
			t.Errorf("unexpected scan metadata: %+v / %+v", result.PreviousScan, result.CurrentScan)
		}
		if result.CurrentScan.TotalElements != 21 {
			t.Errorf("TotalElements = %d, want 21", result.CurrentScan.TotalElements)
		}
	})

	tests := []struct {
		name     string
		previous []model.OrphanFinding
		current  []model.OrphanFinding
		want     string
	}{
		{name: "improved", previous: []model.OrphanFinding{hero, faq}, current: []model.OrphanFinding{hero}, want: trendImproved},
		{name: "worsened", previous: nil, current: []model.OrphanFinding{cta}, want: trendWorsened},
		{name: "clean twice", previous: nil, current: nil, want: trendUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := compareReports(newRun("a", 0, 10, tt.previous...), newRun("b", 1, 10, tt.current...))
			if result.Trend != tt.want {
				t.Errorf("Trend = %q, want %q", result.Trend, tt.want)
			}
		})
	}
}

func TestRunComparison(t *testing.T) {
	t.Parallel()

	hero := orphan("SP", ".hero-description", 0, "spa")
	first := newRun("11111111-aaaa", 0, 20, hero)
	second := newRun("22222222-bbbb", 1, 20)
	third := newRun("33333333-cccc", 2, 20, hero)

	t.Run("latest two runs", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t, first, second, third)
		result, err := runComparison(t.Context(), db, compareTarget, "")
		if err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		if result.PreviousScan.ID != second.ID || result.CurrentScan.ID != third.ID {
			t.Errorf("compared %s with %s", result.PreviousScan.ID, result.CurrentScan.ID)
		}
		if len(result.NewFindings) != 1 || result.Trend != trendWorsened {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("with id prefix", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t, first, second, third)
		result, err := runComparison(t.Context(), db, compareTarget, "1111")
		if err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		if result.PreviousScan.ID != first.ID {
			t.Errorf("PreviousScan.ID = %s, want %s", result.PreviousScan.ID, first.ID)
		}
		if result.UnchangedCount != 1 {
			t.Errorf("UnchangedCount = %d, want 1", result.UnchangedCount)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t, first, second)
		_, err := runComparison(t.Context(), db, compareTarget, "ffff")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("with the latest run", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t, first, second)
		if _, err := runComparison(t.Context(), db, compareTarget, second.ID); err == nil {
			t.Error("expected an error when comparing the latest run with itself")
		}
	})

	t.Run("other target", func(t *testing.T) {
		t.Parallel()

		other := newRun("44444444-dddd", 0, 5)
		other.TargetURL = "https://staging.example.com/"
		db := openTestDB(t, other, second)
		_, err := runComparison(t.Context(), db, compareTarget, "4444")
		if err == nil || !strings.Contains(err.Error(), "staging.example.com") {
			t.Errorf("expected target mismatch error, got %v", err)
		}
	})

	t.Run("single run", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t, first)
		_, err := runComparison(t.Context(), db, compareTarget, "")
		if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
			t.Errorf("expected at least 2 runs error, got %v", err)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		_, err := runComparison(t.Context(), db, compareTarget, "")
		if err == nil || !strings.Contains(err.Error(), "no scan history") {
			t.Errorf("expected no history error, got %v", err)
		}
	})
}

func TestComparisonOutput(t *testing.T) {
	t.Parallel()

	hero := orphan("SP", ".hero-description", 0, "spa")
	faq := orphan("SP", ".faq-a", 2, "です")
	result := compareReports(newRun("prev", 0, 20, faq), newRun("curr", 1, 20, hero))

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := outputComparisonText(&buf, result); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{
			"Orphan Comparison: " + compareTarget,
			"Trend: UNCHANGED",
			`[+] SP .hero-description: "spa"`,
			`[-] SP .faq-a: "です"`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := outputComparisonMarkdown(&buf, result); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"# Orphan Comparison", "## New Orphans (1)", "## Resolved Orphans (1)"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := outputComparisonJSON(&buf, result); err != nil {
			t.Fatal(err)
		}
		var got ComparisonResult
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Trend != trendUnchanged || len(got.NewFindings) != 1 || len(got.ResolvedFindings) != 1 {
			t.Errorf("unexpected decoded result: %+v", got)
		}
	})
}

func TestListRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listRunHistory(t.Context(), &buf, openTestDB(t), 0); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No scan runs found") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t,
			newRun("run-1", 0, 20),
			newRun("run-2", 1, 20, orphan("SP", ".hero-description", 0, "spa")),
			newRun("run-3", 2, 20),
		)
		var buf bytes.Buffer
		if err := listRunHistory(t.Context(), &buf, db, 2); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "Scan history (2 runs)") {
			t.Errorf("unexpected header: %s", out)
		}
		if !strings.Contains(out, "run-3") || !strings.Contains(out, "run-2") || strings.Contains(out, "run-1") {
			t.Errorf("expected the newest two runs:\n%s", out)
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{delta: 3, want: "+3"},
		{delta: 0, want: "0"},
		{delta: -2, want: "-2"},
	}
	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

func TestFormatTrend(t *testing.T) {
	t.Parallel()

	if got := formatTrend(trendImproved); !strings.HasPrefix(got, "IMPROVED") {
		t.Errorf("formatTrend(improved) = %q", got)
	}
	if got := formatTrend(trendWorsened); !strings.HasPrefix(got, "WORSENED") {
		t.Errorf("formatTrend(worsened) = %q", got)
	}
	if got := formatTrend("anything"); got != "UNCHANGED" {
		t.Errorf("formatTrend(other) = %q", got)
	}
}
