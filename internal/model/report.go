package model

import "time"

// ViewportResult holds the outcome of scanning one viewport.
type ViewportResult struct {
	Viewport Viewport `json:"viewport"`

	// Elements is the number of elements measured at this viewport.
	Elements int `json:"elements"`

	// Findings are the orphans found, in selector and document order.
	Findings []OrphanFinding `json:"findings"`
}

// ScanReport is the complete result of one orphan scan.
type ScanReport struct {
	// ID uniquely identifies the scan run in the history database.
	ID string `json:"id"`

	// TargetURL is the page that was scanned.
	TargetURL string `json:"targetUrl"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"dateScanned"`

	// Duration is how long the scan took.
	Duration time.Duration `json:"duration"`

	// Viewports holds one result per scanned viewport, in scan order.
	Viewports []ViewportResult `json:"viewports"`
}

// NewScanReport creates an empty report for the given target.
func NewScanReport(id, targetURL string) *ScanReport {
	return &ScanReport{
		ID:          id,
		TargetURL:   targetURL,
		DateScanned: time.Now(),
		Viewports:   make([]ViewportResult, 0),
	}
}

// TotalFindings returns the number of findings across all viewports.
func (r *ScanReport) TotalFindings() int {
	total := 0
	for _, vp := range r.Viewports {
		total += len(vp.Findings)
	}
	return total
}

// TotalElements returns the number of measured elements across all viewports.
func (r *ScanReport) TotalElements() int {
	total := 0
	for _, vp := range r.Viewports {
		total += vp.Elements
	}
	return total
}

// HasFindings reports whether any orphan was found.
func (r *ScanReport) HasFindings() bool {
	return r.TotalFindings() > 0
}

// Findings returns every finding in scan order.
func (r *ScanReport) Findings() []OrphanFinding {
	all := make([]OrphanFinding, 0, r.TotalFindings())
	for _, vp := range r.Viewports {
		all = append(all, vp.Findings...)
	}
	return all
}
