// Package model defines the core data structures used throughout orphanscan.
//
// This package contains the following main types:
//   - Viewport: A named browser window size the page is rendered at
//   - TextPosition: The measured geometry of one rendered character
//   - RenderedLine: One visually rendered line reconstructed from positions
//   - OrphanFinding: An element whose last rendered line is too short
//   - ScanReport: The result of scanning every viewport and selector
//
// Models live in their own package so that the scanner, report writers and
// the history database can share them without import cycles. All of them
// serialize to JSON for report output and database storage.
package model
