// Package report provides output formatters for orphan scan results.
//
// Supported formats:
//   - Console: the human-readable format printed while the scan runs
//   - JSON: machine-readable format for tool integration
//   - Markdown: documentation-friendly format for sharing in reviews
//
// ConsoleWriter also implements scanner.Sink, so findings can be printed as
// soon as they are detected instead of after the whole scan.
package report
