// Package pipeline provides a runner that executes scan steps in sequence.
//
// An orphan scan is processed as an ordered list of steps, one per
// viewport. Each step receives the scan report and appends its results to
// it. Steps never overlap: the next step starts only after the previous one
// has returned, so a viewport change is always followed by a fresh page load
// before anything is measured again.
//
// Cancellation is checked between steps; steps handle their own timeouts.
package pipeline
