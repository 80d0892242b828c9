// Package scanner detects orphan lines across viewports and selectors.
//
// A Scanner launches one browser session and, for every viewport in order,
// resizes the page, reloads the target URL, and measures every element
// matched by every selector. Elements whose last rendered line is at most
// MaxOrphanChars characters long are reported as findings.
//
// The scan is a diagnostic: it never stops on a finding. Any failure of
// the browser (launch, navigation, evaluation) aborts the run, and the
// browser session is closed in every case.
package scanner
