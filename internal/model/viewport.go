package model

import "fmt"

// Viewport is a named browser window size.
// The page is reloaded at every viewport before it is measured.
type Viewport struct {
	// Name is the label printed in report headers (e.g. "PC", "SP").
	Name string `json:"name" yaml:"name"`

	// Width is the viewport width in CSS pixels.
	Width int `json:"width" yaml:"width"`

	// Height is the viewport height in CSS pixels.
	Height int `json:"height" yaml:"height"`
}

// String returns the viewport as "<name> (<width>px)".
func (v Viewport) String() string {
	return fmt.Sprintf("%s (%dpx)", v.Name, v.Width)
}

// ScanTarget identifies one selector inspected at one viewport.
type ScanTarget struct {
	Selector string   `json:"selector"`
	Viewport Viewport `json:"viewport"`
}

// Targets enumerates every (selector, viewport) pair in scan order:
// viewports outermost, selectors in list order inside each viewport.
func Targets(viewports []Viewport, selectors []string) []ScanTarget {
	targets := make([]ScanTarget, 0, len(viewports)*len(selectors))
	for _, vp := range viewports {
		for _, sel := range selectors {
			targets = append(targets, ScanTarget{Selector: sel, Viewport: vp})
		}
	}
	return targets
}
