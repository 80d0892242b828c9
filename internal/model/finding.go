package model

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"
)

// OrphanFinding records an element whose last rendered line is short
// enough to be considered an orphan.
type OrphanFinding struct {
	// Viewport is the name of the viewport the element was measured at.
	Viewport string `json:"viewport"`

	// Selector is the CSS selector that matched the element.
	Selector string `json:"selector"`

	// Index is the element's position among the selector's matches.
	Index int `json:"index"`

	// Matched is how many elements the selector matched in total.
	Matched int `json:"matched"`

	// ContainerWidth is the rounded clientWidth of the element.
	ContainerWidth int `json:"containerWidth"`

	// Lines are the reconstructed lines, top to bottom.
	Lines []RenderedLine `json:"lines"`
}

// Label returns the selector, suffixed with "[index]" when the selector
// matched more than one element.
func (f OrphanFinding) Label() string {
	if f.Matched > 1 {
		return f.Selector + "[" + strconv.Itoa(f.Index) + "]"
	}
	return f.Selector
}

// LastLine returns the flagged last line.
func (f OrphanFinding) LastLine() RenderedLine {
	if len(f.Lines) == 0 {
		return RenderedLine{}
	}
	return f.Lines[len(f.Lines)-1]
}

// Fingerprint identifies the finding's location across scans.
// Line text is not included, so a reworded orphan keeps its fingerprint.
func (f OrphanFinding) Fingerprint() string {
	sum := sha3.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", f.Viewport, f.Selector, f.Index)))
	return hex.EncodeToString(sum[:8])
}
