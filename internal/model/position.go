package model

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextPosition is a single rendered character with the top edge of its
// bounding box. Positions are produced in document order by the in-page
// probe and discarded once lines have been reconstructed.
type TextPosition struct {
	// Node is the ordinal of the text node the character belongs to.
	Node int `json:"node"`

	// Index is the character offset within its text node.
	Index int `json:"index"`

	// Top is the unrounded top coordinate reported by the browser.
	Top float64 `json:"top"`

	// Char is the character itself (one code point).
	Char string `json:"char"`
}

// RoundedTop returns Top rounded to integer pixels.
// Halves round toward positive infinity, matching the browser's Math.round.
func (p TextPosition) RoundedTop() int {
	return roundHalfUp(p.Top)
}

// IsSpace reports whether the character is whitespace only.
func (p TextPosition) IsSpace() bool {
	return TrimSpace(p.Char) == ""
}

// Measurement is the raw result of measuring one element in the page.
type Measurement struct {
	// Positions holds every character under the element in document order.
	Positions []TextPosition `json:"positions"`

	// ClientWidth is the element's clientWidth.
	ClientWidth float64 `json:"clientWidth"`
}

// Width returns the element width rounded to integer pixels.
func (m *Measurement) Width() int {
	return roundHalfUp(m.ClientWidth)
}

// RenderedLine is one visually rendered line of text.
type RenderedLine struct {
	// Text is the trimmed text of the line.
	Text string `json:"text"`

	// Chars is the number of characters (code points) in Text.
	Chars int `json:"chars"`
}

// NewRenderedLine trims text and counts its characters.
func NewRenderedLine(text string) RenderedLine {
	trimmed := TrimSpace(text)
	return RenderedLine{
		Text:  trimmed,
		Chars: utf8.RuneCountInString(trimmed),
	}
}

// TrimSpace removes leading and trailing whitespace as the browser's
// String.prototype.trim does. Unlike strings.TrimSpace, U+FEFF is trimmed
// and U+0085 is kept.
func TrimSpace(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u00a0', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
