// Package lines reconstructs visually rendered text lines from per-character
// geometry.
//
// The DOM reports one box per element, not one per visual line, and wrapped
// text carries no line-boundary markup. The in-page Probe therefore moves a
// Range over every character under an element and records the top edge of
// each character's bounding rectangle. Reconstructor groups consecutive
// characters whose rounded tops stay within a tolerance of the line's first
// character; crossing the tolerance starts a new line.
//
// The character stream is continuous across text nodes, so text split by
// inline markup (<em>, <br>, <span>) is compared against the same reference
// top.
package lines
