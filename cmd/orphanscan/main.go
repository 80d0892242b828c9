// Package main provides the entry point for the orphanscan CLI.
//
// orphanscan loads a page in headless Chrome at several viewport widths and
// reports text blocks whose last rendered line holds only a few characters.
//
// Usage:
//
//	orphanscan scan
//	orphanscan scan --watch ./src
//	orphanscan compare
//
// See --help for all available options.
package main

func main() {
	Execute()
}
