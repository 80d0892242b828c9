// Package watch reruns a function whenever files under a set of paths change.
//
// Bursts of file events are collapsed by a debounce timer, and the function
// never runs concurrently with itself: events that arrive while it runs
// queue at most one further run.
package watch
