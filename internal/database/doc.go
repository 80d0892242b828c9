// Package database provides SQLite-based storage for orphanscan run history.
//
// Every completed scan is stored as one row of the scan_runs table together
// with its full JSON report, so later runs can be compared against it.
// The database is a single file under the XDG data directory and uses the
// CGO-free modernc.org/sqlite driver in WAL mode.
package database
