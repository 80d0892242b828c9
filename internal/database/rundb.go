package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/orphanscan/internal/model"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "orphanscan.db"

var (
	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("scan run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("scan run id prefix is ambiguous")
)

// timestampLayout is fixed width so that text ordering equals time ordering.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// RunDB provides SQLite-based storage for scan runs.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		finding_count INTEGER NOT NULL DEFAULT 0,
		element_count INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON scan_runs(target_url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON scan_runs(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata summarizes a stored run without its full report.
type RunMetadata struct {
	// ID is the run's UUID.
	ID string

	// TargetURL is the scanned page.
	TargetURL string

	// Timestamp is when the scan started.
	Timestamp time.Time

	// FindingCount is the number of orphans found.
	FindingCount int

	// ElementCount is the number of elements measured.
	ElementCount int
}

// SaveReport stores a completed scan. The report ID must be unique.
func (rdb *RunDB) SaveReport(ctx context.Context, report *model.ScanReport) error {
	if report.ID == "" {
		return errors.New("failed to save scan report: report has no id")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO scan_runs (id, target_url, timestamp, finding_count, element_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = rdb.db.ExecContext(ctx, query,
		report.ID,
		report.TargetURL,
		report.DateScanned.UTC().Format(timestampLayout),
		report.TotalFindings(),
		report.TotalElements(),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	return nil
}

// ListRuns returns run metadata, newest first. A limit of zero or less
// returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, target_url, timestamp, finding_count, element_count
	FROM scan_runs
	ORDER BY timestamp DESC, rowid DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := rdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		if err := rows.Scan(&meta.ID, &meta.TargetURL, &timestamp, &meta.FindingCount, &meta.ElementCount); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun returns the run whose ID equals id or starts with it.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.ScanReport, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}

	query := `
	SELECT report_json FROM scan_runs
	WHERE id = ? OR id LIKE ? || '%'
	LIMIT 2
	`

	rows, err := rdb.db.QueryContext(ctx, query, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		found = append(found, reportJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return decodeReport(found[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// LatestRuns returns up to n full reports for targetURL, newest first.
func (rdb *RunDB) LatestRuns(ctx context.Context, targetURL string, n int) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_runs
	WHERE target_url = ?
	ORDER BY timestamp DESC, rowid DESC
	LIMIT ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, targetURL, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan runs: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func decodeReport(reportJSON string) (*model.ScanReport, error) {
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
