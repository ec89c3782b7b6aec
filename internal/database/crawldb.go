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

	"github.com/nao1215/contactscan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "contactscan.db"

// ErrReportNotFound is returned when no report matches a lookup.
var ErrReportNotFound = errors.New("crawl report not found")

// Contact kinds stored in the contacts table.
const (
	KindEmail = "email"
	KindPhone = "phone"
)

// CrawlDB is the crawl history store.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_reports (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		host TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT 'any',
		pages_visited INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		emails TEXT NOT NULL DEFAULT '[]',
		phones TEXT NOT NULL DEFAULT '[]',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_host ON crawl_reports(host);
	CREATE INDEX IF NOT EXISTS idx_reports_finished ON crawl_reports(finished_at);

	CREATE TABLE IF NOT EXISTS contacts (
		report_id TEXT NOT NULL REFERENCES crawl_reports(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (report_id, kind, value)
	);

	CREATE INDEX IF NOT EXISTS idx_contacts_value ON contacts(value);
	`
	_, err := cdb.db.ExecContext(ctx, schema)
	return err
}

// SaveReport stores report and its contacts in one transaction. Saving a
// report with an existing ID replaces it.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (err error) {
	emails, err := json.Marshal(nonNil(report.Emails))
	if err != nil {
		return fmt.Errorf("failed to serialize emails: %w", err)
	}
	phones, err := json.Marshal(nonNil(report.Phones))
	if err != nil {
		return fmt.Errorf("failed to serialize phones: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM contacts WHERE report_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_reports (id, start_url, host, country, pages_visited, pages_failed, emails, phones, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		start_url = excluded.start_url,
		host = excluded.host,
		country = excluded.country,
		pages_visited = excluded.pages_visited,
		pages_failed = excluded.pages_failed,
		emails = excluded.emails,
		phones = excluded.phones,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at
	`,
		report.ID,
		report.StartURL,
		report.Host,
		string(report.Country),
		report.PagesVisited,
		report.PagesFailed,
		string(emails),
		string(phones),
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO contacts (report_id, kind, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare contact insert: %w", err)
	}
	defer stmt.Close()

	for kind, values := range map[string][]string{KindEmail: report.Emails, KindPhone: report.Phones} {
		for _, v := range values {
			if _, err = stmt.ExecContext(ctx, report.ID, kind, v); err != nil {
				return fmt.Errorf("failed to save contact: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit crawl report: %w", err)
	}
	return nil
}

const reportColumns = `id, start_url, host, country, pages_visited, pages_failed, emails, phones, started_at, finished_at`

// GetReport returns the report with the given ID.
func (cdb *CrawlDB) GetReport(ctx context.Context, id string) (*model.CrawlReport, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM crawl_reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return report, err
}

// ListReports returns the most recently finished reports, newest first.
// A limit of zero or less returns all of them.
func (cdb *CrawlDB) ListReports(ctx context.Context, limit int) ([]*model.CrawlReport, error) {
	query := `SELECT ` + reportColumns + ` FROM crawl_reports ORDER BY finished_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return cdb.queryReports(ctx, query, args...)
}

// LatestReports returns up to n reports for host, newest first.
func (cdb *CrawlDB) LatestReports(ctx context.Context, host string, n int) ([]*model.CrawlReport, error) {
	if n <= 0 {
		n = 1
	}
	return cdb.queryReports(ctx,
		`SELECT `+reportColumns+` FROM crawl_reports WHERE host = ? ORDER BY finished_at DESC, id LIMIT ?`,
		host, n,
	)
}

// Sighting is one report in which a contact value appeared.
type Sighting struct {
	ReportID   string
	Host       string
	Kind       string
	FinishedAt time.Time
}

// FindContact returns every crawl in which value was found, newest first.
// Emails are matched case-insensitively.
func (cdb *CrawlDB) FindContact(ctx context.Context, value string) ([]Sighting, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT c.report_id, r.host, c.kind, r.finished_at
	FROM contacts c JOIN crawl_reports r ON r.id = c.report_id
	WHERE (c.kind = 'email' AND c.value = lower(?)) OR (c.kind = 'phone' AND c.value = ?)
	ORDER BY r.finished_at DESC
	`, value, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var s Sighting
		var finished string
		if err := rows.Scan(&s.ReportID, &s.Host, &s.Kind, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		s.FinishedAt = parseTimestamp(finished)
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}

func (cdb *CrawlDB) queryReports(ctx context.Context, query string, args ...any) ([]*model.CrawlReport, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.CrawlReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*model.CrawlReport, error) {
	var (
		r                 model.CrawlReport
		country           string
		emails, phones    string
		started, finished string
	)
	err := s.Scan(&r.ID, &r.StartURL, &r.Host, &country, &r.PagesVisited, &r.PagesFailed,
		&emails, &phones, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan crawl report: %w", err)
	}

	r.Country = model.ParseCountryHint(country)
	if err := json.Unmarshal([]byte(emails), &r.Emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(phones), &r.Phones); err != nil {
		return nil, fmt.Errorf("failed to decode phones of %s: %w", r.ID, err)
	}
	r.Emails = nonNil(r.Emails)
	r.Phones = nonNil(r.Phones)
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// formatTimestamp stores times in UTC with a fixed-width layout so that
// lexical ORDER BY matches chronological order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

var timestampFormats = []string{
	"2006-01-02T15:04:05.000000000Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when s matches no known layout.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
