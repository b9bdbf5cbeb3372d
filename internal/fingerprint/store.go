package fingerprint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dupecull/internal/identity"
)

// Store manages fingerprint persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the fingerprint database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the record stored for the exact identifier, or ok=false when the
// identifier is unknown.
func (s *Store) Get(ctx context.Context, id identity.Identifier) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM fingerprints WHERE uri = ?", string(id))
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query fingerprint: %w", err)
	}
	return rec, true, nil
}

// Put inserts or updates the record for its identifier. Records held by other
// identifiers are never touched, even when they share the same hash value.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.CalculatedAt.IsZero() {
		rec.CalculatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO fingerprints (
            uri, base_uri, format, archive, hash, algorithm, hash_size,
            file_size, width, height, calculated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(uri) DO UPDATE SET
            base_uri = excluded.base_uri,
            format = excluded.format,
            archive = excluded.archive,
            hash = excluded.hash,
            algorithm = excluded.algorithm,
            hash_size = excluded.hash_size,
            file_size = excluded.file_size,
            width = excluded.width,
            height = excluded.height,
            calculated_at = excluded.calculated_at`,
		rec.URI, rec.BaseURI, nullable(rec.Format), nullable(rec.Archive),
		rec.Hash, rec.Algorithm, rec.HashSize,
		nullableInt64(rec.FileSize), nullableInt(rec.Width), nullableInt(rec.Height),
		rec.CalculatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert fingerprint: %w", err)
	}
	return nil
}

// PutBatch writes records inside one transaction. Used by the coordinator when
// merging worker results.
func (s *Store) PutBatch(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO fingerprints (
            uri, base_uri, format, archive, hash, algorithm, hash_size,
            file_size, width, height, calculated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(uri) DO UPDATE SET
            base_uri = excluded.base_uri,
            format = excluded.format,
            archive = excluded.archive,
            hash = excluded.hash,
            algorithm = excluded.algorithm,
            hash_size = excluded.hash_size,
            file_size = excluded.file_size,
            width = excluded.width,
            height = excluded.height,
            calculated_at = excluded.calculated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, rec := range records {
		if rec.CalculatedAt.IsZero() {
			rec.CalculatedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			rec.URI, rec.BaseURI, nullable(rec.Format), nullable(rec.Archive),
			rec.Hash, rec.Algorithm, rec.HashSize,
			nullableInt64(rec.FileSize), nullableInt(rec.Width), nullableInt(rec.Height),
			rec.CalculatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return 0, fmt.Errorf("insert fingerprint %s: %w", rec.URI, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return written, nil
}

// FindByBase returns all records sharing the format-insensitive key, most
// recently calculated first.
func (s *Store) FindByBase(ctx context.Context, baseURI string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+" FROM fingerprints WHERE base_uri = ? ORDER BY calculated_at DESC", baseURI)
	if err != nil {
		return nil, fmt.Errorf("query by base uri: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// SmartQuery resolves an identifier to a fingerprint, tolerating format
// changes: an exact match wins; otherwise the most recently calculated record
// sharing the format-insensitive key and carrying one of the candidate formats
// (any format when none are supplied) is returned.
func (s *Store) SmartQuery(ctx context.Context, id identity.Identifier, candidateFormats []string) (Record, bool, error) {
	if rec, ok, err := s.Get(ctx, id); err != nil || ok {
		return rec, ok, err
	}

	baseURI := identity.StripFormat(id)
	if baseURI == string(id) {
		return Record{}, false, nil
	}
	matches, err := s.FindByBase(ctx, baseURI)
	if err != nil {
		return Record{}, false, err
	}
	for _, rec := range matches {
		if formatAllowed(rec.Format, candidateFormats) {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

// LookupContainerHash returns the newest hash recorded for any plain-file
// identifier whose base name matches. Same-named containers reuse each other's
// fingerprints; callers record the new path as a fresh record.
func (s *Store) LookupContainerHash(ctx context.Context, baseName string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT hash FROM fingerprints
        WHERE archive IS NULL AND uri LIKE '%/' || ?
        ORDER BY calculated_at DESC LIMIT 1`, baseName)
	var hash string
	if err := row.Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query container hash: %w", err)
	}
	return hash, true, nil
}

// All streams every stored record, ordered by calculation time. Used by the
// JSON exporter.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM fingerprints ORDER BY calculated_at")
	if err != nil {
		return nil, fmt.Errorf("query all fingerprints: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

const selectColumns = `SELECT uri, base_uri, COALESCE(format, ''), COALESCE(archive, ''),
    hash, algorithm, hash_size, COALESCE(file_size, 0), COALESCE(width, 0), COALESCE(height, 0),
    calculated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var calculated string
	if err := row.Scan(
		&rec.URI, &rec.BaseURI, &rec.Format, &rec.Archive,
		&rec.Hash, &rec.Algorithm, &rec.HashSize,
		&rec.FileSize, &rec.Width, &rec.Height, &calculated,
	); err != nil {
		return Record{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, calculated); err == nil {
		rec.CalculatedAt = ts
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return records, nil
}

func formatAllowed(format string, candidates []string) bool {
	if len(candidates) == 0 {
		return true
	}
	for _, candidate := range candidates {
		if strings.EqualFold(strings.TrimPrefix(candidate, "."), format) {
			return true
		}
	}
	return false
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
