// Package storage persists policy analyses in an append-only SQLite table.
// Append is the only mutation; ids are assigned by SQLite and never reused.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the analysis corpus.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "polisight.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// Append inserts a new analysis record and returns the id SQLite assigned.
// Duplicate document identifiers are permitted; near-duplicate detection is
// the similarity index's concern, not the store's.
func (s *Store) Append(rec AnalysisRecord) (int64, error) {
	dates, err := json.Marshal(rec.Dates)
	if err != nil {
		return 0, fmt.Errorf("encoding dates: %w", err)
	}
	risks, err := json.Marshal(rec.Risks)
	if err != nil {
		return 0, fmt.Errorf("encoding risks: %w", err)
	}
	recommendation, err := json.Marshal(rec.Recommendation)
	if err != nil {
		return 0, fmt.Errorf("encoding recommendation: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO policy_analyses (document_id, summary, dates, risks, recommendation, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DocumentID, rec.Summary, string(dates), string(risks), string(recommendation),
		rec.RawText, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting analysis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned id: %w", err)
	}
	return id, nil
}

const recordColumns = `id, document_id, summary, dates, risks, recommendation, raw_text, created_at`

// All returns every analysis record in creation (id) order. The similarity
// index uses this for its full-corpus scan.
func (s *Store) All() ([]AnalysisRecord, error) {
	rows, err := s.db.Query(`SELECT ` + recordColumns + ` FROM policy_analyses ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(limit int) ([]AnalysisRecord, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM policy_analyses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(id int64) (AnalysisRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM policy_analyses WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRecord{}, err
	}
	return rec, nil
}

// Count returns the number of stored analyses.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM policy_analyses").Scan(&count)
	return count, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (AnalysisRecord, error) {
	var rec AnalysisRecord
	var dates, risks, recommendation, createdAt string
	if err := row.Scan(&rec.ID, &rec.DocumentID, &rec.Summary, &dates, &risks,
		&recommendation, &rec.RawText, &createdAt); err != nil {
		return AnalysisRecord{}, err
	}

	if err := json.Unmarshal([]byte(dates), &rec.Dates); err != nil {
		return AnalysisRecord{}, fmt.Errorf("decoding dates for id %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(risks), &rec.Risks); err != nil {
		return AnalysisRecord{}, fmt.Errorf("decoding risks for id %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(recommendation), &rec.Recommendation); err != nil {
		return AnalysisRecord{}, fmt.Errorf("decoding recommendation for id %d: %w", rec.ID, err)
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("parsing created_at for id %d: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
