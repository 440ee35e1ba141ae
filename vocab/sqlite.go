package vocab

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure Go driver registered as "sqlite"
)

// SQLiteSchema creates the table SQLiteSource reads.
const SQLiteSchema = `CREATE TABLE IF NOT EXISTS vocabulary_map (
	terminology TEXT NOT NULL,
	code        TEXT NOT NULL,
	type_name   TEXT NOT NULL,
	PRIMARY KEY (terminology, code)
)`

// SQLiteSource reads dictionaries from a vocabulary_map table.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database file as a dictionary source.
func OpenSQLite(dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dsn, err)
	}
	return &SQLiteSource{db: db}, nil
}

// NewSQLiteSource wraps an open database.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// DB returns the underlying database handle.
func (s *SQLiteSource) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Init creates the vocabulary_map table if it does not exist.
func (s *SQLiteSource) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Import writes a dictionary for t, replacing existing rows with the same code.
func (s *SQLiteSource) Import(ctx context.Context, t Terminology, d map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO vocabulary_map (terminology, code, type_name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	for code, name := range d {
		if _, err := stmt.ExecContext(ctx, string(t), code, name); err != nil {
			return fmt.Errorf("failed to import %s %s: %w", t, code, err)
		}
	}
	return tx.Commit()
}

// Load reads every row for t.
func (s *SQLiteSource) Load(ctx context.Context, t Terminology) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, type_name FROM vocabulary_map WHERE terminology = ?`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t, err)
	}
	defer rows.Close()

	d := make(map[string]string)
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t, err)
		}
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if code == "" || name == "" {
			continue
		}
		d[code] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(d) == 0 {
		return nil, fmt.Errorf("%s: %w", t, ErrNoDictionary)
	}
	return d, nil
}

var _ DictionarySource = (*SQLiteSource)(nil)
