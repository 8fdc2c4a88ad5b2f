// Package history persists completed transcripts in a local SQLite
// database so earlier sessions can be revisited, renamed and edited.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("history: record not found")

// SourceFile describes one audio input that contributed to a record.
type SourceFile struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration,omitempty"`
}

// Record is one persisted transcript.
type Record struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	CreatedAt   time.Time    `json:"created_at"`
	Text        string       `json:"text"`
	SourceFiles []SourceFile `json:"source_files,omitempty"`
}

// Store reads and writes transcript records.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	text         TEXT NOT NULL,
	source_files TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_records_created_at ON records (created_at DESC);
`

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a new record and returns it with its generated ID.
func (s *Store) Append(title, text string, sources []SourceFile) (*Record, error) {
	if sources == nil {
		sources = []SourceFile{}
	}
	meta, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode source files: %w", err)
	}

	rec := &Record{
		ID:          uuid.NewString(),
		Title:       title,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		Text:        text,
		SourceFiles: sources,
	}

	_, err = s.db.Exec(`
		INSERT INTO records (id, title, created_at, text, source_files)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.CreatedAt.Unix(), rec.Text, string(meta))
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// Get returns one record by ID.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, title, created_at, text, source_files
		FROM records
		WHERE id = ?
	`, id)
	return scanRecord(row)
}

// List returns records newest first, up to limit (0 means no limit).
func (s *Store) List(limit int) ([]Record, error) {
	query := `
		SELECT id, title, created_at, text, source_files
		FROM records
		ORDER BY created_at DESC, id
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdateText replaces the transcript text of a record, preserving the
// user's edits as the new authoritative text.
func (s *Store) UpdateText(id, text string) error {
	return s.update(`UPDATE records SET text = ? WHERE id = ?`, text, id)
}

// Rename changes the record's title.
func (s *Store) Rename(id, title string) error {
	return s.update(`UPDATE records SET title = ? WHERE id = ?`, title, id)
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) update(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var createdAt int64
	var meta string
	if err := row.Scan(&rec.ID, &rec.Title, &createdAt, &rec.Text, &meta); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(meta), &rec.SourceFiles); err != nil {
		return nil, fmt.Errorf("decode source files: %w", err)
	}
	return &rec, nil
}
