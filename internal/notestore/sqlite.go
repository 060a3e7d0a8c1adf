package notestore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);
`

// SQLite implements Store over a SQLite database. Used for headless
// deployments where no Markdown vault exists, and in tests.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("notestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// ListAll returns every stored note.
func (s *SQLite) ListAll() ([]models.Note, error) {
	rows, err := s.conn.Query(`SELECT id, title, content, checksum, updated_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Checksum, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Load returns one note by id.
func (s *SQLite) Load(id string) (*models.Note, error) {
	return s.one(`SELECT id, title, content, checksum, updated_at FROM notes WHERE id = ?`, id)
}

// FindByTitle returns the note with the exact title.
func (s *SQLite) FindByTitle(title string) (*models.Note, error) {
	return s.one(`SELECT id, title, content, checksum, updated_at FROM notes WHERE title = ? LIMIT 1`, title)
}

// Save upserts the note, assigning a fresh id when empty.
func (s *SQLite) Save(note *models.Note) error {
	if note.ID == "" {
		note.ID = ulid.Make().String()
	}
	note.Checksum = checksum.SumString(note.Content)
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Now()
	}
	_, err := s.conn.Exec(`
		INSERT INTO notes (id, title, content, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, note.ID, note.Title, note.Content, note.Checksum, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("notestore: save note: %w", err)
	}
	return nil
}

// Delete removes the note by id.
func (s *SQLite) Delete(id string) error {
	res, err := s.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("notestore: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *SQLite) one(query string, arg any) (*models.Note, error) {
	var n models.Note
	err := s.conn.QueryRow(query, arg).Scan(&n.ID, &n.Title, &n.Content, &n.Checksum, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: query note: %w", err)
	}
	return &n, nil
}
