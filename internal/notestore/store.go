// Package notestore provides the note collection the link engine consumes:
// enumeration, lookup by id or title, and persistence. Two backends are
// included, a Markdown vault on the file system and a SQLite database.
package notestore

import "github.com/starford/ehwaz/internal/models"

// Store is the engine's view of the note collection. The engine never
// touches files or databases itself; it rebuilds from ListAll and reacts
// to per-note change notifications.
type Store interface {
	// ListAll returns every note with content, assigning ids where needed.
	ListAll() ([]models.Note, error)
	// Load returns one note by id, or apperr.ErrNotFound.
	Load(id string) (*models.Note, error)
	// FindByTitle returns the note with the exact title, or apperr.ErrNotFound.
	FindByTitle(title string) (*models.Note, error)
	// Save persists the note, creating it when new.
	Save(note *models.Note) error
	// Delete removes the note by id.
	Delete(id string) error
}
