// Package models defines the domain types for Ehwaz.
package models

import "time"

// Note is a single note as loaded from the note store. Content is the raw
// Markdown text the link engine scans; Title is the display name other
// notes reference via [[wikilinks]].
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Path      string    `json:"path,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
