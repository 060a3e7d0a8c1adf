package api

import (
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Project Planning" validate:"required"`
	Content string `json:"content" example:"# Planning\nSee [[Roadmap]]" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note. An empty
// title keeps the current one.
type UpdateNoteRequest struct {
	Title   string `json:"title,omitempty" example:"Project Planning"`
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps fuzzy title search results.
type SearchResponse struct {
	Results []noteservice.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse wraps the backlinks of a note.
type BacklinksResponse struct {
	Backlinks []models.Backlink `json:"backlinks" validate:"required"`
}

// ConnectionsResponse wraps the ranked connections of a note.
type ConnectionsResponse struct {
	Connections []models.NoteConnection `json:"connections" validate:"required"`
}

// ConnectionStrengthResponse reports pairwise connection strength.
type ConnectionStrengthResponse struct {
	From     string  `json:"from" validate:"required"`
	To       string  `json:"to" validate:"required"`
	Strength float64 `json:"strength" example:"0.7" validate:"required"`
}

// SuggestionsResponse wraps repair suggestions for a broken target.
type SuggestionsResponse struct {
	Target      string                  `json:"target" validate:"required"`
	Suggestions []models.LinkSuggestion `json:"suggestions" validate:"required"`
}
