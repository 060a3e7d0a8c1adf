package noteservice

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/backlinks"
	"github.com/starford/ehwaz/internal/graph"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/notestore"
	"github.com/starford/ehwaz/internal/similarity"
)

// DefaultSearchThreshold is the minimum Jaro score for a fuzzy title match.
const DefaultSearchThreshold = 0.6

// NoteDetail is the full representation of a note, enriched with the
// link analysis and backlinks the index holds for it.
type NoteDetail struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Path      string            `json:"path,omitempty"`
	Checksum  string            `json:"checksum"`
	Tags      []string          `json:"tags"`
	Outgoing  []string          `json:"outgoing"`
	Broken    []string          `json:"broken"`
	Backlinks []models.Backlink `json:"backlinks"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult pairs a note with its fuzzy match score.
type SearchResult struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Service coordinates the note store, the backlink index, and the
// link validator.
type Service struct {
	store     notestore.Store
	idx       *backlinks.Index
	validator *backlinks.Validator
	threshold float64
}

// NewService creates a new note service. threshold <= 0 selects
// DefaultSearchThreshold.
func NewService(store notestore.Store, idx *backlinks.Index, validator *backlinks.Validator, threshold float64) *Service {
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}
	return &Service{store: store, idx: idx, validator: validator, threshold: threshold}
}

// Reindex loads every note from the store and rebuilds the index.
func (s *Service) Reindex(_ context.Context) (int, error) {
	notes, err := s.store.ListAll()
	if err != nil {
		return 0, err
	}
	s.idx.RebuildAll(notes)
	return len(notes), nil
}

// GetNote reads a note and enriches it with the index's view of it.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	n, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(n), nil
}

// CreateNote persists a new note and indexes it. Titles are unique: the
// wiki-link namespace resolves by title, so a duplicate is a conflict.
func (s *Service) CreateNote(_ context.Context, title, content string) (*NoteDetail, error) {
	if _, err := s.store.FindByTitle(title); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	n := &models.Note{Title: title, Content: content}
	if err := s.store.Save(n); err != nil {
		return nil, err
	}
	s.idx.UpdateNote(*n)
	return s.buildDetail(n), nil
}

// UpdateNote writes updated content with optimistic concurrency. A
// non-empty ifMatch that does not equal the stored checksum yields
// apperr.ErrConflict.
func (s *Service) UpdateNote(_ context.Context, id, title, content, ifMatch string) (*NoteDetail, error) {
	existing, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != existing.Checksum {
		return nil, apperr.ErrConflict
	}
	if title == "" {
		title = existing.Title
	}
	n := &models.Note{ID: id, Title: title, Content: content, Path: existing.Path}
	if err := s.store.Save(n); err != nil {
		return nil, err
	}
	s.idx.UpdateNote(*n)
	return s.buildDetail(n), nil
}

// DeleteNote removes a note from the store and the index.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.idx.RemoveNote(id)
	return nil
}

// ListNotes returns every indexed note, sorted by title.
func (s *Service) ListNotes(_ context.Context) ([]NoteListItem, error) {
	notes, err := s.store.ListAll()
	if err != nil {
		return nil, err
	}
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, NoteListItem{
			ID:        n.ID,
			Title:     n.Title,
			Checksum:  n.Checksum,
			Tags:      s.tagsOf(n.ID),
			UpdatedAt: n.UpdatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

// Search scores every indexed title against query and returns matches at
// or above the service threshold, best first. An exact case-insensitive
// match always scores 1.0.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []SearchResult
	for i, title := range s.idx.Titles() {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := similarity.JaroScore(query, title)
		if strings.EqualFold(query, title) {
			score = 1.0
		}
		if score < s.threshold {
			continue
		}
		id, ok := s.idx.Resolve(title)
		if !ok {
			continue
		}
		out = append(out, SearchResult{ID: id, Title: title, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Backlinks returns the stored backlinks targeting the given note.
func (s *Service) Backlinks(_ context.Context, id string) ([]models.Backlink, error) {
	if _, ok := s.idx.TitleOf(id); !ok {
		return nil, apperr.ErrNotFound
	}
	return s.idx.BacklinksOf(id), nil
}

// Connections returns the ranked connections of a note.
func (s *Service) Connections(_ context.Context, id string) ([]models.NoteConnection, error) {
	if _, ok := s.idx.TitleOf(id); !ok {
		return nil, apperr.ErrNotFound
	}
	return s.idx.ConnectionsOf(id), nil
}

// ConnectionStrength reports the pairwise strength of two notes.
func (s *Service) ConnectionStrength(_ context.Context, idA, idB string) (float64, error) {
	if _, ok := s.idx.TitleOf(idA); !ok {
		return 0, apperr.ErrNotFound
	}
	if _, ok := s.idx.TitleOf(idB); !ok {
		return 0, apperr.ErrNotFound
	}
	return s.idx.ConnectionStrength(idA, idB), nil
}

// Validate checks a note's links against the current index state and
// attaches repair suggestions to the broken ones.
func (s *Service) Validate(ctx context.Context, id string) (*models.LinkValidationResult, error) {
	n, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, id, n.Content)
}

// SuggestRepairs returns repair candidates for an arbitrary broken target.
func (s *Service) SuggestRepairs(ctx context.Context, target string) ([]models.LinkSuggestion, error) {
	return s.validator.SuggestFor(ctx, target)
}

// Graph builds the knowledge graph over the indexed notes.
func (s *Service) Graph(_ context.Context) (models.KnowledgeGraph, error) {
	return graph.Build(s.idx), nil
}

// GraphStats computes the graph-level statistics.
func (s *Service) GraphStats(_ context.Context) (models.GraphStatistics, error) {
	return graph.Statistics(s.idx), nil
}

// LinkStats computes the link-health statistics.
func (s *Service) LinkStats(_ context.Context) (models.LinkStatistics, error) {
	return graph.LinkStats(s.idx), nil
}

// Tags returns the tag hierarchy over the indexed notes.
func (s *Service) Tags(_ context.Context) (models.TagHierarchy, error) {
	return graph.Tags(s.idx), nil
}

// ApplyChange feeds one watcher-delivered change into the index.
// kind follows notestore.ApplyFunc's contract.
func (s *Service) ApplyChange(kind, id string, note *models.Note) {
	if kind == "deleted" {
		s.idx.RemoveNote(id)
		return
	}
	if note != nil {
		s.idx.UpdateNote(*note)
	}
}

func (s *Service) buildDetail(n *models.Note) *NoteDetail {
	d := &NoteDetail{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Path:      n.Path,
		Checksum:  n.Checksum,
		Tags:      []string{},
		Outgoing:  []string{},
		Broken:    []string{},
		Backlinks: []models.Backlink{},
		UpdatedAt: n.UpdatedAt,
	}
	if a := s.idx.AnalysisOf(n.ID); a != nil {
		d.Tags = tagNames(a.Tags)
		d.Outgoing = nonNil(a.Outgoing)
		d.Broken = nonNil(a.Broken)
	}
	if bl := s.idx.BacklinksOf(n.ID); bl != nil {
		d.Backlinks = bl
	}
	return d
}

func (s *Service) tagsOf(id string) []string {
	a := s.idx.AnalysisOf(id)
	if a == nil {
		return []string{}
	}
	return tagNames(a.Tags)
}

func tagNames(tags []models.NoteTag) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		if _, ok := seen[tg.Name]; ok {
			continue
		}
		seen[tg.Name] = struct{}{}
		out = append(out, tg.Name)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
