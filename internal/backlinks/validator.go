package backlinks

import (
	"context"
	"sort"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/extract"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/similarity"
)

// Validator classifies a note's outgoing links as valid or broken and ranks
// repair suggestions for the broken ones. Unresolvable references are a
// first-class state here, never an error.
type Validator struct {
	idx   *Index
	floor float64
	limit int

	// afterSnapshot, when set, runs between the generation snapshot and the
	// scoring pass. Test seam for racing edits.
	afterSnapshot func()
}

// Validation defaults: the minimum similarity for a repair candidate and
// the number of suggestions kept per broken link.
const (
	DefaultSuggestionFloor = 0.3
	DefaultSuggestionLimit = 3
)

// NewValidator creates a validator over idx. Zero values select defaults.
func NewValidator(idx *Index, floor float64, limit int) *Validator {
	if floor <= 0 {
		floor = DefaultSuggestionFloor
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	return &Validator{idx: idx, floor: floor, limit: limit}
}

// Validate extracts the note's links and partitions them by resolvability.
// Suggestion scoring runs against every known title, which is the one
// potentially expensive step; ctx cancels it, and a concurrent edit of the
// same note supersedes the result (apperr.ErrSuperseded).
func (v *Validator) Validate(ctx context.Context, id, content string) (*models.LinkValidationResult, error) {
	gen := v.idx.Generation(id)
	if v.afterSnapshot != nil {
		v.afterSnapshot()
	}

	analysis := extract.Extract(content)
	titles := v.idx.Titles()

	result := &models.LinkValidationResult{
		NoteID: id,
		Valid:  []models.WikiLink{},
		Broken: []models.BrokenLink{},
	}

	for _, link := range analysis.Links {
		if _, ok := v.idx.Resolve(link.Target); ok {
			link.Valid = true
			result.Valid = append(result.Valid, link)
			continue
		}
		suggestions, err := v.suggest(ctx, link.Target, titles)
		if err != nil {
			return nil, err
		}
		result.Broken = append(result.Broken, models.BrokenLink{
			Link:        link,
			Suggestions: suggestions,
		})
	}

	if v.idx.Generation(id) != gen {
		return nil, apperr.ErrSuperseded
	}
	return result, nil
}

// SuggestFor ranks repair candidates for a single broken target title.
func (v *Validator) SuggestFor(ctx context.Context, target string) ([]models.LinkSuggestion, error) {
	return v.suggest(ctx, target, v.idx.Titles())
}

func (v *Validator) suggest(ctx context.Context, target string, titles []string) ([]models.LinkSuggestion, error) {
	candidates := make([]models.LinkSuggestion, 0, v.limit)
	for i, title := range titles {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := similarity.Score(target, title)
		if score < v.floor {
			continue
		}
		candidates = append(candidates, models.LinkSuggestion{
			Title:      title,
			Confidence: score,
			Reason:     "Similar note title",
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Title < candidates[j].Title
	})
	if len(candidates) > v.limit {
		candidates = candidates[:v.limit]
	}
	return candidates, nil
}
