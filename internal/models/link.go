package models

import (
	"strings"
	"time"
)

// WikiLink is a single [[target]] reference occurrence inside one note.
// Target never contains '[', ']', '|', or '#'. Offset and Length describe
// the full occurrence (including delimiters) in bytes of the source text.
// Valid is the only mutable field; the index sets it during resolution.
type WikiLink struct {
	Target  string `json:"target"`
	Anchor  string `json:"anchor,omitempty"`
	Display string `json:"display,omitempty"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Valid   bool   `json:"valid"`
}

// EffectiveDisplayText returns the display override when present,
// otherwise the target title.
func (l WikiLink) EffectiveDisplayText() string {
	if l.Display != "" {
		return l.Display
	}
	return l.Target
}

// FullTarget returns "target#anchor" when an anchor is present.
func (l WikiLink) FullTarget() string {
	if l.Anchor != "" {
		return l.Target + "#" + l.Anchor
	}
	return l.Target
}

// NoteTag is a single #tag occurrence. Name excludes the leading '#';
// Offset and Length include it.
type NoteTag struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// IsNested reports whether the tag uses '/' hierarchy (e.g. "work/projects").
func (t NoteTag) IsNested() bool {
	return strings.Contains(t.Name, "/")
}

// ParentTag returns everything before the last '/', or the whole name
// for flat tags.
func (t NoteTag) ParentTag() string {
	if i := strings.LastIndex(t.Name, "/"); i >= 0 {
		return t.Name[:i]
	}
	return t.Name
}

// ChildTag returns everything after the last '/', or the whole name
// for flat tags.
func (t NoteTag) ChildTag() string {
	if i := strings.LastIndex(t.Name, "/"); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// LinkAnalysis is the per-note extraction result. It is replaced wholesale
// whenever the note's content changes; Outgoing is always the deduplicated
// set of WikiLink targets. Broken is populated by the index, not the
// extractor, since it requires knowledge of every other note.
type LinkAnalysis struct {
	Links       []WikiLink `json:"links"`
	Tags        []NoteTag  `json:"tags"`
	Outgoing    []string   `json:"outgoing"`
	Broken      []string   `json:"broken"`
	ExtractedAt time.Time  `json:"extracted_at"`
}

// Backlink is a directed edge record stored on the target's side: which
// note links here, via which occurrence, with surrounding text context.
// Owned exclusively by the backlink index.
type Backlink struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Link      WikiLink  `json:"link"`
	Context   string    `json:"context,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConnectionKind classifies how two notes relate.
type ConnectionKind string

const (
	ConnectionDirect    ConnectionKind = "direct"
	ConnectionReverse   ConnectionKind = "reverse"
	ConnectionSharedTag ConnectionKind = "shared-tag"
)

// NoteConnection is a derived relationship summary between two notes,
// computed on demand and never persisted.
type NoteConnection struct {
	NoteID     string         `json:"note_id"`
	OtherID    string         `json:"other_id"`
	Kind       ConnectionKind `json:"kind"`
	Strength   float64        `json:"strength"`
	SharedTags []string       `json:"shared_tags,omitempty"`
}

// LinkSuggestion is one ranked repair candidate for a broken link.
type LinkSuggestion struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// BrokenLink pairs an unresolvable WikiLink with its repair suggestions.
type BrokenLink struct {
	Link        WikiLink         `json:"link"`
	Suggestions []LinkSuggestion `json:"suggestions"`
}

// LinkValidationResult partitions a note's links into valid and broken.
type LinkValidationResult struct {
	NoteID string       `json:"note_id"`
	Valid  []WikiLink   `json:"valid"`
	Broken []BrokenLink `json:"broken"`
}
