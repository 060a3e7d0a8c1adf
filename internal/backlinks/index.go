// Package backlinks maintains the bidirectional link index over a note
// collection: who links to whom, which links are broken, and how strongly
// two notes are related.
//
// Concurrency model: one Index instance, many callers. A single RWMutex
// guards the shared tables (title resolution, per-target backlink lists,
// analysis cache). Note-level updates are short critical sections; the
// expensive work (extraction, suggestion scoring) happens outside the lock.
// Updates for the same note id must be issued in order by the caller; the
// per-note generation counter lets in-flight validations detect that they
// have been superseded.
package backlinks

import (
	"sort"
	"sync"
	"time"

	"github.com/starford/ehwaz/internal/extract"
	"github.com/starford/ehwaz/internal/models"
)

// DefaultContextWindow is the backlink context size in bytes.
const DefaultContextWindow = 100

type noteMeta struct {
	title     string
	updatedAt time.Time
}

// Index is the system of record for link state. It owns the title→id
// resolution table and all Backlink records; everything else in the engine
// is a read-only view over it.
type Index struct {
	mu            sync.RWMutex
	titles        map[string]string               // title -> note id
	meta          map[string]noteMeta             // note id -> title, updated time
	contents      map[string]string               // note id -> raw content (for context + revalidation)
	analyses      map[string]*models.LinkAnalysis // note id -> cached analysis
	incoming      map[string][]models.Backlink    // target id -> backlinks
	referrers     map[string]map[string]struct{}  // target title -> source ids (resolved or not)
	gens          map[string]uint64               // note id -> edit generation
	contextWindow int
}

// New creates an empty index. contextWindow <= 0 selects the default.
func New(contextWindow int) *Index {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	idx := &Index{contextWindow: contextWindow}
	idx.resetLocked()
	return idx
}

func (x *Index) resetLocked() {
	x.titles = make(map[string]string)
	x.meta = make(map[string]noteMeta)
	x.contents = make(map[string]string)
	x.analyses = make(map[string]*models.LinkAnalysis)
	x.incoming = make(map[string][]models.Backlink)
	x.referrers = make(map[string]map[string]struct{})
	x.gens = make(map[string]uint64)
}

// RebuildAll clears all state and re-indexes the full collection. The title
// table is built first so every link resolves in O(1) during the indexing
// pass. Exclusive: no update or removal may interleave.
func (x *Index) RebuildAll(notes []models.Note) {
	analyses := make([]*models.LinkAnalysis, len(notes))
	for i, n := range notes {
		analyses[i] = extract.Extract(n.Content)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.resetLocked()
	for _, n := range notes {
		x.titles[n.Title] = n.ID
		x.meta[n.ID] = noteMeta{title: n.Title, updatedAt: n.UpdatedAt}
		x.contents[n.ID] = n.Content
	}
	for i, n := range notes {
		x.insertLocked(n.ID, analyses[i])
	}
}

// UpdateNote re-extracts the note and replaces its link state: the cached
// analysis, its outgoing Backlinks on every target, and its broken set.
// A title change re-validates only the notes that reference the old or new
// title, via the reverse referrer index.
func (x *Index) UpdateNote(note models.Note) {
	analysis := extract.Extract(note.Content)

	x.mu.Lock()
	defer x.mu.Unlock()

	x.gens[note.ID]++

	oldTitle := x.meta[note.ID].title
	x.removeSourceLocked(note.ID)

	if oldTitle != "" && oldTitle != note.Title {
		if x.titles[oldTitle] == note.ID {
			delete(x.titles, oldTitle)
		}
		// Every remaining incoming Backlink resolved via the old title and
		// is now stale; drop the records before demoting their sources.
		delete(x.incoming, note.ID)
		x.demoteReferrersLocked(oldTitle, note.ID)
	}
	x.titles[note.Title] = note.ID
	x.meta[note.ID] = noteMeta{title: note.Title, updatedAt: note.UpdatedAt}
	x.contents[note.ID] = note.Content

	x.insertLocked(note.ID, analysis)

	// Notes that referenced this title while it was unknown (or differently
	// owned) now resolve; promote their broken links in place.
	x.promoteReferrersLocked(note.Title, note.ID)
}

// RemoveNote deletes the note's analysis, every Backlink targeting it, and
// its title table entry, then demotes referencing notes' links to broken.
// The referrer index makes this a precise, affected-notes-only invalidation
// rather than a full rebuild.
func (x *Index) RemoveNote(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, ok := x.meta[id]
	if !ok {
		return
	}

	x.gens[id]++
	x.removeSourceLocked(id)

	delete(x.incoming, id)
	delete(x.analyses, id)
	delete(x.contents, id)
	delete(x.meta, id)
	if x.titles[m.title] == id {
		delete(x.titles, m.title)
		x.demoteReferrersLocked(m.title, id)
	}
}

// Generation returns the note's current edit generation. Validations
// snapshot it before computing suggestions and compare afterwards.
func (x *Index) Generation(id string) uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.gens[id]
}

// Resolve maps a title to a note id; ok is false for broken targets.
func (x *Index) Resolve(title string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.titles[title]
	return id, ok
}

// Titles returns a snapshot of all known note titles.
func (x *Index) Titles() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.titles))
	for t := range x.titles {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IDs returns a snapshot of all indexed note ids.
func (x *Index) IDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.meta))
	for id := range x.meta {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TitleOf returns the indexed title for a note id.
func (x *Index) TitleOf(id string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m, ok := x.meta[id]
	return m.title, ok
}

// UpdatedAt returns the note's last update time as known to the index.
func (x *Index) UpdatedAt(id string) time.Time {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.meta[id].updatedAt
}

// AnalysisOf returns a copy of the note's cached analysis, or nil when the
// note is unknown.
func (x *Index) AnalysisOf(id string) *models.LinkAnalysis {
	x.mu.RLock()
	defer x.mu.RUnlock()
	a, ok := x.analyses[id]
	if !ok {
		return nil
	}
	return copyAnalysis(a)
}

// BacklinksOf returns all Backlinks whose target is the given note.
func (x *Index) BacklinksOf(id string) []models.Backlink {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]models.Backlink, len(x.incoming[id]))
	copy(out, x.incoming[id])
	return out
}

// NotesLinkingTo returns the deduplicated source ids of the note's backlinks.
func (x *Index) NotesLinkingTo(id string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, bl := range x.incoming[id] {
		if _, dup := seen[bl.SourceID]; dup {
			continue
		}
		seen[bl.SourceID] = struct{}{}
		out = append(out, bl.SourceID)
	}
	sort.Strings(out)
	return out
}

// NotesLinkedFrom returns the note's outgoing target titles (resolved or not).
func (x *Index) NotesLinkedFrom(id string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	a, ok := x.analyses[id]
	if !ok {
		return nil
	}
	out := make([]string, len(a.Outgoing))
	copy(out, a.Outgoing)
	return out
}

// SharedTags returns the sorted intersection of the two notes' tag names.
func (x *Index) SharedTags(idA, idB string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sharedTagsLocked(idA, idB)
}

// ConnectionStrength blends direct bidirectional link counts with shared
// tags: min(1, 0.5*(A→B + B→A) + 0.2*|sharedTags|). Symmetric by
// construction; a heavily-linked note is deliberately not penalized.
func (x *Index) ConnectionStrength(idA, idB string) float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.strengthLocked(idA, idB)
}

// ConnectionsOf summarizes every relationship the note participates in:
// direct links, reverse links, and shared-tag neighbors. One connection per
// other note, classified by the strongest applicable kind. Self-links are
// skipped; they carry no relationship value.
func (x *Index) ConnectionsOf(id string) []models.NoteConnection {
	x.mu.RLock()
	defer x.mu.RUnlock()

	kinds := make(map[string]models.ConnectionKind)

	if a, ok := x.analyses[id]; ok {
		for _, title := range a.Outgoing {
			if tid, ok := x.titles[title]; ok && tid != id {
				kinds[tid] = models.ConnectionDirect
			}
		}
	}
	for _, bl := range x.incoming[id] {
		if bl.SourceID == id {
			continue
		}
		if _, ok := kinds[bl.SourceID]; !ok {
			kinds[bl.SourceID] = models.ConnectionReverse
		}
	}
	for other := range x.meta {
		if other == id {
			continue
		}
		if _, ok := kinds[other]; ok {
			continue
		}
		if len(x.sharedTagsLocked(id, other)) > 0 {
			kinds[other] = models.ConnectionSharedTag
		}
	}

	out := make([]models.NoteConnection, 0, len(kinds))
	for other, kind := range kinds {
		out = append(out, models.NoteConnection{
			NoteID:     id,
			OtherID:    other,
			Kind:       kind,
			Strength:   x.strengthLocked(id, other),
			SharedTags: x.sharedTagsLocked(id, other),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].OtherID < out[j].OtherID
	})
	return out
}

// --- locked helpers ---

// insertLocked stores the analysis and creates one Backlink per resolvable
// link occurrence, recording the unresolved targets as broken.
func (x *Index) insertLocked(id string, analysis *models.LinkAnalysis) {
	content := x.contents[id]
	now := time.Now()

	broken := make(map[string]struct{})
	for i := range analysis.Links {
		link := &analysis.Links[i]
		tid, ok := x.titles[link.Target]
		if !ok {
			broken[link.Target] = struct{}{}
			continue
		}
		link.Valid = true
		x.incoming[tid] = append(x.incoming[tid], models.Backlink{
			SourceID:  id,
			TargetID:  tid,
			Link:      *link,
			Context:   extract.Context(content, link.Offset, link.Length, x.contextWindow),
			UpdatedAt: now,
		})
	}

	analysis.Broken = analysis.Broken[:0]
	for _, t := range analysis.Outgoing {
		if _, ok := broken[t]; ok {
			analysis.Broken = append(analysis.Broken, t)
		}
		if x.referrers[t] == nil {
			x.referrers[t] = make(map[string]struct{})
		}
		x.referrers[t][id] = struct{}{}
	}

	x.analyses[id] = analysis
}

// removeSourceLocked strips the note's outgoing footprint: its Backlinks on
// every resolved target and its referrer entries.
func (x *Index) removeSourceLocked(id string) {
	a, ok := x.analyses[id]
	if !ok {
		return
	}
	for _, title := range a.Outgoing {
		if set, ok := x.referrers[title]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(x.referrers, title)
			}
		}
		tid, ok := x.titles[title]
		if !ok {
			continue
		}
		kept := x.incoming[tid][:0]
		for _, bl := range x.incoming[tid] {
			if bl.SourceID != id {
				kept = append(kept, bl)
			}
		}
		if len(kept) == 0 {
			delete(x.incoming, tid)
		} else {
			x.incoming[tid] = kept
		}
	}
	delete(x.analyses, id)
}

// demoteReferrersLocked marks every link to title as broken in the
// referencing notes' cached analyses. Their Backlink records pointing at
// the vanished id must already be gone (incoming[id] deleted by the caller
// or never created).
func (x *Index) demoteReferrersLocked(title, exceptID string) {
	for src := range x.referrers[title] {
		if src == exceptID {
			continue
		}
		a, ok := x.analyses[src]
		if !ok {
			continue
		}
		for i := range a.Links {
			if a.Links[i].Target == title {
				a.Links[i].Valid = false
			}
		}
		if !contains(a.Broken, title) {
			a.Broken = append(a.Broken, title)
		}
	}
}

// promoteReferrersLocked resolves previously-broken links to title now that
// it maps to id, creating the missing Backlink records.
func (x *Index) promoteReferrersLocked(title, id string) {
	now := time.Now()
	for src := range x.referrers[title] {
		if src == id {
			continue
		}
		a, ok := x.analyses[src]
		if !ok {
			continue
		}
		changed := false
		for i := range a.Links {
			link := &a.Links[i]
			if link.Target != title || link.Valid {
				continue
			}
			link.Valid = true
			changed = true
			x.incoming[id] = append(x.incoming[id], models.Backlink{
				SourceID:  src,
				TargetID:  id,
				Link:      *link,
				Context:   extract.Context(x.contents[src], link.Offset, link.Length, x.contextWindow),
				UpdatedAt: now,
			})
		}
		if changed {
			a.Broken = remove(a.Broken, title)
		}
	}
}

func (x *Index) sharedTagsLocked(idA, idB string) []string {
	a, okA := x.analyses[idA]
	b, okB := x.analyses[idB]
	if !okA || !okB {
		return nil
	}
	inA := make(map[string]struct{})
	for _, t := range a.Tags {
		inA[t.Name] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range b.Tags {
		if _, ok := inA[t.Name]; !ok {
			continue
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

func (x *Index) strengthLocked(idA, idB string) float64 {
	direct := 0
	for _, bl := range x.incoming[idB] {
		if bl.SourceID == idA {
			direct++
		}
	}
	reverse := 0
	for _, bl := range x.incoming[idA] {
		if bl.SourceID == idB {
			reverse++
		}
	}
	strength := 0.5*float64(direct+reverse) + 0.2*float64(len(x.sharedTagsLocked(idA, idB)))
	if strength > 1.0 {
		strength = 1.0
	}
	return strength
}

func copyAnalysis(a *models.LinkAnalysis) *models.LinkAnalysis {
	out := &models.LinkAnalysis{
		Links:       make([]models.WikiLink, len(a.Links)),
		Tags:        make([]models.NoteTag, len(a.Tags)),
		Outgoing:    make([]string, len(a.Outgoing)),
		Broken:      make([]string, len(a.Broken)),
		ExtractedAt: a.ExtractedAt,
	}
	copy(out.Links, a.Links)
	copy(out.Tags, a.Tags)
	copy(out.Outgoing, a.Outgoing)
	copy(out.Broken, a.Broken)
	return out
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
