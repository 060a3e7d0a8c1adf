// Package graph derives read-only metric snapshots from the backlink
// index: per-note importance, orphan classification, aggregate statistics,
// and the knowledge graph export used by visualization.
package graph

import (
	"sort"
	"time"

	"github.com/starford/ehwaz/internal/backlinks"
	"github.com/starford/ehwaz/internal/models"
)

// Importance weights. The blend is a tunable heuristic, not a contract:
// the only guarantees are a [0,1] bound and monotonicity in connection
// count, which the weights below preserve.
const (
	weightConnections = 0.6
	weightTags        = 0.25
	weightRecency     = 0.15

	// tagSaturation is the tag count at which the tag component maxes out.
	tagSaturation = 5
	// recencyHalfLife controls how quickly the recency component decays.
	recencyHalfLife = 30 * 24 * time.Hour
)

// Statistics computes aggregate metrics over the current index state.
// Connections are distinct unordered note pairs with at least one resolved
// link between them; self-links are excluded here (but kept as Backlinks).
func Statistics(idx *backlinks.Index) models.GraphStatistics {
	ids := idx.IDs()

	stats := models.GraphStatistics{NoteCount: len(ids)}
	pairs := make(map[[2]string]struct{})
	tags := make(map[string]struct{})

	for _, id := range ids {
		a := idx.AnalysisOf(id)
		if a == nil {
			continue
		}
		for _, t := range a.Tags {
			tags[t.Name] = struct{}{}
		}
		for i := range a.Links {
			if !a.Links[i].Valid {
				stats.BrokenLinkCount++
			}
		}
		for _, title := range a.Outgoing {
			tid, ok := idx.Resolve(title)
			if !ok || tid == id {
				continue
			}
			pairs[pairKey(id, tid)] = struct{}{}
		}
		if isOrphan(idx, id, a) {
			stats.OrphanCount++
		}
	}

	stats.ConnectionCount = len(pairs)
	stats.TagCount = len(tags)
	if stats.NoteCount > 0 {
		stats.AverageConnections = float64(stats.ConnectionCount) / float64(stats.NoteCount)
	}
	if stats.NoteCount > 1 {
		stats.Density = float64(stats.ConnectionCount) /
			float64(stats.NoteCount*(stats.NoteCount-1))
	}
	return stats
}

// LinkStats is the UI-facing summary across the whole collection.
func LinkStats(idx *backlinks.Index) models.LinkStatistics {
	ids := idx.IDs()
	out := models.LinkStatistics{TotalNotes: len(ids)}

	for _, id := range ids {
		out.TotalBacklinks += len(idx.BacklinksOf(id))
		a := idx.AnalysisOf(id)
		if a == nil {
			continue
		}
		out.TotalLinks += len(a.Links)
		for i := range a.Links {
			if !a.Links[i].Valid {
				out.TotalBrokenLinks++
			}
		}
		if isOrphan(idx, id, a) {
			out.OrphanNotes++
		}
	}

	if out.TotalNotes > 0 {
		out.AverageLinksPerNote = float64(out.TotalLinks) / float64(out.TotalNotes)
	}
	if out.TotalLinks > 0 {
		out.LinkHealth = float64(out.TotalLinks-out.TotalBrokenLinks) / float64(out.TotalLinks)
	} else {
		out.LinkHealth = 1.0
	}
	return out
}

// Build exports the knowledge graph snapshot: one node per note with its
// importance score, one weighted edge per resolved link pair (deduplicated,
// self-links dropped).
func Build(idx *backlinks.Index) models.KnowledgeGraph {
	ids := idx.IDs()
	now := time.Now()

	type nodeState struct {
		analysis *models.LinkAnalysis
		in, out  int
	}
	states := make(map[string]*nodeState, len(ids))
	maxDegree := 0
	for _, id := range ids {
		s := &nodeState{analysis: idx.AnalysisOf(id)}
		s.in = len(idx.BacklinksOf(id))
		if s.analysis != nil {
			s.out = len(s.analysis.Links)
		}
		if d := s.in + s.out; d > maxDegree {
			maxDegree = d
		}
		states[id] = s
	}

	g := models.KnowledgeGraph{
		Nodes: make([]models.GraphNode, 0, len(ids)),
		Edges: []models.GraphEdge{},
	}
	seen := make(map[[2]string]struct{})

	for _, id := range ids {
		s := states[id]
		title, _ := idx.TitleOf(id)

		node := models.GraphNode{
			ID:        id,
			Title:     title,
			OutDegree: s.out,
			InDegree:  s.in,
		}
		if s.analysis != nil {
			node.Tags = tagNames(s.analysis.Tags)
			node.Orphan = isOrphan(idx, id, s.analysis)
			node.Importance = importance(s.in+s.out, maxDegree, len(node.Tags), idx.UpdatedAt(id), now)

			for _, target := range s.analysis.Outgoing {
				tid, ok := idx.Resolve(target)
				if !ok || tid == id {
					continue
				}
				key := pairKey(id, tid)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				g.Edges = append(g.Edges, models.GraphEdge{
					Source: id,
					Target: tid,
					Weight: idx.ConnectionStrength(id, tid),
				})
			}
		}
		g.Nodes = append(g.Nodes, node)
	}
	return g
}

// Tags builds the tag hierarchy across all notes: parent segments mapped to
// their children, and per-tag note counts.
func Tags(idx *backlinks.Index) models.TagHierarchy {
	h := models.TagHierarchy{
		Children: make(map[string][]string),
		Counts:   make(map[string]int),
	}
	childSeen := make(map[string]map[string]struct{})

	for _, id := range idx.IDs() {
		a := idx.AnalysisOf(id)
		if a == nil {
			continue
		}
		noteTags := make(map[string]models.NoteTag)
		for _, t := range a.Tags {
			noteTags[t.Name] = t
		}
		for name, t := range noteTags {
			h.Counts[name]++
			if !t.IsNested() {
				continue
			}
			parent, child := t.ParentTag(), t.ChildTag()
			if childSeen[parent] == nil {
				childSeen[parent] = make(map[string]struct{})
			}
			if _, dup := childSeen[parent][child]; dup {
				continue
			}
			childSeen[parent][child] = struct{}{}
			h.Children[parent] = append(h.Children[parent], child)
		}
	}
	for parent := range h.Children {
		sort.Strings(h.Children[parent])
	}
	return h
}

// importance blends normalized connectivity, tag usage, and recency.
// Monotonic in connection count and bounded to [0,1].
func importance(degree, maxDegree, tagCount int, updatedAt, now time.Time) float64 {
	var conn float64
	if maxDegree > 0 {
		conn = float64(degree) / float64(maxDegree)
	}

	tags := float64(tagCount) / tagSaturation
	if tags > 1 {
		tags = 1
	}

	recency := 0.0
	if !updatedAt.IsZero() {
		age := now.Sub(updatedAt)
		if age < 0 {
			age = 0
		}
		recency = 1 / (1 + float64(age)/float64(recencyHalfLife))
	}

	return weightConnections*conn + weightTags*tags + weightRecency*recency
}

// isOrphan reports zero outgoing links and zero incoming backlinks.
func isOrphan(idx *backlinks.Index, id string, a *models.LinkAnalysis) bool {
	return len(a.Links) == 0 && len(idx.BacklinksOf(id)) == 0
}

func tagNames(tags []models.NoteTag) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
