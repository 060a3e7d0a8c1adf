package models

// GraphNode is a node in the knowledge graph snapshot.
type GraphNode struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags,omitempty"`
	OutDegree  int      `json:"out_degree"`
	InDegree   int      `json:"in_degree"`
	Importance float64  `json:"importance"`
	Orphan     bool     `json:"orphan"`
}

// GraphEdge is a directed edge in the knowledge graph; Weight is the
// connection strength between the two notes.
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// KnowledgeGraph is a read-only snapshot for visualization.
type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// TagHierarchy maps parent tag segments to their children, with usage
// counts per full tag name.
type TagHierarchy struct {
	Children map[string][]string `json:"children"`
	Counts   map[string]int      `json:"counts"`
}

// GraphStatistics are aggregate metrics over the current index state.
// Density is connectionCount/(n*(n-1)) for n > 1, else 0;
// AverageConnections is connectionCount/n for n > 0, else 0.
type GraphStatistics struct {
	NoteCount          int     `json:"note_count"`
	ConnectionCount    int     `json:"connection_count"`
	TagCount           int     `json:"tag_count"`
	OrphanCount        int     `json:"orphan_count"`
	BrokenLinkCount    int     `json:"broken_link_count"`
	AverageConnections float64 `json:"average_connections"`
	Density            float64 `json:"density"`
}

// LinkStatistics is the summary exposed to the UI layer. LinkHealth is
// (totalLinks-totalBroken)/totalLinks, or 1.0 when there are no links.
type LinkStatistics struct {
	TotalNotes          int     `json:"total_notes"`
	TotalLinks          int     `json:"total_links"`
	TotalBacklinks      int     `json:"total_backlinks"`
	TotalBrokenLinks    int     `json:"total_broken_links"`
	OrphanNotes         int     `json:"orphan_notes"`
	AverageLinksPerNote float64 `json:"average_links_per_note"`
	LinkHealth          float64 `json:"link_health"`
}
