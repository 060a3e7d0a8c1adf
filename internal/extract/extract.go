// Package extract scans raw note text for wikilinks and tags. Extraction is
// purely lexical: no Markdown AST, no I/O, and malformed syntax simply fails
// to match rather than producing an error.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/ehwaz/internal/models"
)

var (
	// [[target]], [[target#anchor]], [[target|display]], [[target#anchor|display]].
	// The anchor always precedes the display override.
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|#]+)(?:#([^\[\]|#]*))?(?:\|([^\[\]|]*))?\]\]`)

	// #tag with optional /-nesting. Word boundaries are checked separately
	// so that mid-word '#' and trailing punctuation are handled.
	tagRe = regexp.MustCompile(`#[A-Za-z0-9_/-]+`)

	fencedRe  = regexp.MustCompile("(?s)```.*?```")
	inlineRe  = regexp.MustCompile("`[^`\n]*`")
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// span is a half-open byte range [start, end) excluded from matching.
type span struct {
	start, end int
}

func (s span) intersects(start, end int) bool {
	return start < s.end && end > s.start
}

// Extract scans text and returns its link analysis. The Broken set is left
// empty: classifying a link as broken requires the full note collection and
// is the index's job, not the extractor's.
func Extract(text string) *models.LinkAnalysis {
	excluded := exclusionSpans(text)

	analysis := &models.LinkAnalysis{
		Links:       []models.WikiLink{},
		Tags:        []models.NoteTag{},
		Outgoing:    []string{},
		Broken:      []string{},
		ExtractedAt: time.Now(),
	}

	seen := make(map[string]struct{})
	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if inExcluded(excluded, start, end) {
			continue
		}
		target := strings.TrimSpace(group(text, m, 1))
		if target == "" {
			continue
		}
		link := models.WikiLink{
			Target:  target,
			Anchor:  strings.TrimSpace(group(text, m, 2)),
			Display: strings.TrimSpace(group(text, m, 3)),
			Offset:  start,
			Length:  end - start,
		}
		analysis.Links = append(analysis.Links, link)
		if _, dup := seen[target]; !dup {
			seen[target] = struct{}{}
			analysis.Outgoing = append(analysis.Outgoing, target)
		}
	}

	for _, m := range tagRe.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if inExcluded(excluded, start, end) {
			continue
		}
		if !tagBoundedBefore(text, start) || !tagBoundedAfter(text, end) {
			continue
		}
		analysis.Tags = append(analysis.Tags, models.NoteTag{
			Name:   text[start+1 : end],
			Offset: start,
			Length: end - start,
		})
	}

	return analysis
}

// Context returns up to window bytes of text surrounding the occurrence at
// [off, off+length), with an ellipsis on each truncated end. The result is
// trimmed of surrounding whitespace and cut on rune boundaries.
func Context(text string, off, length, window int) string {
	if off < 0 || off >= len(text) || length <= 0 || window <= 0 {
		return ""
	}
	end := off + length
	if end > len(text) {
		end = len(text)
	}

	pad := (window - length) / 2
	if pad < 0 {
		pad = 0
	}
	lo := runeFloor(text, off-pad)
	hi := runeCeil(text, end+pad)

	out := strings.TrimSpace(text[lo:hi])
	if lo > 0 {
		out = "..." + out
	}
	if hi < len(text) {
		out += "..."
	}
	return out
}

// exclusionSpans locates fenced code blocks, inline code spans, and HTML
// comments. Inline spans already inside a fenced block are redundant but
// harmless in the union.
func exclusionSpans(text string) []span {
	var spans []span
	for _, re := range []*regexp.Regexp{fencedRe, commentRe, inlineRe} {
		for _, m := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	return spans
}

func inExcluded(spans []span, start, end int) bool {
	for _, s := range spans {
		if s.intersects(start, end) {
			return true
		}
	}
	return false
}

// tagBoundedBefore requires start-of-text or whitespace before the '#',
// rejecting mid-word hashes like "foo#bar".
func tagBoundedBefore(text string, start int) bool {
	if start == 0 {
		return true
	}
	r := rune(text[start-1])
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// tagBoundedAfter requires end-of-text, whitespace, or sentence punctuation
// after the tag, so "#done." yields "done" rather than swallowing syntax.
func tagBoundedAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	switch text[end] {
	case ' ', '\t', '\n', '\r', '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}

func group(text string, m []int, n int) string {
	lo, hi := m[2*n], m[2*n+1]
	if lo < 0 {
		return ""
	}
	return text[lo:hi]
}

// runeFloor clamps i into [0, len(text)] and moves it back onto a rune start.
func runeFloor(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8Start(text[i]) {
		i--
	}
	return i
}

// runeCeil clamps i into [0, len(text)] and moves it forward onto a rune start.
func runeCeil(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	if i <= 0 {
		return 0
	}
	for i < len(text) && !utf8Start(text[i]) {
		i++
	}
	return i
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
