package notestore

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML header a vault note may carry. Only the fields
// the store needs are modeled; unknown keys are preserved as opaque body
// text is not (the store rewrites the header when assigning an id).
type frontmatter struct {
	ID    string `yaml:"id,omitempty"`
	Title string `yaml:"title,omitempty"`
}

// splitFrontmatter separates a leading YAML header (between --- delimiters)
// from the note body. Missing or invalid headers are not errors: the whole
// input becomes the body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter

	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}

	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// renderNote serializes a note file: frontmatter header plus body.
func renderNote(fm frontmatter, body string) []byte {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", fm.ID)
	fmt.Fprintf(&b, "title: %s\n", yamlScalar(fm.Title))
	b.WriteString("---\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// yamlScalar quotes a title when plain YAML would misread it.
func yamlScalar(s string) string {
	if s == "" || strings.ContainsAny(s, ":#[]{}\"'|>&*!%@`") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// deriveTitle resolves a note's display title: frontmatter first, then the
// first H1 heading, then the file name stem.
func deriveTitle(fm frontmatter, body, stem string) string {
	if fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return stem
}
