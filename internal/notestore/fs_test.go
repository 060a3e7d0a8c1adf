package notestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store, dir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListAll_TitleDerivation(t *testing.T) {
	store, dir := testFS(t)
	writeFile(t, dir, "a.md", "---\nid: 01J0000000000000000000000A\ntitle: Frontmatter Title\n---\nbody")
	writeFile(t, dir, "b.md", "# Heading Title\nbody")
	writeFile(t, dir, "plain.md", "no headings at all")

	notes, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	titles := make(map[string]bool)
	for _, n := range notes {
		titles[n.Title] = true
	}
	for _, want := range []string{"Frontmatter Title", "Heading Title", "plain"} {
		if !titles[want] {
			t.Errorf("missing title %q in %v", want, titles)
		}
	}
}

func TestListAll_AssignsAndPersistsID(t *testing.T) {
	store, dir := testFS(t)
	writeFile(t, dir, "new.md", "# New Note\ntext")

	notes, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(notes) != 1 || notes[0].ID == "" {
		t.Fatalf("notes = %+v, want one with assigned id", notes)
	}

	// The id must have been written back into the file.
	data, _ := os.ReadFile(filepath.Join(dir, "new.md"))
	if !strings.Contains(string(data), notes[0].ID) {
		t.Errorf("file does not carry assigned id:\n%s", data)
	}

	// A second pass sees the same id.
	again, _ := store.ListAll()
	if again[0].ID != notes[0].ID {
		t.Errorf("id changed across listings: %s vs %s", notes[0].ID, again[0].ID)
	}
}

func TestSaveLoadDelete(t *testing.T) {
	store, _ := testFS(t)

	n := &models.Note{Title: "My Note", Content: "see [[Other]]"}
	if err := store.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n.ID == "" || n.Path == "" {
		t.Fatalf("Save did not populate note: %+v", n)
	}
	if n.Path != "my-note.md" {
		t.Errorf("path = %q, want slugified title", n.Path)
	}

	loaded, err := store.Load(n.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != "My Note" || !strings.Contains(loaded.Content, "[[Other]]") {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := store.Delete(n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByTitle(t *testing.T) {
	store, dir := testFS(t)
	writeFile(t, dir, "x.md", "# Target Note\nbody")

	n, err := store.FindByTitle("Target Note")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if n.Title != "Target Note" {
		t.Errorf("title = %q", n.Title)
	}
	if _, err := store.FindByTitle("Nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSafePath_RejectsEscape(t *testing.T) {
	store, _ := testFS(t)
	if _, err := store.safePath("../outside.md"); err == nil {
		t.Error("expected traversal rejection")
	}
	if _, err := store.safePath("/etc/passwd"); err == nil {
		t.Error("expected absolute path rejection")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My Note", "my-note"},
		{"Hello, World!", "hello-world"},
		{"  spaced  ", "spaced"},
		{"", "untitled"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
