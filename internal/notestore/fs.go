package notestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/models"
)

// FS implements Store over a directory of Markdown files. Note ids are
// ULIDs persisted in the frontmatter; a note without one is assigned an id
// (and rewritten) the first time it is listed.
type FS struct {
	root string // absolute path to vault directory

	mu    sync.Mutex
	paths map[string]string // note id -> relative path
}

var _ Store = (*FS)(nil)

// NewFS creates an FS store rooted at dir, which must exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("notestore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("notestore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notestore: root is not a directory: %s", abs)
	}
	return &FS{root: abs, paths: make(map[string]string)}, nil
}

// ListAll walks the vault and returns every .md note.
func (f *FS) ListAll() ([]models.Note, error) {
	var notes []models.Note
	paths := make(map[string]string)

	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		note, err := f.loadRel(rel)
		if err != nil {
			return err
		}
		paths[note.ID] = rel
		notes = append(notes, *note)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}

	f.mu.Lock()
	f.paths = paths
	f.mu.Unlock()
	return notes, nil
}

// Load returns a note by id.
func (f *FS) Load(id string) (*models.Note, error) {
	rel, ok := f.pathFor(id)
	if !ok {
		// Path map may be stale; refresh once.
		if _, err := f.ListAll(); err != nil {
			return nil, err
		}
		if rel, ok = f.pathFor(id); !ok {
			return nil, apperr.ErrNotFound
		}
	}
	return f.loadRel(rel)
}

// LoadPath returns the note stored at a vault-relative path. Used by the
// watcher, which sees paths, not ids.
func (f *FS) LoadPath(rel string) (*models.Note, error) {
	return f.loadRel(rel)
}

// IDForPath maps a vault-relative path to the note id recorded for it.
func (f *FS) IDForPath(rel string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.paths {
		if p == rel {
			return id, true
		}
	}
	return "", false
}

// FindByTitle scans the vault for an exact title match.
func (f *FS) FindByTitle(title string) (*models.Note, error) {
	notes, err := f.ListAll()
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].Title == title {
			return &notes[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

// Save persists the note, assigning an id and a title-derived path for new
// notes. Writes are atomic: temp file, fsync, rename.
func (f *FS) Save(note *models.Note) error {
	if note.ID == "" {
		note.ID = ulid.Make().String()
	}
	rel, ok := f.pathFor(note.ID)
	if !ok {
		if note.Path != "" {
			rel = note.Path
		} else {
			rel = slugify(note.Title) + ".md"
		}
	}

	data := renderNote(frontmatter{ID: note.ID, Title: note.Title}, note.Content)
	if err := f.writeRel(rel, data); err != nil {
		return err
	}
	note.Path = rel
	note.Checksum = checksum.Sum(data)
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Now()
	}

	f.mu.Lock()
	f.paths[note.ID] = rel
	f.mu.Unlock()
	return nil
}

// Delete removes the note's file.
func (f *FS) Delete(id string) error {
	rel, ok := f.pathFor(id)
	if !ok {
		return apperr.ErrNotFound
	}
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("notestore: delete %s: %w", rel, err)
	}
	f.mu.Lock()
	delete(f.paths, id)
	f.mu.Unlock()
	return nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// rememberPath records the id→path mapping for a watcher-discovered note.
func (f *FS) rememberPath(id, rel string) {
	f.mu.Lock()
	f.paths[id] = rel
	f.mu.Unlock()
}

// forgetPath drops the mapping for a deleted path.
func (f *FS) forgetPath(rel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.paths {
		if p == rel {
			delete(f.paths, id)
		}
	}
}

// --- internals ---

// loadRel reads and parses one note file, assigning and persisting a fresh
// ULID when the frontmatter carries none.
func (f *FS) loadRel(rel string) (*models.Note, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("notestore: read %s: %w", rel, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("notestore: stat %s: %w", rel, err)
	}

	fm, body := splitFrontmatter(data)
	stem := strings.TrimSuffix(filepath.Base(rel), ".md")
	title := deriveTitle(fm, body, stem)

	if fm.ID == "" {
		fm.ID = ulid.Make().String()
		fm.Title = title
		data = renderNote(fm, body)
		if err := f.writeRel(rel, data); err != nil {
			return nil, err
		}
	}

	return &models.Note{
		ID:        fm.ID,
		Title:     title,
		Content:   body,
		Path:      rel,
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

func (f *FS) pathFor(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := f.paths[id]
	return rel, ok
}

// safePath resolves a relative path against the vault root and rejects
// anything that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("notestore: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("notestore: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("notestore: path escapes vault root: %s", rel)
	}
	return abs, nil
}

func (f *FS) writeRel(rel string, data []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("notestore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".ehwaz-tmp-*")
	if err != nil {
		return fmt.Errorf("notestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("notestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("notestore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("notestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("notestore: rename: %w", err)
	}
	success = true
	return nil
}

// slugify derives a file name from a title: lowercase, non-word runs
// collapsed to single hyphens.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		out = "untitled"
	}
	return out
}
