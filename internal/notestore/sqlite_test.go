package notestore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLite_SaveLoad(t *testing.T) {
	store := testSQLite(t)

	n := &models.Note{Title: "Alpha", Content: "links to [[Beta]]"}
	if err := store.Save(n); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n.ID == "" || n.Checksum == "" {
		t.Fatalf("Save did not populate note: %+v", n)
	}

	loaded, err := store.Load(n.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != "Alpha" || loaded.Content != "links to [[Beta]]" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSQLite_SaveUpserts(t *testing.T) {
	store := testSQLite(t)

	n := &models.Note{Title: "Alpha", Content: "v1"}
	if err := store.Save(n); err != nil {
		t.Fatal(err)
	}
	n.Content = "v2"
	if err := store.Save(n); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Content != "v2" {
		t.Errorf("all = %+v, want single updated row", all)
	}
}

func TestSQLite_FindByTitle(t *testing.T) {
	store := testSQLite(t)
	if err := store.Save(&models.Note{Title: "Target", Content: "x"}); err != nil {
		t.Fatal(err)
	}

	n, err := store.FindByTitle("Target")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if n.Title != "Target" {
		t.Errorf("title = %q", n.Title)
	}
	if _, err := store.FindByTitle("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLite_Delete(t *testing.T) {
	store := testSQLite(t)
	n := &models.Note{Title: "Gone", Content: "x"}
	if err := store.Save(n); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
