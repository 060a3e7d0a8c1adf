// Package testutil provides shared test helpers for setting up vaults,
// stores, and link engines.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/ehwaz/internal/backlinks"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/notestore"
)

// TestVault creates a temporary vault directory with an FS store.
func TestVault(t *testing.T) (string, *notestore.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := notestore.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestSQLite creates a temporary SQLite store that is automatically
// cleaned up.
func TestSQLite(t *testing.T) *notestore.SQLite {
	t.Helper()
	store, err := notestore.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestEngine wires an FS store, index, and validator into a service with
// default tuning.
func TestEngine(t *testing.T) *noteservice.Service {
	t.Helper()
	_, store := TestVault(t)
	idx := backlinks.New(backlinks.DefaultContextWindow)
	v := backlinks.NewValidator(idx, backlinks.DefaultSuggestionFloor, backlinks.DefaultSuggestionLimit)
	return noteservice.NewService(store, idx, v, 0)
}
