package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/backlinks"
	"github.com/starford/ehwaz/internal/notestore"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store, err := notestore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	idx := backlinks.New(backlinks.DefaultContextWindow)
	v := backlinks.NewValidator(idx, backlinks.DefaultSuggestionFloor, backlinks.DefaultSuggestionLimit)
	return NewService(store, idx, v, 0)
}

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	target, err := svc.CreateNote(ctx, "Beta", "the target #shared")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	src, err := svc.CreateNote(ctx, "Alpha", "points to [[Beta]] #shared")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	got, err := svc.GetNote(ctx, src.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if len(got.Outgoing) != 1 || got.Outgoing[0] != "Beta" {
		t.Errorf("outgoing = %v", got.Outgoing)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "shared" {
		t.Errorf("tags = %v", got.Tags)
	}

	bl, err := svc.Backlinks(ctx, target.ID)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0].SourceID != src.ID {
		t.Errorf("backlinks = %+v", bl)
	}

	if err := svc.DeleteNote(ctx, target.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := svc.GetNote(ctx, target.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateNote_DuplicateTitle(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	if _, err := svc.CreateNote(ctx, "Same", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "Same", "b"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateNote_ChecksumConflict(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	n, err := svc.CreateNote(ctx, "Alpha", "v1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateNote(ctx, n.ID, "", "v2", "bogus-checksum"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	upd, err := svc.UpdateNote(ctx, n.ID, "", "v2", n.Checksum)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if upd.Content != "v2" {
		t.Errorf("content = %q", upd.Content)
	}
}

func TestSearch_FuzzyRanking(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	for _, title := range []string{"Project Planning", "Daily Journal", "Projections"} {
		if _, err := svc.CreateNote(ctx, title, "body"); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.Search(ctx, "project planning", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) == 0 || res[0].Title != "Project Planning" {
		t.Fatalf("results = %+v, want exact title first", res)
	}
	if res[0].Score != 1.0 {
		t.Errorf("exact match score = %v, want 1.0", res[0].Score)
	}
	for _, r := range res {
		if r.Score < DefaultSearchThreshold {
			t.Errorf("result %q below threshold: %v", r.Title, r.Score)
		}
	}
}

func TestValidate_BrokenLinkSuggestions(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	if _, err := svc.CreateNote(ctx, "Project Planning", "target"); err != nil {
		t.Fatal(err)
	}
	n, err := svc.CreateNote(ctx, "Source", "see [[Porject Planning]]")
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Validate(ctx, n.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Broken) != 1 {
		t.Fatalf("broken = %+v", res.Broken)
	}
	sugg := res.Broken[0].Suggestions
	if len(sugg) == 0 || sugg[0].Title != "Project Planning" {
		t.Errorf("suggestions = %+v", sugg)
	}
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	if _, err := svc.CreateNote(ctx, "One", "[[Two]]"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "Two", "x"); err != nil {
		t.Fatal(err)
	}

	count, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d", count)
	}
	stats, _ := svc.LinkStats(ctx)
	if stats.TotalLinks != 1 || stats.TotalBrokenLinks != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
